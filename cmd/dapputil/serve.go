package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mowind/dapputil-go/internal/router"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/server"
	"github.com/mowind/dapputil-go/internal/signer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ShutdownTimeout 优雅关闭的最长时间
const ShutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dapp_* JSON-RPC gateway",
		Long: `Run an HTTP JSON-RPC gateway that answers the dapp_* methods
(dapp_isAddress, dapp_getTokenBalance, dapp_approve, ...) and forwards
every other method to the node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, cleanup, err := a.buildServer()
			defer cleanup()
			if err != nil {
				return err
			}

			if err := s.Start(); err != nil {
				return err
			}
			return waitForInterrupt(cmd.Context(), a, s)
		},
	}
	if err := registerFlags(a.v, cmd.Flags(), serveFlags); err != nil {
		panic(err)
	}
	return cmd
}

// buildServer wires the node, wallet, optional local key, network registry
// and metrics into a gateway server. cleanup closes the dialed endpoints and
// must be called even when err is non-nil.
func (a *app) buildServer() (*server.Server, func(), error) {
	var closers []rpc.Caller
	cleanup := func() {
		for _, c := range closers {
			closeCaller(c)
		}
	}

	provider, err := a.provider()
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, provider)

	wallet := provider
	if a.cfg.Wallet.RPCURL != "" {
		if wallet, err = a.wallet(); err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, wallet)
	}

	registry, err := a.registry()
	if err != nil {
		return nil, cleanup, err
	}

	opts := []router.DappOption{
		router.WithWallet(wallet),
		router.WithRegistry(registry),
		router.WithTokenFixed(a.cfg.Token.Fixed),
	}
	if a.cfg.Wallet.KeyFile != "" {
		key, err := signer.LoadKeyFile(a.cfg.Wallet.KeyFile)
		if err != nil {
			return nil, cleanup, err
		}
		sender := signer.NewKeySender(key, provider, signer.WithLogger(a.logger))
		opts = append(opts, router.WithSender(sender))
		a.logger.WithField("address", sender.From()).Info("Local signing key loaded")
	}

	// ws/ipc 节点不支持原样转发
	forwarder, _ := provider.(rpc.Forwarder)
	if forwarder == nil {
		a.logger.WithField("node", a.cfg.Node.RPCURL).Warn("Node transport cannot forward raw requests; only dapp_* methods are served")
	}

	svc := router.NewDappService(provider, a.logger, opts...)
	r, err := router.NewRouterFactory(a.logger, a.cfg.HTTP.MaxRequestSizeMB*1024*1024).CreateRouter(svc, forwarder)
	if err != nil {
		return nil, cleanup, err
	}

	metrics, err := router.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, cleanup, err
	}
	r.SetMetrics(metrics)

	b := server.NewBuilder(a.cfg, r).WithLogger(a.logger)
	if checker, ok := provider.(server.ReadinessChecker); ok {
		b = b.WithReadiness(checker)
	}

	a.logger.WithField("config", a.cfg.String()).Info("Starting dapputil gateway")
	return b.Build(), cleanup, nil
}

// waitForInterrupt 等待中断信号并优雅关闭服务器
func waitForInterrupt(ctx context.Context, a *app, s *server.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Error during shutdown")
		return err
	}

	a.logger.Info("Server shutdown complete")
	return nil
}
