package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mowind/dapputil-go/internal/chain"
	"github.com/mowind/dapputil-go/internal/config"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "DAPPUTIL"

// app 保存一次命令执行的配置与依赖
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *logrus.Logger
}

// Execute 执行根命令
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "dapputil",
		Short: "dapputil provides wallet and chain helpers for EVM dApps",
		Long: `dapputil exposes the helpers a dApp frontend needs when talking to
Ethereum-compatible chains:

1. Address validation and display formatting
2. Native and ERC20 balance and allowance reads
3. ERC20 approvals and wallet network switching
4. ABI based event log decoding

Run "dapputil serve" to offer the same helpers as dapp_* JSON-RPC methods.`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load(cmd) },
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.dapputil.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	if err := registerFlags(a.v, rootCmd.PersistentFlags(), globalFlags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		newAddressCmd(a),
		newBalanceCmd(a),
		newTokenBalanceCmd(a),
		newAllowanceCmd(a),
		newApproveCmd(a),
		newSwitchNetworkCmd(a),
		newNetworksCmd(a),
		newDecodeLogsCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the dotenv file, the config file and the environment, then
// validates the result and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to load %s", a.envFile)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName(".dapputil")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to read config file")
		}
	}

	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "configuration error")
	}

	logger, err := apperrors.NewLogger(cfg.Log)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "configuration error")
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("Using config file")
	}
	logger.WithField("config", cfg.String()).Debug("Configuration loaded")

	a.cfg = &cfg
	a.logger = logger
	return nil
}

// provider 连接节点
func (a *app) provider() (rpc.Caller, error) {
	p, err := rpc.Dial(a.cfg.Node.RPCURL, a.cfg.Node.Timeout)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConnection, apperrors.CodeConnection, "failed to connect to node")
	}
	return p, nil
}

// wallet 连接钱包端点，未配置时使用节点
func (a *app) wallet() (rpc.Caller, error) {
	w, err := rpc.Dial(a.cfg.Wallet.Endpoint(a.cfg.Node), a.cfg.Node.Timeout)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConnection, apperrors.CodeConnection, "failed to connect to wallet")
	}
	return w, nil
}

// registry 返回内置网络表并合并 networks.file
func (a *app) registry() (*chain.Registry, error) {
	r := chain.NewRegistry()
	if a.cfg.Networks.File != "" {
		if err := r.LoadFile(a.cfg.Networks.File); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to load networks file")
		}
	}
	return r, nil
}

// commandContext 返回带超时和请求 ID 的 context
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := apperrors.WithTrace(cmd.Context(), "", cmd.Name())
	return context.WithTimeout(ctx, a.cfg.Node.Timeout)
}

// run 记录操作耗时与结果
func (a *app) run(ctx context.Context, fn func() error) error {
	err := fn()
	apperrors.LogTrace(a.logger, ctx, err)
	return err
}

func closeCaller(c rpc.Caller) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
