package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mowind/dapputil-go/internal/chainutil"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/signer"
	"github.com/mowind/dapputil-go/internal/units"
	"github.com/spf13/cobra"
	"github.com/umbracle/ethgo/abi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printJSON 以缩进 JSON 输出结果
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address <value>",
		Short: "Validate an address and print its checksummed and short forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]interface{}{"input": args[0], "valid": false}
			if addr, ok := chainutil.IsAddress(args[0]); ok {
				out["valid"] = true
				out["address"] = addr
				out["display"] = chainutil.ParseAccount(addr)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Print the native balance of an account in ether",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			provider, err := a.provider()
			if err != nil {
				return err
			}
			defer closeCaller(provider)

			return a.run(ctx, func() error {
				balance, err := chainutil.GetBalance(ctx, provider, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"account": args[0], "balance": balance})
			})
		},
	}
}

func newTokenBalanceCmd(a *app) *cobra.Command {
	var fixed int
	cmd := &cobra.Command{
		Use:   "token-balance <token> <account>",
		Short: "Print the ERC20 balance of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("fixed") {
				fixed = a.cfg.Token.Fixed
			}
			if fixed < 0 {
				return apperrors.InvalidParams("fixed must not be negative")
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			provider, err := a.provider()
			if err != nil {
				return err
			}
			defer closeCaller(provider)

			return a.run(ctx, func() error {
				amount, err := chainutil.GetTokenBalance(ctx, args[0], args[1], provider, fixed)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), amountOutput(amount))
			})
		},
	}
	cmd.Flags().IntVar(&fixed, "fixed", 0, "fractional digits to show (defaults to token.fixed)")
	return cmd
}

func newAllowanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance <token> <owner> <spender>",
		Short: "Print how much of owner's tokens spender may transfer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			provider, err := a.provider()
			if err != nil {
				return err
			}
			defer closeCaller(provider)

			return a.run(ctx, func() error {
				amount, err := chainutil.GetERC20Allowance(ctx, args[0], provider, args[1], args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), amountOutput(amount))
			})
		},
	}
}

// amountOutput 同时输出浮点值与精确值
func amountOutput(amount units.Amount) map[string]interface{} {
	return map[string]interface{}{
		"value":    amount,
		"exact":    amount.Exact(),
		"raw":      amount.Raw.String(),
		"decimals": amount.Decimals,
	}
}

type approveOptions struct {
	owner    string
	amount   string
	decimals int
	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func newApproveCmd(a *app) *cobra.Command {
	opts := &approveOptions{}
	cmd := &cobra.Command{
		Use:   "approve <token> <spender>",
		Short: "Approve spender to transfer tokens on behalf of the owner",
		Long: `Approve spender to transfer tokens on behalf of the owner.

With --wallet-key-file the transaction is signed locally by that key and
--owner is optional. Otherwise the wallet endpoint signs for --owner.
Without --amount the allowance is unlimited (2^256-1).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.approve(cmd, opts, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&opts.owner, "owner", "", "token owner (required without a key file)")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "amount to approve; an integer in the smallest unit unless --decimals is set")
	cmd.Flags().IntVar(&opts.decimals, "decimals", -1, "parse --amount as a decimal with this many fractional digits")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait for the transaction receipt")
	cmd.Flags().DurationVar(&opts.interval, "wait-interval", contract.DefaultPollInterval, "receipt poll interval")
	cmd.Flags().DurationVar(&opts.timeout, "wait-timeout", 5*time.Minute, "how long to wait for the receipt")
	return cmd
}

func (a *app) approve(cmd *cobra.Command, opts *approveOptions, token, spender string) error {
	amount, err := parseAmount(opts.amount, opts.decimals)
	if err != nil {
		return err
	}

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	provider, err := a.provider()
	if err != nil {
		return err
	}
	defer closeCaller(provider)

	var pending *contract.PendingTx
	err = a.run(ctx, func() error {
		if a.cfg.Wallet.KeyFile != "" {
			key, err := signer.LoadKeyFile(a.cfg.Wallet.KeyFile)
			if err != nil {
				return err
			}
			sender := signer.NewKeySender(key, provider, signer.WithLogger(a.logger))
			if opts.owner != "" && !strings.EqualFold(opts.owner, sender.From()) {
				return apperrors.InvalidParams("owner %s does not match key address %s", opts.owner, sender.From())
			}
			pending, err = chainutil.ERC20ApproveWith(ctx, sender, token, provider, spender, amount)
			return err
		}

		if opts.owner == "" {
			return apperrors.InvalidParams("--owner is required without --wallet-key-file")
		}
		wallet, err := a.wallet()
		if err != nil {
			return err
		}
		defer closeCaller(wallet)
		pending, err = chainutil.ERC20Approve(ctx, token, wallet, opts.owner, spender, amount)
		return err
	})
	if err != nil {
		return err
	}

	if !opts.wait {
		return printJSON(cmd.OutOrStdout(), pending)
	}

	waitCtx, waitCancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer waitCancel()
	receipt, err := pending.Wait(waitCtx, opts.interval)
	if receipt == nil {
		return err
	}

	out := map[string]interface{}{"receipt": receipt}
	if logs, derr := receipt.DecodeLogs(); derr == nil {
		out["events"] = contract.Decoded(chainutil.ParseLog(contract.ERC20ABI(), logs))
	}
	if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
		return perr
	}
	return err
}

// parseAmount 空串表示无限授权
func parseAmount(s string, decimals int) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	if decimals >= 0 {
		if decimals > 255 {
			return nil, apperrors.InvalidParams("decimals must be at most 255")
		}
		v, err := units.ParseUnits(s, uint8(decimals))
		if err != nil {
			return nil, apperrors.InvalidParams("invalid amount: %v", err)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, apperrors.InvalidParams("invalid amount %q", s)
	}
	return v, nil
}

func newSwitchNetworkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-network <key|chainId>",
		Short: "Ask the wallet to switch to (or add) a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			d, err := registry.Lookup(args[0])
			if err != nil {
				return apperrors.InvalidParams("%v", err)
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			wallet, err := a.wallet()
			if err != nil {
				return err
			}
			defer closeCaller(wallet)

			return a.run(ctx, func() error {
				if err := chainutil.ChangeNetwork(ctx, wallet, d); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"chainId": d.ChainID, "chainName": d.ChainName})
			})
		},
	}
}

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the known network descriptors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), registry.List())
		},
	}
}

func newDecodeLogsCmd(a *app) *cobra.Command {
	var abiFile string
	var onlyDecoded bool
	cmd := &cobra.Command{
		Use:   "decode-logs [file]",
		Short: "Decode JSON-RPC log objects against an ABI (ERC20 by default)",
		Long: `Decode JSON-RPC log objects against an ABI (ERC20 by default).

The input is a single log object or an array of them, read from file or
from stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			logs, err := contract.ParseLogJSON(data)
			if err != nil {
				return apperrors.InvalidParams("invalid logs: %v", err)
			}

			eventABI := contract.ERC20ABI()
			if abiFile != "" {
				raw, err := os.ReadFile(abiFile)
				if err != nil {
					return apperrors.Wrap(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to read ABI file")
				}
				if eventABI, err = abi.NewABI(string(raw)); err != nil {
					return apperrors.InvalidParams("invalid abi: %v", err)
				}
			}

			results := chainutil.ParseLog(eventABI, logs)
			if onlyDecoded {
				return printJSON(cmd.OutOrStdout(), contract.Decoded(results))
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&abiFile, "abi", "", "JSON ABI file")
	cmd.Flags().BoolVar(&onlyDecoded, "null-on-failure", false, "print null for undecodable logs instead of an error entry")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams, "failed to read input")
	}
	return data, nil
}
