package main

import (
	"fmt"
	"time"

	"github.com/mowind/dapputil-go/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag 定义命令行标志
type Flag struct {
	Name         string
	DefaultValue interface{}
	Description  string
	BindTo       string // viper 键名
}

// globalFlags 所有子命令共用的标志
var globalFlags = []Flag{
	// 节点配置
	{
		Name:         "node-rpc-url",
		DefaultValue: config.DefaultNodeURL,
		Description:  "Node JSON-RPC endpoint (http, ws or IPC path)",
		BindTo:       "node.rpc-url",
	},
	{
		Name:         "node-timeout",
		DefaultValue: config.DefaultNodeTimeout,
		Description:  "Node request timeout",
		BindTo:       "node.timeout",
	},

	// 钱包配置
	{
		Name:         "wallet-rpc-url",
		DefaultValue: "",
		Description:  "Wallet JSON-RPC endpoint for wallet_* and eth_sendTransaction (defaults to the node)",
		BindTo:       "wallet.rpc-url",
	},
	{
		Name:         "wallet-key-file",
		DefaultValue: "",
		Description:  "File holding a hex private key; approvals are signed locally when set",
		BindTo:       "wallet.key-file",
	},

	// 代币与网络
	{
		Name:         "token-fixed",
		DefaultValue: config.DefaultTokenFixed,
		Description:  "Fractional digits shown for token balances (0 = unrounded)",
		BindTo:       "token.fixed",
	},
	{
		Name:         "networks-file",
		DefaultValue: "",
		Description:  "YAML file with extra network descriptors",
		BindTo:       "networks.file",
	},

	// 日志配置
	{
		Name:         "log-level",
		DefaultValue: config.DefaultLogLevel,
		Description:  "Log level (debug, info, warn, error, fatal)",
		BindTo:       "log.level",
	},
	{
		Name:         "log-format",
		DefaultValue: config.DefaultLogFormat,
		Description:  "Log format (json, text)",
		BindTo:       "log.format",
	},
	{
		Name:         "log-output",
		DefaultValue: "stderr",
		Description:  "Log output (stdout, stderr or a file path)",
		BindTo:       "log.output",
	},
}

// serveFlags 网关专用标志
var serveFlags = []Flag{
	{
		Name:         "http-host",
		DefaultValue: config.DefaultHTTPHost,
		Description:  "Gateway listen host",
		BindTo:       "http.host",
	},
	{
		Name:         "http-port",
		DefaultValue: config.DefaultHTTPPort,
		Description:  "Gateway listen port",
		BindTo:       "http.port",
	},
	{
		Name:         "http-max-request-size",
		DefaultValue: config.DefaultMaxRequestSizeMB,
		Description:  "Maximum request body size in MB",
		BindTo:       "http.max-request-size",
	},
	{
		Name:         "http-rate-limit",
		DefaultValue: float64(config.DefaultRateLimit),
		Description:  "Requests per second across all clients (0 disables limiting)",
		BindTo:       "http.rate-limit",
	},
	{
		Name:         "http-rate-burst",
		DefaultValue: config.DefaultRateBurst,
		Description:  "Burst size for the rate limiter",
		BindTo:       "http.rate-burst",
	},
	{
		Name:         "http-cors-origins",
		DefaultValue: []string{},
		Description:  "Allowed CORS origins (empty allows all)",
		BindTo:       "http.cors-origins",
	},
	{
		Name:         "auth-enabled",
		DefaultValue: false,
		Description:  "Require a Bearer token or X-API-Key header",
		BindTo:       "auth.enabled",
	},
	{
		Name:         "auth-secret",
		DefaultValue: "",
		Description:  "Shared secret for gateway authentication",
		BindTo:       "auth.secret",
	},
	{
		Name:         "auth-whitelist",
		DefaultValue: []string{"/health", "/ready"},
		Description:  "Path prefixes that skip authentication",
		BindTo:       "auth.whitelist",
	},
}

// registerFlags adds flags to fs, binds them to viper and records their
// defaults so commands that do not own a flag still see its default.
func registerFlags(v *viper.Viper, fs *pflag.FlagSet, flags []Flag) error {
	for _, flag := range flags {
		switch d := flag.DefaultValue.(type) {
		case string:
			fs.String(flag.Name, d, flag.Description)
		case int:
			fs.Int(flag.Name, d, flag.Description)
		case int64:
			fs.Int64(flag.Name, d, flag.Description)
		case float64:
			fs.Float64(flag.Name, d, flag.Description)
		case bool:
			fs.Bool(flag.Name, d, flag.Description)
		case time.Duration:
			fs.Duration(flag.Name, d, flag.Description)
		case []string:
			fs.StringSlice(flag.Name, d, flag.Description)
		default:
			return fmt.Errorf("unsupported flag type: %T for flag %s", d, flag.Name)
		}

		v.SetDefault(flag.BindTo, flag.DefaultValue)
		if err := v.BindPFlag(flag.BindTo, fs.Lookup(flag.Name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}
