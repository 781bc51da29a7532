package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config 表示 dapputil 的完整配置
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Node     NodeConfig     `mapstructure:"node"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Token    TokenConfig    `mapstructure:"token"`
	Networks NetworksConfig `mapstructure:"networks"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// HTTPConfig 定义网关 HTTP 服务器配置
type HTTPConfig struct {
	Host             string   `mapstructure:"host"`
	Port             int      `mapstructure:"port"`
	MaxRequestSizeMB int64    `mapstructure:"max-request-size"`
	RateLimit        float64  `mapstructure:"rate-limit"` // 每秒请求数，0 关闭限流
	RateBurst        int      `mapstructure:"rate-burst"`
	CORSOrigins      []string `mapstructure:"cors-origins"`
}

// Validate 验证 HTTP 配置
func (c *HTTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("http-host is required")
	}
	if c.Port <= 0 || c.Port > MaxPort {
		return fmt.Errorf("http-port must be between 1 and %d", MaxPort)
	}
	if c.MaxRequestSizeMB <= 0 {
		c.MaxRequestSizeMB = DefaultMaxRequestSizeMB
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("http-rate-limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	return nil
}

// Addr 返回监听地址
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NodeConfig 定义读链所用的节点（Provider）配置
type NodeConfig struct {
	RPCURL  string        `mapstructure:"rpc-url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Validate 验证节点配置
func (c *NodeConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("node-rpc-url is required")
	}
	if err := validateEndpoint(c.RPCURL); err != nil {
		return fmt.Errorf("node-rpc-url: %w", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultNodeTimeout
	}
	return nil
}

// WalletConfig describes the wallet capability used for network switching
// and approvals. RPCURL may point at a remote signer (for example a
// web3signer instance) that understands wallet_* and eth_sendTransaction.
// When it is empty the node endpoint doubles as the wallet.
type WalletConfig struct {
	RPCURL  string `mapstructure:"rpc-url"`
	KeyFile string `mapstructure:"key-file"`
}

// Validate 验证钱包配置
func (c *WalletConfig) Validate() error {
	if c.RPCURL == "" {
		return nil
	}
	if err := validateEndpoint(c.RPCURL); err != nil {
		return fmt.Errorf("wallet-rpc-url: %w", err)
	}
	return nil
}

// Endpoint 返回钱包地址，未配置时回落到节点地址
func (c *WalletConfig) Endpoint(node NodeConfig) string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return node.RPCURL
}

// TokenConfig 定义 token 余额显示配置
type TokenConfig struct {
	Fixed int `mapstructure:"fixed"`
}

// Validate 验证 token 配置
func (c *TokenConfig) Validate() error {
	if c.Fixed < 0 || c.Fixed > MaxTokenFixed {
		return fmt.Errorf("token-fixed must be between 0 and %d, got: %d", MaxTokenFixed, c.Fixed)
	}
	return nil
}

// NetworksConfig points at an optional YAML file with extra chain descriptors.
type NetworksConfig struct {
	File string `mapstructure:"file"`
}

// Validate 无需校验，文件在加载时检查
func (c *NetworksConfig) Validate() error { return nil }

// AuthConfig 定义网关鉴权配置
type AuthConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Secret    string   `mapstructure:"secret"`
	Whitelist []string `mapstructure:"whitelist"`
}

// Validate 验证鉴权配置
func (c *AuthConfig) Validate() error {
	if c.Enabled && c.Secret == "" {
		return fmt.Errorf("auth-secret is required when auth is enabled")
	}
	return nil
}

// LogConfig 定义日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout、stderr 或文件路径
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	if c.Format == "" {
		c.Format = DefaultLogFormat
	}
	if !validLogLevels[strings.ToLower(c.Level)] {
		return fmt.Errorf("log-level must be one of: debug, info, warn, error, fatal, got: %s", c.Level)
	}
	if !validLogFormats[strings.ToLower(c.Format)] {
		return fmt.Errorf("log-format must be one of: json, text, got: %s", c.Format)
	}
	return nil
}

// Validate 验证配置并填充默认值
func (c *Config) Validate() error {
	validators := []Validator{&c.HTTP, &c.Node, &c.Wallet, &c.Token, &c.Networks, &c.Auth, &c.Log}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String 返回配置的安全摘要（不包含敏感信息）
func (c *Config) String() string {
	wallet := "node"
	if c.Wallet.RPCURL != "" {
		wallet = redactURL(c.Wallet.RPCURL)
	}
	return fmt.Sprintf(
		"HTTP: {Host: %s, Port: %d, RateLimit: %g}, "+
			"Node: {RPCURL: %s, Timeout: %s}, "+
			"Wallet: {RPCURL: %s, KeyFile: %t}, "+
			"Token: {Fixed: %d}, Networks: {File: %s}, "+
			"Auth: {Enabled: %t, Secret: [REDACTED]}, "+
			"Log: {Level: %s, Format: %s}",
		c.HTTP.Host, c.HTTP.Port, c.HTTP.RateLimit,
		redactURL(c.Node.RPCURL), c.Node.Timeout,
		wallet, c.Wallet.KeyFile != "",
		c.Token.Fixed, c.Networks.File,
		c.Auth.Enabled,
		c.Log.Level, c.Log.Format,
	)
}

// validateEndpoint accepts http(s), ws(s) URLs and IPC socket paths.
func validateEndpoint(endpoint string) error {
	if strings.HasPrefix(endpoint, "/") || strings.HasSuffix(endpoint, ".ipc") {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// redactURL hides the path of provider URLs, which usually carries an API key
// (for example https://mainnet.infura.io/v3/<key>).
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Path != "" && u.Path != "/" {
		u.Path = "/[REDACTED]"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
