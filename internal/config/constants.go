package config

import "time"

const (
	// MaxPort 最大端口号
	MaxPort = 65535

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"

	LogFormatJSON = "json"
	LogFormatText = "text"

	// DefaultHTTPHost 默认网关监听地址
	DefaultHTTPHost = "localhost"
	// DefaultHTTPPort 默认网关端口
	DefaultHTTPPort = 9100
	// DefaultMaxRequestSizeMB 默认最大请求体（MB）
	DefaultMaxRequestSizeMB int64 = 10
	// DefaultRateLimit 每秒允许的请求数，0 表示不限流
	DefaultRateLimit = 0
	// DefaultRateBurst 突发请求上限
	DefaultRateBurst = 20

	// DefaultNodeURL 默认节点 RPC 地址
	DefaultNodeURL = "http://localhost:8545"
	// DefaultNodeTimeout 默认 RPC 超时
	DefaultNodeTimeout = 30 * time.Second

	// DefaultTokenFixed token 余额默认保留的小数位
	DefaultTokenFixed = 4
	// MaxTokenFixed 保留小数位的上限
	MaxTokenFixed = 18

	DefaultLogLevel  = LogLevelInfo
	DefaultLogFormat = LogFormatText
)

// Validator 验证器接口
type Validator interface {
	Validate() error
}

var validLogLevels = map[string]bool{
	LogLevelDebug: true,
	LogLevelInfo:  true,
	LogLevelWarn:  true,
	LogLevelError: true,
	LogLevelFatal: true,
}

var validLogFormats = map[string]bool{
	LogFormatJSON: true,
	LogFormatText: true,
}
