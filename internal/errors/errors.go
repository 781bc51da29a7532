// Package errors defines the unified error type shared by the chain helpers,
// the CLI and the gateway, together with the logrus based logging helpers.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
)

// ErrorType 错误类型
type ErrorType string

const (
	// 链工具错误
	ErrorTypeInvalidAddress ErrorType = "INVALID_ADDRESS"
	ErrorTypeNoWallet       ErrorType = "NO_WALLET"
	ErrorTypeRemoteRejected ErrorType = "REMOTE_REJECTED"
	ErrorTypeDecodeFailed   ErrorType = "DECODE_FAILED"

	// 请求错误
	ErrorTypeInvalidParams  ErrorType = "INVALID_PARAMS"
	ErrorTypeMethodNotFound ErrorType = "METHOD_NOT_FOUND"

	// 系统级错误
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeConfig     ErrorType = "CONFIG_ERROR"
	ErrorTypeConnection ErrorType = "CONNECTION_ERROR"
	ErrorTypeTimeout    ErrorType = "TIMEOUT_ERROR"
)

// 服务器保留区间内的错误码
const (
	CodeConnection     = jsonrpc.CodeServerErrorMax
	CodeTimeout        = jsonrpc.CodeServerErrorMax - 1
	CodeRemoteRejected = jsonrpc.CodeServerErrorMax - 2
	CodeDecodeFailed   = jsonrpc.CodeServerErrorMax - 3
	CodeConfig         = jsonrpc.CodeServerErrorMax - 4
)

// AppError 应用统一的错误类型
type AppError struct {
	Type        ErrorType              `json:"type"`
	Code        int                    `json:"code"`
	Op          string                 `json:"op,omitempty"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	OriginalErr error                  `json:"-"`
}

// New 创建新的应用错误
func New(errorType ErrorType, code int, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf 创建带格式的应用错误
func Newf(errorType ErrorType, code int, format string, args ...interface{}) *AppError {
	return New(errorType, code, fmt.Sprintf(format, args...))
}

// Wrap 包装现有错误，err 为 nil 时返回 nil
func Wrap(err error, errorType ErrorType, code int, message string) *AppError {
	if err == nil {
		return nil
	}
	appErr := New(errorType, code, message)
	appErr.OriginalErr = err
	return appErr
}

// Wrapf 包装现有错误并带格式
func Wrapf(err error, errorType ErrorType, code int, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, errorType, code, fmt.Sprintf(format, args...))
}

// InvalidAddress reports a malformed address parameter. param is the name
// of the offending argument, e.g. "tokenAddress".
func InvalidAddress(op, param, value string) *AppError {
	return Newf(ErrorTypeInvalidAddress, jsonrpc.CodeInvalidParams, "Invalid '%s' parameter", param).
		WithOp(op).
		WithContext("param", param).
		WithContext("value", value)
}

// NoWallet 表示没有可用的钱包
func NoWallet(op string) *AppError {
	return New(ErrorTypeNoWallet, jsonrpc.CodeDisconnected, "no wallet available").WithOp(op)
}

// RemoteRejected wraps a failure returned by the node or wallet. A remote
// JSON-RPC error code, such as 4001 from a wallet, is kept as the error code.
func RemoteRejected(op string, err error) *AppError {
	code := CodeRemoteRejected
	if c, ok := jsonrpc.CodeOf(err); ok {
		code = c
	}
	return Wrap(err, ErrorTypeRemoteRejected, code, "remote call rejected").WithOp(op)
}

// DecodeFailed 表示返回数据或日志无法按 ABI 解码
func DecodeFailed(op string, err error) *AppError {
	return Wrap(err, ErrorTypeDecodeFailed, CodeDecodeFailed, "failed to decode data").WithOp(op)
}

// InvalidParams 表示请求参数错误
func InvalidParams(format string, args ...interface{}) *AppError {
	return Newf(ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams, format, args...)
}

// WithOp 设置操作名
func (e *AppError) WithOp(op string) *AppError {
	if e == nil {
		return nil
	}
	e.Op = op
	return e
}

// WithContext 添加上下文信息
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e == nil {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	msg = fmt.Sprintf("%s [%s:%d]", msg, e.Type, e.Code)
	if e.Details != "" {
		msg += " (details: " + e.Details + ")"
	}
	if e.OriginalErr != nil {
		msg += ": " + e.OriginalErr.Error()
	}
	return msg
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.OriginalErr
}

// Is matches any *AppError of the same type, so errors.Is(err, ErrNoWallet)
// works on errors built with NoWallet.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// ToJSONRPCError 转换为 JSON-RPC 错误
func (e *AppError) ToJSONRPCError() *jsonrpc.Error {
	data := map[string]interface{}{
		"type": string(e.Type),
	}
	if e.Op != "" {
		data["op"] = e.Op
	}
	if e.Details != "" {
		data["details"] = e.Details
	} else if e.OriginalErr != nil {
		data["details"] = e.OriginalErr.Error()
	}
	for k, v := range e.Context {
		data[k] = v
	}

	code := e.Code
	if code == 0 {
		code = jsonrpc.CodeInternalError
	}
	return &jsonrpc.Error{Code: code, Message: e.Message, Data: data}
}

// Sentinels for errors.Is. They are comparison targets only and must not be
// returned or modified; build new errors with the constructors above.
var (
	ErrInvalidAddress = &AppError{Type: ErrorTypeInvalidAddress}
	ErrNoWallet       = &AppError{Type: ErrorTypeNoWallet}
	ErrRemoteRejected = &AppError{Type: ErrorTypeRemoteRejected}
	ErrDecodeFailed   = &AppError{Type: ErrorTypeDecodeFailed}
	ErrInvalidParams  = &AppError{Type: ErrorTypeInvalidParams}
	ErrConfig         = &AppError{Type: ErrorTypeConfig}
	ErrConnection     = &AppError{Type: ErrorTypeConnection}
	ErrTimeout        = &AppError{Type: ErrorTypeTimeout}
)

// As 是 errors.As 的便捷包装
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
