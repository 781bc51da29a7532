package jsonrpc

import (
	"errors"
	"fmt"
)

// 标准 JSON-RPC 错误码
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// -32000 到 -32099 为服务器保留
	CodeServerErrorMax = -32000
	CodeServerErrorMin = -32099
)

// EIP-1193 provider error codes returned by browser and remote wallets.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
)

// Error 表示 JSON-RPC 2.0 错误
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// Errorf 创建带格式的错误
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewServerError 创建服务器错误，超出保留区间时退化为内部错误
func NewServerError(code int, message string, data interface{}) *Error {
	if !IsServerError(code) {
		code = CodeInternalError
	}
	return &Error{Code: code, Message: message, Data: data}
}

// 以下构造函数每次返回新实例，调用方可以安全地修改 Data
func NewParseError(data interface{}) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: data}
}

func NewInvalidRequest(data interface{}) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: data}
}

func NewMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func NewInvalidParams(data interface{}) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: data}
}

func NewInternalError(data interface{}) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

// IsServerError 检查错误码是否落在服务器保留区间
func IsServerError(code int) bool {
	return code >= CodeServerErrorMin && code <= CodeServerErrorMax
}

// IsWalletError reports whether code is one of the EIP-1193 provider codes.
func IsWalletError(code int) bool {
	switch code {
	case CodeUserRejected, CodeUnauthorized, CodeUnsupportedMethod,
		CodeDisconnected, CodeChainDisconnected, CodeUnrecognizedChain:
		return true
	}
	return false
}

// CodeOf 从错误链中取出 JSON-RPC 错误码
func CodeOf(err error) (int, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}

// IsUserRejected reports whether the wallet user declined the request.
func IsUserRejected(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeUserRejected
}

// IsUnrecognizedChain reports whether the wallet does not know the requested chain.
func IsUnrecognizedChain(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeUnrecognizedChain
}
