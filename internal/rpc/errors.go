package rpc

import (
	"errors"
	"fmt"
)

// Error 表示与节点或钱包通信时的传输层错误
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// ErrorCode 错误码
type ErrorCode int

const (
	// ErrorCodeConnectionFailed 连接失败
	ErrorCodeConnectionFailed ErrorCode = iota + 1
	// ErrorCodeRequestFailed 请求失败（非 200 状态码等）
	ErrorCodeRequestFailed
	// ErrorCodeInvalidResponse 无法解析的响应
	ErrorCodeInvalidResponse
	// ErrorCodeTimeout 超时
	ErrorCodeTimeout
	// ErrorCodeBatchSizeMismatch 批量响应条数与请求不一致
	ErrorCodeBatchSizeMismatch
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeConnectionFailed:
		return "connection failed"
	case ErrorCodeRequestFailed:
		return "request failed"
	case ErrorCodeInvalidResponse:
		return "invalid response"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeBatchSizeMismatch:
		return "batch size mismatch"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("rpc %s: %s", e.Code, e.Message)
}

// Unwrap 返回被包装的错误
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建传输层错误
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsConnectionError 检查是否是连接错误
func IsConnectionError(err error) bool { return hasCode(err, ErrorCodeConnectionFailed) }

// IsTimeoutError 检查是否是超时错误
func IsTimeoutError(err error) bool { return hasCode(err, ErrorCodeTimeout) }

// IsInvalidResponseError 检查是否是无效响应错误
func IsInvalidResponseError(err error) bool { return hasCode(err, ErrorCodeInvalidResponse) }

func connectionError(err error) error {
	return NewError(ErrorCodeConnectionFailed, "failed to reach endpoint", err)
}

func timeoutError(err error) error {
	return NewError(ErrorCodeTimeout, "request timed out", err)
}

func requestError(status int, body []byte) error {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return NewError(ErrorCodeRequestFailed, fmt.Sprintf("endpoint returned status %d: %s", status, body), nil)
}

func invalidResponseError(err error) error {
	return NewError(ErrorCodeInvalidResponse, "invalid JSON-RPC response", err)
}

func batchSizeMismatchError(expected, actual int) error {
	return NewError(ErrorCodeBatchSizeMismatch,
		fmt.Sprintf("expected %d responses, got %d", expected, actual), nil)
}
