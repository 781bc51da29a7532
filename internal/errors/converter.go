package errors

import (
	stderrors "errors"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
)

// FromJSONRPC 将节点或钱包返回的 JSON-RPC 错误转换为 AppError
func FromJSONRPC(jsonErr *jsonrpc.Error) *AppError {
	if jsonErr == nil {
		return nil
	}

	var errorType ErrorType
	switch jsonErr.Code {
	case jsonrpc.CodeMethodNotFound, jsonrpc.CodeUnsupportedMethod:
		errorType = ErrorTypeMethodNotFound
	case jsonrpc.CodeInvalidParams:
		errorType = ErrorTypeInvalidParams
	case jsonrpc.CodeDisconnected, jsonrpc.CodeChainDisconnected:
		errorType = ErrorTypeConnection
	default:
		errorType = ErrorTypeRemoteRejected
	}

	appErr := Wrap(jsonErr, errorType, jsonErr.Code, jsonErr.Message)
	if jsonErr.Data != nil {
		appErr.WithContext("original_data", jsonErr.Data)
	}
	return appErr
}

// FromTransport 将 rpc 传输层错误转换为 AppError
func FromTransport(err *rpc.Error) *AppError {
	if err == nil {
		return nil
	}
	switch err.Code {
	case rpc.ErrorCodeConnectionFailed:
		return Wrap(err, ErrorTypeConnection, CodeConnection, "connection to node failed")
	case rpc.ErrorCodeTimeout:
		return Wrap(err, ErrorTypeTimeout, CodeTimeout, "request to node timed out")
	case rpc.ErrorCodeInvalidResponse, rpc.ErrorCodeBatchSizeMismatch:
		return Wrap(err, ErrorTypeDecodeFailed, CodeDecodeFailed, "invalid response from node")
	default:
		return Wrap(err, ErrorTypeRemoteRejected, CodeRemoteRejected, "request to node failed")
	}
}

// ConvertError 通用的错误转换函数
func ConvertError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}

	var jsonErr *jsonrpc.Error
	if stderrors.As(err, &jsonErr) {
		return FromJSONRPC(jsonErr)
	}
	var rpcErr *rpc.Error
	if stderrors.As(err, &rpcErr) {
		return FromTransport(rpcErr)
	}
	return Wrap(err, ErrorTypeInternal, jsonrpc.CodeInternalError, "Internal error")
}

// ConvertToJSONRPC 快速转换为 JSON-RPC 错误
func ConvertToJSONRPC(err error) *jsonrpc.Error {
	if err == nil {
		return nil
	}
	return ConvertError(err).ToJSONRPCError()
}

// IsErrorType 检查错误链中是否有指定类型的 AppError
func IsErrorType(err error, errorType ErrorType) bool {
	return stderrors.Is(err, &AppError{Type: errorType})
}

// IsRetryable 检查错误是否可重试
func IsRetryable(err error) bool {
	switch ConvertError(err).Type {
	case ErrorTypeConnection, ErrorTypeTimeout:
		return true
	}
	return false
}

// IsClientError 检查是否是调用方的错误
func IsClientError(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case ErrorTypeInvalidAddress, ErrorTypeInvalidParams, ErrorTypeMethodNotFound, ErrorTypeNoWallet:
		return true
	}
	return false
}

// FromRemote classifies the error of a call to a node or wallet. Transport
// failures keep their own kind (connection, timeout, decode); anything the
// remote side answered with becomes REMOTE_REJECTED.
func FromRemote(op string, err error) *AppError {
	if err == nil {
		return nil
	}
	var rpcErr *rpc.Error
	if stderrors.As(err, &rpcErr) {
		return FromTransport(rpcErr).WithOp(op)
	}
	return RemoteRejected(op, err)
}
