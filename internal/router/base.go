package router

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/sirupsen/logrus"
)

// BaseHandler 提供处理器的基础功能
type BaseHandler struct {
	method string
	logger logrus.FieldLogger
}

// NewBaseHandler 创建基础处理器
func NewBaseHandler(method string, logger logrus.FieldLogger) *BaseHandler {
	return &BaseHandler{
		method: method,
		logger: logger,
	}
}

// Method 返回方法名
func (h *BaseHandler) Method() string {
	return h.method
}

// CreateSuccessResponse 创建成功响应
func (h *BaseHandler) CreateSuccessResponse(id interface{}, result interface{}) (*jsonrpc.Response, error) {
	response, err := jsonrpc.NewResponse(id, result)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create success response")
		return nil, fmt.Errorf("failed to create response: %w", err)
	}
	return response, nil
}

// CreateErrorResponse converts err into a JSON-RPC error response, keeping
// the error kind and context in the error data.
func (h *BaseHandler) CreateErrorResponse(id interface{}, err error) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(id, apperrors.ConvertToJSONRPC(err))
}

// LogRequest 记录请求日志
func (h *BaseHandler) LogRequest(request *jsonrpc.Request) {
	h.logger.WithFields(logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
		"params": string(request.Params),
	}).Debug("Processing JSON-RPC request")
}

// LogResponse 记录响应日志
func (h *BaseHandler) LogResponse(request *jsonrpc.Request, response *jsonrpc.Response, err error) {
	fields := logrus.Fields{
		"method": request.Method,
		"id":     request.ID,
	}

	switch {
	case err != nil:
		apperrors.LogAppError(h.logger.WithFields(fields), err)
	case response != nil && response.Error != nil:
		fields["error_code"] = response.Error.Code
		fields["error_message"] = response.Error.Message
		h.logger.WithFields(fields).Warn("Request returned error")
	default:
		h.logger.WithFields(fields).Debug("Request processed successfully")
	}
}

// MethodFunc implements one JSON-RPC method on positional params.
type MethodFunc func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// MethodHandler 将 MethodFunc 包装为 Handler
type MethodHandler struct {
	*BaseHandler
	fn MethodFunc
}

// NewMethodHandler 创建方法处理器
func NewMethodHandler(method string, fn MethodFunc, logger logrus.FieldLogger) *MethodHandler {
	return &MethodHandler{
		BaseHandler: NewBaseHandler(method, logger),
		fn:          fn,
	}
}

// Handle 处理请求
func (m *MethodHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	m.LogRequest(request)

	params, err := request.UnmarshalParams()
	if err != nil {
		resp := m.CreateErrorResponse(request.ID, apperrors.InvalidParams("%v", err).WithOp(m.method))
		m.LogResponse(request, resp, nil)
		return resp, nil
	}

	result, err := m.fn(ctx, params)
	if err != nil {
		m.LogResponse(request, nil, err)
		return m.CreateErrorResponse(request.ID, err), nil
	}

	resp, err := m.CreateSuccessResponse(request.ID, result)
	if err != nil {
		return nil, err
	}
	m.LogResponse(request, resp, nil)
	return resp, nil
}
