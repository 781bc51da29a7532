package router

import (
	"context"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/sirupsen/logrus"
)

// ForwardMethod 转发处理器的名字
const ForwardMethod = "forward_handler"

// ForwardHandler 将未注册的方法原样转发到节点
type ForwardHandler struct {
	*BaseHandler
	client rpc.Forwarder
}

// NewForwardHandler 创建转发处理器
func NewForwardHandler(client rpc.Forwarder, logger logrus.FieldLogger) *ForwardHandler {
	return &ForwardHandler{
		BaseHandler: NewBaseHandler(ForwardMethod, logger),
		client:      client,
	}
}

// Client 返回底层转发客户端
func (h *ForwardHandler) Client() rpc.Forwarder {
	return h.client
}

// Handle 处理 JSON-RPC 请求
func (h *ForwardHandler) Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	h.LogRequest(request)

	response, err := h.client.ForwardRequest(ctx, request)
	if err != nil {
		h.logger.WithError(err).WithField("method", request.Method).Error("Failed to forward request to node")
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewServerError(
			jsonrpc.CodeServerErrorMax, "Failed to forward request", err.Error())), nil
	}

	h.LogResponse(request, response, nil)
	return response, nil
}
