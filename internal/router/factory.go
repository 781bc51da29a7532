package router

import (
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/sirupsen/logrus"
)

// RouterFactory 路由器工厂，简化路由器的创建和配置
type RouterFactory struct {
	logger         logrus.FieldLogger
	maxRequestSize int64
}

// NewRouterFactory 创建路由器工厂
func NewRouterFactory(logger logrus.FieldLogger, maxRequestSize int64) *RouterFactory {
	return &RouterFactory{
		logger:         logger,
		maxRequestSize: maxRequestSize,
	}
}

// CreateRouter registers every dapp_* method of svc and forwards all other
// methods to node.
//
// Parameters:
//   - svc: The dapp_* method implementations
//   - node: The node unregistered methods are forwarded to; nil disables forwarding
//
// Returns:
//   - *Router: The configured router
//   - error: An error if a method is registered twice
func (f *RouterFactory) CreateRouter(svc *DappService, node rpc.Forwarder) (*Router, error) {
	router := NewRouterWithMaxSize(f.logger, f.maxRequestSize)

	for _, h := range svc.Handlers() {
		if err := router.Register(h); err != nil {
			return nil, err
		}
	}

	if node != nil {
		router.SetDefaultHandler(NewForwardHandler(node, f.logger))
	}
	return router, nil
}
