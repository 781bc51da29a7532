// Package server exposes the JSON-RPC gateway over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mowind/dapputil-go/internal/config"
	"github.com/mowind/dapputil-go/internal/router"
	"github.com/sirupsen/logrus"
)

// ReadyTimeout /ready 检查节点的超时时间
const ReadyTimeout = 5 * time.Second

// ReadinessChecker reports whether a backing endpoint is reachable.
type ReadinessChecker interface {
	TestConnection(ctx context.Context) error
}

// Server 表示 HTTP 服务器
type Server struct {
	config  *config.Config
	engine  *gin.Engine
	router  *router.Router
	node    ReadinessChecker
	server  *http.Server
	logger  *logrus.Logger
	metrics http.Handler
	addr    net.Addr
}

// New 创建新的 HTTP 服务器
func New(cfg *config.Config, r *router.Router, node ReadinessChecker, logger *logrus.Logger) *Server {
	return NewBuilder(cfg, r).WithReadiness(node).WithLogger(logger).Build()
}

// setupRoutes 设置服务器路由
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/ready", s.readyHandler)
	s.engine.GET("/metrics", gin.WrapH(s.metrics))

	// JSON-RPC 端点
	s.engine.POST("/", s.jsonRPCHandler)
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

// healthHandler 处理健康检查请求
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readyHandler reports ready once the node answers.
func (s *Server) readyHandler(c *gin.Context) {
	if s.node != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), ReadyTimeout)
		defer cancel()
		if err := s.node.TestConnection(ctx); err != nil {
			s.logger.WithError(err).Warn("Readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// jsonRPCHandler 处理 JSON-RPC 请求
func (s *Server) jsonRPCHandler(c *gin.Context) {
	if s.router == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router not configured"})
		return
	}
	s.router.HandleHTTPRequest(c.Writer, c.Request)
}

// Start binds the listen address and serves in the background. Bind
// errors are returned; later serve errors are logged.
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"host": s.config.HTTP.Host,
		"port": s.config.HTTP.Port,
		"addr": s.addr.String(),
	}).Info("Starting HTTP server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Addr 返回实际监听地址，Start 之前为 nil
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Stop 优雅停止 HTTP 服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Shutting down HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// getLogLevel 将字符串日志级别转换为 logrus.Level
func getLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case config.LogLevelDebug:
		return logrus.DebugLevel
	case config.LogLevelInfo:
		return logrus.InfoLevel
	case config.LogLevelWarn:
		return logrus.WarnLevel
	case config.LogLevelError:
		return logrus.ErrorLevel
	case config.LogLevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
