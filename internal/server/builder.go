package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mowind/dapputil-go/internal/config"
	"github.com/mowind/dapputil-go/internal/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	ginlogrus "github.com/toorop/gin-logrus"
)

// Builder 服务器构建器
type Builder struct {
	cfg     *config.Config
	router  *router.Router
	node    ReadinessChecker
	logger  *logrus.Logger
	metrics http.Handler
}

// NewBuilder 创建新的服务器构建器
func NewBuilder(cfg *config.Config, r *router.Router) *Builder {
	return &Builder{cfg: cfg, router: r}
}

// WithReadiness 设置 /ready 检查的节点
func (b *Builder) WithReadiness(node ReadinessChecker) *Builder {
	b.node = node
	return b
}

// WithLogger 设置日志器，默认按配置的级别输出 JSON
func (b *Builder) WithLogger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsHandler replaces the /metrics handler. It defaults to
// promhttp.Handler(), which serves the default registry.
func (b *Builder) WithMetricsHandler(h http.Handler) *Builder {
	b.metrics = h
	return b
}

// Build 构建服务器
func (b *Builder) Build() *Server {
	b.setGinMode()

	logger := b.logger
	if logger == nil {
		logger = b.createLogger()
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	s := &Server{
		config:  b.cfg,
		engine:  b.createEngine(logger),
		router:  b.router,
		node:    b.node,
		logger:  logger,
		metrics: metrics,
	}

	s.setupRoutes()
	return s
}

// setGinMode 设置 gin 模式
func (b *Builder) setGinMode() {
	if strings.EqualFold(b.cfg.Log.Level, config.LogLevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// createEngine 创建 gin 引擎并挂载中间件
func (b *Builder) createEngine(logger *logrus.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(ginlogrus.Logger(logger))
	engine.Use(CORSMiddleware(b.cfg.HTTP.CORSOrigins))
	engine.Use(AuthMiddleware(b.cfg.Auth.Enabled, b.cfg.Auth.Secret, b.cfg.Auth.Whitelist))
	engine.Use(RateLimitMiddleware(b.cfg.HTTP.RateLimit, b.cfg.HTTP.RateBurst))
	return engine
}

// createLogger 创建日志器
func (b *Builder) createLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(getLogLevel(b.cfg.Log.Level))
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}
