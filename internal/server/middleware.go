package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"golang.org/x/time/rate"
)

// RequestIDHeader 请求 ID 的 HTTP 头
const RequestIDHeader = "X-Request-ID"

// CodeLimitExceeded is the EIP-1474 "limit exceeded" error code.
const CodeLimitExceeded = -32005

// AuthMiddleware authenticates requests using Bearer tokens or X-API-Key
// headers. Whitelisted paths are matched by prefix, except "/" which only
// matches the root itself.
func AuthMiddleware(enabled bool, secret string, whitelist []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || isWhitelisted(c.Request.URL.Path, whitelist) {
			c.Next()
			return
		}

		if token, ok := credential(c); ok && subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
			c.Next()
			return
		}

		// 不区分失败原因，避免泄露信息
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
			"code":  http.StatusUnauthorized,
		})
	}
}

func isWhitelisted(path string, whitelist []string) bool {
	for _, prefix := range whitelist {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// credential 取出 Authorization Bearer 或 X-API-Key 中的凭证，前者优先
func credential(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer" {
			return "", false
		}
		return token, true
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key, true
	}
	return "", false
}

// RequestIDMiddleware propagates the caller's X-Request-ID, or a fresh one,
// through the request context and echoes it in the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = apperrors.GenerateRequestID()
		}
		c.Request = c.Request.WithContext(apperrors.WithTrace(c.Request.Context(), id, ""))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RateLimitMiddleware 全局限流，limit 为每秒请求数，<=0 时不限流
func RateLimitMiddleware(limit float64, burst int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, jsonrpc.NewErrorResponse(nil,
			jsonrpc.NewServerError(CodeLimitExceeded, "Limit exceeded", "too many requests")))
	}
}

// CORSMiddleware 允许浏览器中的 dapp 直接调用网关；origins 为空或含 "*" 时放行所有来源
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", RequestIDHeader}
	cfg.ExposeHeaders = []string{RequestIDHeader}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
