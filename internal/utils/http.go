package utils

import (
	"net/http"
	"time"
)

// CreateTransport creates a pooled HTTP transport for JSON-RPC endpoints.
//
// Parameters:
//   - maxIdle: maximum idle connections, also used as the per-host limit
//   - idleTimeout: how long an idle connection is kept open
//
// Returns:
//   - *http.Transport: transport with a 10s response header timeout
func CreateTransport(maxIdle int, idleTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		ResponseHeaderTimeout: 10 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
