// Package rpc provides the JSON-RPC transport used to talk to Ethereum nodes
// and wallets.
//
// Caller is the single capability every chain helper depends on. It plays
// the role of both the read-only provider (eth_getBalance, eth_call) and the
// wallet (wallet_switchEthereumChain, eth_sendTransaction); which one a value
// represents is decided by the endpoint it was dialed against.
package rpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
)

// Caller issues a single JSON-RPC call and decodes the result into out.
//
// Remote errors are returned as *jsonrpc.Error so that callers can inspect
// wallet codes such as 4001 (user rejected) with errors.As.
type Caller interface {
	Call(ctx context.Context, method string, out interface{}, params ...interface{}) error
}

// Forwarder relays raw JSON-RPC envelopes, used by the gateway to proxy
// methods it does not implement itself.
type Forwarder interface {
	ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)
	ForwardBatchRequest(ctx context.Context, requests []jsonrpc.Request) ([]jsonrpc.Response, error)
}

// CallerFunc 允许把普通函数当作 Caller 使用
type CallerFunc func(ctx context.Context, method string, out interface{}, params ...interface{}) error

// Call 实现 Caller
func (f CallerFunc) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	return f(ctx, method, out, params...)
}

// Dial connects to endpoint and returns a Caller.
//
// http(s) endpoints use the pooled HTTP client. ws(s) endpoints and IPC
// socket paths go through the ethgo transport.
//
// Parameters:
//   - endpoint: node or wallet URL, or an IPC socket path
//   - timeout: per-call timeout for HTTP endpoints
//
// Returns:
//   - Caller: ready to use; call Close on the result when it implements io.Closer
//   - error: unsupported scheme or failed connection
func Dial(endpoint string, timeout time.Duration) (Caller, error) {
	switch {
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		return NewClient(endpoint, timeout), nil
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"),
		strings.HasPrefix(endpoint, "/"), strings.HasSuffix(endpoint, ".ipc"):
		return DialEthgo(endpoint)
	default:
		return nil, fmt.Errorf("unsupported endpoint %q", endpoint)
	}
}
