// Package rpctest provides an in-process JSON-RPC node for tests.
package rpctest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
)

// HandlerFunc handles one method. Returning a *jsonrpc.Error sends it back
// verbatim; any other error becomes an internal error.
type HandlerFunc func(params []json.RawMessage) (interface{}, error)

// Call 记录一次收到的请求
type Call struct {
	Method string
	Params []json.RawMessage
}

// Node 模拟以太坊节点或钱包的 JSON-RPC 端点
type Node struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	contract map[string]string // eth_call 选择器 -> 返回数据
	calls    []Call
	status   int
	delay    time.Duration
}

// NewNode 启动一个带默认处理器的模拟节点
func NewNode() *Node {
	n := &Node{
		handlers: make(map[string]HandlerFunc),
		contract: make(map[string]string),
		status:   http.StatusOK,
	}
	n.registerDefaults()
	n.server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	return n
}

func (n *Node) registerDefaults() {
	n.SetResult("eth_chainId", "0x4")
	n.SetResult("net_version", "4")
	n.SetResult("web3_clientVersion", "MockNode/v1.0.0")
	n.SetResult("eth_blockNumber", "0x123456")
	n.SetResult("eth_getBalance", "0xde0b6b3a7640000") // 1 ether
	n.SetResult("eth_gasPrice", "0x4a817c800")         // 20 gwei
	n.SetResult("eth_getTransactionCount", "0x5")
	n.SetResult("eth_estimateGas", "0xb411")
	n.Handle("eth_call", n.handleContractCall)
}

// Handle 注册方法处理器
func (n *Node) Handle(method string, h HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// SetResult 让 method 固定返回 result
func (n *Node) SetResult(method string, result interface{}) {
	n.Handle(method, func([]json.RawMessage) (interface{}, error) { return result, nil })
}

// SetError 让 method 固定返回 JSON-RPC 错误
func (n *Node) SetError(method string, code int, message string) {
	n.Handle(method, func([]json.RawMessage) (interface{}, error) {
		return nil, &jsonrpc.Error{Code: code, Message: message}
	})
}

// SetContractResult answers eth_call whose calldata starts with selector
// (0x-prefixed, 4 bytes) with the given ABI-encoded hex output.
func (n *Node) SetContractResult(selector, output string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contract[strings.ToLower(selector)] = output
}

// SetStatus 强制 HTTP 状态码，用于模拟网关错误
func (n *Node) SetStatus(status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = status
}

// SetDelay 设置响应延迟
func (n *Node) SetDelay(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = d
}

// Calls 返回按到达顺序记录的请求
func (n *Node) Calls() []Call {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Call, len(n.calls))
	copy(out, n.calls)
	return out
}

// CallsTo 返回某个方法的全部请求
func (n *Node) CallsTo(method string) []Call {
	var out []Call
	for _, c := range n.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// URL 返回节点地址
func (n *Node) URL() string {
	return n.server.URL
}

// Close 关闭节点
func (n *Node) Close() {
	n.server.Close()
}

func (n *Node) serveHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.RLock()
	status, delay := n.status, n.delay
	n.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	requests, err := jsonrpc.ParseRequest(body)
	if err != nil {
		writeJSON(w, jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(err.Error())))
		return
	}

	responses := make([]*jsonrpc.Response, len(requests))
	for i := range requests {
		responses[i] = n.dispatch(&requests[i])
	}
	if jsonrpc.IsBatch(body) {
		writeJSON(w, responses)
		return
	}
	writeJSON(w, responses[0])
}

func (n *Node) dispatch(req *jsonrpc.Request) *jsonrpc.Response {
	params, err := req.UnmarshalParams()
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInvalidParams(err.Error()))
	}

	n.mu.Lock()
	n.calls = append(n.calls, Call{Method: req.Method, Params: params})
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewMethodNotFound(req.Method))
	}
	result, err := h(params)
	if err != nil {
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			return jsonrpc.NewErrorResponse(req.ID, rpcErr)
		}
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInternalError(err.Error()))
	}
	resp, err := jsonrpc.NewResponse(req.ID, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInternalError(err.Error()))
	}
	return resp
}

func (n *Node) handleContractCall(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, jsonrpc.NewInvalidParams("missing call object")
	}
	var msg struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Input string `json:"input"`
	}
	if err := json.Unmarshal(params[0], &msg); err != nil {
		return nil, jsonrpc.NewInvalidParams(err.Error())
	}
	data := msg.Data
	if data == "" {
		data = msg.Input
	}
	if len(data) < 10 {
		return nil, &jsonrpc.Error{Code: 3, Message: "execution reverted"}
	}

	n.mu.RLock()
	out, ok := n.contract[strings.ToLower(data[:10])]
	n.mu.RUnlock()
	if !ok {
		return nil, &jsonrpc.Error{Code: 3, Message: fmt.Sprintf("execution reverted: unknown selector %s", data[:10])}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
