package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/utils"
)

// maxResponseSize 单个响应体的上限
const maxResponseSize = 32 << 20

// Client 是基于 HTTP 的 JSON-RPC 客户端
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient 创建新的 HTTP JSON-RPC 客户端
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: utils.CreateTransport(100, 90*time.Second),
		},
	}
}

// Call 实现 Caller
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	req, err := jsonrpc.NewRequest(c.nextID.Add(1), method, params...)
	if err != nil {
		return err
	}

	resp, err := c.ForwardRequest(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return invalidResponseError(fmt.Errorf("%s: response has neither result nor error", method))
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return invalidResponseError(fmt.Errorf("%s: %w", method, err))
	}
	return nil
}

// ForwardRequest 转发单个 JSON-RPC 请求
func (c *Client) ForwardRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	body, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, invalidResponseError(err)
	}
	// 节点偶尔会省略 id，按请求补齐
	if resp.ID == nil {
		resp.ID = req.ID
	}
	return &resp, nil
}

// ForwardBatchRequest 转发批量 JSON-RPC 请求，响应按请求顺序返回
func (c *Client) ForwardBatchRequest(ctx context.Context, requests []jsonrpc.Request) ([]jsonrpc.Response, error) {
	body, err := c.post(ctx, requests)
	if err != nil {
		return nil, err
	}

	var responses []jsonrpc.Response
	if err := json.Unmarshal(body, &responses); err != nil {
		// 某些节点对整个批次只返回一个错误对象
		var single jsonrpc.Response
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, invalidResponseError(err)
		}
		responses = []jsonrpc.Response{single}
	}
	if len(responses) != len(requests) {
		return nil, batchSizeMismatchError(len(requests), len(responses))
	}

	// 节点可以乱序返回，按 id 重新排列
	byID := make(map[string]jsonrpc.Response, len(responses))
	for _, r := range responses {
		byID[idKey(r.ID)] = r
	}
	ordered := make([]jsonrpc.Response, len(requests))
	for i, req := range requests {
		r, ok := byID[idKey(req.ID)]
		if !ok {
			r = responses[i]
		}
		if r.ID == nil {
			r.ID = req.ID
		}
		ordered[i] = r
	}
	return ordered, nil
}

// TestConnection 通过 web3_clientVersion 检查端点是否可用
func (c *Client) TestConnection(ctx context.Context) error {
	var version string
	if err := c.Call(ctx, "web3_clientVersion", &version); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Endpoint 返回端点 URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close 释放空闲连接
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(ErrorCodeRequestFailed, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, NewError(ErrorCodeRequestFailed, "failed to create HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, timeoutError(err)
		}
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, invalidResponseError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, requestError(resp.StatusCode, body)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// idKey normalises ids so that 1 and 1.0 from different decoders compare equal.
func idKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

var (
	_ Caller    = (*Client)(nil)
	_ Forwarder = (*Client)(nil)
)
