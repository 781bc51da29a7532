// Package jsonrpc 定义 JSON-RPC 2.0 的请求、响应和错误结构
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion 协议版本号
const JSONRPCVersion = "2.0"

// MaxBatchSize 单个批量请求允许的最大条数
const MaxBatchSize = 100

// Request 表示 JSON-RPC 2.0 请求
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response 表示 JSON-RPC 2.0 响应
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// NewRequest builds a request envelope with positional params.
// A nil params slice is encoded as an empty array, which every node accepts.
func NewRequest(id interface{}, method string, params ...interface{}) (*Request, error) {
	if params == nil {
		params = []interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}
	return &Request{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  raw,
		ID:      id,
	}, nil
}

// IsBatch 判断原始请求体是否为批量请求
func IsBatch(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// ParseRequest 解析单个或批量 JSON-RPC 请求
func ParseRequest(data []byte) ([]Request, error) {
	if IsBatch(data) {
		var batch []Request
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("invalid JSON-RPC batch: %w", err)
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("empty batch request")
		}
		if len(batch) > MaxBatchSize {
			return nil, fmt.Errorf("batch of %d requests exceeds limit %d", len(batch), MaxBatchSize)
		}
		for i := range batch {
			if err := batch[i].Validate(); err != nil {
				return nil, fmt.Errorf("request at index %d: %w", i, err)
			}
		}
		return batch, nil
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return []Request{req}, nil
}

// Validate checks the version, method and id type of a request.
func (r *Request) Validate() error {
	if r.JSONRPC != JSONRPCVersion {
		return fmt.Errorf("invalid jsonrpc version: %q", r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	switch r.ID.(type) {
	case nil, string, float64, int, int64:
		return nil
	default:
		return fmt.Errorf("invalid id type: %T", r.ID)
	}
}

// UnmarshalParams 将 params 解码为位置参数切片
func (r *Request) UnmarshalParams() ([]json.RawMessage, error) {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return nil, nil
	}
	var params []json.RawMessage
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, fmt.Errorf("params must be an array: %w", err)
	}
	return params, nil
}

// NewResponse 创建成功响应
func NewResponse(id interface{}, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: JSONRPCVersion, Result: raw, ID: id}, nil
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(id interface{}, err *Error) *Response {
	return &Response{JSONRPC: JSONRPCVersion, Error: err, ID: id}
}

// MarshalResponses 序列化响应，单个请求不包成数组
func MarshalResponses(responses []*Response, batch bool) ([]byte, error) {
	if !batch && len(responses) == 1 {
		return json.Marshal(responses[0])
	}
	return json.Marshal(responses)
}
