package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mowind/dapputil-go/internal/jsonrpc"
	ethgojsonrpc "github.com/umbracle/ethgo/jsonrpc"
	"github.com/umbracle/ethgo/jsonrpc/codec"
)

// EthgoCaller adapts an ethgo JSON-RPC client, which supports websocket and
// IPC transports, to Caller.
type EthgoCaller struct {
	client *ethgojsonrpc.Client
}

// DialEthgo 通过 ethgo 建立 ws/ipc/http 连接
func DialEthgo(endpoint string) (*EthgoCaller, error) {
	client, err := ethgojsonrpc.NewClient(endpoint)
	if err != nil {
		return nil, connectionError(fmt.Errorf("dial %s: %w", endpoint, err))
	}
	return &EthgoCaller{client: client}, nil
}

// Call 实现 Caller。ethgo 不支持 context，这里在 ctx 结束时提前返回；
// 结果先解到 RawMessage，避免后台 goroutine 在返回后写 out
func (e *EthgoCaller) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		var raw json.RawMessage
		err := e.client.Call(method, &raw, params...)
		done <- result{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return timeoutError(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return convertEthgoError(r.err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(r.raw, out); err != nil {
			return invalidResponseError(fmt.Errorf("%s: %w", method, err))
		}
		return nil
	}
}

// Close 关闭底层连接
func (e *EthgoCaller) Close() error {
	return e.client.Close()
}

func convertEthgoError(err error) error {
	if err == nil {
		return nil
	}
	var obj *codec.ErrorObject
	if errors.As(err, &obj) {
		return &jsonrpc.Error{Code: obj.Code, Message: obj.Message, Data: obj.Data}
	}
	return connectionError(err)
}

var _ Caller = (*EthgoCaller)(nil)
