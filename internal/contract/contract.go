// Package contract binds ABI descriptions to on-chain addresses and decodes
// event logs.
package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/umbracle/ethgo/abi"
)

// BlockLatest 读取最新区块状态
const BlockLatest = "latest"

// ABI 返回值按 32 字节对齐
const wordSize = 32

// Contract is a handle on a deployed contract. Building one does no I/O and
// no validation; errors surface on the first call.
type Contract struct {
	address  string
	abi      *abi.ABI
	provider rpc.Caller
}

// New 创建合约句柄
func New(address string, a *abi.ABI, provider rpc.Caller) *Contract {
	return &Contract{address: address, abi: a, provider: provider}
}

// Address 返回构造时传入的地址
func (c *Contract) Address() string { return c.address }

// ABI 返回合约 ABI
func (c *Contract) ABI() *abi.ABI { return c.abi }

// Provider 返回合约绑定的 provider
func (c *Contract) Provider() rpc.Caller { return c.provider }

// Encode ABI-encodes a method call, selector included.
func (c *Contract) Encode(method string, args ...interface{}) ([]byte, error) {
	if c.abi == nil {
		return nil, apperrors.InvalidParams("contract has no ABI").WithOp(method)
	}
	m := c.abi.GetMethod(method)
	if m == nil {
		return nil, apperrors.InvalidParams("method %q not found in ABI", method).WithOp(method)
	}
	if args == nil {
		args = []interface{}{}
	}
	data, err := m.Encode(args)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalidParams, jsonrpc.CodeInvalidParams,
			"failed to encode arguments").WithOp(method)
	}
	return data, nil
}

// Call executes a read-only method with eth_call at the latest block and
// decodes its outputs by name. Unnamed outputs are keyed "0", "1", ...
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) (map[string]interface{}, error) {
	out, err := c.CallRaw(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	values, err := c.abi.GetMethod(method).Decode(out)
	if err != nil {
		return nil, apperrors.DecodeFailed(method, err).WithContext("contract", c.address)
	}
	return values, nil
}

// CallRaw executes a read-only method with eth_call at the latest block and
// returns the undecoded return data.
func (c *Contract) CallRaw(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := c.Encode(method, args...)
	if err != nil {
		return nil, err
	}
	if c.provider == nil {
		return nil, apperrors.NoWallet(method)
	}

	msg := map[string]string{
		"to":   c.address,
		"data": hexutil.Encode(data),
	}
	var out hexutil.Bytes
	if err := c.provider.Call(ctx, "eth_call", &out, msg, BlockLatest); err != nil {
		return nil, apperrors.FromRemote(method, err).WithContext("contract", c.address)
	}
	return out, nil
}

// CallWord 读取第一个返回字（完整 uint256），不按 ABI 声明的位宽截断
func (c *Contract) CallWord(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.CallRaw(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) < wordSize {
		return nil, apperrors.DecodeFailed(method, fmt.Errorf("return data is %d bytes, want at least %d", len(out), wordSize)).
			WithContext("contract", c.address)
	}
	return new(big.Int).SetBytes(out[:wordSize]), nil
}

// CallBigInt 调用只返回一个整数的方法（如 balanceOf）
func (c *Contract) CallBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, err := firstOutput(values)
	if err != nil {
		return nil, apperrors.DecodeFailed(method, err)
	}
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return big.NewInt(int64(n)), nil
	case uint16:
		return big.NewInt(int64(n)), nil
	case uint32:
		return big.NewInt(int64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, apperrors.DecodeFailed(method, fmt.Errorf("unexpected output type %T", v))
	}
}

// Transact encodes a state-changing call and hands it to sender. The
// returned handle can be waited on through this contract's provider.
func (c *Contract) Transact(ctx context.Context, sender Sender, method string, args ...interface{}) (*PendingTx, error) {
	if sender == nil {
		return nil, apperrors.NoWallet(method)
	}
	data, err := c.Encode(method, args...)
	if err != nil {
		return nil, err
	}

	req := &TxRequest{To: c.address, Data: data}
	hash, err := sender.SendTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PendingTx{
		Hash:     hash,
		From:     sender.From(),
		To:       c.address,
		Data:     data,
		provider: c.provider,
	}, nil
}

// firstOutput 取第一个返回值；ethgo 对未命名输出使用 "0"
func firstOutput(values map[string]interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("call returned no values")
	}
	if v, ok := values["0"]; ok {
		return v, nil
	}
	if len(values) == 1 {
		for _, v := range values {
			return v, nil
		}
	}
	return nil, fmt.Errorf("call returned %d values, expected one", len(values))
}
