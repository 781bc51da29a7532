package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/utils"
	"github.com/umbracle/ethgo"
)

// TxRequest 是待发送的合约调用
type TxRequest struct {
	To    string
	Data  []byte
	Value *big.Int
}

// Sender submits transactions on behalf of one account.
type Sender interface {
	// From 返回发送账户
	From() string
	// SendTransaction 提交交易并返回交易哈希，不等待上链
	SendTransaction(ctx context.Context, req *TxRequest) (ethgo.Hash, error)
}

// AccountSender lets the wallet sign: it submits eth_sendTransaction with
// from set to an account the wallet (or node) manages.
type AccountSender struct {
	from   string
	wallet rpc.Caller
}

// NewAccountSender 创建由钱包托管账户签名的 Sender
func NewAccountSender(from string, wallet rpc.Caller) *AccountSender {
	return &AccountSender{from: from, wallet: wallet}
}

// From 实现 Sender
func (s *AccountSender) From() string { return s.from }

// SendTransaction 实现 Sender
func (s *AccountSender) SendTransaction(ctx context.Context, req *TxRequest) (ethgo.Hash, error) {
	if s.wallet == nil {
		return ethgo.Hash{}, apperrors.NoWallet("eth_sendTransaction")
	}

	tx := map[string]string{
		"from": s.from,
		"to":   req.To,
		"data": hexutil.Encode(req.Data),
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		tx["value"] = hexutil.EncodeBig(req.Value)
	}

	var hash string
	if err := s.wallet.Call(ctx, "eth_sendTransaction", &hash, tx); err != nil {
		return ethgo.Hash{}, apperrors.FromRemote("eth_sendTransaction", err).WithContext("from", s.from)
	}
	return ParseHash(hash)
}

// ParseHash 解析 0x 前缀的 32 字节哈希
func ParseHash(s string) (ethgo.Hash, error) {
	var h ethgo.Hash
	if len(s) != 66 || !utils.Has0xPrefix(s) || !utils.IsHex(s[2:]) {
		return h, apperrors.DecodeFailed("parseHash", fmt.Errorf("invalid transaction hash %q", s))
	}
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return h, apperrors.DecodeFailed("parseHash", err)
	}
	return h, nil
}

var _ Sender = (*AccountSender)(nil)
