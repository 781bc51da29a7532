package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/umbracle/ethgo"
)

// DefaultPollInterval Wait 的默认轮询间隔
const DefaultPollInterval = 2 * time.Second

// PendingTx is a submitted but not yet confirmed transaction.
type PendingTx struct {
	Hash ethgo.Hash `json:"hash"`
	From string     `json:"from"`
	To   string     `json:"to"`
	Data []byte     `json:"-"`

	provider rpc.Caller
}

// MarshalJSON 输出 data 的十六进制形式
func (p *PendingTx) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Hash string `json:"hash"`
		From string `json:"from"`
		To   string `json:"to"`
		Data string `json:"data"`
	}{p.Hash.String(), p.From, p.To, hexutil.Encode(p.Data)})
}

// Receipt 交易收据中用到的字段
type Receipt struct {
	TransactionHash string          `json:"transactionHash"`
	BlockHash       string          `json:"blockHash"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	Status          hexutil.Uint64  `json:"status"`
	Logs            json.RawMessage `json:"logs"`
}

// Succeeded 交易执行成功（status == 1）
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// DecodeLogs 解析收据中的日志
func (r *Receipt) DecodeLogs() ([]*ethgo.Log, error) {
	if len(r.Logs) == 0 {
		return nil, nil
	}
	return ParseLogJSON(r.Logs)
}

// Receipt fetches the receipt once. It returns nil without error while the
// transaction is still pending.
func (p *PendingTx) Receipt(ctx context.Context) (*Receipt, error) {
	if p.provider == nil {
		return nil, apperrors.NoWallet("eth_getTransactionReceipt")
	}
	var raw json.RawMessage
	if err := p.provider.Call(ctx, "eth_getTransactionReceipt", &raw, p.Hash.String()); err != nil {
		return nil, apperrors.FromRemote("eth_getTransactionReceipt", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, apperrors.DecodeFailed("eth_getTransactionReceipt", err)
	}
	return &r, nil
}

// Wait polls for the receipt until it is available or ctx is done. A
// reverted transaction returns its receipt together with an error.
func (p *PendingTx) Wait(ctx context.Context, interval time.Duration) (*Receipt, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := p.Receipt(ctx)
		if err != nil {
			return nil, err
		}
		if r != nil {
			if !r.Succeeded() {
				return r, apperrors.New(apperrors.ErrorTypeRemoteRejected, apperrors.CodeRemoteRejected,
					fmt.Sprintf("transaction %s reverted", p.Hash)).WithOp("wait")
			}
			return r, nil
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrorTypeTimeout, apperrors.CodeTimeout,
				"gave up waiting for receipt").WithOp("wait").WithContext("hash", p.Hash.String())
		case <-ticker.C:
		}
	}
}

// NewPendingTx 用于在外部构造（例如从网关返回的哈希恢复）
func NewPendingTx(hash ethgo.Hash, from, to string, data []byte, provider rpc.Caller) *PendingTx {
	return &PendingTx{Hash: hash, From: from, To: to, Data: data, provider: provider}
}
