package signer

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/utils"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/wallet"
	"github.com/umbracle/fastrlp"
)

// ChainIDCacheTTL 链 ID 缓存时间
const ChainIDCacheTTL = 10 * time.Minute

// 按节点地址缓存的链 ID，多个 KeySender 共享
var chainIDCache = cache.New(ChainIDCacheTTL, 2*ChainIDCacheTTL)

// endpointer is implemented by callers that know their node URL.
type endpointer interface {
	Endpoint() string
}

// KeySender implements contract.Sender with a local secp256k1 key.
//
// It fills chain id, nonce, gas price and gas limit from the provider,
// signs a legacy EIP-155 transaction and submits it with
// eth_sendRawTransaction.
type KeySender struct {
	key      *wallet.Key
	provider rpc.Caller
	chainIDs *cache.Cache
	cacheKey string
	logger   logrus.FieldLogger
}

// Option 配置 KeySender
type Option func(*KeySender)

// WithLogger 设置日志
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *KeySender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChainIDCache replaces the shared chain id cache. key identifies the
// provider inside the cache; an empty key disables caching.
func WithChainIDCache(c *cache.Cache, key string) Option {
	return func(s *KeySender) {
		s.chainIDs = c
		s.cacheKey = key
	}
}

// NewKeySender creates a sender for key that talks to provider.
//
// Parameters:
//   - key: The private key that signs every transaction
//   - provider: The node used for nonce, gas and submission
//   - opts: Optional logger and cache settings
//
// Returns:
//   - *KeySender: A sender ready for contract.Transact
func NewKeySender(key *wallet.Key, provider rpc.Caller, opts ...Option) *KeySender {
	s := &KeySender{
		key:      key,
		provider: provider,
		chainIDs: chainIDCache,
		logger:   logrus.StandardLogger(),
	}
	if e, ok := provider.(endpointer); ok {
		s.cacheKey = e.Endpoint()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address 返回签名地址
func (s *KeySender) Address() ethgo.Address {
	return s.key.Address()
}

// From 实现 contract.Sender
func (s *KeySender) From() string {
	return s.key.Address().String()
}

// ChainID returns the provider's chain id, served from the cache when the
// provider was seen before.
func (s *KeySender) ChainID(ctx context.Context) (*big.Int, error) {
	if s.cacheKey != "" && s.chainIDs != nil {
		if v, ok := s.chainIDs.Get(s.cacheKey); ok {
			return new(big.Int).Set(v.(*big.Int)), nil
		}
	}

	var id hexutil.Big
	if err := s.provider.Call(ctx, "eth_chainId", &id); err != nil {
		return nil, apperrors.FromRemote("eth_chainId", err)
	}
	chainID := id.ToInt()
	if chainID.Sign() <= 0 {
		return nil, apperrors.DecodeFailed("eth_chainId", fmt.Errorf("invalid chain id %s", chainID))
	}

	if s.cacheKey != "" && s.chainIDs != nil {
		s.chainIDs.Set(s.cacheKey, new(big.Int).Set(chainID), cache.DefaultExpiration)
	}
	return chainID, nil
}

// SendTransaction 实现 contract.Sender
func (s *KeySender) SendTransaction(ctx context.Context, req *contract.TxRequest) (ethgo.Hash, error) {
	if s.provider == nil {
		return ethgo.Hash{}, apperrors.NoWallet("eth_sendRawTransaction")
	}
	if !utils.IsValidEthAddress(strings.ToLower(req.To)) {
		return ethgo.Hash{}, apperrors.InvalidAddress("eth_sendRawTransaction", "to", req.To)
	}

	tx, err := s.fill(ctx, req)
	if err != nil {
		return ethgo.Hash{}, err
	}

	signed, err := s.SignTransaction(tx)
	if err != nil {
		return ethgo.Hash{}, apperrors.Wrap(err, apperrors.ErrorTypeInternal, jsonrpc.CodeInternalError, "failed to sign transaction").
			WithOp("eth_sendRawTransaction")
	}

	raw, err := signed.MarshalRLPTo(nil)
	if err != nil {
		return ethgo.Hash{}, apperrors.Wrap(err, apperrors.ErrorTypeInternal, jsonrpc.CodeInternalError, "failed to encode transaction").
			WithOp("eth_sendRawTransaction")
	}

	var hash string
	if err := s.provider.Call(ctx, "eth_sendRawTransaction", &hash, hexutil.Encode(raw)); err != nil {
		return ethgo.Hash{}, apperrors.FromRemote("eth_sendRawTransaction", err).WithContext("from", s.From())
	}

	s.logger.WithFields(logrus.Fields{
		"from":     s.From(),
		"to":       req.To,
		"nonce":    tx.Nonce,
		"chain_id": tx.ChainID.String(),
		"tx_hash":  hash,
	}).Debug("Raw transaction submitted")

	return contract.ParseHash(hash)
}

// fill 从节点补全链 ID、nonce、gasPrice 和 gas
func (s *KeySender) fill(ctx context.Context, req *contract.TxRequest) (*ethgo.Transaction, error) {
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	from := s.From()

	var nonce hexutil.Uint64
	if err := s.provider.Call(ctx, "eth_getTransactionCount", &nonce, from, "pending"); err != nil {
		return nil, apperrors.FromRemote("eth_getTransactionCount", err).WithContext("from", from)
	}

	var gasPrice hexutil.Big
	if err := s.provider.Call(ctx, "eth_gasPrice", &gasPrice); err != nil {
		return nil, apperrors.FromRemote("eth_gasPrice", err)
	}
	if !gasPrice.ToInt().IsUint64() {
		return nil, apperrors.DecodeFailed("eth_gasPrice", fmt.Errorf("gas price %s overflows uint64", gasPrice.ToInt()))
	}

	value := new(big.Int)
	if req.Value != nil {
		value.Set(req.Value)
	}

	call := map[string]string{
		"from": from,
		"to":   req.To,
		"data": hexutil.Encode(req.Data),
	}
	if value.Sign() > 0 {
		call["value"] = hexutil.EncodeBig(value)
	}
	var gas hexutil.Uint64
	if err := s.provider.Call(ctx, "eth_estimateGas", &gas, call); err != nil {
		return nil, apperrors.FromRemote("eth_estimateGas", err).WithContext("from", from)
	}

	to := ethgo.HexToAddress(req.To)
	input := make([]byte, len(req.Data))
	copy(input, req.Data)

	return &ethgo.Transaction{
		Type:     ethgo.TransactionLegacy,
		From:     s.key.Address(),
		Nonce:    uint64(nonce),
		GasPrice: gasPrice.ToInt().Uint64(),
		Gas:      uint64(gas),
		To:       &to,
		Value:    value,
		Input:    input,
		ChainID:  chainID,
	}, nil
}

// SignTransaction signs a legacy transaction with EIP-155 replay protection.
//
// Parameters:
//   - tx: The transaction to sign; tx.ChainID must be set
//
// Returns:
//   - *ethgo.Transaction: tx with R, S and V applied
//   - error: An error if the transaction type is unsupported or signing fails
func (s *KeySender) SignTransaction(tx *ethgo.Transaction) (*ethgo.Transaction, error) {
	if tx.Type != ethgo.TransactionLegacy {
		return nil, fmt.Errorf("unsupported transaction type %d", tx.Type)
	}
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id is required")
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}

	hash := signHash(tx)

	signature, err := s.key.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("invalid signature length: expected 65, got %d", len(signature))
	}

	tx.R = trimBytesZeros(signature[0:32])
	tx.S = trimBytesZeros(signature[32:64])

	// v = recovery_id + 35 + chainID * 2
	v := new(big.Int).SetUint64(uint64(signature[64]))
	v.Add(v, big.NewInt(35))
	v.Add(v, new(big.Int).Mul(tx.ChainID, big.NewInt(2)))
	tx.V = v.Bytes()

	return tx, nil
}

// signHash 计算 EIP-155 legacy 交易的签名哈希
func signHash(tx *ethgo.Transaction) []byte {
	a := fastrlp.DefaultArenaPool.Get()
	defer fastrlp.DefaultArenaPool.Put(a)

	v := a.NewArray()
	v.Set(a.NewUint(tx.Nonce))
	v.Set(a.NewUint(tx.GasPrice))
	v.Set(a.NewUint(tx.Gas))
	if tx.To == nil {
		v.Set(a.NewNull())
	} else {
		v.Set(a.NewCopyBytes((*tx.To)[:]))
	}
	v.Set(a.NewBigInt(tx.Value))
	v.Set(a.NewCopyBytes(tx.Input))

	v.Set(a.NewBigInt(tx.ChainID))
	v.Set(a.NewUint(0))
	v.Set(a.NewUint(0))

	return ethgo.Keccak256(v.MarshalTo(nil))
}

// trimBytesZeros 移除字节切片的前导零
func trimBytesZeros(b []byte) []byte {
	var i int
	for i = 0; i < len(b); i++ {
		if b[i] != 0x0 {
			break
		}
	}
	if i == len(b) {
		return []byte{0}
	}
	return b[i:]
}

var _ contract.Sender = (*KeySender)(nil)
