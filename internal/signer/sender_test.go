package signer

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/rpc/rpctest"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"
)

const (
	testPrivKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	tokenAddr   = "0x1111111111111111111111111111111111111111"
	txHash      = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// rawCapture 记录节点收到的原始交易
type rawCapture struct {
	raw []byte
}

func newSenderNode(t *testing.T) (*rpctest.Node, *rpc.Client, *rawCapture) {
	t.Helper()
	node := rpctest.NewNode()
	t.Cleanup(node.Close)

	capture := &rawCapture{}
	node.Handle("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, error) {
		var s string
		if err := json.Unmarshal(params[0], &s); err != nil {
			return nil, err
		}
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		capture.raw = raw
		return txHash, nil
	})
	return node, rpc.NewClient(node.URL(), time.Second), capture
}

func TestParseKey(t *testing.T) {
	for _, in := range []string{testPrivKey, "0x" + testPrivKey, "  " + testPrivKey + "\n"} {
		key, err := ParseKey(in)
		require.NoError(t, err, in)
		assert.NotEqual(t, ethgo.ZeroAddress, key.Address())
	}

	_, err := ParseKey("zz")
	assert.Error(t, err)
	_, err = ParseKey("0x1234")
	assert.Error(t, err)
}

func TestLoadKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.hex")
	require.NoError(t, os.WriteFile(path, []byte("0x"+testPrivKey+"\n"), 0o600))

	key, err := LoadKeyFile(path)
	require.NoError(t, err)
	want, _ := ParseKey(testPrivKey)
	assert.Equal(t, want.Address(), key.Address())

	_, err = LoadKeyFile(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, apperrors.ErrConfig)

	bad := filepath.Join(dir, "bad.hex")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err = LoadKeyFile(bad)
	assert.ErrorIs(t, err, apperrors.ErrConfig)
}

func TestKeySender_SendTransaction(t *testing.T) {
	node, client, capture := newSenderNode(t)
	key, err := ParseKey(testPrivKey)
	require.NoError(t, err)

	s := NewKeySender(key, client, WithChainIDCache(cache.New(time.Minute, time.Minute), "test"))
	assert.Equal(t, key.Address().String(), s.From())

	data := []byte{0x09, 0x5e, 0xa7, 0xb3, 0x01}
	hash, err := s.SendTransaction(context.Background(), &contract.TxRequest{To: tokenAddr, Data: data})
	require.NoError(t, err)
	assert.Equal(t, txHash, hash.String())

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(capture.raw))
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, uint64(0xb411), tx.Gas())
	assert.Equal(t, int64(20_000_000_000), tx.GasPrice().Int64())
	assert.Equal(t, 0, big.NewInt(4).Cmp(tx.ChainId()))
	assert.Equal(t, data, tx.Data())
	require.NotNil(t, tx.To())
	assert.Equal(t, ethgo.HexToAddress(tokenAddr).String(), tx.To().Hex())

	signer := types.NewEIP155Signer(big.NewInt(4))
	from, err := types.Sender(signer, &tx)
	require.NoError(t, err)
	assert.Equal(t, key.Address().String(), from.Hex())

	nonceCalls := node.CallsTo("eth_getTransactionCount")
	require.Len(t, nonceCalls, 1)
	assert.JSONEq(t, `"pending"`, string(nonceCalls[0].Params[1]))
}

func TestKeySender_ChainIDCached(t *testing.T) {
	node, client, _ := newSenderNode(t)
	key, err := ParseKey(testPrivKey)
	require.NoError(t, err)

	c := cache.New(time.Minute, time.Minute)
	req := &contract.TxRequest{To: tokenAddr, Data: []byte{0x01}}

	first := NewKeySender(key, client, WithChainIDCache(c, "node-a"))
	_, err = first.SendTransaction(context.Background(), req)
	require.NoError(t, err)

	second := NewKeySender(key, client, WithChainIDCache(c, "node-a"))
	_, err = second.SendTransaction(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, node.CallsTo("eth_chainId"), 1)
	assert.Len(t, node.CallsTo("eth_sendRawTransaction"), 2)

	uncached := NewKeySender(key, client, WithChainIDCache(c, ""))
	_, err = uncached.ChainID(context.Background())
	require.NoError(t, err)
	assert.Len(t, node.CallsTo("eth_chainId"), 2)
}

func TestKeySender_DefaultCacheKeyIsEndpoint(t *testing.T) {
	_, client, _ := newSenderNode(t)
	key, err := ParseKey(testPrivKey)
	require.NoError(t, err)

	s := NewKeySender(key, client)
	assert.Equal(t, client.Endpoint(), s.cacheKey)
	assert.Same(t, chainIDCache, s.chainIDs)
}

func TestKeySender_Errors(t *testing.T) {
	key, err := ParseKey(testPrivKey)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("no provider", func(t *testing.T) {
		_, err := NewKeySender(key, nil).SendTransaction(ctx, &contract.TxRequest{To: tokenAddr})
		assert.ErrorIs(t, err, apperrors.ErrNoWallet)
	})

	t.Run("bad to", func(t *testing.T) {
		_, client, _ := newSenderNode(t)
		_, err := NewKeySender(key, client).SendTransaction(ctx, &contract.TxRequest{To: "0x12"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	})

	t.Run("estimate gas rejected", func(t *testing.T) {
		node, client, _ := newSenderNode(t)
		node.SetError("eth_estimateGas", 3, "execution reverted")
		s := NewKeySender(key, client, WithChainIDCache(cache.New(time.Minute, time.Minute), "x"))

		_, err := s.SendTransaction(ctx, &contract.TxRequest{To: tokenAddr})
		require.ErrorIs(t, err, apperrors.ErrRemoteRejected)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "eth_estimateGas", appErr.Op)
		assert.Empty(t, node.CallsTo("eth_sendRawTransaction"))
	})

	t.Run("send rejected", func(t *testing.T) {
		node, client, _ := newSenderNode(t)
		node.SetError("eth_sendRawTransaction", -32000, "nonce too low")
		s := NewKeySender(key, client, WithChainIDCache(cache.New(time.Minute, time.Minute), "y"))

		_, err := s.SendTransaction(ctx, &contract.TxRequest{To: tokenAddr})
		assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)
	})

	t.Run("zero chain id", func(t *testing.T) {
		node, client, _ := newSenderNode(t)
		node.SetResult("eth_chainId", "0x0")
		_, err := NewKeySender(key, client, WithChainIDCache(nil, "")).ChainID(ctx)
		assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
	})
}

func TestKeySender_SignTransactionValidation(t *testing.T) {
	key, err := ParseKey(testPrivKey)
	require.NoError(t, err)
	s := NewKeySender(key, nil)

	_, err = s.SignTransaction(&ethgo.Transaction{Type: ethgo.TransactionDynamicFee, ChainID: big.NewInt(1)})
	assert.Error(t, err)

	_, err = s.SignTransaction(&ethgo.Transaction{Type: ethgo.TransactionLegacy})
	assert.Error(t, err)

	to := ethgo.HexToAddress(tokenAddr)
	signed, err := s.SignTransaction(&ethgo.Transaction{Type: ethgo.TransactionLegacy, ChainID: big.NewInt(56), To: &to, Gas: 21000})
	require.NoError(t, err)
	v := new(big.Int).SetBytes(signed.V).Int64()
	assert.Contains(t, []int64{147, 148}, v)
}

func TestTrimBytesZeros(t *testing.T) {
	assert.Equal(t, []byte{1, 2}, trimBytesZeros([]byte{0, 0, 1, 2}))
	assert.Equal(t, []byte{0}, trimBytesZeros([]byte{0, 0}))
}
