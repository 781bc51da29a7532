package chainutil

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mowind/dapputil-go/internal/chain"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/rpc/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"
)

const (
	tokenAddr   = "0x1111111111111111111111111111111111111111"
	ownerAddr   = "0x2222222222222222222222222222222222222222"
	spenderAddr = "0x3333333333333333333333333333333333333333"
	txHash      = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	selectorBalanceOf = "0x70a08231"
	selectorDecimals  = "0x313ce567"
	selectorAllowance = "0xdd62ed3e"
	selectorApprove   = "0x095ea7b3"

	checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func word(n uint64) string {
	return fmt.Sprintf("0x%064x", n)
}

func wordBig(n *big.Int) string {
	return fmt.Sprintf("0x%064x", n)
}

func newNodeClient(t *testing.T) (*rpctest.Node, *rpc.Client) {
	t.Helper()
	node := rpctest.NewNode()
	t.Cleanup(node.Close)
	return node, rpc.NewClient(node.URL(), time.Second)
}

func TestIsAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"lowercase", strings.ToLower(checksummed), checksummed, true},
		{"checksummed", checksummed, checksummed, true},
		{"wrong checksum case", "0x5AAEB6053f3e94c9b9a09f33669435e7ef1beaed", checksummed, true},
		{"upper prefix", "0X" + strings.ToUpper(checksummed[2:]), checksummed, true},
		{"empty", "", "", false},
		{"prefix only", "0x", "", false},
		{"too short", checksummed[:41], "", false},
		{"too long", checksummed + "0", "", false},
		{"missing prefix", checksummed[2:], "", false},
		{"non hex", "0x" + strings.Repeat("g", 40), "", false},
		{"spaces", " " + checksummed, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IsAddress(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAccount(t *testing.T) {
	got := ParseAccount(checksummed)
	assert.Equal(t, "0x5aAe...eAed", got)
	assert.Len(t, got, 13)

	lower := strings.ToLower(checksummed)
	assert.Equal(t, "0x5aae...eaed", ParseAccount(lower))

	for _, s := range []string{"", "hello", "0x1234", checksummed[2:], "0x" + strings.Repeat("z", 40)} {
		assert.Equal(t, s, ParseAccount(s))
	}
}

func TestSwitchableChainIDs(t *testing.T) {
	ids := SwitchableChainIDs()
	assert.Equal(t, []string{"0x1", "0x4", "0x2a"}, ids)

	ids[0] = "0x99"
	assert.Equal(t, "0x1", SwitchableChainIDs()[0])
}

func TestChangeNetwork_NoWallet(t *testing.T) {
	err := ChangeNetwork(context.Background(), nil, chain.Descriptor{ChainID: "0x38"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoWallet)
}

func TestChangeNetwork_Switch(t *testing.T) {
	registry := chain.NewRegistry()
	for _, key := range []string{chain.KeyRinkeby, chain.KeyKovan} {
		t.Run(key, func(t *testing.T) {
			node, client := newNodeClient(t)
			node.SetResult(MethodSwitchChain, nil)

			d, ok := registry.Get(key)
			require.True(t, ok)
			require.NoError(t, ChangeNetwork(context.Background(), client, d))

			calls := node.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, MethodSwitchChain, calls[0].Method)
			require.Len(t, calls[0].Params, 1)
			assert.JSONEq(t, fmt.Sprintf(`{"chainId":%q}`, d.ChainID), string(calls[0].Params[0]))
		})
	}

	t.Run("mainnet", func(t *testing.T) {
		node, client := newNodeClient(t)
		node.SetResult(MethodSwitchChain, nil)
		require.NoError(t, ChangeNetwork(context.Background(), client, chain.Descriptor{ChainID: "0x1"}))
		assert.Len(t, node.CallsTo(MethodSwitchChain), 1)
	})

	t.Run("non-canonical id", func(t *testing.T) {
		node, client := newNodeClient(t)
		node.SetResult(MethodSwitchChain, nil)
		for _, id := range []string{"0x01", "0X2A", "4"} {
			require.NoError(t, ChangeNetwork(context.Background(), client, chain.Descriptor{ChainID: id}), id)
		}

		calls := node.CallsTo(MethodSwitchChain)
		require.Len(t, calls, 3)
		assert.JSONEq(t, `{"chainId":"0x1"}`, string(calls[0].Params[0]))
		assert.JSONEq(t, `{"chainId":"0x2a"}`, string(calls[1].Params[0]))
		assert.JSONEq(t, `{"chainId":"0x4"}`, string(calls[2].Params[0]))
		assert.Empty(t, node.CallsTo(MethodAddChain))
	})
}

func TestChangeNetwork_Add(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetResult(MethodAddChain, nil)

	d, ok := chain.NewRegistry().Get(chain.KeyBSC)
	require.True(t, ok)
	require.NoError(t, ChangeNetwork(context.Background(), client, d))

	calls := node.CallsTo(MethodAddChain)
	require.Len(t, calls, 1)
	assert.Empty(t, node.CallsTo(MethodSwitchChain))

	var sent chain.Descriptor
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &sent))
	assert.Equal(t, d, sent)
}

func TestChangeNetwork_Rejected(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetError(MethodAddChain, jsonrpc.CodeUserRejected, "User rejected the request.")

	err := ChangeNetwork(context.Background(), client, chain.Descriptor{ChainID: "0x61"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "changeNetwork", appErr.Op)
	assert.Equal(t, jsonrpc.CodeUserRejected, appErr.Code)
	assert.Equal(t, "0x61", appErr.Context["chain_id"])
	assert.Equal(t, MethodAddChain, appErr.Context["method"])

	assert.True(t, jsonrpc.IsUserRejected(err), "original wallet error must stay reachable")
}

func TestGetBalance(t *testing.T) {
	node, client := newNodeClient(t)

	got, err := GetBalance(context.Background(), client, ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.0", got)

	calls := node.CallsTo("eth_getBalance")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `"latest"`, string(calls[0].Params[1]))

	node.SetResult("eth_getBalance", "0x6f05b59d3b20000")
	got, err = GetBalance(context.Background(), client, ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.5", got)
	assert.Len(t, node.CallsTo("eth_getBalance"), 2, "no caching")
}

func TestGetBalance_Errors(t *testing.T) {
	_, err := GetBalance(context.Background(), nil, ownerAddr)
	assert.ErrorIs(t, err, apperrors.ErrNoWallet)

	node, client := newNodeClient(t)
	node.SetError("eth_getBalance", -32602, "invalid address")
	_, err = GetBalance(context.Background(), client, "bogus")
	assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)
}

func TestGetContract(t *testing.T) {
	c := GetContract("not-an-address", contract.ERC20ABI(), nil)
	assert.Equal(t, "not-an-address", c.Address())
	assert.Nil(t, c.Provider())
}

func TestGetTokenBalance(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetContractResult(selectorBalanceOf, word(1234567))
	node.SetContractResult(selectorDecimals, word(6))

	got, err := GetTokenBalance(context.Background(), tokenAddr, ownerAddr, client, DefaultFixed)
	require.NoError(t, err)
	assert.Equal(t, "1.2346", got.String())
	assert.Equal(t, "1.234567", got.Exact())
	assert.Equal(t, uint8(6), got.Decimals)

	unrounded, err := GetTokenBalance(context.Background(), tokenAddr, ownerAddr, client, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.234567, unrounded.Value)
	assert.Equal(t, "1.234567", unrounded.String())

	calls := node.CallsTo("eth_call")
	require.NotEmpty(t, calls)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &msg))
	assert.Equal(t, tokenAddr, msg["to"])
	assert.True(t, strings.HasPrefix(msg["data"], selectorBalanceOf))
	assert.True(t, strings.HasSuffix(msg["data"], ownerAddr[2:]))
}

func TestGetTokenBalance_InvalidAddress(t *testing.T) {
	node, client := newNodeClient(t)

	_, err := GetTokenBalance(context.Background(), "not-an-address", ownerAddr, client, DefaultFixed)
	require.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "tokenAddress", appErr.Context["param"])
	assert.Contains(t, appErr.Error(), "tokenAddress")

	_, err = GetTokenBalance(context.Background(), tokenAddr, "0x12", client, DefaultFixed)
	require.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	appErr, _ = apperrors.As(err)
	assert.Equal(t, "account", appErr.Context["param"])

	assert.Empty(t, node.Calls(), "validation must happen before any request")
}

func TestGetTokenBalance_DownstreamFailure(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetContractResult(selectorBalanceOf, word(1))

	// decimals is not answered, so the node reverts
	_, err := GetTokenBalance(context.Background(), tokenAddr, ownerAddr, client, DefaultFixed)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "getTokenBalance", appErr.Op)
	assert.Equal(t, "decimals", appErr.Context["method"])

	var rpcErr *jsonrpc.Error
	assert.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 3, rpcErr.Code)
}

func TestGetTokenBalance_DecimalsOutOfRange(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetContractResult(selectorBalanceOf, word(1000000))

	for _, d := range []*big.Int{big.NewInt(256), big.NewInt(300), new(big.Int).Lsh(big.NewInt(1), 200)} {
		node.SetContractResult(selectorDecimals, wordBig(d))
		_, err := GetTokenBalance(context.Background(), tokenAddr, ownerAddr, client, DefaultFixed)
		require.ErrorIs(t, err, apperrors.ErrDecodeFailed, "decimals %s", d)
		appErr, _ := apperrors.As(err)
		assert.Equal(t, "getTokenBalance", appErr.Op)
	}

	node.SetContractResult(selectorDecimals, word(255))
	got, err := GetTokenBalance(context.Background(), tokenAddr, ownerAddr, client, DefaultFixed)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), got.Decimals)
}

func TestGetERC20Allowance(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetContractResult(selectorDecimals, word(18))
	node.SetContractResult(selectorAllowance, word(1_500_000_000_000_000_000))

	got, err := GetERC20Allowance(context.Background(), tokenAddr, client, ownerAddr, spenderAddr)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Value)
	assert.Equal(t, 0, got.Fixed)

	calls := node.CallsTo("eth_call")
	require.Len(t, calls, 2)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(calls[1].Params[0], &msg))
	assert.True(t, strings.HasPrefix(msg["data"], selectorAllowance))
	assert.Contains(t, msg["data"], ownerAddr[2:])
	assert.True(t, strings.HasSuffix(msg["data"], spenderAddr[2:]))
}

func TestGetERC20Allowance_Errors(t *testing.T) {
	node, client := newNodeClient(t)

	_, err := GetERC20Allowance(context.Background(), tokenAddr, client, ownerAddr, "nope")
	require.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "spender", appErr.Context["param"])
	assert.Empty(t, node.Calls())

	node.SetContractResult(selectorDecimals, word(300))
	_, err = GetERC20Allowance(context.Background(), tokenAddr, client, ownerAddr, spenderAddr)
	assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
	assert.Len(t, node.CallsTo("eth_call"), 1, "allowance is not read when decimals is out of range")
}

func sentTransaction(t *testing.T, node *rpctest.Node) map[string]string {
	t.Helper()
	calls := node.CallsTo("eth_sendTransaction")
	require.Len(t, calls, 1)
	var tx map[string]string
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &tx))
	return tx
}

func TestERC20Approve_DefaultsToMaxUint256(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetResult("eth_sendTransaction", txHash)

	pending, err := ERC20Approve(context.Background(), tokenAddr, client, ownerAddr, spenderAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, txHash, pending.Hash.String())
	assert.Equal(t, ownerAddr, pending.From)
	assert.Equal(t, tokenAddr, pending.To)

	tx := sentTransaction(t, node)
	assert.Equal(t, ownerAddr, tx["from"])
	assert.Equal(t, tokenAddr, tx["to"])

	want := selectorApprove + "000000000000000000000000" + spenderAddr[2:] + strings.Repeat("f", 64)
	assert.Equal(t, want, tx["data"])

	assert.Empty(t, node.CallsTo("eth_getTransactionReceipt"), "approve must not wait")
}

func TestERC20Approve_ExplicitAmount(t *testing.T) {
	node, client := newNodeClient(t)
	node.SetResult("eth_sendTransaction", txHash)

	amount := big.NewInt(1000)
	_, err := ERC20Approve(context.Background(), tokenAddr, client, ownerAddr, spenderAddr, amount)
	require.NoError(t, err)

	tx := sentTransaction(t, node)
	assert.True(t, strings.HasSuffix(tx["data"], wordBig(amount)[2:]))
}

func TestERC20Approve_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := ERC20Approve(ctx, tokenAddr, nil, ownerAddr, spenderAddr, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoWallet)

	node, client := newNodeClient(t)
	_, err = ERC20Approve(ctx, tokenAddr, client, "owner", spenderAddr, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)
	_, err = ERC20Approve(ctx, tokenAddr, client, ownerAddr, spenderAddr, big.NewInt(-1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
	assert.Empty(t, node.Calls())

	node.SetError("eth_sendTransaction", jsonrpc.CodeUserRejected, "User denied transaction signature.")
	_, err = ERC20Approve(ctx, tokenAddr, client, ownerAddr, spenderAddr, nil)
	require.ErrorIs(t, err, apperrors.ErrRemoteRejected)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "erc20Approve", appErr.Op)
	assert.Equal(t, jsonrpc.CodeUserRejected, appErr.Code)
}

// recordingSender 记录提交的交易
type recordingSender struct {
	from string
	reqs []*contract.TxRequest
}

func (s *recordingSender) From() string { return s.from }

func (s *recordingSender) SendTransaction(_ context.Context, req *contract.TxRequest) (ethgo.Hash, error) {
	s.reqs = append(s.reqs, req)
	return ethgo.HexToHash(txHash), nil
}

func TestERC20ApproveWith(t *testing.T) {
	node, client := newNodeClient(t)
	sender := &recordingSender{from: ownerAddr}

	pending, err := ERC20ApproveWith(context.Background(), sender, tokenAddr, client, spenderAddr, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, pending.From)

	require.Len(t, sender.reqs, 1)
	assert.Equal(t, tokenAddr, sender.reqs[0].To)
	assert.Equal(t, selectorApprove, hexutil.Encode(sender.reqs[0].Data[:4]))
	assert.Empty(t, node.Calls())

	_, err = ERC20ApproveWith(context.Background(), nil, tokenAddr, client, spenderAddr, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoWallet)
	_, err = ERC20ApproveWith(context.Background(), sender, "token", client, spenderAddr, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)
}

func addrTopic(addr string) ethgo.Hash {
	return ethgo.HexToHash("0x000000000000000000000000" + addr[2:])
}

func TestParseLog(t *testing.T) {
	erc20 := contract.ERC20ABI()
	valid := &ethgo.Log{
		Address: ethgo.HexToAddress(tokenAddr),
		Topics: []ethgo.Hash{
			erc20.Events["Approval"].ID(),
			addrTopic(ownerAddr),
			addrTopic(spenderAddr),
		},
		Data: hexutil.MustDecode(word(99)),
	}
	garbage := &ethgo.Log{
		Topics: []ethgo.Hash{ethgo.HexToHash("0x01")},
		Data:   []byte{0xde, 0xad},
	}

	results := ParseLog(erc20, []*ethgo.Log{valid, garbage})
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "Approval", results[0].Event.Name)
	assert.Equal(t, 0, big.NewInt(99).Cmp(results[0].Event.Args["value"].(*big.Int)))
	assert.ErrorIs(t, results[1].Err, contract.ErrNoMatchingEvent)

	decoded := contract.Decoded(results)
	require.Len(t, decoded, 2)
	assert.NotNil(t, decoded[0])
	assert.Nil(t, decoded[1])
}
