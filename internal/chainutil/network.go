package chainutil

import (
	"context"

	"github.com/mowind/dapputil-go/internal/chain"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
)

// 钱包方法
const (
	MethodSwitchChain = "wallet_switchEthereumChain"
	MethodAddChain    = "wallet_addEthereumChain"
)

// 钱包内置、只需切换的链：主网与两个测试网
var switchableChainIDs = []string{"0x1", "0x4", "0x2a"}

// SwitchableChainIDs returns the chain ids that are switched to rather than
// added.
func SwitchableChainIDs() []string {
	out := make([]string, len(switchableChainIDs))
	copy(out, switchableChainIDs)
	return out
}

// switchableID 按数值匹配允许切换的链，返回规范形式（"0x01" -> "0x1"）
func switchableID(chainID string) (string, bool) {
	for _, s := range switchableChainIDs {
		if chain.SameChain(chainID, s) {
			return s, true
		}
	}
	return "", false
}

// ChangeNetwork asks the wallet to make d its active network.
//
// Chains in SwitchableChainIDs are requested with wallet_switchEthereumChain
// and only their chain id; any other chain is requested with
// wallet_addEthereumChain and the full descriptor.
//
// Parameters:
//   - ctx: Context for the wallet request
//   - wallet: The wallet capability; nil fails with NO_WALLET before any request
//   - d: The target network
//
// Returns:
//   - error: NO_WALLET, or REMOTE_REJECTED carrying the chain id and the
//     wallet's original error
func ChangeNetwork(ctx context.Context, wallet rpc.Caller, d chain.Descriptor) error {
	const op = "changeNetwork"
	if wallet == nil {
		return apperrors.NoWallet(op).WithContext("chain_id", d.ChainID)
	}

	method := MethodAddChain
	var param interface{} = d
	if id, ok := switchableID(d.ChainID); ok {
		method = MethodSwitchChain
		param = map[string]string{"chainId": id}
	}

	if err := wallet.Call(ctx, method, nil, param); err != nil {
		return apperrors.RemoteRejected(op, err).
			WithContext("chain_id", d.ChainID).
			WithContext("method", method)
	}
	return nil
}
