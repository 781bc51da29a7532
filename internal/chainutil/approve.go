package chainutil

import (
	"context"
	"math/big"

	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/umbracle/ethgo"
)

// ERC20Approve submits approve(spender, amount) from owner, letting the
// provider's wallet sign for owner. A nil amount approves MaxUint256.
// The pending transaction is returned without waiting for it to be mined.
func ERC20Approve(ctx context.Context, contractAddress string, provider rpc.Caller, owner, spender string, amount *big.Int) (*contract.PendingTx, error) {
	if provider == nil {
		return nil, apperrors.NoWallet("erc20Approve")
	}
	if _, ok := IsAddress(owner); !ok {
		return nil, apperrors.InvalidAddress("erc20Approve", "owner", owner)
	}
	sender := contract.NewAccountSender(owner, provider)
	return ERC20ApproveWith(ctx, sender, contractAddress, provider, spender, amount)
}

// ERC20ApproveWith is ERC20Approve with a caller supplied sender, such as a
// signer.KeySender holding a local key.
//
// Parameters:
//   - ctx: Context for the submission
//   - sender: Signs and submits the transaction
//   - contractAddress: The ERC20 contract
//   - provider: The node the pending transaction is tracked on
//   - spender: The approved account
//   - amount: The allowance in the token's smallest unit; nil means MaxUint256
//
// Returns:
//   - *contract.PendingTx: The submitted transaction
//   - error: INVALID_ADDRESS, NO_WALLET or a submission error tagged erc20Approve
func ERC20ApproveWith(ctx context.Context, sender contract.Sender, contractAddress string, provider rpc.Caller, spender string, amount *big.Int) (*contract.PendingTx, error) {
	const op = "erc20Approve"
	if sender == nil {
		return nil, apperrors.NoWallet(op)
	}
	if _, ok := IsAddress(contractAddress); !ok {
		return nil, apperrors.InvalidAddress(op, "contractAddress", contractAddress)
	}
	if _, ok := IsAddress(spender); !ok {
		return nil, apperrors.InvalidAddress(op, "spender", spender)
	}
	if amount == nil {
		amount = contract.MaxUint256()
	}
	if amount.Sign() < 0 {
		return nil, apperrors.InvalidParams("approve amount must not be negative").WithOp(op)
	}

	token := GetContract(contractAddress, contract.ERC20ABI(), provider)
	tx, err := token.Transact(ctx, sender, "approve", ethgo.HexToAddress(spender), amount)
	if err != nil {
		return nil, tagOp(err, op)
	}
	return tx, nil
}
