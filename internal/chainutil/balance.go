package chainutil

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/mowind/dapputil-go/internal/units"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"
)

// DefaultFixed GetTokenBalance 默认保留的小数位
const DefaultFixed = 4

// GetBalance reads the native balance of account at the latest block and
// formats it with 18 decimals, e.g. "1.5".
func GetBalance(ctx context.Context, provider rpc.Caller, account string) (string, error) {
	const op = "getBalance"
	if provider == nil {
		return "", apperrors.NoWallet(op)
	}

	var wei hexutil.Big
	if err := provider.Call(ctx, "eth_getBalance", &wei, account, contract.BlockLatest); err != nil {
		return "", apperrors.FromRemote(op, err).WithContext("account", account)
	}
	return units.FormatEther(wei.ToInt()), nil
}

// GetContract binds address, abi and provider. It performs no validation
// and no I/O.
func GetContract(address string, a *abi.ABI, provider rpc.Caller) *contract.Contract {
	return contract.New(address, a, provider)
}

// GetTokenBalance returns the ERC20 balance of account.
//
// Both addresses are validated before any request. The balance is
// converted with the token's decimals; its string form is rounded to fixed
// fractional digits, and fixed == 0 leaves it unrounded.
//
// Parameters:
//   - ctx: Context for the node requests
//   - tokenAddress: The ERC20 contract
//   - account: The holder
//   - provider: The node
//   - fixed: Fractional digits of the rounded form (0 disables rounding)
//
// Returns:
//   - units.Amount: The balance
//   - error: INVALID_ADDRESS naming the bad parameter, or a downstream error
//     tagged with the getTokenBalance operation
func GetTokenBalance(ctx context.Context, tokenAddress, account string, provider rpc.Caller, fixed int) (units.Amount, error) {
	const op = "getTokenBalance"
	if _, ok := IsAddress(tokenAddress); !ok {
		return units.Amount{}, apperrors.InvalidAddress(op, "tokenAddress", tokenAddress)
	}
	if _, ok := IsAddress(account); !ok {
		return units.Amount{}, apperrors.InvalidAddress(op, "account", account)
	}

	token := GetContract(tokenAddress, contract.ERC20ABI(), provider)

	balance, err := token.CallBigInt(ctx, "balanceOf", ethgo.HexToAddress(account))
	if err != nil {
		return units.Amount{}, tagOp(err, op)
	}
	decimals, err := tokenDecimals(ctx, token)
	if err != nil {
		return units.Amount{}, tagOp(err, op)
	}
	return units.NewAmount(balance, decimals, fixed), nil
}

// GetERC20Allowance 返回 owner 授权给 spender 的额度（未取整）
func GetERC20Allowance(ctx context.Context, contractAddress string, provider rpc.Caller, owner, spender string) (units.Amount, error) {
	const op = "getERC20Allowance"
	for _, p := range []struct{ name, value string }{
		{"contractAddress", contractAddress},
		{"owner", owner},
		{"spender", spender},
	} {
		if _, ok := IsAddress(p.value); !ok {
			return units.Amount{}, apperrors.InvalidAddress(op, p.name, p.value)
		}
	}

	token := GetContract(contractAddress, contract.ERC20ABI(), provider)

	decimals, err := tokenDecimals(ctx, token)
	if err != nil {
		return units.Amount{}, tagOp(err, op)
	}
	allowance, err := token.CallBigInt(ctx, "allowance", ethgo.HexToAddress(owner), ethgo.HexToAddress(spender))
	if err != nil {
		return units.Amount{}, tagOp(err, op)
	}
	return units.NewAmount(allowance, decimals, 0), nil
}

// tokenDecimals reads decimals as a full word; the ABI declares uint8 and
// decoding through it would silently drop the high bytes.
func tokenDecimals(ctx context.Context, token *contract.Contract) (uint8, error) {
	d, err := token.CallWord(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if !d.IsUint64() || d.Uint64() > math.MaxUint8 {
		return 0, apperrors.DecodeFailed("decimals", fmt.Errorf("decimals %s out of range", d)).
			WithContext("contract", token.Address())
	}
	return uint8(d.Uint64()), nil
}

// tagOp keeps the error kind and cause, and records the helper that failed
// so callers can tell call sites apart.
func tagOp(err error, op string) error {
	appErr := apperrors.ConvertError(err)
	if appErr.Op != "" && appErr.Op != op {
		appErr = appErr.WithContext("method", appErr.Op)
	}
	return appErr.WithOp(op)
}
