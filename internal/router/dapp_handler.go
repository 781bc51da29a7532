package router

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/mowind/dapputil-go/internal/chain"
	"github.com/mowind/dapputil-go/internal/chainutil"
	"github.com/mowind/dapputil-go/internal/contract"
	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/sirupsen/logrus"
	"github.com/umbracle/ethgo/abi"
)

// 网关提供的 dapp_* 方法
const (
	MethodIsAddress       = "dapp_isAddress"
	MethodParseAccount    = "dapp_parseAccount"
	MethodGetBalance      = "dapp_getBalance"
	MethodGetTokenBalance = "dapp_getTokenBalance"
	MethodGetAllowance    = "dapp_getAllowance"
	MethodApprove         = "dapp_approve"
	MethodChangeNetwork   = "dapp_changeNetwork"
	MethodNetworks        = "dapp_networks"
	MethodParseLogs       = "dapp_parseLogs"
)

// DappService binds the chain helpers to the gateway's node, wallet and
// network registry.
type DappService struct {
	provider   rpc.Caller
	wallet     rpc.Caller
	registry   *chain.Registry
	sender     contract.Sender
	tokenFixed int
	logger     logrus.FieldLogger
}

// DappOption 配置 DappService
type DappOption func(*DappService)

// WithWallet sets the wallet used for dapp_changeNetwork and for approvals
// signed by a wallet managed account. It defaults to the provider.
func WithWallet(wallet rpc.Caller) DappOption {
	return func(s *DappService) { s.wallet = wallet }
}

// WithSender 设置本地签名的 Sender，owner 与其地址一致时用于 dapp_approve
func WithSender(sender contract.Sender) DappOption {
	return func(s *DappService) { s.sender = sender }
}

// WithRegistry 设置网络注册表
func WithRegistry(registry *chain.Registry) DappOption {
	return func(s *DappService) { s.registry = registry }
}

// WithTokenFixed 设置代币余额默认保留的小数位
func WithTokenFixed(fixed int) DappOption {
	return func(s *DappService) { s.tokenFixed = fixed }
}

// NewDappService 创建 dapp_* 方法的实现
func NewDappService(provider rpc.Caller, logger logrus.FieldLogger, opts ...DappOption) *DappService {
	s := &DappService{
		provider:   provider,
		wallet:     provider,
		registry:   chain.NewRegistry(),
		tokenFixed: chainutil.DefaultFixed,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handlers 返回全部 dapp_* 处理器
func (s *DappService) Handlers() []Handler {
	methods := []struct {
		name string
		fn   MethodFunc
	}{
		{MethodIsAddress, s.isAddress},
		{MethodParseAccount, s.parseAccount},
		{MethodGetBalance, s.getBalance},
		{MethodGetTokenBalance, s.getTokenBalance},
		{MethodGetAllowance, s.getAllowance},
		{MethodApprove, s.approve},
		{MethodChangeNetwork, s.changeNetwork},
		{MethodNetworks, s.networks},
		{MethodParseLogs, s.parseLogs},
	}
	handlers := make([]Handler, 0, len(methods))
	for _, m := range methods {
		handlers = append(handlers, NewMethodHandler(m.name, m.fn, s.logger))
	}
	return handlers
}

// isAddress returns the checksummed address, or false like the browser helper.
func (s *DappService) isAddress(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var value string
	if err := bindParams(MethodIsAddress, params, 1, &value); err != nil {
		return nil, err
	}
	if addr, ok := chainutil.IsAddress(value); ok {
		return addr, nil
	}
	return false, nil
}

func (s *DappService) parseAccount(_ context.Context, params []json.RawMessage) (interface{}, error) {
	var account string
	if err := bindParams(MethodParseAccount, params, 1, &account); err != nil {
		return nil, err
	}
	return chainutil.ParseAccount(account), nil
}

func (s *DappService) getBalance(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var account string
	if err := bindParams(MethodGetBalance, params, 1, &account); err != nil {
		return nil, err
	}
	return chainutil.GetBalance(ctx, s.provider, account)
}

// getTokenBalance params: [token, account, fixed?]
func (s *DappService) getTokenBalance(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var token, account string
	fixed := s.tokenFixed
	if err := bindParams(MethodGetTokenBalance, params, 2, &token, &account, &fixed); err != nil {
		return nil, err
	}
	if fixed < 0 {
		return nil, apperrors.InvalidParams("fixed must not be negative").WithOp(MethodGetTokenBalance)
	}
	return chainutil.GetTokenBalance(ctx, token, account, s.provider, fixed)
}

// getAllowance params: [token, owner, spender]
func (s *DappService) getAllowance(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var token, owner, spender string
	if err := bindParams(MethodGetAllowance, params, 3, &token, &owner, &spender); err != nil {
		return nil, err
	}
	return chainutil.GetERC20Allowance(ctx, token, s.provider, owner, spender)
}

// approve params: [token, owner, spender, amount?]. amount is a decimal or
// 0x-prefixed hex integer in the token's smallest unit.
func (s *DappService) approve(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	var token, owner, spender, rawAmount string
	if err := bindParams(MethodApprove, params, 3, &token, &owner, &spender, &rawAmount); err != nil {
		return nil, err
	}

	var amount *big.Int
	if rawAmount != "" {
		v, ok := new(big.Int).SetString(rawAmount, 0)
		if !ok {
			return nil, apperrors.InvalidParams("invalid amount %q", rawAmount).WithOp(MethodApprove)
		}
		amount = v
	}

	if s.sender != nil && strings.EqualFold(s.sender.From(), owner) {
		return chainutil.ERC20ApproveWith(ctx, s.sender, token, s.provider, spender, amount)
	}
	return chainutil.ERC20Approve(ctx, token, s.wallet, owner, spender, amount)
}

// changeNetwork params: [keyOrChainId] or [descriptor]
func (s *DappService) changeNetwork(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	if len(params) != 1 {
		return nil, apperrors.InvalidParams("expected 1 parameter, got %d", len(params)).WithOp(MethodChangeNetwork)
	}

	var d chain.Descriptor
	var key string
	if err := json.Unmarshal(params[0], &key); err == nil {
		found, err := s.registry.Lookup(key)
		if err != nil {
			return nil, apperrors.InvalidParams("%v", err).WithOp(MethodChangeNetwork)
		}
		d = found
	} else {
		if err := json.Unmarshal(params[0], &d); err != nil {
			return nil, apperrors.InvalidParams("invalid network descriptor: %v", err).WithOp(MethodChangeNetwork)
		}
		if err := d.Validate(); err != nil {
			return nil, apperrors.InvalidParams("invalid network descriptor: %v", err).WithOp(MethodChangeNetwork)
		}
	}

	if err := chainutil.ChangeNetwork(ctx, s.wallet, d); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *DappService) networks(_ context.Context, _ []json.RawMessage) (interface{}, error) {
	return s.registry.List(), nil
}

// parseLogs params: [logs, abi?]; the ERC20 ABI is used when abi is omitted.
func (s *DappService) parseLogs(_ context.Context, params []json.RawMessage) (interface{}, error) {
	if len(params) < 1 || len(params) > 2 {
		return nil, apperrors.InvalidParams("expected 1 or 2 parameters, got %d", len(params)).WithOp(MethodParseLogs)
	}

	logs, err := contract.ParseLogJSON(params[0])
	if err != nil {
		return nil, apperrors.InvalidParams("invalid logs: %v", err).WithOp(MethodParseLogs)
	}

	a := contract.ERC20ABI()
	if len(params) == 2 && string(params[1]) != "null" {
		a, err = abi.NewABI(string(params[1]))
		if err != nil {
			return nil, apperrors.InvalidParams("invalid abi: %v", err).WithOp(MethodParseLogs)
		}
	}
	return chainutil.ParseLog(a, logs), nil
}

// bindParams decodes positional params into targets. The first required
// targets must be present; the rest keep their current values when omitted.
func bindParams(method string, params []json.RawMessage, required int, targets ...interface{}) error {
	if len(params) < required || len(params) > len(targets) {
		if required == len(targets) {
			return apperrors.InvalidParams("expected %d parameters, got %d", required, len(params)).WithOp(method)
		}
		return apperrors.InvalidParams("expected %d to %d parameters, got %d", required, len(targets), len(params)).WithOp(method)
	}
	for i, raw := range params {
		if string(raw) == "null" && i >= required {
			continue
		}
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return apperrors.InvalidParams("parameter %d: %v", i, err).WithOp(method)
		}
	}
	return nil
}
