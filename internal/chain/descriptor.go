// Package chain describes EVM networks in the shape wallets expect for
// wallet_addEthereumChain, and keeps a registry of known networks.
package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mowind/dapputil-go/internal/utils"
)

// NativeDecimals 钱包要求原生币精度固定为 18
const NativeDecimals = 18

// NativeCurrency 原生币信息
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"` // 2-6 个字符
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// Descriptor is the EIP-3085 AddEthereumChainParameter.
type Descriptor struct {
	ChainID           string         `json:"chainId" yaml:"chainId"` // 0x 前缀的十六进制
	ChainName         string         `json:"chainName" yaml:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls" yaml:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty" yaml:"blockExplorerUrls,omitempty"`
	IconURLs          []string       `json:"iconUrls,omitempty" yaml:"iconUrls,omitempty"` // 钱包目前忽略
}

// Validate 检查描述符是否能被钱包接受
func (d *Descriptor) Validate() error {
	id, err := ParseChainID(d.ChainID)
	if err != nil {
		return err
	}
	if canonical := hexutil.EncodeBig(id); canonical != d.ChainID {
		return fmt.Errorf("chainId %q is not canonical, expected %s", d.ChainID, canonical)
	}
	if id.Sign() <= 0 {
		return fmt.Errorf("chainId must be positive")
	}
	if d.ChainName == "" {
		return fmt.Errorf("chainName is required")
	}
	if d.NativeCurrency.Decimals != NativeDecimals {
		return fmt.Errorf("nativeCurrency.decimals must be %d, got %d", NativeDecimals, d.NativeCurrency.Decimals)
	}
	if n := len(d.NativeCurrency.Symbol); n < 2 || n > 6 {
		return fmt.Errorf("nativeCurrency.symbol must be 2-6 characters, got %q", d.NativeCurrency.Symbol)
	}
	if len(d.RPCURLs) == 0 {
		return fmt.Errorf("at least one rpcUrl is required")
	}
	return nil
}

// ID 返回数值形式的链 ID
func (d *Descriptor) ID() (*big.Int, error) {
	return ParseChainID(d.ChainID)
}

// ParseChainID accepts a 0x-prefixed hex quantity or a decimal string.
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("chainId is required")
	}
	if utils.Has0xPrefix(s) {
		digits := s[2:]
		id, ok := new(big.Int).SetString(digits, 16)
		if !ok || !utils.IsHex(digits) {
			return nil, fmt.Errorf("invalid chainId %q", s)
		}
		return id, nil
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chainId %q", s)
	}
	return id, nil
}

// SameChain 按数值比较两个链 ID，"0x04"、"0x4" 与 "4" 视为相同
func SameChain(a, b string) bool {
	x, err := ParseChainID(a)
	if err != nil {
		return false
	}
	y, err := ParseChainID(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

// FormatChainID 返回规范的 0x 十六进制形式
func FormatChainID(id *big.Int) string {
	return hexutil.EncodeBig(id)
}
