// Package chainutil provides the stateless chain and wallet helpers a dApp
// needs: address checks, network switching, balance and allowance reads,
// ERC20 approvals and event log decoding.
//
// Every helper that talks to a node or wallet takes the capability as an
// explicit rpc.Caller; nothing in this package holds global connections.
package chainutil

import (
	"strings"

	"github.com/mowind/dapputil-go/internal/utils"
	"github.com/umbracle/ethgo"
)

// accountEllipsis 缩写地址时使用的省略号
const accountEllipsis = "..."

// IsAddress lowercases value and, when it is a 0x-prefixed 20 byte hex
// string, returns its EIP-55 checksummed form. It never panics.
//
// Parameters:
//   - value: The candidate address
//
// Returns:
//   - string: The checksummed address, or "" when invalid
//   - bool: Whether value is a valid address
func IsAddress(value string) (string, bool) {
	lower := strings.ToLower(value)
	if !utils.IsValidEthAddress(lower) {
		return "", false
	}
	return ethgo.HexToAddress(lower).String(), true
}

// ParseAccount 返回用于展示的缩写地址，如 0xAbCd...1234；非法地址原样返回
func ParseAccount(account string) string {
	if _, ok := IsAddress(account); !ok {
		return account
	}
	return account[:6] + accountEllipsis + account[len(account)-4:]
}
