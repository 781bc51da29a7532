// Package utils holds small helpers shared by the internal packages.
package utils

import (
	"strings"
)

// AddressHexLength 是不含 0x 前缀的地址长度
const AddressHexLength = 40

// IsValidEthAddress reports whether addr has the shape of an Ethereum
// address: a lowercase "0x" prefix followed by exactly 40 hex digits.
// Mixed case digits are accepted; the EIP-55 checksum is not verified here.
//
// Example:
//
//	IsValidEthAddress("0x1234567890123456789012345678901234567890") // true
//	IsValidEthAddress("0x123456789012345678901234567890123456789")  // false, too short
//	IsValidEthAddress("1234567890123456789012345678901234567890")   // false, no prefix
func IsValidEthAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") || len(addr) != 2+AddressHexLength {
		return false
	}
	return IsHex(addr[2:])
}

// IsHex 判断字符串是否全部由十六进制字符组成（空串返回 false）
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// Has0xPrefix 判断是否带 0x 或 0X 前缀
func Has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
