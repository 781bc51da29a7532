// Package signer sends transactions signed with a local private key.
package signer

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/umbracle/ethgo/wallet"
)

// LoadKeyFile reads a hex encoded secp256k1 private key from path.
//
// The file may contain a 0x prefix and surrounding whitespace.
//
// Parameters:
//   - path: Path to the key file
//
// Returns:
//   - *wallet.Key: The loaded key
//   - error: A CONFIG_ERROR if the file is unreadable or not a valid key
func LoadKeyFile(path string) (*wallet.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "failed to read key file %s", path)
	}
	key, err := ParseKey(string(data))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConfig, apperrors.CodeConfig, "invalid key file %s", path)
	}
	return key, nil
}

// ParseKey 解析十六进制私钥
func ParseKey(s string) (*wallet.Key, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	return wallet.NewWalletFromPrivKey(raw)
}
