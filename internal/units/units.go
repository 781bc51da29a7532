// Package units converts raw on-chain integers into decimal amounts.
package units

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// EtherDecimals 原生币精度
const EtherDecimals = 18

// FormatUnits renders v as a decimal string with the given number of
// decimals. The result always has at least one fractional digit and no
// trailing zeros beyond that: 1e18 with 18 decimals is "1.0", 5e17 is "0.5".
// A nil value formats as "0.0".
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0.0"
	}

	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	digits := abs.String()

	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-d]
	frac := strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		frac = "0"
	}

	s := whole + "." + frac
	if neg {
		s = "-" + s
	}
	return s
}

// FormatEther 按 18 位精度格式化
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseUnits is the inverse of FormatUnits. It rejects values with more
// fractional digits than decimals.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// Amount is a token quantity together with the precision it was read at.
// Value is the float form used for display; Raw keeps the exact integer.
type Amount struct {
	Raw      *big.Int
	Decimals uint8
	Value    float64
	// Fixed is the number of fractional digits String renders. Zero means
	// the shortest representation of Value.
	Fixed int
}

// NewAmount 根据原始整数与精度构造 Amount
func NewAmount(raw *big.Int, decimals uint8, fixed int) Amount {
	if raw == nil {
		raw = new(big.Int)
	}
	// FormatUnits 输出总是合法的十进制串，超出 float64 范围时返回 ±Inf
	value, _ := strconv.ParseFloat(FormatUnits(raw, decimals), 64)
	if fixed < 0 {
		fixed = 0
	}
	return Amount{Raw: raw, Decimals: decimals, Value: value, Fixed: fixed}
}

// String 返回显示用的十进制字符串
func (a Amount) String() string {
	if a.Fixed > 0 {
		return strconv.FormatFloat(a.Value, 'f', a.Fixed, 64)
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// Exact 返回不经过浮点的精确值
func (a Amount) Exact() string {
	return FormatUnits(a.Raw, a.Decimals)
}

// MarshalJSON encodes a rounded amount as a string so its trailing zeros
// survive, and an unrounded one as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Fixed > 0 {
		return json.Marshal(a.String())
	}
	return json.Marshal(a.Value)
}
