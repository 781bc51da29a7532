package units

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		v        *big.Int
		decimals uint8
		want     string
	}{
		{"one ether", bi("1000000000000000000"), 18, "1.0"},
		{"zero", big.NewInt(0), 18, "0.0"},
		{"nil", nil, 18, "0.0"},
		{"half", bi("500000000000000000"), 18, "0.5"},
		{"one wei", big.NewInt(1), 18, "0.000000000000000001"},
		{"usdc", bi("1234567"), 6, "1.234567"},
		{"trailing zeros", bi("1230000"), 6, "1.23"},
		{"no decimals", big.NewInt(42), 0, "42.0"},
		{"negative", bi("-2250000000000000000"), 18, "-2.25"},
		{"large", bi("123456789000000000000000000"), 18, "123456789.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUnits(tt.v, tt.decimals))
		})
	}
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "1.5", FormatEther(bi("1500000000000000000")))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	v, err = ParseUnits(".25", 2)
	require.NoError(t, err)
	assert.Equal(t, "25", v.String())

	v, err = ParseUnits("-3", 6)
	require.NoError(t, err)
	assert.Equal(t, "-3000000", v.String())

	_, err = ParseUnits("1.234", 2)
	assert.Error(t, err)
	_, err = ParseUnits("abc", 18)
	assert.Error(t, err)
	_, err = ParseUnits("", 18)
	assert.Error(t, err)
}

func TestAmount_String(t *testing.T) {
	a := NewAmount(bi("1234567"), 6, 4)
	assert.Equal(t, 1.234567, a.Value)
	assert.Equal(t, "1.2346", a.String())
	assert.Equal(t, "1.234567", a.Exact())

	whole := NewAmount(bi("1000000000000000000"), 18, 4)
	assert.Equal(t, "1.0000", whole.String())

	unrounded := NewAmount(bi("1234567"), 6, 0)
	assert.Equal(t, "1.234567", unrounded.String())

	zero := NewAmount(nil, 18, 2)
	assert.Equal(t, "0.00", zero.String())
}

func TestAmount_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewAmount(bi("1000000"), 6, 4))
	require.NoError(t, err)
	assert.Equal(t, `"1.0000"`, string(data))

	data, err = json.Marshal(NewAmount(bi("2500000"), 6, 0))
	require.NoError(t, err)
	assert.Equal(t, `2.5`, string(data))
}
