package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEthAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0x1234567890123456789012345678901234567890", true},
		{"0xAbCdEf7890123456789012345678901234567890", true},
		{"0x123456789012345678901234567890123456789", false},
		{"0x12345678901234567890123456789012345678901", false},
		{"1234567890123456789012345678901234567890", false},
		{"0X1234567890123456789012345678901234567890", false},
		{"0xg234567890123456789012345678901234567890", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidEthAddress(tt.addr), tt.addr)
	}
}

func TestIsHex(t *testing.T) {
	assert.True(t, IsHex("deadBEEF09"))
	assert.False(t, IsHex(""))
	assert.False(t, IsHex("0x12"))
}

func TestHas0xPrefix(t *testing.T) {
	assert.True(t, Has0xPrefix("0x"))
	assert.True(t, Has0xPrefix("0XAB"))
	assert.False(t, Has0xPrefix("x0"))
	assert.False(t, Has0xPrefix("0"))
}

func TestCreateTransport(t *testing.T) {
	tr := CreateTransport(16, time.Minute)
	assert.Equal(t, 16, tr.MaxIdleConnsPerHost)
	assert.Equal(t, time.Minute, tr.IdleConnTimeout)
}
