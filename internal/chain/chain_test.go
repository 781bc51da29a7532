package chain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDescriptors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		key     string
		chainID string
		name    string
		symbol  string
		rpc     string
	}{
		{KeyRinkeby, "0x4", "Rinkeby", "eth", "https://rinkeby.infura.io/v3/"},
		{KeyKovan, "0x2a", "kovan", "eth", "https://kovan.infura.io/v3/"},
		{KeyBSC, "0x38", "BSC", "BNB", "https://bsc-dataseed.binance.org/"},
		{KeyBNBT, "0x61", "bnbt", "BNB", "https://data-seed-prebsc-1-s1.binance.org:8545"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			d, ok := r.Get(tt.key)
			require.True(t, ok)
			assert.NoError(t, d.Validate())
			assert.Equal(t, tt.chainID, d.ChainID)
			assert.Equal(t, tt.name, d.ChainName)
			assert.Equal(t, tt.symbol, d.NativeCurrency.Symbol)
			assert.Equal(t, uint8(18), d.NativeCurrency.Decimals)
			assert.Equal(t, []string{tt.rpc}, d.RPCURLs)
			assert.Len(t, d.BlockExplorerURLs, 1)
		})
	}
	assert.Len(t, r.List(), 4)
}

func TestDescriptor_JSONFieldNames(t *testing.T) {
	d, _ := NewRegistry().Get(KeyBSC)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"chainId":"0x38",
		"chainName":"BSC",
		"nativeCurrency":{"name":"BNB","symbol":"BNB","decimals":18},
		"rpcUrls":["https://bsc-dataseed.binance.org/"],
		"blockExplorerUrls":["https://bscscan.com/"]
	}`, string(data))
}

func TestDescriptor_Validate(t *testing.T) {
	valid := func() Descriptor {
		d, _ := NewRegistry().Get(KeyBNBT)
		return d
	}

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"empty chain id", func(d *Descriptor) { d.ChainID = "" }},
		{"decimal chain id", func(d *Descriptor) { d.ChainID = "97" }},
		{"leading zero", func(d *Descriptor) { d.ChainID = "0x061" }},
		{"zero chain", func(d *Descriptor) { d.ChainID = "0x0" }},
		{"not hex", func(d *Descriptor) { d.ChainID = "0xzz" }},
		{"no name", func(d *Descriptor) { d.ChainName = "" }},
		{"decimals", func(d *Descriptor) { d.NativeCurrency.Decimals = 8 }},
		{"symbol too long", func(d *Descriptor) { d.NativeCurrency.Symbol = "TOOLONG" }},
		{"no rpc", func(d *Descriptor) { d.RPCURLs = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
	d := valid()
	assert.NoError(t, d.Validate())
}

func TestParseChainID(t *testing.T) {
	for _, in := range []string{"0x2a", "0X2A", "0x02a", "42", " 42 "} {
		id, err := ParseChainID(in)
		require.NoError(t, err, in)
		assert.Equal(t, int64(42), id.Int64(), in)
	}
	for _, in := range []string{"", "0x", "0xg", "abc"} {
		_, err := ParseChainID(in)
		assert.Error(t, err, in)
	}
	assert.True(t, SameChain("0x04", "4"))
	assert.False(t, SameChain("0x4", "0x2a"))
	assert.False(t, SameChain("bad", "0x4"))
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	d, err := r.Lookup("BSC")
	require.NoError(t, err)
	assert.Equal(t, "0x38", d.ChainID)

	d, err = r.Lookup("97")
	require.NoError(t, err)
	assert.Equal(t, "bnbt", d.ChainName)

	d, err = r.Lookup("0x2a")
	require.NoError(t, err)
	assert.Equal(t, "kovan", d.ChainName)

	_, err = r.Lookup("0x1")
	assert.Error(t, err)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := NewRegistry()
	d, _ := r.Get(KeyBSC)
	d.RPCURLs[0] = "https://evil.example"

	again, _ := r.Get(KeyBSC)
	assert.Equal(t, "https://bsc-dataseed.binance.org/", again.RPCURLs[0])
}

func TestRegistry_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
networks:
  polygon:
    chainId: "0x89"
    chainName: Polygon
    nativeCurrency:
      name: MATIC
      symbol: MATIC
      decimals: 18
    rpcUrls:
      - https://polygon-rpc.com
    blockExplorerUrls:
      - https://polygonscan.com
`), 0o600))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	d, err := r.Lookup("137")
	require.NoError(t, err)
	assert.Equal(t, "Polygon", d.ChainName)
	assert.Len(t, r.List(), 5)
}

func TestRegistry_LoadFileInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
networks:
  good:
    chainId: "0x89"
    chainName: Polygon
    nativeCurrency: {name: MATIC, symbol: MATIC, decimals: 18}
    rpcUrls: [https://polygon-rpc.com]
  broken:
    chainId: "137"
    chainName: Broken
    nativeCurrency: {name: X, symbol: XX, decimals: 18}
    rpcUrls: [https://x]
`), 0o600))

	r := NewRegistry()
	assert.Error(t, r.LoadFile(bad))
	assert.Len(t, r.List(), 4, "a rejected file must not add anything")

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("networks: [1, 2"), 0o600))
	assert.Error(t, r.LoadFile(garbage))

	assert.Error(t, r.LoadFile(filepath.Join(dir, "missing.yaml")))
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Add("", Descriptor{}))
	assert.Error(t, r.Add("x", Descriptor{ChainID: "0x1"}))
}
