package chain

// 内置网络
const (
	KeyRinkeby = "rinkeby"
	KeyKovan   = "kovan"
	KeyBSC     = "bsc"
	KeyBNBT    = "bnbt"
)

func builtin() map[string]Descriptor {
	eth := NativeCurrency{Name: "eth", Symbol: "eth", Decimals: NativeDecimals}
	bnb := NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: NativeDecimals}

	return map[string]Descriptor{
		KeyRinkeby: {
			ChainID:           "0x4",
			ChainName:         "Rinkeby",
			NativeCurrency:    eth,
			RPCURLs:           []string{"https://rinkeby.infura.io/v3/"},
			BlockExplorerURLs: []string{"https://rinkeby.etherscan.io"},
		},
		KeyKovan: {
			ChainID:           "0x2a",
			ChainName:         "kovan",
			NativeCurrency:    eth,
			RPCURLs:           []string{"https://kovan.infura.io/v3/"},
			BlockExplorerURLs: []string{"https://kovan.etherscan.io"},
		},
		KeyBSC: {
			ChainID:           "0x38",
			ChainName:         "BSC",
			NativeCurrency:    bnb,
			RPCURLs:           []string{"https://bsc-dataseed.binance.org/"},
			BlockExplorerURLs: []string{"https://bscscan.com/"},
		},
		KeyBNBT: {
			ChainID:           "0x61",
			ChainName:         "bnbt",
			NativeCurrency:    bnb,
			RPCURLs:           []string{"https://data-seed-prebsc-1-s1.binance.org:8545"},
			BlockExplorerURLs: []string{"https://testnet.bscscan.com/"},
		},
	}
}
