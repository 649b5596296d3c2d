package payments

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig contains chain-specific constants for the settlement engine:
// the chain id bound into every intent digest and the canonical
// wrapped-native token contract on that chain.
type ChainConfig struct {
	// Name is the human-readable chain name.
	Name string

	// ChainID is the chain identifier bound into intent digests.
	ChainID *big.Int

	// WrappedNative is the canonical wrapped-native token contract.
	WrappedNative common.Address

	// NativeSymbol is the native currency ticker.
	NativeSymbol string
}

var (
	// KaiaMainnet is the configuration for the Kaia mainnet.
	KaiaMainnet = ChainConfig{
		Name:          "kaia",
		ChainID:       big.NewInt(8217),
		WrappedNative: common.HexToAddress("0x19Aac5f612f524B754CA7e7c41cbFa2E981A4432"),
		NativeSymbol:  "KAIA",
	}

	// KairosTestnet is the configuration for the Kairos testnet.
	KairosTestnet = ChainConfig{
		Name:          "kairos",
		ChainID:       big.NewInt(1001),
		WrappedNative: common.HexToAddress("0x043c471bEe060e00A56CcD02c0Ca286808a5A436"),
		NativeSymbol:  "KAIA",
	}
)

// knownChains indexes the supported chains by name.
var knownChains = map[string]ChainConfig{
	KaiaMainnet.Name:   KaiaMainnet,
	KairosTestnet.Name: KairosTestnet,
}

// ChainByName returns the configuration for the named chain.
func ChainByName(name string) (ChainConfig, bool) {
	cfg, ok := knownChains[name]
	return cfg, ok
}

// ChainByID returns the configuration for the given chain id.
func ChainByID(id *big.Int) (ChainConfig, bool) {
	if id == nil {
		return ChainConfig{}, false
	}
	for _, cfg := range knownChains {
		if cfg.ChainID.Cmp(id) == 0 {
			return cfg, true
		}
	}
	return ChainConfig{}, false
}
