package payments

import (
	"math/big"
	"testing"
)

func TestChainLookup(t *testing.T) {
	cfg, ok := ChainByName("kaia")
	if !ok {
		t.Fatal("kaia not found")
	}
	if cfg.ChainID.Cmp(big.NewInt(8217)) != 0 {
		t.Errorf("kaia chain id = %s, want 8217", cfg.ChainID)
	}
	if cfg.WrappedNative == KairosTestnet.WrappedNative {
		t.Error("mainnet and testnet share a wrapped-native address")
	}

	cfg, ok = ChainByID(big.NewInt(1001))
	if !ok {
		t.Fatal("chain id 1001 not found")
	}
	if cfg.Name != "kairos" {
		t.Errorf("chain 1001 = %q, want kairos", cfg.Name)
	}

	if _, ok := ChainByName("sepolia"); ok {
		t.Error("unknown chain name resolved")
	}
	if _, ok := ChainByID(big.NewInt(1)); ok {
		t.Error("unknown chain id resolved")
	}
	if _, ok := ChainByID(nil); ok {
		t.Error("nil chain id resolved")
	}
}
