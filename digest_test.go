package payments

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func baseIntent() *TransferIntent {
	return &TransferIntent{
		RecipientAmount:   big.NewInt(100),
		FeeAmount:         big.NewInt(5),
		Deadline:          big.NewInt(1_700_000_000),
		Recipient:         testRecip,
		RecipientCurrency: NativeCurrency(),
		RefundDestination: testPayer,
		ID:                IntentID{0xaa, 0xbb},
		Operator:          common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
	}
}

func TestIntentDigestDeterminism(t *testing.T) {
	in := baseIntent()
	first, err := IntentDigest(in, testChainID, testPayer, testEngine)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	second, err := IntentDigest(in, testChainID, testPayer, testEngine)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if first != second {
		t.Errorf("digest not deterministic: %s vs %s", first.Hex(), second.Hex())
	}
}

func TestIntentDigestBindsEveryField(t *testing.T) {
	base, err := IntentDigest(baseIntent(), testChainID, testPayer, testEngine)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(in *TransferIntent)
	}{
		{"recipientAmount", func(in *TransferIntent) { in.RecipientAmount = big.NewInt(101) }},
		{"feeAmount", func(in *TransferIntent) { in.FeeAmount = big.NewInt(6) }},
		{"deadline", func(in *TransferIntent) { in.Deadline = big.NewInt(1_700_000_001) }},
		{"recipient", func(in *TransferIntent) { in.Recipient = testFeeDest }},
		{"currency", func(in *TransferIntent) { in.RecipientCurrency = TokenCurrency(testWrapped) }},
		{"refundDestination", func(in *TransferIntent) { in.RefundDestination = testRecip }},
		{"id", func(in *TransferIntent) { in.ID = IntentID{0xaa, 0xbc} }},
		{"operator", func(in *TransferIntent) { in.Operator = testRecip }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseIntent()
			tt.mutate(in)
			got, err := IntentDigest(in, testChainID, testPayer, testEngine)
			if err != nil {
				t.Fatalf("digest: %v", err)
			}
			if got == base {
				t.Errorf("digest unchanged after mutating %s", tt.name)
			}
		})
	}

	t.Run("chain id", func(t *testing.T) {
		got, err := IntentDigest(baseIntent(), big.NewInt(8217), testPayer, testEngine)
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		if got == base {
			t.Error("digest unchanged across chains")
		}
	})
	t.Run("sender", func(t *testing.T) {
		got, err := IntentDigest(baseIntent(), testChainID, testRecip, testEngine)
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		if got == base {
			t.Error("digest unchanged across senders")
		}
	})
	t.Run("engine identity", func(t *testing.T) {
		got, err := IntentDigest(baseIntent(), testChainID, testPayer, common.HexToAddress("0xbeef"))
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		if got == base {
			t.Error("digest unchanged across engine identities")
		}
	})
}

func TestSigningMessagePrefixes(t *testing.T) {
	digest := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	def := SigningMessage(digest, nil)
	want := crypto.Keccak256Hash([]byte("\x19Ethereum Signed Message:\n32"), digest.Bytes())
	if def != want {
		t.Errorf("default prefix message = %s, want %s", def.Hex(), want.Hex())
	}

	custom := SigningMessage(digest, []byte("\x19Kaia Signed Message:\n32"))
	if custom == def {
		t.Error("custom prefix produced the default message")
	}
	if custom != crypto.Keccak256Hash([]byte("\x19Kaia Signed Message:\n32"), digest.Bytes()) {
		t.Error("custom prefix message mismatch")
	}
}

func TestRecoverIntentSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	signWith := func(t *testing.T, in *TransferIntent) []byte {
		t.Helper()
		digest, err := IntentDigest(in, testChainID, testPayer, testEngine)
		if err != nil {
			t.Fatalf("digest: %v", err)
		}
		sig, err := crypto.Sign(SigningMessage(digest, in.Prefix).Bytes(), key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return sig
	}

	t.Run("raw recovery id", func(t *testing.T) {
		in := baseIntent()
		in.Signature = signWith(t, in)
		got, err := RecoverIntentSigner(in, testChainID, testPayer, testEngine)
		if err != nil {
			t.Fatalf("recover: %v", err)
		}
		if got != addr {
			t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
		}
	})

	t.Run("conventional recovery id", func(t *testing.T) {
		in := baseIntent()
		in.Signature = signWith(t, in)
		in.Signature[64] += 27
		got, err := RecoverIntentSigner(in, testChainID, testPayer, testEngine)
		if err != nil {
			t.Fatalf("recover: %v", err)
		}
		if got != addr {
			t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
		}
	})

	t.Run("custom prefix", func(t *testing.T) {
		in := baseIntent()
		in.Prefix = []byte("\x19Kaia Signed Message:\n32")
		in.Signature = signWith(t, in)
		got, err := RecoverIntentSigner(in, testChainID, testPayer, testEngine)
		if err != nil {
			t.Fatalf("recover: %v", err)
		}
		if got != addr {
			t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		in := baseIntent()
		in.Signature = make([]byte, 64)
		if _, err := RecoverIntentSigner(in, testChainID, testPayer, testEngine); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("bad recovery id", func(t *testing.T) {
		in := baseIntent()
		in.Signature = signWith(t, in)
		in.Signature[64] = 5
		if _, err := RecoverIntentSigner(in, testChainID, testPayer, testEngine); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("error = %v, want ErrInvalidSignature", err)
		}
	})
}

func TestCheckAmounts(t *testing.T) {
	over := new(big.Int).Add(maxUint256, big.NewInt(1))
	nearMax := new(big.Int).Set(maxUint256)

	tests := []struct {
		name    string
		mutate  func(in *TransferIntent)
		wantErr error
	}{
		{"negative recipient amount", func(in *TransferIntent) { in.RecipientAmount = big.NewInt(-1) }, ErrInvalidTransferDetails},
		{"negative fee", func(in *TransferIntent) { in.FeeAmount = big.NewInt(-1) }, ErrInvalidTransferDetails},
		{"recipient amount overflow", func(in *TransferIntent) { in.RecipientAmount = over }, ErrAmountOverflow},
		{"sum overflow", func(in *TransferIntent) {
			in.RecipientAmount = nearMax
			in.FeeAmount = big.NewInt(1)
		}, ErrAmountOverflow},
		{"nil amounts", func(in *TransferIntent) {
			in.RecipientAmount = nil
			in.FeeAmount = nil
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseIntent()
			tt.mutate(in)
			err := checkAmounts(in)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkAmounts: %v", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
