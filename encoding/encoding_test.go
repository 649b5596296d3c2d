package encoding

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
)

func TestIntentRoundTrip(t *testing.T) {
	in := &payments.TransferIntent{
		RecipientAmount:   big.NewInt(100),
		FeeAmount:         big.NewInt(5),
		Deadline:          big.NewInt(1_800_000_000),
		Recipient:         common.HexToAddress("0x00000000000000000000000000000000000Fb002"),
		RecipientCurrency: payments.TokenCurrency(payments.KairosTestnet.WrappedNative),
		RefundDestination: common.HexToAddress("0x00000000000000000000000000000000000Fa001"),
		ID:                payments.IntentID{0x42},
		Operator:          common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
		Signature:         make([]byte, payments.SignatureLength),
	}

	encoded, err := EncodeIntent(in)
	if err != nil {
		t.Fatalf("EncodeIntent: %v", err)
	}
	// The payload is opaque on the wire.
	if strings.Contains(encoded, "recipientAmount") {
		t.Error("encoded intent is not base64")
	}

	out, err := DecodeIntent(encoded)
	if err != nil {
		t.Fatalf("DecodeIntent: %v", err)
	}
	if out.RecipientAmount.Cmp(in.RecipientAmount) != 0 || out.ID != in.ID || out.Operator != in.Operator {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.RecipientCurrency != in.RecipientCurrency {
		t.Errorf("currency = %+v, want %+v", out.RecipientCurrency, in.RecipientCurrency)
	}
}

func TestDecodeIntentErrors(t *testing.T) {
	if _, err := DecodeIntent("not base64!!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
	if _, err := DecodeIntent("bm90IGpzb24="); err == nil {
		t.Error("non-JSON payload accepted")
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	r := &payments.SettlementReceipt{
		Operator:      common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
		ID:            payments.IntentID{0x42},
		Recipient:     common.HexToAddress("0x00000000000000000000000000000000000Fb002"),
		Payer:         common.HexToAddress("0x00000000000000000000000000000000000Fa001"),
		AmountSpent:   big.NewInt(105),
		CurrencySpent: payments.NativeCurrency(),
	}

	encoded, err := EncodeReceipt(r)
	if err != nil {
		t.Fatalf("EncodeReceipt: %v", err)
	}
	out, err := DecodeReceipt(encoded)
	if err != nil {
		t.Fatalf("DecodeReceipt: %v", err)
	}
	if out.AmountSpent.Cmp(r.AmountSpent) != 0 || out.ID != r.ID || !out.CurrencySpent.IsNative() {
		t.Errorf("round trip mismatch: %+v", out)
	}
}
