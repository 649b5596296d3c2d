package payments

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestIntentIDFromHex(t *testing.T) {
	id := IntentID{0xde, 0xad, 0xbe, 0xef}

	parsed, err := IntentIDFromHex(id.Hex())
	if err != nil {
		t.Fatalf("IntentIDFromHex: %v", err)
	}
	if parsed != id {
		t.Errorf("parsed = %s, want %s", parsed.Hex(), id.Hex())
	}

	// Prefix is optional.
	parsed, err = IntentIDFromHex(strings.TrimPrefix(id.Hex(), "0x"))
	if err != nil {
		t.Fatalf("IntentIDFromHex without prefix: %v", err)
	}
	if parsed != id {
		t.Errorf("parsed = %s, want %s", parsed.Hex(), id.Hex())
	}

	if _, err := IntentIDFromHex("0xdead"); err == nil {
		t.Error("short id accepted")
	}
	if _, err := IntentIDFromHex("not-hex"); err == nil {
		t.Error("non-hex id accepted")
	}
}

func TestCurrencyJSON(t *testing.T) {
	token := common.HexToAddress("0x19Aac5f612f524B754CA7e7c41cbFa2E981A4432")

	tests := []struct {
		name string
		in   string
		want Currency
	}{
		{"native keyword", `"native"`, NativeCurrency()},
		{"native uppercase", `"NATIVE"`, NativeCurrency()},
		{"zero address", `"0x0000000000000000000000000000000000000000"`, NativeCurrency()},
		{"token address", `"` + token.Hex() + `"`, TokenCurrency(token)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Currency
			if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if c != tt.want {
				t.Errorf("currency = %+v, want %+v", c, tt.want)
			}
		})
	}

	var c Currency
	if err := json.Unmarshal([]byte(`"wkaia"`), &c); err == nil {
		t.Error("invalid currency string accepted")
	}

	out, err := json.Marshal(NativeCurrency())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"native"` {
		t.Errorf("marshaled native = %s", out)
	}
}

func TestTransferIntentJSON(t *testing.T) {
	in := &TransferIntent{
		RecipientAmount:   big.NewInt(123456),
		FeeAmount:         big.NewInt(789),
		Deadline:          big.NewInt(1_700_000_000),
		Recipient:         testRecip,
		RecipientCurrency: TokenCurrency(testWrapped),
		RefundDestination: testPayer,
		ID:                IntentID{0x42},
		Operator:          common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
		Prefix:            []byte("\x19Kaia Signed Message:\n32"),
		Signature:         make([]byte, SignatureLength),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Amounts travel as decimal strings, never JSON numbers.
	if !strings.Contains(string(data), `"recipientAmount":"123456"`) {
		t.Errorf("recipientAmount not a decimal string: %s", data)
	}

	var out TransferIntent
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.RecipientAmount.Cmp(in.RecipientAmount) != 0 ||
		out.FeeAmount.Cmp(in.FeeAmount) != 0 ||
		out.Deadline.Cmp(in.Deadline) != 0 {
		t.Error("amounts did not survive the round trip")
	}
	if out.Recipient != in.Recipient || out.Operator != in.Operator || out.ID != in.ID {
		t.Error("identities did not survive the round trip")
	}
	if out.RecipientCurrency != in.RecipientCurrency {
		t.Errorf("currency = %+v, want %+v", out.RecipientCurrency, in.RecipientCurrency)
	}
	if string(out.Prefix) != string(in.Prefix) {
		t.Errorf("prefix = %q, want %q", out.Prefix, in.Prefix)
	}

	t.Run("bad amount", func(t *testing.T) {
		var bad TransferIntent
		err := json.Unmarshal([]byte(`{"recipientAmount":"1.5"}`), &bad)
		if err == nil {
			t.Error("non-integer amount accepted")
		}
	})
}

func TestTransferIntentValueMarshal(t *testing.T) {
	// Intents embedded by value, as in the HTTP request types, must marshal
	// through the wire form too.
	wrapper := struct {
		Intent TransferIntent `json:"intent"`
	}{
		Intent: TransferIntent{
			RecipientAmount:   big.NewInt(950),
			FeeAmount:         big.NewInt(50),
			Deadline:          big.NewInt(1_700_000_000),
			Recipient:         testRecip,
			RecipientCurrency: NativeCurrency(),
			RefundDestination: testPayer,
			ID:                IntentID{0x07},
			Operator:          common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
			Signature:         make([]byte, SignatureLength),
		},
	}

	data, err := json.Marshal(wrapper)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"recipientAmount":"950"`) {
		t.Errorf("recipientAmount not a decimal string: %s", data)
	}
	if !strings.Contains(string(data), `"recipientCurrency":"native"`) {
		t.Errorf("currency not in wire form: %s", data)
	}

	receipt := struct {
		Receipt SettlementReceipt `json:"receipt"`
	}{
		Receipt: SettlementReceipt{
			Operator:      wrapper.Intent.Operator,
			ID:            wrapper.Intent.ID,
			Recipient:     testRecip,
			Payer:         testPayer,
			AmountSpent:   big.NewInt(1000),
			CurrencySpent: NativeCurrency(),
		},
	}
	data, err = json.Marshal(receipt)
	if err != nil {
		t.Fatalf("marshal receipt: %v", err)
	}
	if !strings.Contains(string(data), `"amountSpent":"1000"`) {
		t.Errorf("amountSpent not a decimal string: %s", data)
	}
}

func TestTotalAmount(t *testing.T) {
	in := &TransferIntent{RecipientAmount: big.NewInt(100), FeeAmount: big.NewInt(5)}
	if got := in.TotalAmount(); got.Cmp(big.NewInt(105)) != 0 {
		t.Errorf("total = %s, want 105", got)
	}

	// Nil amounts count as zero.
	in = &TransferIntent{FeeAmount: big.NewInt(5)}
	if got := in.TotalAmount(); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("total = %s, want 5", got)
	}
	in = &TransferIntent{}
	if got := in.TotalAmount(); got.Sign() != 0 {
		t.Errorf("total = %s, want 0", got)
	}
}

func TestSettlementReceiptJSON(t *testing.T) {
	r := &SettlementReceipt{
		Operator:      common.HexToAddress("0x00000000000000000000000000000000000Cc001"),
		ID:            IntentID{0x42},
		Recipient:     testRecip,
		Payer:         testPayer,
		AmountSpent:   big.NewInt(105),
		CurrencySpent: NativeCurrency(),
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out SettlementReceipt
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.AmountSpent.Cmp(r.AmountSpent) != 0 || out.ID != r.ID || out.Payer != r.Payer {
		t.Errorf("receipt round trip mismatch: %+v", out)
	}
}
