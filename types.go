// Package payments implements the Kaia payment-protocol settlement engine:
// validation of operator-signed transfer intents and atomic routing of the
// settled funds to the recipient and the operator's fee destination.
//
// The engine is non-custodial between requests. Each settlement either fully
// commits (funds moved, intent marked processed, event emitted) or leaves no
// trace; atomicity inside one request is provided by the ledger transaction
// the engine runs against (see the ledger package).
package payments

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IntentIDLength is the byte length of a transfer intent identifier.
const IntentIDLength = 16

// IntentID is a caller-chosen intent identifier, unique per operator.
// Two different operators may reuse the same id independently.
type IntentID [IntentIDLength]byte

// IntentIDFromHex parses an intent id from a hex string ("0x" prefix optional).
func IntentIDFromHex(s string) (IntentID, error) {
	var id IntentID
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid intent id: %w", err)
	}
	if len(raw) != IntentIDLength {
		return id, fmt.Errorf("invalid intent id: expected %d bytes, got %d", IntentIDLength, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Hex returns the 0x-prefixed hex form of the id.
func (id IntentID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id IntentID) String() string { return id.Hex() }

// MarshalJSON implements json.Marshaler.
func (id IntentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *IntentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := IntentIDFromHex(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CurrencyKind distinguishes the supported currency representations.
type CurrencyKind int

const (
	// CurrencyNative is the base currency of the execution environment.
	CurrencyNative CurrencyKind = iota

	// CurrencyToken is a fungible token identified by its contract address.
	// The wrapped-native token is a CurrencyToken whose address matches the
	// ledger's wrapped-native contract.
	CurrencyToken
)

// Currency is the tagged currency variant carried by a transfer intent.
// The zero value is the native currency.
type Currency struct {
	Kind  CurrencyKind
	Token common.Address
}

// NativeCurrency returns the native-currency marker.
func NativeCurrency() Currency {
	return Currency{Kind: CurrencyNative}
}

// TokenCurrency returns a token currency for the given contract address.
func TokenCurrency(token common.Address) Currency {
	return Currency{Kind: CurrencyToken, Token: token}
}

// IsNative reports whether the currency is the native currency.
func (c Currency) IsNative() bool {
	return c.Kind == CurrencyNative
}

// DigestAddress returns the address form used in the signed intent digest:
// the zero address for native currency, the token address otherwise.
func (c Currency) DigestAddress() common.Address {
	if c.Kind == CurrencyNative {
		return common.Address{}
	}
	return c.Token
}

func (c Currency) String() string {
	if c.Kind == CurrencyNative {
		return "native"
	}
	return c.Token.Hex()
}

// MarshalJSON encodes the currency as "native" or the token address.
func (c Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.EqualFold(s, "native") || s == "" {
		*c = NativeCurrency()
		return nil
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("invalid currency %q: expected \"native\" or a token address", s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		*c = NativeCurrency()
		return nil
	}
	*c = TokenCurrency(addr)
	return nil
}

// TransferIntent is an operator-signed request to settle a payment. It is
// constructed off-system by the operator and submitted once per settlement
// attempt.
type TransferIntent struct {
	// RecipientAmount is the amount owed to the recipient, exclusive of fee.
	RecipientAmount *big.Int

	// FeeAmount is the amount owed to the operator's fee destination.
	FeeAmount *big.Int

	// Deadline is the unix timestamp after which the intent is invalid.
	Deadline *big.Int

	// Recipient receives RecipientAmount.
	Recipient common.Address

	// RecipientCurrency is the currency the recipient wants to receive.
	RecipientCurrency Currency

	// RefundDestination receives refunds on failure paths. Informational to
	// this engine; refund execution happens outside it.
	RefundDestination common.Address

	// ID is the replay-protection identifier, unique within the operator's
	// namespace.
	ID IntentID

	// Operator is the identity expected to have signed the intent and the
	// registry key for the fee-destination lookup.
	Operator common.Address

	// Prefix selects an alternate message-prefixing convention for signature
	// construction. Empty means the default EIP-191 wrapper.
	Prefix []byte

	// Signature is the 65-byte ECDSA signature over the prefixed digest.
	Signature []byte
}

// TotalAmount returns RecipientAmount + FeeAmount, the exact amount the payer
// must supply.
func (in *TransferIntent) TotalAmount() *big.Int {
	total := new(big.Int)
	if in.RecipientAmount != nil {
		total.Add(total, in.RecipientAmount)
	}
	if in.FeeAmount != nil {
		total.Add(total, in.FeeAmount)
	}
	return total
}

// transferIntentJSON is the wire form of TransferIntent. Amounts are decimal
// strings in atomic units; byte fields are hex.
type transferIntentJSON struct {
	RecipientAmount   string   `json:"recipientAmount"`
	FeeAmount         string   `json:"feeAmount"`
	Deadline          string   `json:"deadline"`
	Recipient         string   `json:"recipient"`
	RecipientCurrency Currency `json:"recipientCurrency"`
	RefundDestination string   `json:"refundDestination"`
	ID                IntentID `json:"id"`
	Operator          string   `json:"operator"`
	Prefix            string   `json:"prefix,omitempty"`
	Signature         string   `json:"signature"`
}

// MarshalJSON implements json.Marshaler. The receiver is a value so that
// intents held by value inside larger structs marshal through the wire form
// rather than the default encoding.
func (in TransferIntent) MarshalJSON() ([]byte, error) {
	w := transferIntentJSON{
		RecipientAmount:   bigString(in.RecipientAmount),
		FeeAmount:         bigString(in.FeeAmount),
		Deadline:          bigString(in.Deadline),
		Recipient:         in.Recipient.Hex(),
		RecipientCurrency: in.RecipientCurrency,
		RefundDestination: in.RefundDestination.Hex(),
		ID:                in.ID,
		Operator:          in.Operator.Hex(),
		Signature:         "0x" + hex.EncodeToString(in.Signature),
	}
	if len(in.Prefix) > 0 {
		w.Prefix = "0x" + hex.EncodeToString(in.Prefix)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (in *TransferIntent) UnmarshalJSON(data []byte) error {
	var w transferIntentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	recipientAmount, err := parseBig("recipientAmount", w.RecipientAmount)
	if err != nil {
		return err
	}
	feeAmount, err := parseBig("feeAmount", w.FeeAmount)
	if err != nil {
		return err
	}
	deadline, err := parseBig("deadline", w.Deadline)
	if err != nil {
		return err
	}
	prefix, err := parseHexBytes("prefix", w.Prefix)
	if err != nil {
		return err
	}
	signature, err := parseHexBytes("signature", w.Signature)
	if err != nil {
		return err
	}
	*in = TransferIntent{
		RecipientAmount:   recipientAmount,
		FeeAmount:         feeAmount,
		Deadline:          deadline,
		Recipient:         common.HexToAddress(w.Recipient),
		RecipientCurrency: w.RecipientCurrency,
		RefundDestination: common.HexToAddress(w.RefundDestination),
		ID:                w.ID,
		Operator:          common.HexToAddress(w.Operator),
		Prefix:            prefix,
		Signature:         signature,
	}
	return nil
}

// SettlementReceipt describes a finalized settlement. It mirrors the
// Transferred event payload.
type SettlementReceipt struct {
	// Operator is the operator that authorized the intent.
	Operator common.Address

	// ID is the settled intent id.
	ID IntentID

	// Recipient is the destination of the recipient amount.
	Recipient common.Address

	// Payer is the identity that supplied the funds.
	Payer common.Address

	// AmountSpent is the total amount the payer supplied.
	AmountSpent *big.Int

	// CurrencySpent is the currency the payer supplied.
	CurrencySpent Currency
}

// receiptJSON keeps the amount as a decimal string on the wire.
type receiptJSON struct {
	Operator      string   `json:"operator"`
	ID            IntentID `json:"id"`
	Recipient     string   `json:"recipient"`
	Payer         string   `json:"payer"`
	AmountSpent   string   `json:"amountSpent"`
	CurrencySpent Currency `json:"currencySpent"`
}

// MarshalJSON implements json.Marshaler. Value receiver for the same reason
// as TransferIntent.MarshalJSON.
func (r SettlementReceipt) MarshalJSON() ([]byte, error) {
	return json.Marshal(receiptJSON{
		Operator:      r.Operator.Hex(),
		ID:            r.ID,
		Recipient:     r.Recipient.Hex(),
		Payer:         r.Payer.Hex(),
		AmountSpent:   bigString(r.AmountSpent),
		CurrencySpent: r.CurrencySpent,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SettlementReceipt) UnmarshalJSON(data []byte) error {
	var w receiptJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	amount, err := parseBig("amountSpent", w.AmountSpent)
	if err != nil {
		return err
	}
	*r = SettlementReceipt{
		Operator:      common.HexToAddress(w.Operator),
		ID:            w.ID,
		Recipient:     common.HexToAddress(w.Recipient),
		Payer:         common.HexToAddress(w.Payer),
		AmountSpent:   amount,
		CurrencySpent: w.CurrencySpent,
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q is not a decimal integer", field, s)
	}
	return v, nil
}

func parseHexBytes(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return raw, nil
}
