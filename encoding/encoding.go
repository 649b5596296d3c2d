// Package encoding provides transport codecs for transfer intents and
// settlement receipts: JSON wrapped in base64, the format the HTTP and MCP
// surfaces share.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
)

// EncodeIntent converts a TransferIntent to a base64-encoded JSON string.
//
// Returns an error if JSON marshaling fails.
func EncodeIntent(in *payments.TransferIntent) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal intent: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeIntent converts a base64-encoded JSON string to a TransferIntent.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodeIntent(encoded string) (*payments.TransferIntent, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	var in payments.TransferIntent
	if err := json.Unmarshal(decoded, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return &in, nil
}

// EncodeReceipt converts a SettlementReceipt to a base64-encoded JSON string.
//
// Returns an error if JSON marshaling fails.
func EncodeReceipt(r *payments.SettlementReceipt) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeReceipt converts a base64-encoded JSON string to a SettlementReceipt.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodeReceipt(encoded string) (*payments.SettlementReceipt, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	var r payments.SettlementReceipt
	if err := json.Unmarshal(decoded, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	return &r, nil
}
