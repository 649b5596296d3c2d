// Package http exposes the settlement engine over HTTP: entry points for the
// four settlement variants, operator management, read accessors, and the
// JWT-guarded administrative surface.
package http

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"strings"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
)

// SettleRequest is the body of every settlement entry point.
type SettleRequest struct {
	// Intent is the operator-signed transfer intent.
	Intent payments.TransferIntent `json:"intent"`

	// Payer is the identity supplying the funds.
	Payer string `json:"payer"`

	// Value is the attached native value in atomic units, used by the
	// direct-native and wrap variants.
	Value string `json:"value,omitempty"`
}

// SettleResponse is the body returned by every settlement entry point.
type SettleResponse struct {
	Success   bool                        `json:"success"`
	Receipt   *payments.SettlementReceipt `json:"receipt,omitempty"`
	ErrorCode string                      `json:"errorCode,omitempty"`
	Error     string                      `json:"error,omitempty"`
	Details   map[string]string           `json:"details,omitempty"`
}

// RegisterRequest is the body of the operator registration endpoint. An empty
// FeeDestination registers the operator as its own fee destination; the
// signature must cover the resolved destination either way. Deadline is the
// unix timestamp the authorization expires at, Signature the operator's
// signature over the registration mutation.
type RegisterRequest struct {
	Operator       string `json:"operator"`
	FeeDestination string `json:"feeDestination,omitempty"`
	Deadline       string `json:"deadline"`
	Signature      string `json:"signature"`
}

// UnregisterRequest is the body of the operator unregistration endpoint.
type UnregisterRequest struct {
	Deadline  string `json:"deadline"`
	Signature string `json:"signature"`
}

// FeeDestinationResponse is the fee-destination read accessor body.
type FeeDestinationResponse struct {
	Operator       string `json:"operator"`
	Registered     bool   `json:"registered"`
	FeeDestination string `json:"feeDestination,omitempty"`
}

// ProcessedResponse is the processed-status read accessor body.
type ProcessedResponse struct {
	Operator  string `json:"operator"`
	ID        string `json:"id"`
	Processed bool   `json:"processed"`
}

// SweepRequest is the body of the admin sweep endpoint.
type SweepRequest struct {
	Currency payments.Currency `json:"currency"`
	To       string            `json:"to"`
}

// SweepResponse reports the swept amount.
type SweepResponse struct {
	Amount string `json:"amount"`
}

// settleFailure maps a settlement error to the wire form, attaching the
// structured deltas and deficits the caller needs to retry with corrected
// parameters.
func settleFailure(err error) SettleResponse {
	resp := SettleResponse{
		ErrorCode: string(payments.CodeOf(err)),
		Error:     err.Error(),
	}

	details := make(map[string]string)
	var nativeAmount *payments.InvalidNativeAmountError
	var balance *payments.InsufficientBalanceError
	var allowance *payments.InsufficientAllowanceError
	var native *payments.NativeTransferFailedError
	switch {
	case errors.As(err, &nativeAmount):
		details["delta"] = nativeAmount.Delta.String()
	case errors.As(err, &balance):
		details["deficit"] = balance.Deficit.String()
	case errors.As(err, &allowance):
		details["deficit"] = allowance.Deficit.String()
	case errors.As(err, &native):
		details["destination"] = native.Destination.Hex()
		details["amount"] = native.Amount.String()
		details["context"] = native.Context
	}
	if len(details) > 0 {
		resp.Details = details
	}
	return resp
}

// statusForCode maps settlement error codes to HTTP status codes.
func statusForCode(code payments.ErrorCode) int {
	switch code {
	case payments.ErrCodeInvalidSignature, payments.ErrCodeNotOwner:
		return http.StatusUnauthorized
	case payments.ErrCodeAlreadyProcessed:
		return http.StatusConflict
	case payments.ErrCodePaused:
		return http.StatusServiceUnavailable
	case payments.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// FailureResponse maps a settlement error to the wire form. Exported for the
// framework adapters.
func FailureResponse(err error) SettleResponse {
	return settleFailure(err)
}

// StatusForError maps a settlement error to an HTTP status code. Exported for
// the framework adapters.
func StatusForError(err error) int {
	return statusForCode(payments.CodeOf(err))
}

// ParseMutationAuth parses the deadline (decimal unix seconds) and hex
// signature carried by a registry-mutation request. An empty deadline parses
// as zero, which the engine rejects as expired. Exported for the framework
// adapters.
func ParseMutationAuth(rawDeadline, rawSignature string) (*big.Int, []byte, error) {
	deadline := new(big.Int)
	if rawDeadline != "" {
		if _, ok := deadline.SetString(rawDeadline, 10); !ok {
			return nil, nil, errors.New("invalid deadline")
		}
	}
	signature, err := hex.DecodeString(strings.TrimPrefix(rawSignature, "0x"))
	if err != nil {
		return nil, nil, errors.New("invalid signature encoding")
	}
	return deadline, signature, nil
}

func withAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, adminSubjectKey{}, subject)
}

// AdminSubject returns the verified admin identity stored by the auth
// middleware.
func AdminSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(adminSubjectKey{}).(string)
	return subject, ok
}
