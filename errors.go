package payments

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Standard settlement error definitions. Every error is terminal for the
// request it occurred in: nothing is retried internally and no partial state
// is left behind.

var (
	// ErrInvalidSignature indicates the intent signature does not recover to
	// the declared operator.
	ErrInvalidSignature = errors.New("payments: invalid intent signature")

	// ErrExpiredIntent indicates the intent deadline has passed.
	ErrExpiredIntent = errors.New("payments: intent deadline has passed")

	// ErrExpiredAuthorization indicates a registry-mutation authorization
	// whose deadline has passed.
	ErrExpiredAuthorization = errors.New("payments: authorization deadline has passed")

	// ErrNullRecipient indicates the intent names the null identity as recipient.
	ErrNullRecipient = errors.New("payments: recipient is the null address")

	// ErrAlreadyProcessed indicates the (operator, id) pair has already settled.
	ErrAlreadyProcessed = errors.New("payments: intent already processed")

	// ErrOperatorNotRegistered indicates the operator has no fee destination registered.
	ErrOperatorNotRegistered = errors.New("payments: operator not registered")

	// ErrInvalidNativeAmount indicates the attached native value differs from
	// the intent total.
	ErrInvalidNativeAmount = errors.New("payments: attached value does not match intent total")

	// ErrIncorrectCurrency indicates the intent currency does not match the
	// settlement variant invoked.
	ErrIncorrectCurrency = errors.New("payments: intent currency does not match settlement variant")

	// ErrInsufficientBalance indicates the payer's token balance is below the
	// intent total.
	ErrInsufficientBalance = errors.New("payments: insufficient payer balance")

	// ErrInsufficientAllowance indicates the delegated-transfer authorization
	// is below the intent total.
	ErrInsufficientAllowance = errors.New("payments: insufficient allowance")

	// ErrInexactTransfer indicates a token pull delivered a different amount
	// than requested (fee-on-transfer token).
	ErrInexactTransfer = errors.New("payments: token transfer delivered inexact amount")

	// ErrInvalidTransferDetails indicates malformed settlement parameters.
	ErrInvalidTransferDetails = errors.New("payments: invalid transfer details")

	// ErrNativeTransferFailed indicates a native value push was rejected by
	// the destination.
	ErrNativeTransferFailed = errors.New("payments: native transfer failed")

	// ErrPaused indicates settlement entry points are administratively paused.
	ErrPaused = errors.New("payments: settlement is paused")

	// ErrReentrantCall indicates a nested settlement attempt from within an
	// in-flight settlement.
	ErrReentrantCall = errors.New("payments: reentrant settlement call")

	// ErrNotOwner indicates a caller other than the designated owner invoked
	// an owner-only operation.
	ErrNotOwner = errors.New("payments: caller is not the owner")

	// ErrAmountOverflow indicates recipientAmount + feeAmount exceeds the
	// numeric domain.
	ErrAmountOverflow = errors.New("payments: intent total overflows uint256")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("payments: invalid private key")

	// ErrInvalidKeystore indicates an invalid keystore file.
	ErrInvalidKeystore = errors.New("payments: invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid mnemonic phrase.
	ErrInvalidMnemonic = errors.New("payments: invalid mnemonic phrase")
)

// ErrorCode identifies an error category for transport surfaces.
type ErrorCode string

const (
	ErrCodeInvalidSignature      ErrorCode = "INVALID_SIGNATURE"
	ErrCodeExpiredIntent         ErrorCode = "EXPIRED_INTENT"
	ErrCodeExpiredAuthorization  ErrorCode = "EXPIRED_AUTHORIZATION"
	ErrCodeNullRecipient         ErrorCode = "NULL_RECIPIENT"
	ErrCodeAlreadyProcessed      ErrorCode = "ALREADY_PROCESSED"
	ErrCodeOperatorNotRegistered ErrorCode = "OPERATOR_NOT_REGISTERED"
	ErrCodeInvalidNativeAmount   ErrorCode = "INVALID_NATIVE_AMOUNT"
	ErrCodeIncorrectCurrency     ErrorCode = "INCORRECT_CURRENCY"
	ErrCodeInsufficientBalance   ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientAllowance ErrorCode = "INSUFFICIENT_ALLOWANCE"
	ErrCodeInexactTransfer       ErrorCode = "INEXACT_TRANSFER"
	ErrCodeInvalidDetails        ErrorCode = "INVALID_TRANSFER_DETAILS"
	ErrCodeNativeTransferFailed  ErrorCode = "NATIVE_TRANSFER_FAILED"
	ErrCodePaused                ErrorCode = "PAUSED"
	ErrCodeReentrantCall         ErrorCode = "REENTRANT_CALL"
	ErrCodeNotOwner              ErrorCode = "NOT_OWNER"
	ErrCodeInternal              ErrorCode = "INTERNAL"
)

// PaymentError is a structured settlement error carrying a stable code, a
// human-readable message, the underlying cause, and optional key-value
// details for the caller to act on.
type PaymentError struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]any
}

// NewPaymentError creates a PaymentError wrapping err.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails attaches a key-value detail and returns the error for chaining.
func (e *PaymentError) WithDetails(key string, value any) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode for err, or ErrCodeInternal when the error is
// not part of the settlement taxonomy.
func CodeOf(err error) ErrorCode {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return ErrCodeInvalidSignature
	case errors.Is(err, ErrExpiredIntent):
		return ErrCodeExpiredIntent
	case errors.Is(err, ErrExpiredAuthorization):
		return ErrCodeExpiredAuthorization
	case errors.Is(err, ErrNullRecipient):
		return ErrCodeNullRecipient
	case errors.Is(err, ErrAlreadyProcessed):
		return ErrCodeAlreadyProcessed
	case errors.Is(err, ErrOperatorNotRegistered):
		return ErrCodeOperatorNotRegistered
	case errors.Is(err, ErrInvalidNativeAmount):
		return ErrCodeInvalidNativeAmount
	case errors.Is(err, ErrIncorrectCurrency):
		return ErrCodeIncorrectCurrency
	case errors.Is(err, ErrInsufficientBalance):
		return ErrCodeInsufficientBalance
	case errors.Is(err, ErrInsufficientAllowance):
		return ErrCodeInsufficientAllowance
	case errors.Is(err, ErrInexactTransfer):
		return ErrCodeInexactTransfer
	case errors.Is(err, ErrInvalidTransferDetails), errors.Is(err, ErrAmountOverflow):
		return ErrCodeInvalidDetails
	case errors.Is(err, ErrNativeTransferFailed):
		return ErrCodeNativeTransferFailed
	case errors.Is(err, ErrPaused):
		return ErrCodePaused
	case errors.Is(err, ErrReentrantCall):
		return ErrCodeReentrantCall
	case errors.Is(err, ErrNotOwner):
		return ErrCodeNotOwner
	default:
		return ErrCodeInternal
	}
}

// InvalidNativeAmountError reports the signed difference between the attached
// native value and the intent total. Delta is positive for overpayment,
// negative for underpayment.
type InvalidNativeAmountError struct {
	Delta *big.Int
}

func (e *InvalidNativeAmountError) Error() string {
	return fmt.Sprintf("payments: attached value does not match intent total (delta %s)", e.Delta)
}

func (e *InvalidNativeAmountError) Unwrap() error { return ErrInvalidNativeAmount }

// InsufficientBalanceError reports how much balance the payer is missing.
type InsufficientBalanceError struct {
	Deficit *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("payments: insufficient payer balance (deficit %s)", e.Deficit)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientAllowanceError reports how much allowance is missing.
type InsufficientAllowanceError struct {
	Deficit *big.Int
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("payments: insufficient allowance (deficit %s)", e.Deficit)
}

func (e *InsufficientAllowanceError) Unwrap() error { return ErrInsufficientAllowance }

// NativeTransferFailedError reports a rejected native value push.
type NativeTransferFailedError struct {
	// Destination is the address that rejected the push.
	Destination common.Address

	// Amount is the value that was being pushed.
	Amount *big.Int

	// Context names the routing step that failed ("recipient", "fee", "sweep", "refund").
	Context string

	// Returndata carries whatever diagnostic payload the destination produced.
	Returndata []byte
}

func (e *NativeTransferFailedError) Error() string {
	return fmt.Sprintf("payments: native transfer of %s to %s failed during %s", e.Amount, e.Destination.Hex(), e.Context)
}

func (e *NativeTransferFailedError) Unwrap() error { return ErrNativeTransferFailed }
