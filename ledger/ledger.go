// Package ledger defines the execution-environment boundary the settlement
// engine runs against: balances in the native currency, fungible token
// contracts, and the 1:1 wrapped representation of the native currency.
//
// All fund movement of one settlement is staged inside a single Tx. Commit
// applies the staged movement atomically; a Tx abandoned before Commit leaves
// no trace. Hosts backed by an environment with native all-or-nothing request
// semantics may implement Tx as a thin passthrough.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownToken indicates an operation on a token the ledger does not know.
	ErrUnknownToken = errors.New("ledger: unknown token")

	// ErrInsufficientFunds indicates a transfer exceeding the source balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientAllowance indicates a delegated pull exceeding the approval.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// ErrTxClosed indicates use of a Tx after Commit or Rollback.
	ErrTxClosed = errors.New("ledger: transaction already closed")
)

// RejectedError is returned when a native value push is refused by the
// destination. Returndata carries whatever diagnostic payload the
// destination produced.
type RejectedError struct {
	Destination common.Address
	Returndata  []byte
}

func (e *RejectedError) Error() string {
	return "ledger: destination " + e.Destination.Hex() + " rejected native transfer"
}

// Ledger is the host execution environment.
type Ledger interface {
	// ChainID identifies the chain this ledger belongs to. It is bound into
	// every intent digest.
	ChainID() *big.Int

	// WrappedNative is the token identity of the wrapped native currency.
	WrappedNative() common.Address

	// Begin opens a transaction. The engine holds at most one transaction at
	// a time.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a staged, atomically committable view of the ledger.
type Tx interface {
	// NativeBalance returns addr's native-currency balance.
	NativeBalance(addr common.Address) *big.Int

	// TransferNative pushes native value from one address to another. It
	// returns a RejectedError if the destination refuses the value.
	TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) error

	// BalanceOf returns addr's balance of the given token.
	BalanceOf(token, addr common.Address) (*big.Int, error)

	// Allowance returns the amount owner has approved spender to pull.
	Allowance(token, owner, spender common.Address) (*big.Int, error)

	// Transfer moves tokens out of from's own balance.
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error

	// TransferFrom moves tokens from from to to, consuming spender's
	// allowance.
	TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error

	// Wrap converts amount of addr's native balance into wrapped-native tokens.
	Wrap(ctx context.Context, addr common.Address, amount *big.Int) error

	// Unwrap converts amount of addr's wrapped-native tokens back into native
	// balance.
	Unwrap(ctx context.Context, addr common.Address, amount *big.Int) error

	// Commit applies every staged movement atomically.
	Commit() error

	// Rollback discards the transaction. Rollback after Commit is a no-op.
	Rollback() error
}
