package payments

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PaulElisha/KaiaChain-Payment-Protocol/ledger"
)

// The four settlement variants share one post-validation contract: exactly
// recipientAmount+feeAmount moves from payer custody into the engine, is
// split, and is pushed onward. Zero amounts skip the corresponding push but
// the settlement still finalizes.

// SettleNative settles an intent denominated in the native currency. The
// attached value must equal the intent total exactly: any surplus or deficit
// fails with the signed delta, with no silent refund or partial acceptance.
func (e *Engine) SettleNative(ctx context.Context, in *TransferIntent, payer common.Address, value *big.Int) (*SettlementReceipt, error) {
	return e.settle(ctx, in, payer, func(ctx context.Context, tx ledger.Tx, feeDestination common.Address) (Currency, error) {
		if !in.RecipientCurrency.IsNative() {
			return Currency{}, ErrIncorrectCurrency
		}
		total, err := e.collectNative(ctx, tx, in, payer, value)
		if err != nil {
			return Currency{}, err
		}
		if total.Sign() > 0 {
			if err := e.pushNative(ctx, tx, in.Recipient, in.RecipientAmount, "recipient"); err != nil {
				return Currency{}, err
			}
			if err := e.pushNative(ctx, tx, feeDestination, in.FeeAmount, "fee"); err != nil {
				return Currency{}, err
			}
		}
		return NativeCurrency(), nil
	})
}

// SettleToken settles an intent denominated in a token, pulling the total
// from the payer through a pre-approved delegated-transfer authorization.
func (e *Engine) SettleToken(ctx context.Context, in *TransferIntent, payer common.Address) (*SettlementReceipt, error) {
	return e.settle(ctx, in, payer, func(ctx context.Context, tx ledger.Tx, feeDestination common.Address) (Currency, error) {
		if in.RecipientCurrency.IsNative() {
			return Currency{}, ErrIncorrectCurrency
		}
		token := in.RecipientCurrency.Token
		total := in.TotalAmount()
		if err := e.pullTokens(ctx, tx, token, payer, total); err != nil {
			return Currency{}, err
		}
		if err := e.distributeTokens(ctx, tx, token, in, feeDestination); err != nil {
			return Currency{}, err
		}
		return TokenCurrency(token), nil
	})
}

// WrapAndSettle accepts native value from the payer, wraps it into the
// wrapped-native token, and distributes the wrapped representation. The
// intent currency must be the wrapped-native token.
func (e *Engine) WrapAndSettle(ctx context.Context, in *TransferIntent, payer common.Address, value *big.Int) (*SettlementReceipt, error) {
	return e.settle(ctx, in, payer, func(ctx context.Context, tx ledger.Tx, feeDestination common.Address) (Currency, error) {
		wrapped := e.ledger.WrappedNative()
		if in.RecipientCurrency.IsNative() || in.RecipientCurrency.Token != wrapped {
			return Currency{}, ErrIncorrectCurrency
		}
		total, err := e.collectNative(ctx, tx, in, payer, value)
		if err != nil {
			return Currency{}, err
		}
		if total.Sign() > 0 {
			if err := tx.Wrap(ctx, e.address, total); err != nil {
				return Currency{}, err
			}
		}
		if err := e.distributeTokens(ctx, tx, wrapped, in, feeDestination); err != nil {
			return Currency{}, err
		}
		return NativeCurrency(), nil
	})
}

// UnwrapAndSettle pulls wrapped-native tokens from the payer through a
// delegated-transfer authorization, unwraps them, and distributes native
// currency. The intent currency must be native.
func (e *Engine) UnwrapAndSettle(ctx context.Context, in *TransferIntent, payer common.Address) (*SettlementReceipt, error) {
	return e.settle(ctx, in, payer, func(ctx context.Context, tx ledger.Tx, feeDestination common.Address) (Currency, error) {
		if !in.RecipientCurrency.IsNative() {
			return Currency{}, ErrIncorrectCurrency
		}
		wrapped := e.ledger.WrappedNative()
		total := in.TotalAmount()
		if err := e.pullTokens(ctx, tx, wrapped, payer, total); err != nil {
			return Currency{}, err
		}
		if total.Sign() > 0 {
			if err := tx.Unwrap(ctx, e.address, total); err != nil {
				return Currency{}, err
			}
			if err := e.pushNative(ctx, tx, in.Recipient, in.RecipientAmount, "recipient"); err != nil {
				return Currency{}, err
			}
			if err := e.pushNative(ctx, tx, feeDestination, in.FeeAmount, "fee"); err != nil {
				return Currency{}, err
			}
		}
		return TokenCurrency(wrapped), nil
	})
}

// collectNative enforces the exact-value rule and moves the attached value
// into engine custody.
func (e *Engine) collectNative(ctx context.Context, tx ledger.Tx, in *TransferIntent, payer common.Address, value *big.Int) (*big.Int, error) {
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, ErrInvalidTransferDetails
	}
	total := in.TotalAmount()
	if delta := new(big.Int).Sub(value, total); delta.Sign() != 0 {
		return nil, &InvalidNativeAmountError{Delta: delta}
	}
	if total.Sign() > 0 {
		if err := tx.TransferNative(ctx, payer, e.address, total); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// pullTokens checks the payer's balance and the engine's allowance, pulls
// exactly total into engine custody, and verifies the delivered amount.
// A delivery mismatch means a fee-on-transfer token skimmed a portion, which
// aborts the settlement rather than shorting the recipient.
func (e *Engine) pullTokens(ctx context.Context, tx ledger.Tx, token, payer common.Address, total *big.Int) error {
	if total.Sign() == 0 {
		return nil
	}
	balance, err := tx.BalanceOf(token, payer)
	if err != nil {
		return err
	}
	if balance.Cmp(total) < 0 {
		return &InsufficientBalanceError{Deficit: new(big.Int).Sub(total, balance)}
	}
	allowance, err := tx.Allowance(token, payer, e.address)
	if err != nil {
		return err
	}
	if allowance.Cmp(total) < 0 {
		return &InsufficientAllowanceError{Deficit: new(big.Int).Sub(total, allowance)}
	}

	before, err := tx.BalanceOf(token, e.address)
	if err != nil {
		return err
	}
	if err := tx.TransferFrom(ctx, token, e.address, payer, e.address, total); err != nil {
		return err
	}
	after, err := tx.BalanceOf(token, e.address)
	if err != nil {
		return err
	}
	if new(big.Int).Sub(after, before).Cmp(total) != 0 {
		return ErrInexactTransfer
	}
	return nil
}

// distributeTokens pushes the split amounts out of engine custody.
func (e *Engine) distributeTokens(ctx context.Context, tx ledger.Tx, token common.Address, in *TransferIntent, feeDestination common.Address) error {
	if in.RecipientAmount != nil && in.RecipientAmount.Sign() > 0 {
		if err := tx.Transfer(ctx, token, e.address, in.Recipient, in.RecipientAmount); err != nil {
			return err
		}
	}
	if in.FeeAmount != nil && in.FeeAmount.Sign() > 0 {
		if err := tx.Transfer(ctx, token, e.address, feeDestination, in.FeeAmount); err != nil {
			return err
		}
	}
	return nil
}

// pushNative pushes a native amount out of engine custody, translating a
// rejection into the structured movement failure.
func (e *Engine) pushNative(ctx context.Context, tx ledger.Tx, to common.Address, amount *big.Int, step string) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := tx.TransferNative(ctx, e.address, to, amount); err != nil {
		return e.wrapNativeFailure(err, to, amount, step)
	}
	return nil
}

func (e *Engine) wrapNativeFailure(err error, to common.Address, amount *big.Int, step string) error {
	var rejected *ledger.RejectedError
	if errors.As(err, &rejected) {
		return &NativeTransferFailedError{
			Destination: to,
			Amount:      new(big.Int).Set(amount),
			Context:     step,
			Returndata:  rejected.Returndata,
		}
	}
	return err
}
