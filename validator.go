package payments

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IntentValidator checks every precondition of a transfer intent before any
// funds move. Checks run in a fixed order so the reported error is stable:
// signature first (it gates trust in the remaining fields), then deadline,
// recipient, replay, and operator registration.
type IntentValidator struct {
	operators *OperatorRegistry
	processed *ProcessedIntentRegistry
	chainID   *big.Int
	engine    common.Address
	now       func() time.Time
}

// NewIntentValidator creates a validator bound to the given chain and engine
// identity.
func NewIntentValidator(operators *OperatorRegistry, processed *ProcessedIntentRegistry, chainID *big.Int, engine common.Address, now func() time.Time) *IntentValidator {
	if now == nil {
		now = time.Now
	}
	return &IntentValidator{
		operators: operators,
		processed: processed,
		chainID:   chainID,
		engine:    engine,
		now:       now,
	}
}

// Validate approves in for settlement on behalf of effectiveSender or returns
// the first violated precondition.
func (v *IntentValidator) Validate(in *TransferIntent, effectiveSender common.Address) error {
	if err := checkAmounts(in); err != nil {
		return err
	}

	signer, err := RecoverIntentSigner(in, v.chainID, effectiveSender, v.engine)
	if err != nil {
		return err
	}
	if signer != in.Operator {
		return ErrInvalidSignature
	}

	deadline := in.Deadline
	if deadline == nil {
		deadline = new(big.Int)
	}
	if deadline.Cmp(big.NewInt(v.now().Unix())) < 0 {
		return ErrExpiredIntent
	}

	if in.Recipient == (common.Address{}) {
		return ErrNullRecipient
	}

	if v.processed.IsProcessed(in.Operator, in.ID) {
		return ErrAlreadyProcessed
	}

	if _, ok := v.operators.FeeDestination(in.Operator); !ok {
		return ErrOperatorNotRegistered
	}

	return nil
}
