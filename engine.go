package payments

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PaulElisha/KaiaChain-Payment-Protocol/ledger"
)

// inFlightKey marks a context as belonging to an in-flight settlement. Ledger
// callbacks receive the marked context, so a nested settlement attempt is
// rejected instead of deadlocking on the serialization lock.
type inFlightKey struct{}

// Engine is the settlement core. It owns the operator and processed-intent
// registries, validates intents, and routes funds through the ledger.
// Settlements are serialized: at most one runs at a time, and each either
// fully commits or leaves no trace.
type Engine struct {
	mu sync.Mutex

	ledger    ledger.Ledger
	address   common.Address
	owner     common.Address
	operators *OperatorRegistry
	processed *ProcessedIntentRegistry
	validator *IntentValidator
	pauser    Pauser
	sink      EventSink
	log       *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithOwner sets the identity allowed to sweep residual balances.
func WithOwner(owner common.Address) Option {
	return func(e *Engine) { e.owner = owner }
}

// WithPauser sets the administrative pause collaborator.
func WithPauser(p Pauser) Option {
	return func(e *Engine) { e.pauser = p }
}

// WithEventSink sets the event sink.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source. Deadlines are evaluated against it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with the given identity on the given ledger.
// The identity is the engine's custody address and is bound into every intent
// digest.
func NewEngine(l ledger.Ledger, address common.Address, opts ...Option) *Engine {
	e := &Engine{
		ledger:    l,
		address:   address,
		operators: NewOperatorRegistry(),
		processed: NewProcessedIntentRegistry(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.sink == nil {
		e.sink = &LogSink{Logger: e.log}
	}
	e.validator = NewIntentValidator(e.operators, e.processed, l.ChainID(), address, e.now)
	return e
}

// Address returns the engine's custody identity.
func (e *Engine) Address() common.Address { return e.address }

// ChainID returns the chain the engine settles on.
func (e *Engine) ChainID() *big.Int { return e.ledger.ChainID() }

// Validator returns the engine's intent validator, bound to its chain and
// identity. Useful for pre-flight checks that do not move funds.
func (e *Engine) Validator() *IntentValidator { return e.validator }

// RegisterOperator sets caller's fee destination to itself. Idempotent.
// The caller identity must already be established by the host; transports
// accepting unauthenticated requests go through RegisterOperatorSigned.
func (e *Engine) RegisterOperator(caller common.Address) {
	e.operators.Register(caller)
	e.sink.OperatorRegistered(OperatorRegisteredEvent{Operator: caller, FeeDestination: caller})
}

// RegisterOperatorWithFeeDestination sets caller's fee destination to
// destination. The destination is not validated; the zero address is
// accepted.
func (e *Engine) RegisterOperatorWithFeeDestination(caller, destination common.Address) {
	e.operators.RegisterFeeDestination(caller, destination)
	e.sink.OperatorRegistered(OperatorRegisteredEvent{Operator: caller, FeeDestination: destination})
}

// UnregisterOperator removes caller's registry entry.
func (e *Engine) UnregisterOperator(caller common.Address) {
	e.operators.Unregister(caller)
	e.sink.OperatorUnregistered(OperatorUnregisteredEvent{Operator: caller})
}

// RegisterOperatorSigned applies a transport-submitted registration after
// verifying the operator's signature over the mutation. The signature must
// not be past its deadline and must recover to the operator itself; no other
// party can re-point an operator's fee destination.
func (e *Engine) RegisterOperatorSigned(operator, destination common.Address, deadline *big.Int, signature []byte) error {
	if err := e.verifyRegistryMutation(ActionRegister, operator, destination, deadline, signature); err != nil {
		return err
	}
	e.RegisterOperatorWithFeeDestination(operator, destination)
	return nil
}

// UnregisterOperatorSigned applies a transport-submitted unregistration after
// verifying the operator's signature over the mutation.
func (e *Engine) UnregisterOperatorSigned(operator common.Address, deadline *big.Int, signature []byte) error {
	if err := e.verifyRegistryMutation(ActionUnregister, operator, common.Address{}, deadline, signature); err != nil {
		return err
	}
	e.UnregisterOperator(operator)
	return nil
}

func (e *Engine) verifyRegistryMutation(action string, operator, destination common.Address, deadline *big.Int, signature []byte) error {
	if deadline == nil {
		deadline = new(big.Int)
	}
	if deadline.Cmp(big.NewInt(e.now().Unix())) < 0 {
		return ErrExpiredAuthorization
	}
	signer, err := RecoverRegistryMutationSigner(action, operator, destination, deadline, e.ledger.ChainID(), e.address, signature)
	if err != nil {
		return err
	}
	if signer != operator {
		return ErrInvalidSignature
	}
	return nil
}

// Owner returns the identity allowed to administer the engine. The zero
// address means no owner is configured and every owner-gated operation fails.
func (e *Engine) Owner() common.Address { return e.owner }

// FeeDestination returns the fee destination currently registered for
// operator.
func (e *Engine) FeeDestination(operator common.Address) (common.Address, bool) {
	return e.operators.FeeDestination(operator)
}

// IsProcessed reports whether (operator, id) has settled.
func (e *Engine) IsProcessed(operator common.Address, id IntentID) bool {
	return e.processed.IsProcessed(operator, id)
}

// beginSettlement runs the gates shared by every settlement entry point:
// pause, reentrancy, then serialization. The returned context carries the
// in-flight marker and must be the one passed to the ledger.
func (e *Engine) beginSettlement(ctx context.Context) (context.Context, func(), error) {
	if e.pauser != nil && e.pauser.Paused() {
		return nil, nil, ErrPaused
	}
	if ctx.Value(inFlightKey{}) != nil {
		return nil, nil, ErrReentrantCall
	}
	e.mu.Lock()
	return context.WithValue(ctx, inFlightKey{}, struct{}{}), e.mu.Unlock, nil
}

// settle is the shared settlement skeleton: gate, validate, route inside one
// ledger transaction, commit, finalize.
func (e *Engine) settle(ctx context.Context, in *TransferIntent, payer common.Address, route func(ctx context.Context, tx ledger.Tx, feeDestination common.Address) (Currency, error)) (*SettlementReceipt, error) {
	ctx, release, err := e.beginSettlement(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.validator.Validate(in, payer); err != nil {
		e.log.Debug("intent rejected", "operator", in.Operator.Hex(), "id", in.ID.Hex(), "code", string(CodeOf(err)), "err", err)
		return nil, err
	}

	// Resolved at settlement time, never cached from intent construction.
	feeDestination, ok := e.operators.FeeDestination(in.Operator)
	if !ok {
		return nil, ErrOperatorNotRegistered
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	spent, err := route(ctx, tx, feeDestination)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return e.finalize(in, payer, spent), nil
}

// finalize is the single mutation point for the processed registry. It is
// reached only after a successful commit of the routed funds.
func (e *Engine) finalize(in *TransferIntent, payer common.Address, spent Currency) *SettlementReceipt {
	e.processed.MarkProcessed(in.Operator, in.ID)

	receipt := &SettlementReceipt{
		Operator:      in.Operator,
		ID:            in.ID,
		Recipient:     in.Recipient,
		Payer:         payer,
		AmountSpent:   in.TotalAmount(),
		CurrencySpent: spent,
	}
	e.sink.Transferred(TransferredEvent{
		Operator:      receipt.Operator,
		ID:            receipt.ID,
		Recipient:     receipt.Recipient,
		Payer:         receipt.Payer,
		AmountSpent:   receipt.AmountSpent.String(),
		CurrencySpent: receipt.CurrencySpent,
	})
	e.log.Info("settled",
		"operator", receipt.Operator.Hex(),
		"id", receipt.ID.Hex(),
		"payer", receipt.Payer.Hex(),
		"amountSpent", receipt.AmountSpent.String(),
		"currencySpent", receipt.CurrencySpent.String(),
	)
	return receipt
}

// Sweep moves the engine's residual balance of the given currency to the
// given destination. Only the designated owner may call it; it is
// independent of settlement state and the pause gate.
func (e *Engine) Sweep(ctx context.Context, caller common.Address, currency Currency, to common.Address) (*big.Int, error) {
	if caller != e.owner || e.owner == (common.Address{}) {
		return nil, ErrNotOwner
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var amount *big.Int
	if currency.IsNative() {
		amount = tx.NativeBalance(e.address)
		if amount.Sign() > 0 {
			if err := tx.TransferNative(ctx, e.address, to, amount); err != nil {
				return nil, e.wrapNativeFailure(err, to, amount, "sweep")
			}
		}
	} else {
		amount, err = tx.BalanceOf(currency.Token, e.address)
		if err != nil {
			return nil, err
		}
		if amount.Sign() > 0 {
			if err := tx.Transfer(ctx, currency.Token, e.address, to, amount); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.log.Info("swept", "currency", currency.String(), "to", to.Hex(), "amount", amount.String())
	return amount, nil
}
