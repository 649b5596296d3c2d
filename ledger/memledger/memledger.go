// Package memledger is an in-memory ledger.Ledger with snapshot transactions.
// It backs the engine's tests and the examples: balances live in maps, each
// transaction works on a deep copy of the committed state, and Commit swaps
// the copy in under the ledger lock so a settlement either fully lands or
// leaves the committed state untouched.
//
// Token behaviors needed by the settlement tests are configurable per token:
// a skim (fee-on-transfer) in basis points, destinations that reject native
// value, and native-receive hooks.
package memledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PaulElisha/KaiaChain-Payment-Protocol/ledger"
)

// ReceiveHook runs when an address receives native value inside a
// transaction. A non-nil error makes the push fail as a rejection.
type ReceiveHook func(ctx context.Context, from common.Address, amount *big.Int) error

// Ledger is an in-memory ledger.Ledger.
type Ledger struct {
	mu      sync.Mutex
	chainID *big.Int
	wrapped common.Address

	committed *state

	skimBps   map[common.Address]int64
	rejecting map[common.Address]bool
	hooks     map[common.Address]ReceiveHook
}

type state struct {
	native     map[common.Address]*big.Int
	tokens     map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
}

func newState() *state {
	return &state{
		native:     make(map[common.Address]*big.Int),
		tokens:     make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
	}
}

func (s *state) clone() *state {
	c := newState()
	for addr, bal := range s.native {
		c.native[addr] = new(big.Int).Set(bal)
	}
	for token, balances := range s.tokens {
		tb := make(map[common.Address]*big.Int, len(balances))
		for addr, bal := range balances {
			tb[addr] = new(big.Int).Set(bal)
		}
		c.tokens[token] = tb
	}
	for token, owners := range s.allowances {
		to := make(map[common.Address]map[common.Address]*big.Int, len(owners))
		for owner, spenders := range owners {
			ts := make(map[common.Address]*big.Int, len(spenders))
			for spender, amt := range spenders {
				ts[spender] = new(big.Int).Set(amt)
			}
			to[owner] = ts
		}
		c.allowances[token] = to
	}
	return c
}

// New creates a ledger for the given chain id with the wrapped-native token
// pre-registered at the given address.
func New(chainID *big.Int, wrappedNative common.Address) *Ledger {
	l := &Ledger{
		chainID:   new(big.Int).Set(chainID),
		wrapped:   wrappedNative,
		committed: newState(),
		skimBps:   make(map[common.Address]int64),
		rejecting: make(map[common.Address]bool),
		hooks:     make(map[common.Address]ReceiveHook),
	}
	l.committed.tokens[wrappedNative] = make(map[common.Address]*big.Int)
	return l
}

// ChainID implements ledger.Ledger.
func (l *Ledger) ChainID() *big.Int { return new(big.Int).Set(l.chainID) }

// WrappedNative implements ledger.Ledger.
func (l *Ledger) WrappedNative() common.Address { return l.wrapped }

// CreateToken registers a token contract.
func (l *Ledger) CreateToken(token common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.committed.tokens[token]; !ok {
		l.committed.tokens[token] = make(map[common.Address]*big.Int)
	}
}

// SetSkim makes token skim the given basis points from every delivery,
// simulating a fee-on-transfer token.
func (l *Ledger) SetSkim(token common.Address, bps int64) {
	l.mu.Lock()
	l.skimBps[token] = bps
	l.mu.Unlock()
}

// SetRejecting makes addr refuse all native value pushes.
func (l *Ledger) SetRejecting(addr common.Address, rejecting bool) {
	l.mu.Lock()
	l.rejecting[addr] = rejecting
	l.mu.Unlock()
}

// SetReceiveHook installs a hook that runs whenever addr receives native
// value. Used to exercise reentrancy from fund-push callbacks.
func (l *Ledger) SetReceiveHook(addr common.Address, hook ReceiveHook) {
	l.mu.Lock()
	l.hooks[addr] = hook
	l.mu.Unlock()
}

// MintNative credits addr with native currency.
func (l *Ledger) MintNative(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.committed.native[addr] = add(l.committed.native[addr], amount)
}

// MintToken credits addr with tokens, registering the token if needed.
func (l *Ledger) MintToken(token, addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balances, ok := l.committed.tokens[token]
	if !ok {
		balances = make(map[common.Address]*big.Int)
		l.committed.tokens[token] = balances
	}
	balances[addr] = add(balances[addr], amount)
}

// Approve sets spender's allowance over owner's tokens.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owners, ok := l.allowancesFor(token)
	if !ok {
		return
	}
	spenders := owners[owner]
	if spenders == nil {
		spenders = make(map[common.Address]*big.Int)
		owners[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
}

func (l *Ledger) allowancesFor(token common.Address) (map[common.Address]map[common.Address]*big.Int, bool) {
	if _, ok := l.committed.tokens[token]; !ok {
		return nil, false
	}
	owners := l.committed.allowances[token]
	if owners == nil {
		owners = make(map[common.Address]map[common.Address]*big.Int)
		l.committed.allowances[token] = owners
	}
	return owners, true
}

// CommittedNativeBalance reads addr's committed native balance.
func (l *Ledger) CommittedNativeBalance(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return value(l.committed.native[addr])
}

// CommittedTokenBalance reads addr's committed balance of token.
func (l *Ledger) CommittedTokenBalance(token, addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return value(l.committed.tokens[token][addr])
}

// Begin implements ledger.Ledger.
func (l *Ledger) Begin(ctx context.Context) (ledger.Tx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &tx{ledger: l, state: l.committed.clone()}, nil
}

type tx struct {
	ledger *Ledger
	state  *state
	closed bool
}

// NativeBalance implements ledger.Tx.
func (t *tx) NativeBalance(addr common.Address) *big.Int {
	return value(t.state.native[addr])
}

// TransferNative implements ledger.Tx.
func (t *tx) TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	if amount.Sign() == 0 {
		return nil
	}
	if t.ledger.rejecting[to] {
		return &ledger.RejectedError{Destination: to, Returndata: []byte("receiver rejected value")}
	}
	bal := value(t.state.native[from])
	if bal.Cmp(amount) < 0 {
		return ledger.ErrInsufficientFunds
	}
	if hook := t.ledger.hooks[to]; hook != nil {
		if err := hook(ctx, from, amount); err != nil {
			return &ledger.RejectedError{Destination: to, Returndata: []byte(err.Error())}
		}
	}
	t.state.native[from] = new(big.Int).Sub(bal, amount)
	t.state.native[to] = add(t.state.native[to], amount)
	return nil
}

// BalanceOf implements ledger.Tx.
func (t *tx) BalanceOf(token, addr common.Address) (*big.Int, error) {
	balances, ok := t.state.tokens[token]
	if !ok {
		return nil, ledger.ErrUnknownToken
	}
	return value(balances[addr]), nil
}

// Allowance implements ledger.Tx.
func (t *tx) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	if _, ok := t.state.tokens[token]; !ok {
		return nil, ledger.ErrUnknownToken
	}
	return value(t.state.allowances[token][owner][spender]), nil
}

// Transfer implements ledger.Tx.
func (t *tx) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	return t.moveTokens(token, from, to, amount)
}

// TransferFrom implements ledger.Tx.
func (t *tx) TransferFrom(ctx context.Context, token, spender, from, to common.Address, amount *big.Int) error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	if _, ok := t.state.tokens[token]; !ok {
		return ledger.ErrUnknownToken
	}
	allowance := value(t.state.allowances[token][from][spender])
	if allowance.Cmp(amount) < 0 {
		return ledger.ErrInsufficientAllowance
	}
	if err := t.moveTokens(token, from, to, amount); err != nil {
		return err
	}
	t.state.allowances[token][from][spender] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (t *tx) moveTokens(token, from, to common.Address, amount *big.Int) error {
	balances, ok := t.state.tokens[token]
	if !ok {
		return ledger.ErrUnknownToken
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal := value(balances[from])
	if bal.Cmp(amount) < 0 {
		return ledger.ErrInsufficientFunds
	}
	delivered := new(big.Int).Set(amount)
	if bps := t.ledger.skimBps[token]; bps > 0 {
		skim := new(big.Int).Mul(amount, big.NewInt(bps))
		skim.Div(skim, big.NewInt(10000))
		delivered.Sub(delivered, skim)
	}
	balances[from] = new(big.Int).Sub(bal, amount)
	balances[to] = add(balances[to], delivered)
	return nil
}

// Wrap implements ledger.Tx.
func (t *tx) Wrap(ctx context.Context, addr common.Address, amount *big.Int) error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	bal := value(t.state.native[addr])
	if bal.Cmp(amount) < 0 {
		return ledger.ErrInsufficientFunds
	}
	t.state.native[addr] = new(big.Int).Sub(bal, amount)
	wrapped := t.state.tokens[t.ledger.wrapped]
	wrapped[addr] = add(wrapped[addr], amount)
	return nil
}

// Unwrap implements ledger.Tx.
func (t *tx) Unwrap(ctx context.Context, addr common.Address, amount *big.Int) error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	wrapped := t.state.tokens[t.ledger.wrapped]
	bal := value(wrapped[addr])
	if bal.Cmp(amount) < 0 {
		return ledger.ErrInsufficientFunds
	}
	wrapped[addr] = new(big.Int).Sub(bal, amount)
	t.state.native[addr] = add(t.state.native[addr], amount)
	return nil
}

// Commit implements ledger.Tx.
func (t *tx) Commit() error {
	if t.closed {
		return ledger.ErrTxClosed
	}
	t.ledger.mu.Lock()
	t.ledger.committed = t.state
	t.ledger.mu.Unlock()
	t.closed = true
	return nil
}

// Rollback implements ledger.Tx.
func (t *tx) Rollback() error {
	t.closed = true
	return nil
}

func add(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int).Add(a, b)
}

func value(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
