package payments

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// OperatorRegistry maps an operator identity to its chosen fee destination.
// Only the operator itself may mutate its entry; the transport layer is
// responsible for establishing the caller's identity before invoking these
// methods with it.
//
// No entry means the operator is unregistered and none of its intents may
// settle. The destination is deliberately unvalidated: any address, including
// the zero address, is accepted.
type OperatorRegistry struct {
	mu           sync.RWMutex
	destinations map[common.Address]common.Address
}

// NewOperatorRegistry creates an empty operator registry.
func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		destinations: make(map[common.Address]common.Address),
	}
}

// Register sets operator's fee destination to itself. Idempotent.
func (r *OperatorRegistry) Register(operator common.Address) {
	r.RegisterFeeDestination(operator, operator)
}

// RegisterFeeDestination sets operator's fee destination to destination.
func (r *OperatorRegistry) RegisterFeeDestination(operator, destination common.Address) {
	r.mu.Lock()
	r.destinations[operator] = destination
	r.mu.Unlock()
}

// Unregister removes operator's entry entirely.
func (r *OperatorRegistry) Unregister(operator common.Address) {
	r.mu.Lock()
	delete(r.destinations, operator)
	r.mu.Unlock()
}

// FeeDestination returns the fee destination registered for operator and
// whether an entry exists.
func (r *OperatorRegistry) FeeDestination(operator common.Address) (common.Address, bool) {
	r.mu.RLock()
	dest, ok := r.destinations[operator]
	r.mu.RUnlock()
	return dest, ok
}

// ProcessedIntentRegistry tracks which (operator, id) pairs have settled.
// A pair transitions from unsettled to settled exactly once and is never
// unset; the id namespace is scoped per operator.
type ProcessedIntentRegistry struct {
	mu        sync.RWMutex
	processed map[common.Address]map[IntentID]bool
}

// NewProcessedIntentRegistry creates an empty processed-intent registry.
func NewProcessedIntentRegistry() *ProcessedIntentRegistry {
	return &ProcessedIntentRegistry{
		processed: make(map[common.Address]map[IntentID]bool),
	}
}

// IsProcessed reports whether (operator, id) has already settled.
func (r *ProcessedIntentRegistry) IsProcessed(operator common.Address, id IntentID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.processed[operator][id]
}

// MarkProcessed records that (operator, id) has settled. It returns false if
// the pair was already marked, without mutating anything.
func (r *ProcessedIntentRegistry) MarkProcessed(operator common.Address, id IntentID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.processed[operator]
	if ids == nil {
		ids = make(map[IntentID]bool)
		r.processed[operator] = ids
	}
	if ids[id] {
		return false
	}
	ids[id] = true
	return true
}
