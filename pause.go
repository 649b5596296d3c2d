package payments

import "sync/atomic"

// Pauser is the administrative pause collaborator. When Paused reports true,
// every settlement entry point rejects with ErrPaused before doing anything
// else. Operator registration and read accessors are not gated.
type Pauser interface {
	Paused() bool
}

// Gate is the default Pauser: an atomic flag toggled by the administrative
// surface.
type Gate struct {
	paused atomic.Bool
}

// Paused implements Pauser.
func (g *Gate) Paused() bool { return g.paused.Load() }

// Pause blocks settlement entry.
func (g *Gate) Pause() { g.paused.Store(true) }

// Unpause re-enables settlement entry.
func (g *Gate) Unpause() { g.paused.Store(false) }
