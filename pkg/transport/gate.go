package transport

import (
	"context"
	"fmt"
	"sync"
)

// Gate serializes ownership of a transport's byte stream.
//
// The monitor holds the gate while it is streaming logs; a flash session
// takes it over for the duration of the protocol exchange and hands it
// back afterwards. Acquire blocks until the current owner releases, so a
// component can never read bytes meant for another.
type Gate struct {
	sem chan struct{}

	mu    sync.Mutex
	owner string
}

// NewGate creates an unowned gate.
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

// Acquire takes ownership, blocking until the gate is free or the
// context is cancelled. The owner name is diagnostic only.
func (g *Gate) Acquire(ctx context.Context, owner string) (*GateToken, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring port for %s: %w", owner, ctx.Err())
	}
	g.setOwner(owner)
	return &GateToken{gate: g}, nil
}

// TryAcquire takes ownership without blocking. It returns nil, false
// when the gate is held.
func (g *Gate) TryAcquire(owner string) (*GateToken, bool) {
	select {
	case g.sem <- struct{}{}:
	default:
		return nil, false
	}
	g.setOwner(owner)
	return &GateToken{gate: g}, true
}

// Owner returns the current owner name, or "" when the gate is free.
func (g *Gate) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

func (g *Gate) setOwner(owner string) {
	g.mu.Lock()
	g.owner = owner
	g.mu.Unlock()
}

// GateToken represents held ownership. Release returns it; a token is
// single-use and Release is idempotent.
type GateToken struct {
	gate *Gate
	once sync.Once
}

// Release hands the gate back.
func (t *GateToken) Release() {
	t.once.Do(func() {
		t.gate.setOwner("")
		<-t.gate.sem
	})
}
