package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateTryAcquire(t *testing.T) {
	g := NewGate()

	if owner := g.Owner(); owner != "" {
		t.Errorf("fresh gate owner = %q, want empty", owner)
	}

	tok, ok := g.TryAcquire("monitor")
	if !ok {
		t.Fatal("TryAcquire failed on a free gate")
	}
	if owner := g.Owner(); owner != "monitor" {
		t.Errorf("owner = %q, want monitor", owner)
	}

	if _, ok := g.TryAcquire("flasher"); ok {
		t.Error("TryAcquire succeeded on a held gate")
	}

	tok.Release()
	if owner := g.Owner(); owner != "" {
		t.Errorf("owner after release = %q, want empty", owner)
	}

	if _, ok := g.TryAcquire("flasher"); !ok {
		t.Error("TryAcquire failed after release")
	}
}

func TestGateAcquireBlocksUntilRelease(t *testing.T) {
	g := NewGate()

	first, err := g.Acquire(context.Background(), "monitor")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan *GateToken)
	go func() {
		tok, err := g.Acquire(context.Background(), "flasher")
		if err != nil {
			t.Errorf("second Acquire: %v", err)
		}
		acquired <- tok
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire completed while gate was held")
	case <-time.After(50 * time.Millisecond):
	}

	first.Release()

	select {
	case tok := <-acquired:
		if owner := g.Owner(); owner != "flasher" {
			t.Errorf("owner = %q, want flasher", owner)
		}
		tok.Release()
	case <-time.After(time.Second):
		t.Fatal("second Acquire never completed after release")
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := NewGate()

	tok, err := g.Acquire(context.Background(), "monitor")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer tok.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, "flasher")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestGateTokenReleaseIdempotent(t *testing.T) {
	g := NewGate()

	tok, _ := g.TryAcquire("monitor")
	tok.Release()
	tok.Release() // must not unbalance the gate

	if _, ok := g.TryAcquire("a"); !ok {
		t.Fatal("gate unusable after double release")
	}
	if _, ok := g.TryAcquire("b"); ok {
		t.Error("double release freed the gate twice")
	}
}
