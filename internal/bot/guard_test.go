package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"erepbot/internal/game"
)

func TestGateExclusive(t *testing.T) {
	g := NewGate("concurrency", 30*time.Millisecond, quietLogger())
	ctx := context.Background()
	if !g.Acquire(ctx) {
		t.Fatalf("first acquire should succeed")
	}

	called := false
	err := g.Do(ctx, "fight", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, game.ErrGateTimeout) {
		t.Fatalf("got %v want gate timeout", err)
	}
	if called {
		t.Fatalf("action ran while the gate was held")
	}

	g.Release()
	if err := g.Do(ctx, "fight", func(context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
	if !called {
		t.Fatalf("action did not run after release")
	}
}

func TestGateDoReturnsActionError(t *testing.T) {
	g := NewGate("update", time.Second, quietLogger())
	want := errors.New("boom")
	if err := g.Do(context.Background(), "refresh", func(context.Context) error { return want }); err != want {
		t.Fatalf("got %v want %v", err, want)
	}
	// The gate must be free again after a failed action.
	if !g.Acquire(context.Background()) {
		t.Fatalf("gate leaked after a failed action")
	}
}

func TestGateCancelledContext(t *testing.T) {
	g := NewGate("update", time.Second, quietLogger())
	g.Acquire(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Do(ctx, "refresh", func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
}

func TestGuardGatesAreIndependent(t *testing.T) {
	guard := NewGuard(30*time.Millisecond, 30*time.Millisecond, quietLogger())
	ctx := context.Background()
	if !guard.Update.Acquire(ctx) {
		t.Fatalf("update acquire failed")
	}
	defer guard.Update.Release()
	if !guard.Concurrency.Acquire(ctx) {
		t.Fatalf("concurrency gate blocked by the update gate")
	}
	guard.Concurrency.Release()
}

func TestGateSerializesHolders(t *testing.T) {
	g := NewGate("concurrency", time.Second, quietLogger())
	ctx := context.Background()
	active := make(chan int, 2)
	done := make(chan struct{})
	inside := 0

	run := func() {
		_ = g.Do(ctx, "fight", func(context.Context) error {
			inside++
			active <- inside
			time.Sleep(10 * time.Millisecond)
			inside--
			return nil
		})
		done <- struct{}{}
	}
	go run()
	go run()
	<-done
	<-done
	close(active)
	for n := range active {
		if n != 1 {
			t.Fatalf("%d holders inside the gate", n)
		}
	}
}

func TestGateTryAcquire(t *testing.T) {
	g := NewGate("concurrency", time.Second, quietLogger())
	if !g.TryAcquire() {
		t.Fatalf("free gate should be taken")
	}
	if g.TryAcquire() {
		t.Fatalf("held gate must not be taken again")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("released gate should be taken")
	}
	g.Release()
}
