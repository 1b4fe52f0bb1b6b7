package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"erepbot/internal/game"
)

// Gate is a binary mutual-exclusion gate with a bounded acquire. It is not
// reentrant: a holder must not acquire it again.
type Gate struct {
	name    string
	timeout time.Duration
	sem     *semaphore.Weighted
	log     *slog.Logger
}

func NewGate(name string, timeout time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		name:    name,
		timeout: timeout,
		sem:     semaphore.NewWeighted(1),
		log:     logger,
	}
}

func (g *Gate) Name() string { return g.name }

// Acquire waits up to the gate timeout. It returns false on timeout or when
// ctx is cancelled first.
func (g *Gate) Acquire(ctx context.Context) bool {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.sem.Acquire(waitCtx, 1) == nil
}

// TryAcquire takes the gate only when it is free right now.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

func (g *Gate) Release() {
	g.sem.Release(1)
}

// Do runs fn while holding the gate. When the gate cannot be acquired fn is
// not called and the returned error wraps game.ErrGateTimeout.
func (g *Gate) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	if !g.Acquire(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.log.Warn("gate busy, skipping action", "gate", g.name, "action", action, "timeout", g.timeout.String())
		return fmt.Errorf("%w: %s gate for %s", game.ErrGateTimeout, g.name, action)
	}
	defer g.Release()
	return fn(ctx)
}

// Guard holds the two independent gates. Update covers state refreshes,
// Concurrency covers resource-consuming actions.
type Guard struct {
	Update      *Gate
	Concurrency *Gate
}

func NewGuard(updateTimeout, concurrencyTimeout time.Duration, logger *slog.Logger) *Guard {
	return &Guard{
		Update:      NewGate("update", updateTimeout, logger),
		Concurrency: NewGate("concurrency", concurrencyTimeout, logger),
	}
}
