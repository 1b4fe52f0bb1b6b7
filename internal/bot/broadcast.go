package bot

import (
	"context"
	"log/slog"
	"time"

	"erepbot/internal/game"
)

// Publisher fans a status snapshot out to observers.
type Publisher interface {
	Publish(v any)
}

// Broadcaster refreshes state in the background and publishes snapshots. Its
// refresh shares the update gate with the task loop.
type Broadcaster struct {
	scheduler *Scheduler
	publisher Publisher
	every     time.Duration
	log       *slog.Logger
}

func NewBroadcaster(s *Scheduler, publisher Publisher, every time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if every <= 0 {
		every = time.Minute
	}
	return &Broadcaster{scheduler: s, publisher: publisher, every: every, log: logger}
}

func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.every)
	defer ticker.Stop()

	b.log.Info("broadcaster started", "every", b.every.String())
	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcaster shutdown")
			return nil
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick runs one refresh-and-publish round. A busy update gate skips the
// refresh but still publishes the current view.
func (b *Broadcaster) Tick(ctx context.Context) {
	if err := b.scheduler.Refresh(ctx); err != nil {
		switch game.Classify(err) {
		case game.KindGateTimeout:
			b.log.Debug("broadcast refresh skipped", "err", err)
		default:
			b.log.Warn("broadcast refresh failed", "err", err)
		}
	}
	if b.publisher != nil {
		b.publisher.Publish(b.scheduler.Snapshot())
	}
}
