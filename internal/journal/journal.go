package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID      string         `json:"id"`
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Store persists journal events.
type Store interface {
	Insert(ctx context.Context, events []Event) error
}

// Journal records bot events. Events that cannot reach the store are kept in
// the spool and retried before the next write.
type Journal struct {
	store Store
	spool *Spool
	log   *slog.Logger
	now   func() time.Time
}

// New builds a journal. A nil store makes it log-only.
func New(store Store, spool *Spool, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, spool: spool, log: logger, now: time.Now}
}

func (j *Journal) Report(ctx context.Context, kind, message string, fields map[string]any) {
	e := Event{
		ID:      uuid.NewString(),
		At:      j.now().UTC(),
		Kind:    kind,
		Message: message,
		Fields:  fields,
	}
	args := []any{"kind", kind, "event_id", e.ID}
	for k, v := range fields {
		args = append(args, k, v)
	}
	j.log.Info(message, args...)

	if j.store == nil {
		return
	}
	if _, err := j.Sync(ctx); err != nil {
		j.log.Warn("journal spool replay failed", "err", err)
	}
	if err := j.store.Insert(ctx, []Event{e}); err != nil {
		j.log.Warn("journal write failed, spooling event", "event_id", e.ID, "err", err)
		if j.spool == nil {
			return
		}
		if serr := j.spool.Push(e); serr != nil {
			j.log.Error("journal spool failed", "event_id", e.ID, "err", serr)
		}
	}
}

// Sync replays spooled events into the store.
func (j *Journal) Sync(ctx context.Context) (int, error) {
	if j.spool == nil {
		return 0, nil
	}
	if j.store == nil {
		return 0, fmt.Errorf("journal has no store configured")
	}
	return j.spool.Drain(func(events []Event) error {
		return j.store.Insert(ctx, events)
	})
}
