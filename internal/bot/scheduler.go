package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"erepbot/internal/config"
	"erepbot/internal/game"
)

const (
	networkBackoff   = 60 * time.Second
	maxUnknownErrors = 3
	gateRetryDelay   = time.Minute
	taskRetryDelay   = 30 * time.Minute
	refreshTimeout   = 2 * time.Minute
)

type taskFunc func(ctx context.Context, now time.Time) (time.Time, error)

// Snapshot is the read-only view published after every scheduler step.
type Snapshot struct {
	At          time.Time              `json:"at"`
	RefreshedAt time.Time              `json:"refreshed_at"`
	Energy      EnergyView             `json:"energy"`
	Citizen     game.Citizen           `json:"citizen"`
	FFLockdown  int                    `json:"ff_lockdown"`
	Tasks       map[TaskName]time.Time `json:"tasks"`
	NextTask    TaskName               `json:"next_task,omitempty"`
	NextAt      time.Time              `json:"next_at,omitempty"`
	Battles     int                    `json:"battles"`
	LastError   string                 `json:"last_error,omitempty"`
}

type EnergyView struct {
	Recovered   int           `json:"recovered"`
	Recoverable int           `json:"recoverable"`
	Interval    int           `json:"interval"`
	Limit       int           `json:"limit"`
	Available   int           `json:"available"`
	FoodFights  int           `json:"food_fights"`
	TillFull    time.Duration `json:"till_full"`
}

func energyView(e game.Energy, now time.Time) EnergyView {
	return EnergyView{
		Recovered:   e.Recovered,
		Recoverable: e.Recoverable,
		Interval:    e.Interval,
		Limit:       e.Limit,
		Available:   e.Available(),
		FoodFights:  e.FoodFights(),
		TillFull:    e.TimeTillFull(now),
	}
}

// Scheduler owns the task clock and runs the single-threaded task loop.
type Scheduler struct {
	opts      config.Options
	game      Game
	state     *State
	guard     *Guard
	clock     *TaskClock
	calendar  *Calendar
	decisions *DecisionEngine
	ranker    *Ranker
	fighter   *Fighter
	reporter  Reporter
	log       *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rnd   *rand.Rand
	tasks map[TaskName]taskFunc

	mu        sync.RWMutex
	published map[TaskName]time.Time
	lastErr   string
}

func NewScheduler(opts config.Options, g Game, reporter Reporter, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = logReporter{log: logger}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	calendar, err := NewCalendar(opts)
	if err != nil {
		return nil, err
	}
	ranker, err := NewRanker(opts, logger)
	if err != nil {
		return nil, err
	}
	state := NewState()
	guard := NewGuard(opts.UpdateGateTimeout, opts.ConcurrencyGateTimeout, logger)
	decisions := NewDecisionEngine(opts, state, calendar)
	s := &Scheduler{
		opts:      opts,
		game:      g,
		state:     state,
		guard:     guard,
		clock:     NewTaskClock(),
		calendar:  calendar,
		decisions: decisions,
		ranker:    ranker,
		fighter:   NewFighter(opts, g, state, ranker, decisions, guard, reporter, logger),
		reporter:  reporter,
		log:       logger,
		now:       time.Now,
		sleep:     sleepWithContext,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.tasks = s.taskTable()
	return s, nil
}

func (s *Scheduler) State() *State { return s.state }
func (s *Scheduler) Guard() *Guard { return s.guard }
func (s *Scheduler) Decisions() *DecisionEngine { return s.decisions }
func (s *Scheduler) Fighter() *Fighter { return s.fighter }
func (s *Scheduler) Calendar() *Calendar { return s.calendar }
func (s *Scheduler) Options() config.Options { return s.opts }

// Snapshot is safe to call from other goroutines.
func (s *Scheduler) Snapshot() Snapshot {
	now := s.now()
	s.mu.RLock()
	tasks := make(map[TaskName]time.Time, len(s.published))
	var next TaskName
	var nextAt time.Time
	for k, v := range s.published {
		tasks[k] = v
		if next == "" || v.Before(nextAt) {
			next, nextAt = k, v
		}
	}
	lastErr := s.lastErr
	s.mu.RUnlock()
	return Snapshot{
		At:          now,
		RefreshedAt: s.state.RefreshedAt(),
		Energy:      energyView(s.state.Energy(), now),
		Citizen:     s.state.Citizen(),
		FFLockdown:  s.state.FFLockdown(),
		Tasks:       tasks,
		NextTask:    next,
		NextAt:      nextAt,
		Battles:     s.state.Battles().Len(),
		LastError:   lastErr,
	}
}

func (s *Scheduler) publish(err error) {
	snap := s.clock.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = snap
	if err != nil {
		s.lastErr = err.Error()
	}
}

// Register puts every enabled task on the clock, due immediately.
func (s *Scheduler) Register(now time.Time) {
	for _, name := range s.enabledTasks() {
		s.clock.Register(name, now)
	}
	s.publish(nil)
}

// Run drives the task loop until ctx is cancelled or a fatal fault occurs.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.clock.Len() == 0 {
		s.Register(s.now())
	}
	if s.clock.Len() == 0 {
		s.log.Warn("no tasks enabled")
		<-ctx.Done()
		return nil
	}
	s.log.Info("scheduler started", "tasks", s.clock.Len())

	unknown := 0
	for {
		if ctx.Err() != nil {
			s.log.Info("scheduler shutdown")
			return nil
		}
		err := s.Step(ctx)
		if ctx.Err() != nil {
			s.log.Info("scheduler shutdown")
			return nil
		}
		if err == nil {
			unknown = 0
			continue
		}
		s.publish(err)

		switch game.Classify(err) {
		case game.KindTransient:
			s.log.Warn("network error, backing off", "err", err, "backoff", networkBackoff.String())
			if serr := s.sleep(ctx, networkBackoff); serr != nil {
				return nil
			}
		case game.KindScheduling:
			s.log.Error("scheduling fault", "err", err, "tasks", s.clock.String())
			s.reporter.Report(ctx, "fault", "Scheduling loop detected, stopping", map[string]any{"err": err.Error(), "tasks": s.clock.String()})
			return err
		default:
			unknown++
			s.log.Error("task loop error", "err", err, "consecutive", unknown)
			s.reporter.Report(ctx, "error", fmt.Sprintf("Unexpected error (%d/%d)", unknown, maxUnknownErrors), map[string]any{"err": err.Error()})
			if unknown >= maxUnknownErrors {
				return fmt.Errorf("too many consecutive errors: %w", err)
			}
			if serr := s.sleep(ctx, networkBackoff); serr != nil {
				return nil
			}
		}
	}
}

// Step refreshes state, runs every due task and sleeps until the next one.
func (s *Scheduler) Step(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		switch game.Classify(err) {
		case game.KindGateTimeout, game.KindDomain:
			s.log.Warn("refresh skipped, using previous state", "err", err)
		default:
			return err
		}
	}

	now := s.now()
	for _, name := range s.clock.Due(now) {
		next, err := s.runTask(ctx, name, now)
		if err != nil {
			return err
		}
		if err := s.clock.Reschedule(name, next); err != nil {
			return err
		}
		s.log.Debug("task rescheduled", "task", string(name), "next", next.Format(time.RFC3339))
	}
	s.publish(nil)

	name, at, _ := s.clock.Next()
	now = s.now()
	if !at.After(now) {
		return fmt.Errorf("%w: %s due at %s is not after %s", game.ErrSchedulingFault, name, at.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	wait := at.Sub(now) + s.jitter()
	s.log.Info("sleeping until next task", "task", string(name), "at", at.Format(time.RFC3339), "wait", wait.Truncate(time.Second).String())
	return s.sleep(ctx, wait)
}

// runTask runs one task and resolves its next due time. Only errors that must
// reach the loop's escalation are returned.
func (s *Scheduler) runTask(ctx context.Context, name TaskName, now time.Time) (time.Time, error) {
	fn, ok := s.tasks[name]
	if !ok {
		return time.Time{}, fmt.Errorf("no handler for task %q", name)
	}
	s.log.Debug("running task", "task", string(name))
	next, err := fn(ctx, now)
	after := s.now()
	switch game.Classify(err) {
	case game.KindNone:
	case game.KindGateTimeout:
		s.log.Warn("task skipped", "task", string(name), "err", err)
		return after.Add(gateRetryDelay), nil
	case game.KindDomain:
		s.log.Warn("task failed", "task", string(name), "err", err)
		if !next.After(after) {
			next = after.Add(taskRetryDelay)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("task %s: %w", name, err)
	}
	return next, nil
}

// Refresh performs a bounded full-state refresh under the update gate.
func (s *Scheduler) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	return s.guard.Update.Do(ctx, "refresh", func(ctx context.Context) error {
		st, err := s.game.Status(ctx)
		if err != nil {
			return fmt.Errorf("refresh status: %w", err)
		}
		battles, err := s.game.Battles(ctx)
		if err != nil {
			return fmt.Errorf("refresh battles: %w", err)
		}
		inv, err := s.game.RefreshInventory(ctx)
		if err != nil {
			return fmt.Errorf("refresh inventory: %w", err)
		}
		now := s.now()
		s.state.ReplaceBattles(battles, now)
		// A running action owns energy and location until it releases the
		// concurrency gate.
		if !s.guard.Concurrency.TryAcquire() {
			s.log.Debug("action in progress, keeping local energy")
			s.state.ApplyPassive(st, now)
			return nil
		}
		defer s.guard.Concurrency.Release()
		s.state.Apply(st, now)
		s.state.SetInventory(inv)
		return nil
	})
}

func (s *Scheduler) jitter() time.Duration {
	if s.opts.MaxJitter <= 0 {
		return 0
	}
	return time.Duration(s.rnd.Int63n(int64(s.opts.MaxJitter) + 1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
