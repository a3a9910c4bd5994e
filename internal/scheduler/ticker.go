// Package scheduler runs the lifecycle ticker that advances events and sessions
// on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"virtualexpo/internal/domain"
)

// DefaultInterval is the time between two lifecycle ticks.
const DefaultInterval = 60 * time.Second

// TickResult is the outcome of one tick. Either side may be nil when its pass failed.
type TickResult struct {
	TickID   string                       `json:"tick_id"`
	Now      time.Time                    `json:"now"`
	Events   *domain.EventAdvanceResult   `json:"events"`
	Sessions *domain.SessionAdvanceResult `json:"sessions"`
}

// Empty reports whether the tick moved nothing.
func (r *TickResult) Empty() bool {
	return r.Events.Empty() && r.Sessions.Empty()
}

// Ticker periodically calls AutoAdvance on both lifecycle services.
type Ticker struct {
	events   domain.EventLifecycleService
	sessions domain.SessionLifecycleService
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithClock overrides the time source used to stamp each tick.
func WithClock(now func() time.Time) Option {
	return func(t *Ticker) { t.now = now }
}

// NewTicker returns a stopped Ticker. A non-positive interval selects DefaultInterval.
func NewTicker(events domain.EventLifecycleService, sessions domain.SessionLifecycleService, interval time.Duration, logger *slog.Logger, opts ...Option) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Ticker{
		events:   events,
		sessions: sessions,
		interval: interval,
		logger:   logger.With("component", "lifecycle_ticker"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start schedules the tick job. The first tick runs immediately; ticks never overlap.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scheduler != nil {
		return errors.New("lifecycle ticker already started")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	_, err = s.NewJob(
		gocron.DurationJob(t.interval),
		gocron.NewTask(func() {
			// Errors are logged inside RunOnce; the next interval retries regardless.
			_, _ = t.RunOnce(runCtx)
		}),
		gocron.WithName("lifecycle-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return fmt.Errorf("schedule lifecycle tick: %w", err)
	}

	s.Start()
	t.scheduler = s
	t.cancel = cancel
	t.logger.Info("lifecycle ticker started", "interval", t.interval.String())
	return nil
}

// Stop waits for an in-flight tick to finish and stops scheduling new ones.
func (t *Ticker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scheduler == nil {
		return nil
	}
	err := t.scheduler.Shutdown()
	t.cancel()
	t.scheduler = nil
	t.cancel = nil
	if err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	t.logger.Info("lifecycle ticker stopped")
	return nil
}

// RunOnce runs a single tick: both state machines advance concurrently against
// the same instant. A failure or panic on one side does not affect the other.
func (t *Ticker) RunOnce(ctx context.Context) (*TickResult, error) {
	result := &TickResult{TickID: uuid.NewString(), Now: t.now().UTC()}
	logger := t.logger.With("tick_id", result.TickID)

	// Plain group: a failure on one side must not cancel the other.
	var eventsErr, sessionsErr error
	var g errgroup.Group
	g.Go(func() error {
		eventsErr = recoverTick(func() (err error) {
			result.Events, err = t.events.AutoAdvance(ctx, result.Now)
			return err
		})
		if eventsErr != nil {
			logger.Error("event auto-advance failed", "err", eventsErr)
			return fmt.Errorf("events: %w", eventsErr)
		}
		return nil
	})
	g.Go(func() error {
		sessionsErr = recoverTick(func() (err error) {
			result.Sessions, err = t.sessions.AutoAdvance(ctx, result.Now)
			return err
		})
		if sessionsErr != nil {
			logger.Error("session auto-advance failed", "err", sessionsErr)
			return fmt.Errorf("sessions: %w", sessionsErr)
		}
		return nil
	})
	err := g.Wait()

	if !result.Empty() {
		attrs := []any{"now", result.Now}
		if result.Events != nil {
			attrs = append(attrs, "events_started", result.Events.Started, "events_closed", result.Events.Closed)
		}
		if result.Sessions != nil {
			attrs = append(attrs, "sessions_started", result.Sessions.Started, "sessions_ended", result.Sessions.Ended)
		}
		logger.Info("lifecycle tick", attrs...)
	}
	if err == nil {
		return result, nil
	}

	// Wait reports only the first failure; surface both sides.
	var errs []error
	if eventsErr != nil {
		errs = append(errs, fmt.Errorf("events: %w", eventsErr))
	}
	if sessionsErr != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", sessionsErr))
	}
	return result, errors.Join(errs...)
}

func recoverTick(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during auto-advance: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
