package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"virtualexpo/internal/domain"
)

// Timeouts bounds the store round-trips and audit writes made by the lifecycle services.
type Timeouts struct {
	// Store applies to each scan and each per-entity conditional update.
	Store time.Duration
	// Audit applies to each audit append, measured from the moment the transition committed.
	Audit time.Duration
}

const (
	defaultStoreTimeout = 5 * time.Second
	defaultAuditTimeout = 3 * time.Second
)

func (t Timeouts) withDefaults() Timeouts {
	if t.Store <= 0 {
		t.Store = defaultStoreTimeout
	}
	if t.Audit <= 0 {
		t.Audit = defaultAuditTimeout
	}
	return t
}

// auditRecorder writes audit entries after a transition has committed.
// Failures are logged and never reach the caller.
type auditRecorder struct {
	sink    domain.AuditSink
	timeout time.Duration
	logger  *slog.Logger
}

func newAuditRecorder(sink domain.AuditSink, timeout time.Duration, logger *slog.Logger) *auditRecorder {
	return &auditRecorder{sink: sink, timeout: timeout, logger: logger}
}

func (r *auditRecorder) record(ctx context.Context, entry domain.AuditLogEntry) {
	if r.sink == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	// The caller's context may already be cancelled by the time the write happens.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.sink.Append(auditCtx, entry); err != nil {
		r.logger.Warn("audit write failed",
			"action", entry.Action,
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"err", err,
		)
	}
}

type fanoutAuditSink struct {
	sinks []domain.AuditSink
}

// NewFanoutAuditSink returns an AuditSink that appends each entry to every non-nil sink.
// All sinks are attempted; their errors are joined.
func NewFanoutAuditSink(sinks ...domain.AuditSink) domain.AuditSink {
	out := make([]domain.AuditSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &fanoutAuditSink{sinks: out}
}

func (f *fanoutAuditSink) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultAuditQueueSize is the number of entries AsyncAuditSink buffers before dropping.
const DefaultAuditQueueSize = 1024

// ErrAuditSinkClosed is returned by AsyncAuditSink.Append after Close.
var ErrAuditSinkClosed = errors.New("audit sink closed")

// AsyncAuditSink queues entries and delivers them to next from a single worker,
// so transitions never wait on slow sinks such as email or Kafka. Entries are
// delivered in the order they were queued. A full queue drops the entry and
// reports it to the caller.
type AsyncAuditSink struct {
	next    domain.AuditSink
	timeout time.Duration
	logger  *slog.Logger
	entries chan domain.AuditLogEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncAuditSink starts the delivery worker. timeout bounds each delivery to next.
func NewAsyncAuditSink(next domain.AuditSink, queueSize int, timeout time.Duration, logger *slog.Logger) *AsyncAuditSink {
	if queueSize <= 0 {
		queueSize = DefaultAuditQueueSize
	}
	if timeout <= 0 {
		timeout = defaultAuditTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &AsyncAuditSink{
		next:    next,
		timeout: timeout,
		logger:  logger.With("component", "audit_dispatcher"),
		entries: make(chan domain.AuditLogEntry, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Append queues entry without blocking.
func (s *AsyncAuditSink) Append(_ context.Context, entry domain.AuditLogEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrAuditSinkClosed
	}
	select {
	case s.entries <- entry:
		return nil
	default:
		return fmt.Errorf("audit queue full (%d entries), dropped %s", cap(s.entries), entry.Action)
	}
}

func (s *AsyncAuditSink) run() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.next.Append(ctx, entry); err != nil {
			s.logger.Warn("audit delivery failed",
				"action", entry.Action,
				"entity", entry.Entity,
				"entity_id", entry.EntityID,
				"err", err,
			)
		}
		cancel()
	}
}

// Close stops accepting entries and waits until the queue is drained or ctx is done.
func (s *AsyncAuditSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush audit queue: %w", ctx.Err())
	}
}
