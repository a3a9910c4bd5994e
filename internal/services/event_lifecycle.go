package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"virtualexpo/internal/domain"
)

type eventLifecycleService struct {
	eventRepo domain.EventRepository
	audit     *auditRecorder
	logger    *slog.Logger
	timeouts  Timeouts
}

// NewEventLifecycleService returns the payment_done -> live -> closed state machine for events.
func NewEventLifecycleService(eventRepo domain.EventRepository, auditSink domain.AuditSink, logger *slog.Logger, timeouts Timeouts) domain.EventLifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	timeouts = timeouts.withDefaults()
	logger = logger.With("component", "event_lifecycle")
	return &eventLifecycleService{
		eventRepo: eventRepo,
		audit:     newAuditRecorder(auditSink, timeouts.Audit, logger),
		logger:    logger,
		timeouts:  timeouts,
	}
}

// eventTransition describes one edge of the event state machine.
type eventTransition struct {
	from        domain.EventState
	to          domain.EventState
	autoAction  string
	forceAction string
	verb        string
}

var (
	eventStart = eventTransition{
		from:        domain.EventStatePaymentDone,
		to:          domain.EventStateLive,
		autoAction:  domain.ActionEventAutoStart,
		forceAction: domain.ActionEventForceStart,
		verb:        "force-start",
	}
	eventClose = eventTransition{
		from:        domain.EventStateLive,
		to:          domain.EventStateClosed,
		autoAction:  domain.ActionEventAutoClose,
		forceAction: domain.ActionEventForceClose,
		verb:        "force-close",
	}
)

func (s *eventLifecycleService) AutoAdvance(ctx context.Context, now time.Time) (*domain.EventAdvanceResult, error) {
	now = now.UTC()
	result := &domain.EventAdvanceResult{Started: []string{}, Closed: []string{}}

	// Auto-start fully resolves before auto-close begins.
	due, err := s.scan(ctx, now, s.eventRepo.ListDueToStart)
	if err != nil {
		return result, fmt.Errorf("list events due to start: %w", err)
	}
	result.Started = s.advanceAll(ctx, due, eventStart)

	due, err = s.scan(ctx, now, s.eventRepo.ListDueToClose)
	if err != nil {
		return result, fmt.Errorf("list events due to close: %w", err)
	}
	result.Closed = s.advanceAll(ctx, due, eventClose)

	return result, nil
}

func (s *eventLifecycleService) scan(ctx context.Context, now time.Time, list func(context.Context, time.Time) ([]*domain.Event, error)) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	return list(ctx, now)
}

func (s *eventLifecycleService) advanceAll(ctx context.Context, due []*domain.Event, tr eventTransition) []string {
	moved := make([]string, 0, len(due))
	for _, e := range due {
		if ctx.Err() != nil {
			break
		}
		updated, err := s.transition(ctx, e.ID, tr)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Debug("event already moved, skipping", "event_id", e.ID, "to", tr.to)
				continue
			}
			s.logger.Error("auto transition failed", "event_id", e.ID, "from", tr.from, "to", tr.to, "err", err)
			continue
		}
		s.audit.record(ctx, eventAuditEntry(domain.SystemActorID, tr.autoAction, e, updated))
		moved = append(moved, e.ID)
	}
	return moved
}

func (s *eventLifecycleService) transition(ctx context.Context, eventID string, tr eventTransition) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	return s.eventRepo.TransitionState(ctx, eventID, tr.from, tr.to)
}

func (s *eventLifecycleService) ForceStart(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	return s.force(ctx, eventID, actorID, eventStart)
}

func (s *eventLifecycleService) ForceClose(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	return s.force(ctx, eventID, actorID, eventClose)
}

func (s *eventLifecycleService) force(ctx context.Context, eventID, actorID string, tr eventTransition) (*domain.Event, error) {
	current, err := s.get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if current.State != tr.from {
		return nil, &domain.TransitionError{
			Kind:     domain.ErrInvalidState,
			Action:   tr.verb,
			Current:  string(current.State),
			Required: string(tr.from),
		}
	}

	updated, err := s.transition(ctx, eventID, tr)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%s event: %w", tr.verb, err)
		}
		// Lost the race to another writer; report where the event is now.
		s.logger.Info("manual transition lost race", "event_id", eventID, "action", tr.verb, "actor_id", actorID)
		return s.get(ctx, eventID)
	}

	s.audit.record(ctx, eventAuditEntry(actorID, tr.forceAction, current, updated))
	return updated, nil
}

func (s *eventLifecycleService) get(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	e, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func eventAuditEntry(actorID, action string, before, after *domain.Event) domain.AuditLogEntry {
	title := after.Title
	if title == "" {
		title = before.Title
	}
	return domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   domain.AuditEntityEvent,
		EntityID: after.ID,
		Metadata: map[string]any{
			"prev_state": string(before.State),
			"new_state":  string(after.State),
			"title":      title,
		},
	}
}
