package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"virtualexpo/internal/domain"
)

type sessionLifecycleService struct {
	eventRepo   domain.EventRepository
	sessionRepo domain.SessionRepository
	liveCache   domain.LiveSessionCache
	audit       *auditRecorder
	logger      *slog.Logger
	timeouts    Timeouts
	now         func() time.Time
}

// NewSessionLifecycleService returns the scheduled -> live -> ended state machine for sessions.
// liveCache may be nil. now defaults to time.Now.
func NewSessionLifecycleService(
	eventRepo domain.EventRepository,
	sessionRepo domain.SessionRepository,
	liveCache domain.LiveSessionCache,
	auditSink domain.AuditSink,
	logger *slog.Logger,
	timeouts Timeouts,
	now func() time.Time,
) domain.SessionLifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	timeouts = timeouts.withDefaults()
	logger = logger.With("component", "session_lifecycle")
	return &sessionLifecycleService{
		eventRepo:   eventRepo,
		sessionRepo: sessionRepo,
		liveCache:   liveCache,
		audit:       newAuditRecorder(auditSink, timeouts.Audit, logger),
		logger:      logger,
		timeouts:    timeouts,
		now:         now,
	}
}

type sessionTransition struct {
	from         domain.SessionStatus
	to           domain.SessionStatus
	manualAction string
	autoAction   string
	verb         string
}

var (
	sessionStart = sessionTransition{
		from:         domain.SessionStatusScheduled,
		to:           domain.SessionStatusLive,
		manualAction: domain.ActionSessionStart,
		autoAction:   domain.ActionSessionAutoStart,
		verb:         "start session",
	}
	sessionEnd = sessionTransition{
		from:         domain.SessionStatusLive,
		to:           domain.SessionStatusEnded,
		manualAction: domain.ActionSessionEnd,
		autoAction:   domain.ActionSessionAutoEnd,
		verb:         "end session",
	}
)

func (s *sessionLifecycleService) Create(ctx context.Context, eventID string, in domain.CreateSessionInput, actorID string) (*domain.Session, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.InvalidArgumentf("title is required")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, domain.InvalidArgumentf("start_time and end_time are required")
	}
	if !in.StartTime.Before(in.EndTime) {
		return nil, domain.InvalidArgumentf("start_time must be before end_time")
	}

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkSessionWindow(event, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}

	session := domain.NewSession(eventID, strings.TrimSpace(in.Title), strings.TrimSpace(in.Speaker),
		strings.TrimSpace(in.Description), in.StartTime, in.EndTime, s.now().UTC())

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	if err := s.sessionRepo.Create(storeCtx, session); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			return nil, err
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.audit.record(ctx, sessionCreateEntry(actorID, session, "admin"))
	return session, nil
}

// checkSessionWindow enforces the grace window around the event dates. A zero
// event date leaves that side unchecked.
func checkSessionWindow(event *domain.Event, start, end time.Time) error {
	if event.HasStartDate() {
		earliest := event.StartDate.Add(-domain.SessionGraceWindow)
		if start.Before(earliest) {
			return domain.InvalidArgumentf("start_time %s is before the earliest allowed time %s",
				start.UTC().Format(time.RFC3339), earliest.UTC().Format(time.RFC3339))
		}
	}
	if !event.EndDate.IsZero() {
		latest := event.EndDate.Add(domain.SessionGraceWindow)
		if end.After(latest) {
			return domain.InvalidArgumentf("end_time %s is after the latest allowed time %s",
				end.UTC().Format(time.RFC3339), latest.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

func (s *sessionLifecycleService) StartSession(ctx context.Context, sessionID, actorID string) (*domain.Session, error) {
	return s.manual(ctx, sessionID, actorID, sessionStart)
}

func (s *sessionLifecycleService) EndSession(ctx context.Context, sessionID, actorID string) (*domain.Session, error) {
	return s.manual(ctx, sessionID, actorID, sessionEnd)
}

func (s *sessionLifecycleService) manual(ctx context.Context, sessionID, actorID string, tr sessionTransition) (*domain.Session, error) {
	updated, err := s.transition(ctx, sessionID, tr, s.now().UTC())
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", tr.verb, err)
		}
		current, getErr := s.getSession(ctx, sessionID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &domain.TransitionError{
			Kind:     domain.ErrConflict,
			Action:   tr.verb,
			Current:  string(current.Status),
			Required: string(tr.from),
		}
	}
	s.audit.record(ctx, sessionTransitionEntry(actorID, tr.manualAction, tr.from, updated))
	return updated, nil
}

func (s *sessionLifecycleService) transition(ctx context.Context, sessionID string, tr sessionTransition, at time.Time) (*domain.Session, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	updated, err := s.sessionRepo.TransitionStatus(storeCtx, sessionID, tr.from, tr.to, at)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sessionID)
	return updated, nil
}

func (s *sessionLifecycleService) AutoAdvance(ctx context.Context, now time.Time) (*domain.SessionAdvanceResult, error) {
	now = now.UTC()
	result := &domain.SessionAdvanceResult{Started: []string{}, Ended: []string{}}

	due, err := s.scan(ctx, now, s.sessionRepo.ListDueToStart)
	if err != nil {
		return result, fmt.Errorf("list sessions due to start: %w", err)
	}
	result.Started = s.advanceAll(ctx, due, sessionStart, now)

	due, err = s.scan(ctx, now, s.sessionRepo.ListDueToEnd)
	if err != nil {
		return result, fmt.Errorf("list sessions due to end: %w", err)
	}
	result.Ended = s.advanceAll(ctx, due, sessionEnd, now)

	return result, nil
}

func (s *sessionLifecycleService) scan(ctx context.Context, now time.Time, list func(context.Context, time.Time) ([]*domain.Session, error)) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	return list(ctx, now)
}

func (s *sessionLifecycleService) advanceAll(ctx context.Context, due []*domain.Session, tr sessionTransition, now time.Time) []string {
	moved := make([]string, 0, len(due))
	for _, sess := range due {
		if ctx.Err() != nil {
			break
		}
		updated, err := s.transition(ctx, sess.ID, tr, now)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Debug("session already moved, skipping", "session_id", sess.ID, "to", tr.to)
				continue
			}
			s.logger.Error("auto transition failed", "session_id", sess.ID, "from", tr.from, "to", tr.to, "err", err)
			continue
		}
		s.audit.record(ctx, sessionTransitionEntry(domain.SystemActorID, tr.autoAction, tr.from, updated))
		moved = append(moved, sess.ID)
	}
	return moved
}

func (s *sessionLifecycleService) ListSessions(ctx context.Context, eventID string, page domain.PaginationParams) ([]*domain.Session, int, error) {
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return nil, 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	sessions, err := s.sessionRepo.ListByEventID(ctx, eventID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	total, err := s.sessionRepo.CountByEventID(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

func (s *sessionLifecycleService) IsSessionLive(ctx context.Context, sessionID string) (*bool, error) {
	if s.liveCache != nil {
		status, found, err := s.liveCache.Get(ctx, sessionID)
		if err != nil {
			s.logger.Warn("live cache read failed", "session_id", sessionID, "err", err)
		} else if found {
			live := status == domain.SessionStatusLive
			return &live, nil
		}
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if s.liveCache != nil {
		if err := s.liveCache.Set(ctx, sessionID, session.Status); err != nil {
			s.logger.Warn("live cache write failed", "session_id", sessionID, "err", err)
		}
	}
	live := session.Status == domain.SessionStatusLive
	return &live, nil
}

func (s *sessionLifecycleService) invalidate(ctx context.Context, sessionID string) {
	if s.liveCache == nil {
		return
	}
	if err := s.liveCache.Invalidate(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logger.Warn("live cache invalidate failed", "session_id", sessionID, "err", err)
	}
}

func (s *sessionLifecycleService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
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

func (s *sessionLifecycleService) getSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func sessionCreateEntry(actorID string, session *domain.Session, source string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   domain.ActionSessionCreate,
		Entity:   domain.AuditEntitySession,
		EntityID: session.ID,
		Metadata: map[string]any{
			"event_id":   session.EventID,
			"title":      session.Title,
			"start_time": session.StartTime.Format(time.RFC3339),
			"end_time":   session.EndTime.Format(time.RFC3339),
			"source":     source,
		},
	}
}

func sessionTransitionEntry(actorID, action string, from domain.SessionStatus, session *domain.Session) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   domain.AuditEntitySession,
		EntityID: session.ID,
		Metadata: map[string]any{
			"event_id":    session.EventID,
			"title":       session.Title,
			"prev_status": string(from),
			"new_status":  string(session.Status),
		},
	}
}
