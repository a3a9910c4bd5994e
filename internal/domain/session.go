package domain

import (
	"context"
	"time"
)

// SessionStatus is the lifecycle status of a conference session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusEnded     SessionStatus = "ended"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusLive, SessionStatusEnded:
		return true
	}
	return false
}

// SessionGraceWindow is the tolerance applied around the parent event dates when
// validating session times. It absorbs timezone skew between client and server.
const SessionGraceWindow = 24 * time.Hour

// Session represents a conference session held during an event.
// swagger:model Session
type Session struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event_id"`
	Title       string        `json:"title"`
	Speaker     string        `json:"speaker"`
	Description string        `json:"description"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	StartedAt   *time.Time    `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at"`
}

// NewSession returns a scheduled Session. ID is typically set by the repository on create.
func NewSession(eventID, title, speaker, description string, startTime, endTime, createdAt time.Time) *Session {
	return &Session{
		EventID:     eventID,
		Title:       title,
		Speaker:     speaker,
		Description: description,
		StartTime:   startTime.UTC(),
		EndTime:     endTime.UTC(),
		Status:      SessionStatusScheduled,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// CreateSessionInput carries the admin-authored fields of a new session.
type CreateSessionInput struct {
	Title       string
	Speaker     string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

// SessionAdvanceResult lists the sessions moved by one automatic pass.
type SessionAdvanceResult struct {
	Started []string `json:"started"`
	Ended   []string `json:"ended"`
}

// Empty reports whether nothing moved.
func (r *SessionAdvanceResult) Empty() bool {
	return r == nil || (len(r.Started) == 0 && len(r.Ended) == 0)
}

// SessionRepository defines the storage operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// CreateIfAbsent inserts session unless one with the same event ID and start
	// time already exists. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, session *Session) (bool, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	ListByEventID(ctx context.Context, eventID string, page PaginationParams) ([]*Session, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	ListDueToStart(ctx context.Context, now time.Time) ([]*Session, error)
	ListDueToEnd(ctx context.Context, now time.Time) ([]*Session, error)
	// TransitionStatus moves a session from one status to another, stamping
	// started_at or ended_at with at. It returns ErrConflict when no row matched.
	TransitionStatus(ctx context.Context, id string, from, to SessionStatus, at time.Time) (*Session, error)
}

// LiveSessionCache caches the answer of the live-session transport guard.
// It is never the source of truth for lifecycle preconditions.
type LiveSessionCache interface {
	Get(ctx context.Context, sessionID string) (status SessionStatus, found bool, err error)
	Set(ctx context.Context, sessionID string, status SessionStatus) error
	Invalidate(ctx context.Context, sessionID string) error
}

// SessionLifecycleService manages conference sessions and their scheduled -> live -> ended lifecycle.
type SessionLifecycleService interface {
	Create(ctx context.Context, eventID string, in CreateSessionInput, actorID string) (*Session, error)
	StartSession(ctx context.Context, sessionID, actorID string) (*Session, error)
	EndSession(ctx context.Context, sessionID, actorID string) (*Session, error)
	AutoAdvance(ctx context.Context, now time.Time) (*SessionAdvanceResult, error)
	SyncFromSchedule(ctx context.Context, eventID, actorID string) ([]*Session, error)
	ListSessions(ctx context.Context, eventID string, page PaginationParams) ([]*Session, int, error)
	// IsSessionLive returns nil when sessionID is not a known session.
	IsSessionLive(ctx context.Context, sessionID string) (*bool, error)
}
