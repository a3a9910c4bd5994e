package domain

import (
	"context"
	"time"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventStateDraft           EventState = "draft"
	EventStatePendingApproval EventState = "pending_approval"
	EventStateApproved        EventState = "approved"
	EventStatePaymentDone     EventState = "payment_done"
	EventStateLive            EventState = "live"
	EventStateClosed          EventState = "closed"
)

// Valid reports whether s is a known event state.
func (s EventState) Valid() bool {
	switch s {
	case EventStateDraft, EventStatePendingApproval, EventStateApproved,
		EventStatePaymentDone, EventStateLive, EventStateClosed:
		return true
	}
	return false
}

// Slot is one entry of a schedule day, e.g. {"09:00", "10:00", "Opening Keynote"}.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label"`
}

// ScheduleDay is a human-authored day of an event schedule. DayNumber starts at 1.
type ScheduleDay struct {
	DayNumber int     `json:"day_number"`
	DateLabel *string `json:"date_label,omitempty"`
	Slots     []Slot  `json:"slots"`
}

// Event represents an exhibition event run by an organization.
// swagger:model Event
type Event struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	State        EventState    `json:"state"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	ScheduleDays []ScheduleDay `json:"schedule_days"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasStartDate reports whether the event carries a start date.
func (e *Event) HasStartDate() bool {
	return !e.StartDate.IsZero()
}

// EventAdvanceResult lists the events moved by one automatic pass.
type EventAdvanceResult struct {
	Started []string `json:"started"`
	Closed  []string `json:"closed"`
}

// Empty reports whether nothing moved.
func (r *EventAdvanceResult) Empty() bool {
	return r == nil || (len(r.Started) == 0 && len(r.Closed) == 0)
}

// EventRepository defines the storage operations the lifecycle needs for events.
// TransitionState is a conditional update: it applies only when the stored state
// still equals from, and returns ErrConflict when no row matched.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
	ListDueToStart(ctx context.Context, now time.Time) ([]*Event, error)
	ListDueToClose(ctx context.Context, now time.Time) ([]*Event, error)
	TransitionState(ctx context.Context, id string, from, to EventState) (*Event, error)
}

// EventLifecycleService advances events through payment_done -> live -> closed.
type EventLifecycleService interface {
	AutoAdvance(ctx context.Context, now time.Time) (*EventAdvanceResult, error)
	ForceStart(ctx context.Context, eventID, actorID string) (*Event, error)
	ForceClose(ctx context.Context, eventID, actorID string) (*Event, error)
}
