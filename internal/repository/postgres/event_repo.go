package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"virtualexpo/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// eventSummaryColumns are read by scans and conditional updates. schedule_days is
// only decoded by GetByID so a malformed schedule never blocks a transition.
const eventSummaryColumns = `id, title, state, start_date, end_date, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEventSummary(row rowScanner, extra ...any) (*domain.Event, error) {
	e := &domain.Event{}
	var state string
	var startNull, endNull sql.NullTime
	dest := append([]any{&e.ID, &e.Title, &state, &startNull, &endNull, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.State = domain.EventState(state)
	if !e.State.Valid() {
		return nil, fmt.Errorf("event %s: unknown state %q", e.ID, state)
	}
	if startNull.Valid {
		e.StartDate = startNull.Time.UTC()
	}
	if endNull.Valid {
		e.EndDate = endNull.Time.UTC()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT ` + eventSummaryColumns + `, schedule_days
		FROM events
		WHERE id = $1
	`
	var schedule []byte
	e, err := scanEventSummary(r.DB.QueryRowContext(ctx, query, id), &schedule)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translateReadError(err)
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &e.ScheduleDays); err != nil {
			return nil, fmt.Errorf("event %s: decode schedule_days: %w", e.ID, err)
		}
	}
	return e, nil
}

func (r *eventRepository) ListDueToStart(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventSummaryColumns + `
		FROM events
		WHERE state = $1 AND start_date <= $2
		ORDER BY start_date
	`
	return r.list(ctx, query, string(domain.EventStatePaymentDone), now.UTC())
}

func (r *eventRepository) ListDueToClose(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventSummaryColumns + `
		FROM events
		WHERE state = $1 AND end_date < $2
		ORDER BY end_date
	`
	return r.list(ctx, query, string(domain.EventStateLive), now.UTC())
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEventSummary(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) TransitionState(ctx context.Context, id string, from, to domain.EventState) (*domain.Event, error) {
	query := `
		UPDATE events
		SET state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $2
		RETURNING ` + eventSummaryColumns
	e, err := scanEventSummary(r.DB.QueryRowContext(ctx, query, id, string(from), string(to)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, translateReadError(err)
	}
	return e, nil
}
