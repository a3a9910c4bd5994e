package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"virtualexpo/internal/domain"
)

const sessionColumns = `id, event_id, title, speaker, description, start_time, end_time, status, created_at, updated_at, started_at, ended_at`

type SessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) domain.SessionRepository {
	return &SessionRepository{
		DB: db,
	}
}

func scanSession(row rowScanner) (*domain.Session, error) {
	s := &domain.Session{}
	var status string
	var descNull sql.NullString
	var startedNull, endedNull sql.NullTime
	err := row.Scan(&s.ID, &s.EventID, &s.Title, &s.Speaker, &descNull, &s.StartTime, &s.EndTime,
		&status, &s.CreatedAt, &s.UpdatedAt, &startedNull, &endedNull)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	if !s.Status.Valid() {
		return nil, fmt.Errorf("session %s: unknown status %q", s.ID, status)
	}
	if descNull.Valid {
		s.Description = descNull.String
	}
	if startedNull.Valid {
		t := startedNull.Time.UTC()
		s.StartedAt = &t
	}
	if endedNull.Valid {
		t := endedNull.Time.UTC()
		s.EndedAt = &t
	}
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO event_sessions (event_id, title, speaker, description, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, s.EventID, s.Title, s.Speaker, nullableString(s.Description),
		s.StartTime.UTC(), s.EndTime.UTC(), string(s.Status), s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		return translateWriteError(err)
	}
	return nil
}

// CreateIfAbsent inserts s unless the event already has a session starting at the
// same time. Concurrent imports for one event are serialized on an advisory lock
// keyed by the event id, so the existence check and the insert see the same rows.
func (r *SessionRepository) CreateIfAbsent(ctx context.Context, s *domain.Session) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.EventID); err != nil {
		return false, fmt.Errorf("lock event sessions: %w", err)
	}

	query := `
		INSERT INTO event_sessions (event_id, title, speaker, description, start_time, end_time, status, created_at, updated_at)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::timestamptz, $6::timestamptz, $7::text, $8::timestamptz, $9::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM event_sessions WHERE event_id = $1::uuid AND start_time = $5::timestamptz
		)
		RETURNING id
	`
	var id string
	err = tx.QueryRowContext(ctx, query, s.EventID, s.Title, s.Speaker, nullableString(s.Description),
		s.StartTime.UTC(), s.EndTime.UTC(), string(s.Status), s.CreatedAt, s.UpdatedAt).Scan(&id)
	inserted := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return false, translateWriteError(err)
		}
		inserted = false
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	if inserted {
		s.ID = id
	}
	return inserted, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM event_sessions
		WHERE id = $1
	`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, translateReadError(err)
	}
	return s, nil
}

func (r *SessionRepository) ListByEventID(ctx context.Context, eventID string, page domain.PaginationParams) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM event_sessions
		WHERE event_id = $1
		ORDER BY start_time, id
	`
	args := []any{eventID}
	if !page.Unbounded() {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, page.PageSize, page.Offset())
	}
	sessions, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, translateReadError(err)
	}
	return sessions, nil
}

func (r *SessionRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_sessions WHERE event_id = $1`, eventID).Scan(&n); err != nil {
		return 0, translateReadError(err)
	}
	return n, nil
}

func (r *SessionRepository) ListDueToStart(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM event_sessions
		WHERE status = $1 AND start_time <= $2
		ORDER BY start_time
	`
	return r.list(ctx, query, string(domain.SessionStatusScheduled), now.UTC())
}

func (r *SessionRepository) ListDueToEnd(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM event_sessions
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time
	`
	return r.list(ctx, query, string(domain.SessionStatusLive), now.UTC())
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Session, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) TransitionStatus(ctx context.Context, id string, from, to domain.SessionStatus, at time.Time) (*domain.Session, error) {
	var stampColumn string
	switch to {
	case domain.SessionStatusLive:
		stampColumn = "started_at"
	case domain.SessionStatusEnded:
		stampColumn = "ended_at"
	default:
		return nil, fmt.Errorf("%w: cannot transition session to %q", domain.ErrInvalidState, to)
	}
	query := fmt.Sprintf(`
		UPDATE event_sessions
		SET status = $3, updated_at = $4, %s = $4
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, stampColumn, sessionColumns)
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id, string(from), string(to), at.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, translateReadError(err)
	}
	return s, nil
}
