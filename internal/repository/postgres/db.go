package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"virtualexpo/internal/domain"
)

// PoolConfig tunes the shared connection pool used by the ticker and request handlers.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Postgres error codes mapped onto domain errors.
const (
	pqForeignKeyViolation       = "23503"
	pqCheckViolation            = "23514"
	pqInvalidTextRepresentation = "22P02"
)

// translateReadError reports ids that cannot be cast to uuid as missing rows.
func translateReadError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Message)
	}
	return err
}

// translateWriteError maps constraint violations on insert to domain errors.
func translateWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Message)
	case pqCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, pqErr.Message)
	case pqInvalidTextRepresentation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Message)
	}
	return err
}
