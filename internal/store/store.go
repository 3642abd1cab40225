// Package store is the Postgres-backed order store and conversation log.
package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
)

// Store is safe for concurrent use; it holds only the *sql.DB pool.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

func queryError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewStoreUnavailableError(err)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
