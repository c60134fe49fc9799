package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
)

// ErrLockTimeout marks transient lock contention. Callers may retry it;
// business-rule errors returned from the same call must not be retried.
var ErrLockTimeout = errors.New("row lock wait timed out")

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

// UniqueConstraint returns the violated constraint name, or "" when err is not a unique violation.
func UniqueConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

// IsLockTimeout reports whether err came from waiting on a row lock.
func IsLockTimeout(err error) bool {
	if errors.Is(err, ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeLockNotAvailable
}

// TxRunner runs read-modify-write units under READ COMMITTED with a bounded
// lock wait, so every FOR UPDATE inside fn fails fast instead of hanging the request.
type TxRunner struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewTxRunner(db *sqlx.DB, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{db: db, lockTimeout: lockTimeout}
}

// DB exposes the pool for non-transactional reads.
func (r *TxRunner) DB() *sqlx.DB {
	return r.db
}

// Run commits when fn returns nil and rolls back otherwise.
// Lock timeouts are reported wrapped in ErrLockTimeout.
func (r *TxRunner) Run(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		if IsLockTimeout(err) && !errors.Is(err, ErrLockTimeout) {
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
