// Package repository implements the MySQL stores behind the reservation
// service.  Every store runs on the transaction carried in the context when
// one is present and on the pool otherwise.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

type txKey struct{}

// TxManager runs units of work.  The active *sql.Tx travels in the context
// so repositories join it without extra parameters.
type TxManager struct {
	db         *sql.DB       // connection pool
	maxRetries int           // extra attempts after a deadlock or lock wait timeout
	backoff    time.Duration // multiplied by the attempt number
	// OnRetry is called before each retried attempt.  May be nil.
	OnRetry func(attempt int, err error)
}

// NewTxManager returns a TxManager that retries deadlocks and lock wait
// timeouts up to maxRetries times, sleeping attempt*backoff in between.
func NewTxManager(db *sql.DB, maxRetries int, backoff time.Duration) *TxManager {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxManager{db: db, maxRetries: maxRetries, backoff: backoff}
}

// WithTx executes fn inside a transaction and commits or rolls back exactly
// once.  When ctx already carries a transaction fn joins it.  Only
// transient lock errors are retried; every other error, including seat
// conflicts, is returned after rollback.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = m.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= m.maxRetries {
			return err
		}
		if m.OnRetry != nil {
			m.OnRetry(attempt+1, err)
		}
		log.Printf("tx: retrying after transient error (attempt %d): %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * m.backoff):
		}
	}
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// InTx reports whether ctx carries an open transaction.
func (m *TxManager) InTx(ctx context.Context) bool { return txFromContext(ctx) != nil }

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// notFound maps sql.ErrNoRows to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
