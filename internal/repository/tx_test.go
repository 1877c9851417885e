package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

func newMock(t *testing.T) (*TxManager, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewTxManager(db, 2, 0), mock, func() { _ = db.Close() }
}

func TestWithTxCommits(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()
	bookings := NewBookingRepo(m.db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status = \?`).WithArgs("confirmed", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, m.InTx(ctx))
		return bookings.UpdateStatus(ctx, 7, model.BookingConfirmed)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		return &model.SeatConflictError{Seats: []model.SeatRef{{ID: 1, Label: "A1"}}}
	})
	assert.True(t, errors.Is(err, model.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRetriesDeadlock(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()
	bookings := NewBookingRepo(m.db)
	retries := 0
	m.OnRetry = func(int, error) { retries++ }

	deadlock := &mysql.MySQLError{Number: mysqlDeadlock, Message: "Deadlock found when trying to get lock"}
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status`).WillReturnError(deadlock)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings SET status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		return bookings.UpdateStatus(ctx, 7, model.BookingCancelled)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxGivesUpAfterMaxRetries(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()
	bookings := NewBookingRepo(m.db)

	lockWait := &mysql.MySQLError{Number: mysqlLockWaitTimeout, Message: "Lock wait timeout exceeded"}
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).WillReturnError(lockWait)
		mock.ExpectRollback()
	}

	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		return bookings.UpdateStatus(ctx, 7, model.BookingCancelled)
	})
	var me *mysql.MySQLError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, uint16(mysqlLockWaitTimeout), me.Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxDoesNotRetryConflicts(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()
	ledger := NewLedgerRepo(m.db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO showtime_booked_seats`).
		WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		return ledger.Insert(ctx, []model.LedgerEntry{{ShowtimeID: 1, SeatID: 2, BookingID: 3, State: model.LedgerHeld}})
	})
	assert.True(t, errors.Is(err, model.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNestedJoinsOuter(t *testing.T) {
	m, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := m.WithTx(context.Background(), func(ctx context.Context) error {
		return m.WithTx(ctx, func(inner context.Context) error {
			calls++
			assert.Same(t, txFromContext(ctx), txFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, m.InTx(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
