package repository // repository defines data access for the seat ledger

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"          // wrapping duplicate-key conflicts

	"github.com/iliyamo/cinema-ticketing/internal/model" // LedgerEntry
)

// LedgerRepo stores the per-showtime seat ledger (showtime_booked_seats).
// The (showtime_id, seat_id) primary key rejects a second claim on a seat.
type LedgerRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewLedgerRepo returns a LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

func scanLedger(rows *sql.Rows) ([]model.LedgerEntry, error) {
	defer rows.Close()
	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ShowtimeID, &e.SeatID, &e.BookingID, &e.State); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByShowtime returns every ledger row of a showtime.
func (r *LedgerRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.LedgerEntry, error) {
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT showtime_id, seat_id, booking_id, state FROM showtime_booked_seats WHERE showtime_id = ? ORDER BY seat_id`,
		showtimeID)
	if err != nil {
		return nil, err
	}
	return scanLedger(rows)
}

// ListByShowtimeSeats returns and locks the ledger rows of the given seats
// for one showtime.
func (r *LedgerRepo) ListByShowtimeSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.LedgerEntry, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT showtime_id, seat_id, booking_id, state FROM showtime_booked_seats
          WHERE showtime_id = ? AND seat_id IN (` + inClause(len(seatIDs)) + `) ORDER BY seat_id FOR UPDATE`
	rows, err := pick(ctx, r.db).QueryContext(ctx, q, idArgs(seatIDs, showtimeID)...)
	if err != nil {
		return nil, err
	}
	return scanLedger(rows)
}

// ListBySeats returns the ledger rows of the given seats across all
// showtimes.  With scheduledOnly set, rows of cancelled or completed
// showtimes are skipped.
func (r *LedgerRepo) ListBySeats(ctx context.Context, seatIDs []uint64, scheduledOnly bool) ([]model.LedgerEntry, error) {
	return r.listBySeats(ctx, seatIDs, scheduledOnly, "")
}

// ListBySeatsForShare reads the scheduled-showtime ledger rows of the given
// seats with a shared lock, so the result reflects the latest committed
// rows rather than the transaction snapshot.
func (r *LedgerRepo) ListBySeatsForShare(ctx context.Context, seatIDs []uint64) ([]model.LedgerEntry, error) {
	return r.listBySeats(ctx, seatIDs, true, ` FOR SHARE OF l`)
}

func (r *LedgerRepo) listBySeats(ctx context.Context, seatIDs []uint64, scheduledOnly bool, lock string) ([]model.LedgerEntry, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT l.showtime_id, l.seat_id, l.booking_id, l.state
          FROM showtime_booked_seats l
          JOIN showtimes s ON s.id = l.showtime_id
          WHERE l.seat_id IN (` + inClause(len(seatIDs)) + `)`
	if scheduledOnly {
		q += ` AND s.status = 'scheduled'`
	}
	q += ` ORDER BY l.showtime_id, l.seat_id` + lock
	rows, err := pick(ctx, r.db).QueryContext(ctx, q, idArgs(seatIDs)...)
	if err != nil {
		return nil, err
	}
	return scanLedger(rows)
}

// Insert adds ledger rows in one statement.  A row that already exists
// makes the whole insert fail with model.ErrConflict.
func (r *LedgerRepo) Insert(ctx context.Context, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	q := `INSERT INTO showtime_booked_seats (showtime_id, seat_id, booking_id, state) VALUES `
	args := make([]any, 0, len(entries)*4)
	for i, e := range entries {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, ?)"
		args = append(args, e.ShowtimeID, e.SeatID, e.BookingID, e.State)
	}
	if _, err := pick(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("ledger insert: %w", model.ErrConflict)
		}
		return err
	}
	return nil
}

// SetState changes the state of the given seats' rows for one showtime.
func (r *LedgerRepo) SetState(ctx context.Context, showtimeID uint64, seatIDs []uint64, state string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	q := `UPDATE showtime_booked_seats SET state = ? WHERE showtime_id = ? AND seat_id IN (` + inClause(len(seatIDs)) + `)`
	_, err := pick(ctx, r.db).ExecContext(ctx, q, idArgs(seatIDs, state, showtimeID)...)
	return err
}

// Delete removes the given seats' rows for one showtime and reports how
// many rows were removed.  Absent seats are ignored.
func (r *LedgerRepo) Delete(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `DELETE FROM showtime_booked_seats WHERE showtime_id = ? AND seat_id IN (` + inClause(len(seatIDs)) + `)`
	res, err := pick(ctx, r.db).ExecContext(ctx, q, idArgs(seatIDs, showtimeID)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
