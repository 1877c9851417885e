package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinema-ticketing/internal/model" // Seat
)

// SeatRepo provides data access to the seats table.
type SeatRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, room_id, seat_number, row_label, col_number, type, status`

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.SeatNumber, &s.Row, &s.Column, &s.Type, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByIDs returns the seats that exist among ids, ordered by id.  Missing
// ids are simply absent from the result.
func (r *SeatRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id IN (`+inClause(len(ids))+`) ORDER BY id`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// GetByIDsForUpdate is GetByIDs with the seat rows locked until the
// transaction ends.
func (r *SeatRepo) GetByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id IN (`+inClause(len(ids))+`) ORDER BY id FOR UPDATE`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ListByRoom returns every seat of a room in row/column order.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE room_id = ? ORDER BY row_label, col_number`, roomID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// UpdateStatus sets the status of the given seats.  Seats under
// maintenance are never touched.
func (r *SeatRepo) UpdateStatus(ctx context.Context, ids []uint64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE seats SET status = ? WHERE status <> 'maintenance' AND id IN (` + inClause(len(ids)) + `)`
	_, err := pick(ctx, r.db).ExecContext(ctx, q, idArgs(ids, status)...)
	return err
}

// Delete removes the given seats.  Their ledger rows cascade.
func (r *SeatRepo) Delete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := pick(ctx, r.db).ExecContext(ctx,
		`DELETE FROM seats WHERE id IN (`+inClause(len(ids))+`)`, idArgs(ids)...)
	return err
}
