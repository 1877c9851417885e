package repository // repository defines data access for showtimes

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"          // error wrapping

	"github.com/iliyamo/cinema-ticketing/internal/model" // Showtime, ShowtimeDetail
)

// ShowtimeRepo provides data access to showtimes.  Loaded showtimes carry
// BookedSeats read from the ledger in the same transaction.
type ShowtimeRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewShowtimeRepo returns a ShowtimeRepo bound to the given database.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, movie_id, room_id, cinema_id, show_date, start_time, end_time, status`

func scanShowtime(row interface{ Scan(...any) error }) (*model.Showtime, error) {
	var s model.Showtime
	if err := row.Scan(&s.ID, &s.MovieID, &s.RoomID, &s.CinemaID, &s.Date, &s.StartTime, &s.EndTime, &s.Status); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns the showtime or model.ErrNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return r.get(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ?`, id)
}

// GetByIDForUpdate locks the showtime row until the surrounding transaction
// ends.  Reservations and deletions for the same showtime serialize here.
func (r *ShowtimeRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Showtime, error) {
	return r.get(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ? FOR UPDATE`, id)
}

func (r *ShowtimeRepo) get(ctx context.Context, q string, id uint64) (*model.Showtime, error) {
	db := pick(ctx, r.db)
	s, err := scanShowtime(db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	seats, err := bookedSeatIDs(ctx, db, id)
	if err != nil {
		return nil, fmt.Errorf("load booked seats: %w", err)
	}
	s.BookedSeats = seats
	return s, nil
}

func bookedSeatIDs(ctx context.Context, db querier, showtimeID uint64) ([]uint64, error) {
	rows, err := db.QueryContext(ctx, `SELECT seat_id FROM showtime_booked_seats WHERE showtime_id = ? ORDER BY seat_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetDetail returns the showtime joined with its movie, room and cinema
// names.
func (r *ShowtimeRepo) GetDetail(ctx context.Context, id uint64) (*model.ShowtimeDetail, error) {
	const q = `SELECT s.id, s.movie_id, s.room_id, s.cinema_id, s.show_date, s.start_time, s.end_time, s.status,
                      m.title, rm.name, c.name
               FROM showtimes s
               JOIN movies m ON m.id = s.movie_id
               JOIN rooms rm ON rm.id = s.room_id
               JOIN cinemas c ON c.id = s.cinema_id
               WHERE s.id = ?`
	var d model.ShowtimeDetail
	err := pick(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.MovieID, &d.RoomID, &d.CinemaID, &d.Date, &d.StartTime, &d.EndTime, &d.Status,
		&d.MovieTitle, &d.RoomName, &d.CinemaName,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// ListByRoom returns the showtimes screened in a room, ordered by start.
// BookedSeats is left empty.
func (r *ShowtimeRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Showtime, error) {
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT `+showtimeColumns+` FROM showtimes WHERE room_id = ? ORDER BY start_time`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Showtime
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Delete removes the showtime.  Bookings and ledger rows cascade.
func (r *ShowtimeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := pick(ctx, r.db).ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
