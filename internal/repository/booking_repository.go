package repository // repository defines data access for bookings

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"          // error wrapping

	"github.com/iliyamo/cinema-ticketing/internal/model" // Booking, TicketLine
)

// BookingRepo provides data access to bookings and their seat and ticket
// lines (booking_seats, booking_tickets).
type BookingRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, showtime_id, payment_id, status, total_amount, booking_date`

// Create inserts the booking together with its seats and tickets and
// populates b.ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	db := pick(ctx, r.db)
	res, err := db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, showtime_id, payment_id, status, total_amount, booking_date) VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.ShowtimeID, b.PaymentID, b.Status, b.TotalAmount, b.BookingDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.SeatIDs) > 0 {
		q := `INSERT INTO booking_seats (booking_id, seat_id, position) VALUES `
		args := make([]any, 0, len(b.SeatIDs)*3)
		for i, sid := range b.SeatIDs {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, b.ID, sid, i)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert booking seats: %w", err)
		}
	}
	if len(b.Tickets) > 0 {
		q := `INSERT INTO booking_tickets (booking_id, ticket_type_id, quantity) VALUES `
		args := make([]any, 0, len(b.Tickets)*3)
		for i, t := range b.Tickets {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, b.ID, t.TicketTypeID, t.Quantity)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert booking tickets: %w", err)
		}
	}
	return nil
}

// GetByID returns the booking with its seats and tickets.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// GetByIDForUpdate is GetByID with a row lock on the booking.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
}

// FindByPayment returns the booking whose payment_id references the
// payment.  Used to reconcile a payment whose booking reference is stale.
func (r *BookingRepo) FindByPayment(ctx context.Context, paymentID uint64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_id = ? ORDER BY id LIMIT 1 FOR UPDATE`, paymentID)
}

// ListActiveByShowtime returns the pending and confirmed bookings of a
// showtime.
func (r *BookingRepo) ListActiveByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error) {
	db := pick(ctx, r.db)
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE showtime_id = ? AND status IN ('pending','confirmed') ORDER BY id`,
		showtimeID)
	if err != nil {
		return nil, err
	}
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := loadLines(ctx, db, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetPayment links the booking to its payment.
func (r *BookingRepo) SetPayment(ctx context.Context, bookingID, paymentID uint64) error {
	res, err := pick(ctx, r.db).ExecContext(ctx, `UPDATE bookings SET payment_id = ? WHERE id = ?`, paymentID, bookingID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// UpdateStatus sets the booking status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := pick(ctx, r.db).ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	return err
}

// Delete removes the booking.  Lines cascade and payments.booking_id is
// set to NULL.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := pick(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var (
		b         model.Booking
		paymentID sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &paymentID, &b.Status, &b.TotalAmount, &b.BookingDate); err != nil {
		return nil, err
	}
	if paymentID.Valid {
		pid := uint64(paymentID.Int64)
		b.PaymentID = &pid
	}
	return &b, nil
}

func (r *BookingRepo) getOne(ctx context.Context, q string, arg uint64) (*model.Booking, error) {
	db := pick(ctx, r.db)
	b, err := scanBooking(db.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, notFound(err)
	}
	if err := loadLines(ctx, db, b); err != nil {
		return nil, err
	}
	return b, nil
}

func loadLines(ctx context.Context, db querier, b *model.Booking) error {
	rows, err := db.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking seats: %w", err)
	}
	b.SeatIDs = []uint64{}
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return err
		}
		b.SeatIDs = append(b.SeatIDs, sid)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	rows, err = db.QueryContext(ctx, `SELECT ticket_type_id, quantity FROM booking_tickets WHERE booking_id = ? ORDER BY ticket_type_id`, b.ID)
	if err != nil {
		return fmt.Errorf("load booking tickets: %w", err)
	}
	defer rows.Close()
	b.Tickets = []model.TicketLine{}
	for rows.Next() {
		var t model.TicketLine
		if err := rows.Scan(&t.TicketTypeID, &t.Quantity); err != nil {
			return err
		}
		b.Tickets = append(b.Tickets, t)
	}
	return rows.Err()
}
