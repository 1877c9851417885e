package repository // repository defines data access for payments

import (
	"context"       // context allows query cancellation and timeouts
	"database/sql"  // sql provides DB primitives
	"encoding/json" // seat and ticket snapshots are stored as JSON
	"fmt"           // error wrapping

	"github.com/iliyamo/cinema-ticketing/internal/model" // Payment
)

// PaymentRepo provides data access to payments.  The seat and ticket
// snapshot is stored as JSON.
type PaymentRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, user_id, showtime_id, seats, tickets, total_amount, payment_method, status,
       transaction_id, payment_date, refund_date, refund_reason`

// Create inserts the payment and populates p.ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	seats, err := json.Marshal(p.SeatIDs)
	if err != nil {
		return fmt.Errorf("marshal seats: %w", err)
	}
	tickets, err := json.Marshal(p.Tickets)
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}
	const q = `INSERT INTO payments (booking_id, user_id, showtime_id, seats, tickets, total_amount, payment_method, status, payment_date)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := pick(ctx, r.db).ExecContext(ctx, q,
		p.BookingID, p.UserID, p.ShowtimeID, seats, tickets, p.TotalAmount, p.PaymentMethod, p.Status, p.PaymentDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns the payment or model.ErrNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

// GetByIDForUpdate locks the payment row.  Concurrent settlements of the
// same payment serialize here.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? FOR UPDATE`, id)
}

func (r *PaymentRepo) get(ctx context.Context, q string, id uint64) (*model.Payment, error) {
	var (
		p            model.Payment
		bookingID    sql.NullInt64
		seats        []byte
		tickets      []byte
		txID         sql.NullString
		refundDate   sql.NullTime
		refundReason sql.NullString
	)
	err := pick(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&p.ID, &bookingID, &p.UserID, &p.ShowtimeID, &seats, &tickets, &p.TotalAmount, &p.PaymentMethod, &p.Status,
		&txID, &p.PaymentDate, &refundDate, &refundReason,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if bookingID.Valid {
		bid := uint64(bookingID.Int64)
		p.BookingID = &bid
	}
	if err := json.Unmarshal(seats, &p.SeatIDs); err != nil {
		return nil, fmt.Errorf("decode payment seats: %w", err)
	}
	if err := json.Unmarshal(tickets, &p.Tickets); err != nil {
		return nil, fmt.Errorf("decode payment tickets: %w", err)
	}
	if txID.Valid {
		p.TransactionID = &txID.String
	}
	if refundDate.Valid {
		p.RefundDate = &refundDate.Time
	}
	if refundReason.Valid {
		p.RefundReason = &refundReason.String
	}
	return &p, nil
}

// Update writes the mutable settlement fields of the payment.
func (r *PaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	const q = `UPDATE payments SET booking_id = ?, status = ?, transaction_id = ?, refund_date = ?, refund_reason = ? WHERE id = ?`
	res, err := pick(ctx, r.db).ExecContext(ctx, q, p.BookingID, p.Status, p.TransactionID, p.RefundDate, p.RefundReason, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so only a
	// missing row is an error.
	if n == 0 {
		if _, err := r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, p.ID); err != nil {
			return err
		}
	}
	return nil
}
