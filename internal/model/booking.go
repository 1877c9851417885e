package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking status values stored in bookings.status.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingRefunded  = "refunded"
)

// TicketLine is one (ticket type, quantity) pair of a booking.
type TicketLine struct {
	TicketTypeID uint64 `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// Booking groups the seats a user claimed for one showtime.  SeatIDs keeps
// the order the seats were requested in.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the booking.
//  ShowtimeID  – showtime being booked.
//  SeatIDs     – ordered seat ids (booking_seats).
//  Tickets     – ticket composition (booking_tickets).
//  PaymentID   – linked payment, nil until linked.
//  Status      – pending, confirmed, cancelled or refunded.
//  TotalAmount – sum of ticket prices.
//  BookingDate – creation timestamp.
type Booking struct {
	ID          uint64          `json:"id"`           // bookings.id
	UserID      uint64          `json:"user_id"`      // bookings.user_id
	ShowtimeID  uint64          `json:"showtime_id"`  // bookings.showtime_id
	SeatIDs     []uint64        `json:"seat_ids"`     // booking_seats.seat_id
	Tickets     []TicketLine    `json:"tickets"`      // booking_tickets
	PaymentID   *uint64         `json:"payment_id"`   // bookings.payment_id (nullable)
	Status      string          `json:"status"`       // bookings.status
	TotalAmount decimal.Decimal `json:"total_amount"` // bookings.total_amount
	BookingDate time.Time       `json:"booking_date"` // bookings.booking_date
}

// Active reports whether the booking still claims its seats.
func (b Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
