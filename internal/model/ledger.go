package model

// Ledger states stored in showtime_booked_seats.state.
const (
	LedgerHeld = "held"
	LedgerSold = "sold"
)

// LedgerEntry records that a seat is claimed for a showtime by a booking.
// At most one entry exists per (ShowtimeID, SeatID).
type LedgerEntry struct {
	ShowtimeID uint64 // showtime_booked_seats.showtime_id
	SeatID     uint64 // showtime_booked_seats.seat_id
	BookingID  uint64 // showtime_booked_seats.booking_id
	State      string // showtime_booked_seats.state
}
