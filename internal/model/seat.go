package model

import "strconv"

// Seat type values stored in seats.type.
const (
	SeatTypeStandard = "standard"
	SeatTypeVIP      = "vip"
	SeatTypeCouple   = "couple"
	SeatTypeDisabled = "disabled"
)

// Seat status values stored in seats.status.  Available, reserved and
// booked are derived from the ledger; maintenance is set by operators and
// is never overwritten by ledger writes.
const (
	SeatAvailable   = "available"
	SeatReserved    = "reserved"
	SeatBooked      = "booked"
	SeatMaintenance = "maintenance"
)

// Seat describes a physical seat in a room.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room to which this seat belongs.
//  SeatNumber – printed seat label such as "A7" (may be empty).
//  Row        – row label.
//  Column     – position within the row.
//  Type       – standard, vip, couple or disabled.
//  Status     – available, reserved, booked or maintenance.
type Seat struct {
	ID         uint64 `json:"id"`          // seats.id
	RoomID     uint64 `json:"room_id"`     // seats.room_id
	SeatNumber string `json:"seat_number"` // seats.seat_number
	Row        string `json:"row"`         // seats.row_label
	Column     int    `json:"column"`      // seats.col_number
	Type       string `json:"type"`        // seats.type
	Status     string `json:"status"`      // seats.status
}

// Label returns the human readable seat name used in conflict messages.
func (s Seat) Label() string {
	if s.SeatNumber != "" {
		return s.SeatNumber
	}
	return s.Row + strconv.Itoa(s.Column)
}

// Ref returns the identifying pair of the seat.
func (s Seat) Ref() SeatRef { return SeatRef{ID: s.ID, Label: s.Label()} }

// SeatRef names a seat in error responses and events.
type SeatRef struct {
	ID    uint64 `json:"id"`
	Label string `json:"label"`
}

// SeatAvailability is the per-showtime view of a seat returned to callers
// before they create a reservation.
type SeatAvailability struct {
	SeatID     uint64 `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	Row        string `json:"row"`
	Column     int    `json:"column"`
	Type       string `json:"type"`
	Status     string `json:"status"`
}
