package model

import "time"

// Showtime status values stored in showtimes.status.
const (
	ShowtimeScheduled = "scheduled"
	ShowtimeCancelled = "cancelled"
	ShowtimeCompleted = "completed"
)

// Showtime is a scheduled screening of a movie in a room.  BookedSeats is
// not a column: it is materialised from the showtime_booked_seats ledger
// and lists every seat currently held or sold for the showtime.
//
// Fields:
//  ID          – primary key identifier.
//  MovieID     – movie being screened.
//  RoomID      – room where the screening takes place.
//  CinemaID    – cinema containing the room.
//  Date        – business day of the screening.
//  StartTime   – when the screening begins.
//  EndTime     – when the screening ends.
//  Status      – scheduled, cancelled or completed.
//  BookedSeats – seat ids present in the ledger.
type Showtime struct {
	ID          uint64    `json:"id"`           // showtimes.id
	MovieID     uint64    `json:"movie_id"`     // showtimes.movie_id
	RoomID      uint64    `json:"room_id"`      // showtimes.room_id
	CinemaID    uint64    `json:"cinema_id"`    // showtimes.cinema_id
	Date        time.Time `json:"date"`         // showtimes.show_date
	StartTime   time.Time `json:"start_time"`   // showtimes.start_time
	EndTime     time.Time `json:"end_time"`     // showtimes.end_time
	Status      string    `json:"status"`       // showtimes.status
	BookedSeats []uint64  `json:"booked_seats"` // showtime_booked_seats.seat_id
}

// Bookable reports whether new reservations may be placed.
func (s Showtime) Bookable() bool { return s.Status == ShowtimeScheduled }

// ShowtimeDetail joins a showtime with the names used in booking events.
type ShowtimeDetail struct {
	Showtime
	MovieTitle string `json:"movie_title"`
	RoomName   string `json:"room_name"`
	CinemaName string `json:"cinema_name"`
}
