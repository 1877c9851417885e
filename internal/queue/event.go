// Package queue defines booking events exchanged over RabbitMQ together
// with the publisher used by the service and the background consumer that
// appends them to the booking log.
package queue

// Event kinds.  Each kind is delivered on its own durable queue named
// "booking.<kind>".
const (
	EventReserved  = "reserved"
	EventConfirmed = "confirmed"
	EventCancelled = "cancelled"
	EventRefunded  = "refunded"
)

// Kinds lists every event kind in publish order of a booking's lifecycle.
var Kinds = []string{EventReserved, EventConfirmed, EventCancelled, EventRefunded}

// QueueName returns the queue carrying events of the given kind.
func QueueName(kind string) string { return "booking." + kind }

// BookingEvent is published after a booking changes state.  It carries
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type BookingEvent struct {
	EventID       string   `json:"event_id"`
	Kind          string   `json:"kind"`
	BookingID     uint64   `json:"booking_id"`
	PaymentID     uint64   `json:"payment_id,omitempty"`
	UserID        uint64   `json:"user_id"`
	ShowtimeID    uint64   `json:"showtime_id"`
	BookingStatus string   `json:"booking_status"`
	PaymentStatus string   `json:"payment_status,omitempty"`
	CinemaName    string   `json:"cinema_name"`
	RoomName      string   `json:"room_name"`
	MovieTitle    string   `json:"movie_title"`
	StartsAt      string   `json:"starts_at"`
	SeatLabels    []string `json:"seats"`
	TotalAmount   string   `json:"total_amount"`
	OccurredAt    string   `json:"occurred_at"`
}
