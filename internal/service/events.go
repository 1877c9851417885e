package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// bookingEvent builds the event published after commit.  Names and seat
// labels are looked up best effort; a failed lookup only leaves fields
// empty.
func (s *Service) bookingEvent(ctx context.Context, kind string, b *model.Booking, p *model.Payment, seats []model.Seat) queue.BookingEvent {
	ev := queue.BookingEvent{
		EventID:       uuid.New().String(),
		Kind:          kind,
		BookingID:     b.ID,
		UserID:        b.UserID,
		ShowtimeID:    b.ShowtimeID,
		BookingStatus: b.Status,
		TotalAmount:   b.TotalAmount.StringFixed(2),
		OccurredAt:    s.clock.Now().Format(time.RFC3339),
	}
	if p != nil {
		ev.PaymentID = p.ID
		ev.PaymentStatus = p.Status
	}
	if d, err := s.st.Showtimes.GetDetail(ctx, b.ShowtimeID); err == nil {
		ev.MovieTitle = d.MovieTitle
		ev.RoomName = d.RoomName
		ev.CinemaName = d.CinemaName
		ev.StartsAt = d.StartTime.UTC().Format(time.RFC3339)
	} else {
		log.Printf("events: showtime=%d detail lookup failed: %v", b.ShowtimeID, err)
	}
	if seats == nil {
		var err error
		if seats, err = s.st.Seats.GetByIDs(ctx, b.SeatIDs); err != nil {
			log.Printf("events: booking=%d seat lookup failed: %v", b.ID, err)
		}
	}
	byID := make(map[uint64]model.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	ev.SeatLabels = make([]string, 0, len(b.SeatIDs))
	for _, id := range b.SeatIDs {
		if seat, ok := byID[id]; ok {
			ev.SeatLabels = append(ev.SeatLabels, seat.Label())
		}
	}
	return ev
}
