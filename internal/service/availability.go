package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// QueryAvailability returns every seat of the showtime's room with its
// status for that showtime.  It never writes.  Store failures other than a
// missing showtime degrade to an empty list.
func (s *Service) QueryAvailability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	cached, gen, ok := s.cache.Get(ctx, showtimeID)
	if ok {
		return cached, nil
	}
	st, err := s.st.Showtimes.GetByID(ctx, showtimeID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, lookupErr("showtime", showtimeID, err)
	}
	if err != nil {
		log.Printf("availability: showtime=%d lookup failed: %v", showtimeID, err)
		return []model.SeatAvailability{}, nil
	}
	seats, err := s.st.Seats.ListByRoom(ctx, st.RoomID)
	if err != nil {
		log.Printf("availability: showtime=%d seats lookup failed: %v", showtimeID, err)
		return []model.SeatAvailability{}, nil
	}
	rows, err := s.st.Ledger.ListByShowtime(ctx, showtimeID)
	if err != nil {
		log.Printf("availability: showtime=%d ledger lookup failed: %v", showtimeID, err)
		return []model.SeatAvailability{}, nil
	}
	state := make(map[uint64]string, len(rows))
	for _, r := range rows {
		state[r.SeatID] = r.State
	}
	out := make([]model.SeatAvailability, 0, len(seats))
	for _, seat := range seats {
		status := seatStatusFor(state[seat.ID])
		if seat.Status == model.SeatMaintenance {
			status = model.SeatMaintenance
		}
		out = append(out, model.SeatAvailability{
			SeatID:     seat.ID,
			SeatNumber: seat.SeatNumber,
			Row:        seat.Row,
			Column:     seat.Column,
			Type:       seat.Type,
			Status:     status,
		})
	}
	s.cache.Set(ctx, showtimeID, gen, out)
	return out, nil
}

// GetBooking returns a booking visible to the caller.
func (s *Service) GetBooking(ctx context.Context, id uint64, caller model.Caller) (*model.Booking, error) {
	b, err := s.st.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("booking", id, err)
	}
	if !caller.IsAdmin() && caller.UserID != b.UserID {
		return nil, model.ErrForbidden
	}
	return b, nil
}

// GetPayment returns a payment visible to the caller.
func (s *Service) GetPayment(ctx context.Context, id uint64, caller model.Caller) (*model.Payment, error) {
	p, err := s.st.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("payment", id, err)
	}
	if !caller.IsAdmin() && caller.UserID != p.UserID {
		return nil, fmt.Errorf("payment %d: %w", id, model.ErrForbidden)
	}
	return p, nil
}
