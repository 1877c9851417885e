package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// ReserveRequest describes a booking request for one showtime.
type ReserveRequest struct {
	ShowtimeID    uint64
	UserID        uint64
	SeatIDs       []uint64
	Tickets       []model.TicketLine
	PaymentMethod string
}

// ReserveResult is the pending booking and payment created by Reserve.
type ReserveResult struct {
	Booking *model.Booking `json:"booking"`
	Payment *model.Payment `json:"payment"`
}

// Reserve atomically creates a pending booking and payment and holds the
// requested seats.  Any failure leaves the store untouched.  Seat
// conflicts are returned as *model.SeatConflictError and are never retried.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	if err := validateReserve(req); err != nil {
		s.metrics.ReservationRejected(reason(err))
		return nil, err
	}

	var (
		res ReserveResult
		ev  queue.BookingEvent
	)
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		res = ReserveResult{}
		if _, err := s.st.Users.GetByID(ctx, req.UserID); err != nil {
			return lookupErr("user", req.UserID, err)
		}
		st, err := s.st.Showtimes.GetByIDForUpdate(ctx, req.ShowtimeID)
		if err != nil {
			return lookupErr("showtime", req.ShowtimeID, err)
		}
		if !st.Bookable() {
			return fmt.Errorf("showtime %d is %s: %w", st.ID, st.Status, model.ErrShowtimeClosed)
		}
		seats, err := s.loadRoomSeats(ctx, st.RoomID, req.SeatIDs)
		if err != nil {
			return err
		}
		total, err := s.priceTickets(ctx, req.Tickets)
		if err != nil {
			return err
		}
		taken, err := s.st.Ledger.ListByShowtimeSeats(ctx, st.ID, req.SeatIDs)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		if len(taken) > 0 {
			return conflictFor(seats, entrySeatIDs(taken))
		}

		now := s.clock.Now()
		b := &model.Booking{
			UserID:      req.UserID,
			ShowtimeID:  st.ID,
			SeatIDs:     append([]uint64(nil), req.SeatIDs...),
			Tickets:     append([]model.TicketLine(nil), req.Tickets...),
			Status:      model.BookingPending,
			TotalAmount: total,
			BookingDate: now,
		}
		if err := s.st.Bookings.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		bookingID := b.ID
		p := &model.Payment{
			BookingID:     &bookingID,
			UserID:        req.UserID,
			ShowtimeID:    st.ID,
			SeatIDs:       append([]uint64(nil), req.SeatIDs...),
			Tickets:       append([]model.TicketLine(nil), req.Tickets...),
			TotalAmount:   total,
			PaymentMethod: req.PaymentMethod,
			Status:        model.PaymentPending,
			PaymentDate:   now,
		}
		if err := s.st.Payments.Create(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := s.st.Bookings.SetPayment(ctx, b.ID, p.ID); err != nil {
			return fmt.Errorf("link payment: %w", err)
		}
		paymentID := p.ID
		b.PaymentID = &paymentID

		if err := s.hold(ctx, st.ID, b.ID, seats); err != nil {
			return err
		}
		res.Booking, res.Payment = b, p
		ev = s.bookingEvent(ctx, queue.EventReserved, b, p, seats)
		return nil
	})
	if err != nil {
		var sc *model.SeatConflictError
		if errors.As(err, &sc) {
			s.metrics.SeatConflict()
		}
		s.metrics.ReservationRejected(reason(err))
		logInternal(fmt.Sprintf("reservation: showtime=%d user=%d", req.ShowtimeID, req.UserID), err)
		return nil, err
	}
	s.metrics.ReservationCreated(len(req.SeatIDs))
	s.afterCommit(ctx, []uint64{req.ShowtimeID}, ev)
	return &res, nil
}

// validateReserve checks the request shape before any store access.
func validateReserve(req ReserveRequest) error {
	if req.ShowtimeID == 0 {
		return fmt.Errorf("%w: showtime id is required", model.ErrInvalidInput)
	}
	if req.UserID == 0 {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if len(req.SeatIDs) == 0 {
		return fmt.Errorf("%w: at least one seat is required", model.ErrInvalidInput)
	}
	seen := make(map[uint64]bool, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if id == 0 {
			return fmt.Errorf("%w: seat id must be positive", model.ErrInvalidInput)
		}
		if seen[id] {
			return fmt.Errorf("%w: seat %d requested twice", model.ErrInvalidInput, id)
		}
		seen[id] = true
	}
	if len(req.Tickets) == 0 {
		return fmt.Errorf("%w: at least one ticket is required", model.ErrInvalidInput)
	}
	types := make(map[uint64]bool, len(req.Tickets))
	sum := 0
	for _, t := range req.Tickets {
		if t.TicketTypeID == 0 || t.Quantity <= 0 {
			return fmt.Errorf("%w: ticket quantities must be positive", model.ErrInvalidInput)
		}
		if types[t.TicketTypeID] {
			return fmt.Errorf("%w: duplicate ticket type %d", model.ErrConflict, t.TicketTypeID)
		}
		types[t.TicketTypeID] = true
		if t.Quantity > len(req.SeatIDs)-sum {
			return fmt.Errorf("%w: more tickets than seats", model.ErrInvalidInput)
		}
		sum += t.Quantity
	}
	if sum != len(req.SeatIDs) {
		return fmt.Errorf("%w: %d tickets for %d seats", model.ErrInvalidInput, sum, len(req.SeatIDs))
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return fmt.Errorf("%w: unsupported payment method %q", model.ErrInvalidInput, req.PaymentMethod)
	}
	return nil
}

// loadRoomSeats returns the requested seats in request order after checking
// that each exists, belongs to roomID and is not under maintenance.
func (s *Service) loadRoomSeats(ctx context.Context, roomID uint64, ids []uint64) ([]model.Seat, error) {
	found, err := s.st.Seats.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	byID := make(map[uint64]model.Seat, len(found))
	for _, seat := range found {
		byID[seat.ID] = seat
	}
	var missing, maintenance []uint64
	seats := make([]model.Seat, 0, len(ids))
	for _, id := range ids {
		seat, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if seat.RoomID != roomID {
			return nil, fmt.Errorf("%w: seat %s is not in room %d", model.ErrInvalidInput, seat.Label(), roomID)
		}
		if seat.Status == model.SeatMaintenance {
			maintenance = append(maintenance, id)
		}
		seats = append(seats, seat)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: seats %v", model.ErrNotFound, missing)
	}
	if len(maintenance) > 0 {
		return nil, conflictFor(seats, maintenance)
	}
	return seats, nil
}

// priceTickets sums price × quantity over the requested ticket lines.
func (s *Service) priceTickets(ctx context.Context, lines []model.TicketLine) (decimal.Decimal, error) {
	ids := make([]uint64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.TicketTypeID)
	}
	types, err := s.st.TicketTypes.GetByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load ticket types: %w", err)
	}
	price := make(map[uint64]decimal.Decimal, len(types))
	for _, t := range types {
		price[t.ID] = t.Price
	}
	total := decimal.Zero
	for _, l := range lines {
		p, ok := price[l.TicketTypeID]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: ticket type %d", model.ErrNotFound, l.TicketTypeID)
		}
		total = total.Add(p.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total, nil
}

// lookupErr annotates a failed lookup, keeping ErrNotFound matchable.
func lookupErr(kind string, id uint64, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, model.ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", kind, id, err)
}
