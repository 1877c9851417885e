package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// SettleRequest resolves a payment to a terminal outcome.
type SettleRequest struct {
	PaymentID    uint64
	Outcome      string
	RefundReason string
	Caller       model.Caller
}

// SettleResult is the state after settlement.  Changed is false when the
// payment already had the requested status.  BookingMissing reports that
// no booking could be located for the payment; the payment update still
// committed.
type SettleResult struct {
	Payment        *model.Payment  `json:"payment"`
	Booking        *model.Booking  `json:"booking"`
	Showtime       *model.Showtime `json:"showtime"`
	Changed        bool            `json:"changed"`
	BookingMissing bool            `json:"booking_missing"`
}

// transitions lists the allowed payment status changes.
var transitions = map[string]map[string]bool{
	model.PaymentPending: {
		model.PaymentCompleted: true,
		model.PaymentFailed:    true,
		model.PaymentRefunded:  true,
	},
	model.PaymentCompleted: {
		model.PaymentRefunded: true,
	},
}

// Settle moves a payment to outcome and drives its booking and the seat
// ledger to the matching end state in one transaction.  Repeating a
// settlement with the current status is a no-op.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if !model.ValidSettlementOutcome(req.Outcome) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, req.Outcome)
	}

	var (
		res      *SettleResult
		evs      []queue.BookingEvent
		released int64
	)
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		res, evs, released = &SettleResult{}, nil, 0
		p, err := s.st.Payments.GetByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return lookupErr("payment", req.PaymentID, err)
		}
		if !req.Caller.IsAdmin() && req.Caller.UserID != p.UserID {
			return model.ErrForbidden
		}
		res.Payment = p

		if p.Status == req.Outcome {
			res.Booking = s.linkedBooking(ctx, p)
			res.BookingMissing = res.Booking == nil
			res.Showtime, err = s.currentShowtime(ctx, p.ShowtimeID)
			return err
		}
		if !transitions[p.Status][req.Outcome] {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, p.Status, req.Outcome)
		}
		if p.Status == model.PaymentPending && req.Outcome == model.PaymentRefunded && !req.Caller.IsAdmin() {
			return fmt.Errorf("refund of a pending payment requires an administrator: %w", model.ErrForbidden)
		}

		b, err := s.reconcileBooking(ctx, p)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		p.Status = req.Outcome
		switch req.Outcome {
		case model.PaymentCompleted:
			txID := uuid.New().String()
			p.TransactionID = &txID
		case model.PaymentRefunded:
			p.RefundDate = &now
			if req.RefundReason != "" {
				reason := req.RefundReason
				p.RefundReason = &reason
			}
		}

		if b != nil {
			n, err := s.applyOutcome(ctx, b, req.Outcome)
			if err != nil {
				return err
			}
			released = n
			evs = append(evs, s.bookingEvent(ctx, eventKindFor(req.Outcome), b, p, nil))
		} else {
			log.Printf("settlement: payment=%d has no booking; committing status %s without ledger changes", p.ID, p.Status)
		}
		if err := s.st.Payments.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		res.Booking = b
		res.BookingMissing = b == nil
		res.Changed = true
		res.Showtime, err = s.currentShowtime(ctx, p.ShowtimeID)
		return err
	})
	if err != nil {
		var sc *model.SeatConflictError
		if errors.As(err, &sc) {
			s.metrics.SeatConflict()
		}
		logInternal(fmt.Sprintf("settlement: payment=%d outcome=%s", req.PaymentID, req.Outcome), err)
		return nil, err
	}
	if res.Changed {
		s.metrics.PaymentSettled(req.Outcome)
		s.metrics.SeatsReleased(released)
		s.afterCommit(ctx, []uint64{res.Payment.ShowtimeID}, evs...)
	}
	return res, nil
}

// reconcileBooking locates the booking of p.  When the direct reference is
// missing or stale it falls back to the booking that references p and
// relinks the payment.  A nil booking with a nil error means none exists.
func (s *Service) reconcileBooking(ctx context.Context, p *model.Payment) (*model.Booking, error) {
	if p.BookingID != nil {
		b, err := s.st.Bookings.GetByIDForUpdate(ctx, *p.BookingID)
		switch {
		case err == nil && (b.PaymentID == nil || *b.PaymentID == p.ID):
			return b, nil
		case err != nil && !errors.Is(err, model.ErrNotFound):
			return nil, fmt.Errorf("load booking: %w", err)
		}
	}
	b, err := s.st.Bookings.FindByPayment(ctx, p.ID)
	if errors.Is(err, model.ErrNotFound) {
		log.Printf("settlement: payment=%d booking reference is dangling", p.ID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by payment: %w", err)
	}
	log.Printf("settlement: payment=%d relinked to booking=%d", p.ID, b.ID)
	id := b.ID
	p.BookingID = &id
	return b, nil
}

// linkedBooking is the read-only lookup used when settlement is a no-op.
func (s *Service) linkedBooking(ctx context.Context, p *model.Payment) *model.Booking {
	if p.BookingID != nil {
		if b, err := s.st.Bookings.GetByID(ctx, *p.BookingID); err == nil {
			return b
		}
	}
	if b, err := s.st.Bookings.FindByPayment(ctx, p.ID); err == nil {
		return b
	}
	return nil
}

// applyOutcome mirrors the payment outcome onto the booking and ledger and
// reports how many ledger rows were released.
func (s *Service) applyOutcome(ctx context.Context, b *model.Booking, outcome string) (int64, error) {
	var released int64
	switch outcome {
	case model.PaymentCompleted:
		if err := s.confirmSeats(ctx, b); err != nil {
			return 0, err
		}
		b.Status = model.BookingConfirmed
	case model.PaymentFailed, model.PaymentRefunded:
		n, err := s.releaseBooking(ctx, b)
		if err != nil {
			return 0, err
		}
		released = n
		b.Status = model.BookingCancelled
		if outcome == model.PaymentRefunded {
			b.Status = model.BookingRefunded
		}
	}
	if err := s.st.Bookings.UpdateStatus(ctx, b.ID, b.Status); err != nil {
		return 0, fmt.Errorf("update booking: %w", err)
	}
	return released, nil
}

// currentShowtime returns the showtime with its ledger, or nil if it was
// deleted.
func (s *Service) currentShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := s.st.Showtimes.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load showtime: %w", err)
	}
	return st, nil
}

func eventKindFor(outcome string) string {
	switch outcome {
	case model.PaymentCompleted:
		return queue.EventConfirmed
	case model.PaymentRefunded:
		return queue.EventRefunded
	}
	return queue.EventCancelled
}
