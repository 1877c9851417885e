package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// adminReleaseReason is recorded on payments refunded by a forced release.
const adminReleaseReason = "released by administrator"

// ReleaseResult summarises a cleanup operation.
type ReleaseResult struct {
	Released  int64          `json:"released"`
	Bookings  []uint64       `json:"bookings"`
	Showtimes []uint64       `json:"showtimes"`
	Booking   *model.Booking `json:"booking,omitempty"`
}

// cleanupRun collects the effects of a cleanup transaction.
type cleanupRun struct {
	res    ReleaseResult
	events []queue.BookingEvent
	seen   map[uint64]bool
}

func newCleanupRun() *cleanupRun { return &cleanupRun{seen: map[uint64]bool{}} }

func (r *cleanupRun) touch(showtimeID uint64) {
	if !r.seen[showtimeID] {
		r.seen[showtimeID] = true
		r.res.Showtimes = append(r.res.Showtimes, showtimeID)
	}
}

// ReleaseHold cancels a booking and returns its seats.  A pending booking
// becomes cancelled and its pending payment failed.  A confirmed booking
// needs force and becomes refunded together with its payment.  Inactive
// bookings are returned unchanged.
func (s *Service) ReleaseHold(ctx context.Context, bookingID uint64, caller model.Caller, force bool) (*ReleaseResult, error) {
	if force && !caller.IsAdmin() {
		return nil, fmt.Errorf("forced release requires an administrator: %w", model.ErrForbidden)
	}
	var run *cleanupRun
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		b, err := s.st.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr("booking", bookingID, err)
		}
		if !caller.IsAdmin() && caller.UserID != b.UserID {
			return model.ErrForbidden
		}
		if b.Active() {
			if err := s.cancelBooking(ctx, run, b, force); err != nil {
				return err
			}
		}
		run.res.Booking = b
		return nil
	})
	return s.finishCleanup(ctx, "release hold", run, err)
}

// ReleaseSeats releases seats of a showtime.  Every booking owning one of
// the seats is cancelled as a whole so the ledger keeps matching the seat
// sets of active bookings.  Sold seats need force.
func (s *Service) ReleaseSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64, force bool) (*ReleaseResult, error) {
	seatIDs, err := normaliseIDs(seatIDs)
	if err != nil {
		return nil, err
	}
	var run *cleanupRun
	err = s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		if _, err := s.st.Showtimes.GetByIDForUpdate(ctx, showtimeID); err != nil {
			return lookupErr("showtime", showtimeID, err)
		}
		rows, err := s.st.Ledger.ListByShowtimeSeats(ctx, showtimeID, seatIDs)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		if err := s.refuseSold(ctx, rows, force); err != nil {
			return err
		}
		if err := s.cancelOwners(ctx, run, rows, force); err != nil {
			return err
		}
		n, err := s.release(ctx, showtimeID, seatIDs)
		if err != nil {
			return err
		}
		run.res.Released += n
		run.touch(showtimeID)
		return nil
	})
	return s.finishCleanup(ctx, "release seats", run, err)
}

// DeleteBooking reverses the booking's ledger effect and deletes it.  The
// payment survives with its booking reference cleared.
func (s *Service) DeleteBooking(ctx context.Context, bookingID uint64, force bool) (*ReleaseResult, error) {
	var run *cleanupRun
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		b, err := s.st.Bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return lookupErr("booking", bookingID, err)
		}
		if b.Active() {
			if err := s.cancelBooking(ctx, run, b, force); err != nil {
				return err
			}
		} else {
			n, err := s.releaseBooking(ctx, b)
			if err != nil {
				return err
			}
			run.res.Released += n
			run.touch(b.ShowtimeID)
		}
		if err := s.st.Bookings.Delete(ctx, b.ID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		return nil
	})
	return s.finishCleanup(ctx, "delete booking", run, err)
}

// DeleteShowtime releases every seat of the showtime and deletes it.  A
// showtime with confirmed bookings is only deleted with force.
func (s *Service) DeleteShowtime(ctx context.Context, showtimeID uint64, force bool) (*ReleaseResult, error) {
	var run *cleanupRun
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		return s.deleteShowtime(ctx, run, showtimeID, force)
	})
	return s.finishCleanup(ctx, "delete showtime", run, err)
}

// DeleteRoom deletes every showtime of the room under the showtime rule and
// then the room with its seats.
func (s *Service) DeleteRoom(ctx context.Context, roomID uint64, force bool) (*ReleaseResult, error) {
	var run *cleanupRun
	err := s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		if _, err := s.st.Rooms.GetByIDForUpdate(ctx, roomID); err != nil {
			return lookupErr("room", roomID, err)
		}
		showtimes, err := s.st.Showtimes.ListByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("list showtimes: %w", err)
		}
		for _, st := range showtimes {
			if err := s.deleteShowtime(ctx, run, st.ID, force); err != nil {
				return err
			}
		}
		if err := s.st.Rooms.Delete(ctx, roomID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
	return s.finishCleanup(ctx, "delete room", run, err)
}

// DeleteSeats releases the seats from every showtime and deletes them.
// Sold seats need force.
func (s *Service) DeleteSeats(ctx context.Context, seatIDs []uint64, force bool) (*ReleaseResult, error) {
	seatIDs, err := normaliseIDs(seatIDs)
	if err != nil {
		return nil, err
	}
	var run *cleanupRun
	err = s.st.Tx.WithTx(ctx, func(ctx context.Context) error {
		run = newCleanupRun()
		seats, err := s.st.Seats.GetByIDs(ctx, seatIDs)
		if err != nil {
			return fmt.Errorf("load seats: %w", err)
		}
		if len(seats) != len(seatIDs) {
			return fmt.Errorf("%w: seats %v", model.ErrNotFound, missingIDs(seatIDs, seatIDsOf(seats)))
		}
		rows, err := s.st.Ledger.ListBySeats(ctx, seatIDs, false)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		if err := s.refuseSold(ctx, rows, force); err != nil {
			return err
		}
		if err := s.cancelOwners(ctx, run, rows, force); err != nil {
			return err
		}
		byShowtime := map[uint64][]uint64{}
		for _, r := range rows {
			byShowtime[r.ShowtimeID] = append(byShowtime[r.ShowtimeID], r.SeatID)
		}
		for _, showtimeID := range sortedKeys(byShowtime) {
			n, err := s.release(ctx, showtimeID, byShowtime[showtimeID])
			if err != nil {
				return err
			}
			run.res.Released += n
			run.touch(showtimeID)
		}
		if err := s.st.Seats.Delete(ctx, seatIDs); err != nil {
			return fmt.Errorf("delete seats: %w", err)
		}
		return nil
	})
	return s.finishCleanup(ctx, "delete seats", run, err)
}

func (s *Service) deleteShowtime(ctx context.Context, run *cleanupRun, showtimeID uint64, force bool) error {
	if _, err := s.st.Showtimes.GetByIDForUpdate(ctx, showtimeID); err != nil {
		return lookupErr("showtime", showtimeID, err)
	}
	bookings, err := s.st.Bookings.ListActiveByShowtime(ctx, showtimeID)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	if !force {
		var sold []uint64
		for _, b := range bookings {
			if b.Status == model.BookingConfirmed {
				sold = append(sold, b.SeatIDs...)
			}
		}
		if len(sold) > 0 {
			return s.seatConflict(ctx, sold)
		}
	}
	for i := range bookings {
		if err := s.cancelBooking(ctx, run, &bookings[i], force); err != nil {
			return err
		}
	}
	rows, err := s.st.Ledger.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if !force {
		if err := s.refuseSold(ctx, rows, false); err != nil {
			return err
		}
	}
	n, err := s.release(ctx, showtimeID, entrySeatIDs(rows))
	if err != nil {
		return err
	}
	run.res.Released += n
	run.touch(showtimeID)
	if err := s.st.Showtimes.Delete(ctx, showtimeID); err != nil {
		return fmt.Errorf("delete showtime: %w", err)
	}
	return nil
}

// cancelBooking ends an active booking: its ledger rows are released, a
// pending booking is cancelled with its pending payment failed, and a
// confirmed booking (force only) is refunded with its payment.
func (s *Service) cancelBooking(ctx context.Context, run *cleanupRun, b *model.Booking, force bool) error {
	if b.Status == model.BookingConfirmed && !force {
		return s.seatConflict(ctx, b.SeatIDs)
	}
	n, err := s.releaseBooking(ctx, b)
	if err != nil {
		return err
	}
	run.res.Released += n
	run.touch(b.ShowtimeID)

	var p *model.Payment
	if b.PaymentID != nil {
		p, err = s.st.Payments.GetByIDForUpdate(ctx, *b.PaymentID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("load payment: %w", err)
		}
	}
	kind := queue.EventCancelled
	paymentChanged := false
	if b.Status == model.BookingConfirmed {
		b.Status = model.BookingRefunded
		kind = queue.EventRefunded
		if p != nil && p.Status == model.PaymentCompleted {
			now := s.clock.Now()
			reason := adminReleaseReason
			p.Status, p.RefundDate, p.RefundReason = model.PaymentRefunded, &now, &reason
			paymentChanged = true
		}
	} else {
		b.Status = model.BookingCancelled
		if p != nil && p.Status == model.PaymentPending {
			p.Status = model.PaymentFailed
			paymentChanged = true
		}
	}
	if err := s.st.Bookings.UpdateStatus(ctx, b.ID, b.Status); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if paymentChanged {
		if err := s.st.Payments.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
	}
	run.res.Bookings = append(run.res.Bookings, b.ID)
	run.events = append(run.events, s.bookingEvent(ctx, kind, b, p, nil))
	return nil
}

// cancelOwners cancels every active booking owning one of rows.
func (s *Service) cancelOwners(ctx context.Context, run *cleanupRun, rows []model.LedgerEntry, force bool) error {
	ids := map[uint64]bool{}
	for _, r := range rows {
		ids[r.BookingID] = true
	}
	owners := make([]uint64, 0, len(ids))
	for id := range ids {
		owners = append(owners, id)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	for _, id := range owners {
		b, err := s.st.Bookings.GetByIDForUpdate(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if !b.Active() {
			continue
		}
		if err := s.cancelBooking(ctx, run, b, force); err != nil {
			return err
		}
	}
	return nil
}

// refuseSold fails with a seat conflict naming sold rows unless force.
func (s *Service) refuseSold(ctx context.Context, rows []model.LedgerEntry, force bool) error {
	if force {
		return nil
	}
	var sold []uint64
	for _, r := range rows {
		if r.State == model.LedgerSold {
			sold = append(sold, r.SeatID)
		}
	}
	if len(sold) > 0 {
		return s.seatConflict(ctx, sold)
	}
	return nil
}

func (s *Service) finishCleanup(ctx context.Context, op string, run *cleanupRun, err error) (*ReleaseResult, error) {
	if err != nil {
		var sc *model.SeatConflictError
		if errors.As(err, &sc) {
			s.metrics.SeatConflict()
		}
		logInternal(op, err)
		return nil, err
	}
	s.metrics.SeatsReleased(run.res.Released)
	s.afterCommit(ctx, run.res.Showtimes, run.events...)
	return &run.res, nil
}

// normaliseIDs rejects empty or zero ids and drops duplicates.
func normaliseIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", model.ErrInvalidInput)
	}
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, fmt.Errorf("%w: seat id must be positive", model.ErrInvalidInput)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func missingIDs(want, have []uint64) []uint64 {
	present := make(map[uint64]bool, len(have))
	for _, id := range have {
		present[id] = true
	}
	var out []uint64
	for _, id := range want {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys(m map[uint64][]uint64) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
