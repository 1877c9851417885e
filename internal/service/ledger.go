package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// hold claims seats of a showtime for a booking.  It succeeds only if none
// of the seats is already in the ledger; otherwise it fails with a
// *model.SeatConflictError naming the claimed seats.
func (s *Service) hold(ctx context.Context, showtimeID, bookingID uint64, seats []model.Seat) error {
	if !s.st.Tx.InTx(ctx) {
		return model.ErrNoTransaction
	}
	ids := seatIDsOf(seats)
	existing, err := s.st.Ledger.ListByShowtimeSeats(ctx, showtimeID, ids)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if len(existing) > 0 {
		return conflictFor(seats, entrySeatIDs(existing))
	}
	entries := make([]model.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, model.LedgerEntry{ShowtimeID: showtimeID, SeatID: id, BookingID: bookingID, State: model.LedgerHeld})
	}
	if err := s.st.Ledger.Insert(ctx, entries); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return conflictFor(seats, ids)
		}
		return fmt.Errorf("insert ledger: %w", err)
	}
	return s.syncSeatStatus(ctx, ids)
}

// release removes seats from a showtime's ledger.  Seats not present are
// ignored.  It returns the number of rows removed.
func (s *Service) release(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int64, error) {
	if !s.st.Tx.InTx(ctx) {
		return 0, model.ErrNoTransaction
	}
	if len(seatIDs) == 0 {
		return 0, nil
	}
	n, err := s.st.Ledger.Delete(ctx, showtimeID, seatIDs)
	if err != nil {
		return 0, fmt.Errorf("delete ledger: %w", err)
	}
	if err := s.syncSeatStatus(ctx, seatIDs); err != nil {
		return 0, err
	}
	return n, nil
}

// releaseBooking releases the ledger rows owned by b.  Rows of the same
// seats owned by another booking are left alone.
func (s *Service) releaseBooking(ctx context.Context, b *model.Booking) (int64, error) {
	rows, err := s.st.Ledger.ListByShowtimeSeats(ctx, b.ShowtimeID, b.SeatIDs)
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	var own []uint64
	for _, r := range rows {
		if r.BookingID == b.ID {
			own = append(own, r.SeatID)
		}
	}
	return s.release(ctx, b.ShowtimeID, own)
}

// confirmSeats marks every seat of b as sold.  Held rows of b are promoted,
// rows already sold to b are kept and missing rows are inserted, which
// repairs a ledger left incomplete by an earlier failure.  A seat claimed
// by another booking aborts with a seat conflict.
func (s *Service) confirmSeats(ctx context.Context, b *model.Booking) error {
	if !s.st.Tx.InTx(ctx) {
		return model.ErrNoTransaction
	}
	rows, err := s.st.Ledger.ListByShowtimeSeats(ctx, b.ShowtimeID, b.SeatIDs)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	present := make(map[uint64]bool, len(rows))
	var foreign, promote []uint64
	for _, r := range rows {
		present[r.SeatID] = true
		switch {
		case r.BookingID != b.ID:
			foreign = append(foreign, r.SeatID)
		case r.State == model.LedgerHeld:
			promote = append(promote, r.SeatID)
		}
	}
	if len(foreign) > 0 {
		return s.seatConflict(ctx, foreign)
	}
	var missing []model.LedgerEntry
	for _, id := range b.SeatIDs {
		if !present[id] {
			missing = append(missing, model.LedgerEntry{ShowtimeID: b.ShowtimeID, SeatID: id, BookingID: b.ID, State: model.LedgerSold})
		}
	}
	if len(missing) > 0 {
		log.Printf("ledger: booking=%d showtime=%d restoring %d missing seats on confirm", b.ID, b.ShowtimeID, len(missing))
		if err := s.st.Ledger.Insert(ctx, missing); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return s.seatConflict(ctx, entrySeatIDs(missing))
			}
			return fmt.Errorf("insert ledger: %w", err)
		}
	}
	if err := s.st.Ledger.SetState(ctx, b.ShowtimeID, promote, model.LedgerSold); err != nil {
		return fmt.Errorf("promote ledger: %w", err)
	}
	return s.syncSeatStatus(ctx, b.SeatIDs)
}

// syncSeatStatus recomputes Seat.status from the ledger rows of scheduled
// showtimes: sold wins over held, no row means available.  Seats under
// maintenance keep their status.  Both reads are locking reads and see the
// latest committed rows.
func (s *Service) syncSeatStatus(ctx context.Context, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	seats, err := s.st.Seats.GetByIDsForUpdate(ctx, seatIDs)
	if err != nil {
		return fmt.Errorf("lock seats: %w", err)
	}
	entries, err := s.st.Ledger.ListBySeatsForShare(ctx, seatIDs)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	state := make(map[uint64]string, len(entries))
	for _, e := range entries {
		if e.State == model.LedgerSold || state[e.SeatID] == "" {
			state[e.SeatID] = e.State
		}
	}
	changes := map[string][]uint64{}
	for _, seat := range seats {
		if seat.Status == model.SeatMaintenance {
			continue
		}
		want := seatStatusFor(state[seat.ID])
		changes[want] = append(changes[want], seat.ID)
	}
	for _, status := range []string{model.SeatAvailable, model.SeatReserved, model.SeatBooked} {
		if err := s.st.Seats.UpdateStatus(ctx, changes[status], status); err != nil {
			return fmt.Errorf("update seat status: %w", err)
		}
	}
	return nil
}

func seatStatusFor(ledgerState string) string {
	switch ledgerState {
	case model.LedgerSold:
		return model.SeatBooked
	case model.LedgerHeld:
		return model.SeatReserved
	}
	return model.SeatAvailable
}

// seatConflict builds a conflict error for ids, loading labels when it can.
func (s *Service) seatConflict(ctx context.Context, ids []uint64) error {
	seats, err := s.st.Seats.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("ledger: load seat labels failed: %v", err)
	}
	return conflictFor(seats, ids)
}

// conflictFor names the seats in ids, labelled from seats where known.
func conflictFor(seats []model.Seat, ids []uint64) *model.SeatConflictError {
	byID := make(map[uint64]model.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	err := &model.SeatConflictError{}
	for _, id := range sorted {
		ref := model.SeatRef{ID: id, Label: strconv.FormatUint(id, 10)}
		if seat, ok := byID[id]; ok {
			ref = seat.Ref()
		}
		err.Seats = append(err.Seats, ref)
	}
	return err
}

func seatIDsOf(seats []model.Seat) []uint64 {
	ids := make([]uint64, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}
	return ids
}

func entrySeatIDs(entries []model.LedgerEntry) []uint64 {
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.SeatID)
	}
	return ids
}
