// Package service implements the reservation engine: seat holds, payment
// settlement, lifecycle cleanup and the availability query.  Every
// mutating operation runs as one unit of work through TxRunner; cache
// invalidation, metrics and events happen only after commit.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/clock"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// TxRunner executes a closure as a single transaction.  Stores called with
// the closure's context take part in the transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	InTx(ctx context.Context) bool
}

type ShowtimeStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Showtime, error)
	GetDetail(ctx context.Context, id uint64) (*model.ShowtimeDetail, error)
	ListByRoom(ctx context.Context, roomID uint64) ([]model.Showtime, error)
	Delete(ctx context.Context, id uint64) error
}

type SeatStore interface {
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
	GetByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Seat, error)
	ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error)
	UpdateStatus(ctx context.Context, ids []uint64, status string) error
	Delete(ctx context.Context, ids []uint64) error
}

type LedgerStore interface {
	ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.LedgerEntry, error)
	ListByShowtimeSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.LedgerEntry, error)
	ListBySeats(ctx context.Context, seatIDs []uint64, scheduledOnly bool) ([]model.LedgerEntry, error)
	ListBySeatsForShare(ctx context.Context, seatIDs []uint64) ([]model.LedgerEntry, error)
	Insert(ctx context.Context, entries []model.LedgerEntry) error
	SetState(ctx context.Context, showtimeID uint64, seatIDs []uint64, state string) error
	Delete(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int64, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	FindByPayment(ctx context.Context, paymentID uint64) (*model.Booking, error)
	ListActiveByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error)
	SetPayment(ctx context.Context, bookingID, paymentID uint64) error
	UpdateStatus(ctx context.Context, id uint64, status string) error
	Delete(ctx context.Context, id uint64) error
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
}

type RoomStore interface {
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Room, error)
	Delete(ctx context.Context, id uint64) error
}

type TicketTypeStore interface {
	GetByIDs(ctx context.Context, ids []uint64) ([]model.TicketType, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Stores bundles the persistence dependencies of the Service.
type Stores struct {
	Tx          TxRunner
	Showtimes   ShowtimeStore
	Seats       SeatStore
	Ledger      LedgerStore
	Bookings    BookingStore
	Payments    PaymentStore
	Rooms       RoomStore
	TicketTypes TicketTypeStore
	Users       UserStore
}

// AvailabilityCache caches QueryAvailability results per showtime.
type AvailabilityCache interface {
	// Get returns the cached seat map, or on a miss the generation Set
	// must be given.
	Get(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, int64, bool)
	// Set stores seats unless the showtime was invalidated since gen.
	Set(ctx context.Context, showtimeID uint64, gen int64, seats []model.SeatAvailability)
	Invalidate(ctx context.Context, showtimeIDs ...uint64)
}

// EventPublisher delivers booking events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Metrics records business counters.
type Metrics interface {
	ReservationCreated(seats int)
	ReservationRejected(reason string)
	PaymentSettled(outcome string)
	SeatsReleased(n int64)
	SeatConflict()
}

// Service is the reservation engine.
type Service struct {
	st      Stores
	cache   AvailabilityCache
	events  EventPublisher
	metrics Metrics
	clock   clock.Clock
}

// New constructs a Service.  Nil cache, events, metrics or clock fall back
// to no-op implementations and the system clock.
func New(st Stores, cache AvailabilityCache, events EventPublisher, metrics Metrics, clk clock.Clock) *Service {
	if st.Tx == nil || st.Showtimes == nil || st.Seats == nil || st.Ledger == nil || st.Bookings == nil ||
		st.Payments == nil || st.Rooms == nil || st.TicketTypes == nil || st.Users == nil {
		panic("nil store passed to service.New")
	}
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{st: st, cache: cache, events: events, metrics: metrics, clock: clk}
}

// afterCommit invalidates cached availability and publishes events.
// Failures are logged; the committed state is never affected.
func (s *Service) afterCommit(ctx context.Context, showtimeIDs []uint64, events ...queue.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if len(showtimeIDs) > 0 {
		s.cache.Invalidate(ctx, showtimeIDs...)
	}
	for _, ev := range events {
		if ev.Kind == "" {
			continue
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Printf("events: publish %s booking=%d failed: %v", ev.Kind, ev.BookingID, err)
		}
	}
}

// reason classifies an error for metrics labels.
func reason(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInvalidStatus):
		return "invalid_input"
	case errors.Is(err, model.ErrForbidden):
		return "forbidden"
	}
	return "internal"
}

// logInternal logs errors that are not part of the domain taxonomy.
func logInternal(op string, err error) {
	if reason(err) == "internal" {
		log.Printf("%s: %v", op, err)
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, uint64) ([]model.SeatAvailability, int64, bool) {
	return nil, -1, false
}
func (noopCache) Set(context.Context, uint64, int64, []model.SeatAvailability) {}
func (noopCache) Invalidate(context.Context, ...uint64)                       {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ReservationCreated(int)    {}
func (noopMetrics) ReservationRejected(string) {}
func (noopMetrics) PaymentSettled(string)      {}
func (noopMetrics) SeatsReleased(int64)        {}
func (noopMetrics) SeatConflict()              {}
