package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/clock"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

type ledgerKey struct{ showtime, seat uint64 }

// memState is everything the fake store persists.  It is copied wholesale
// to roll back failed transactions and to diff state in tests.
type memState struct {
	Users       map[uint64]model.User
	Rooms       map[uint64]model.Room
	Showtimes   map[uint64]model.Showtime
	Details     map[uint64]model.ShowtimeDetail
	Seats       map[uint64]model.Seat
	TicketTypes map[uint64]model.TicketType
	Bookings    map[uint64]model.Booking
	Payments    map[uint64]model.Payment
	Ledger      map[ledgerKey]model.LedgerEntry
	NextID      uint64
}

func (s memState) clone() memState {
	c := memState{
		Users:       map[uint64]model.User{},
		Rooms:       map[uint64]model.Room{},
		Showtimes:   map[uint64]model.Showtime{},
		Details:     map[uint64]model.ShowtimeDetail{},
		Seats:       map[uint64]model.Seat{},
		TicketTypes: map[uint64]model.TicketType{},
		Bookings:    map[uint64]model.Booking{},
		Payments:    map[uint64]model.Payment{},
		Ledger:      map[ledgerKey]model.LedgerEntry{},
		NextID:      s.NextID,
	}
	for k, v := range s.Users {
		c.Users[k] = v
	}
	for k, v := range s.Rooms {
		c.Rooms[k] = v
	}
	for k, v := range s.Showtimes {
		c.Showtimes[k] = v
	}
	for k, v := range s.Details {
		c.Details[k] = v
	}
	for k, v := range s.Seats {
		c.Seats[k] = v
	}
	for k, v := range s.TicketTypes {
		c.TicketTypes[k] = v
	}
	for k, v := range s.Bookings {
		c.Bookings[k] = cloneBooking(v)
	}
	for k, v := range s.Payments {
		c.Payments[k] = clonePayment(v)
	}
	for k, v := range s.Ledger {
		c.Ledger[k] = v
	}
	return c
}

func cloneBooking(b model.Booking) model.Booking {
	b.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	b.Tickets = append([]model.TicketLine(nil), b.Tickets...)
	if b.PaymentID != nil {
		id := *b.PaymentID
		b.PaymentID = &id
	}
	return b
}

func clonePayment(p model.Payment) model.Payment {
	p.SeatIDs = append([]uint64(nil), p.SeatIDs...)
	p.Tickets = append([]model.TicketLine(nil), p.Tickets...)
	if p.BookingID != nil {
		id := *p.BookingID
		p.BookingID = &id
	}
	if p.TransactionID != nil {
		v := *p.TransactionID
		p.TransactionID = &v
	}
	if p.RefundDate != nil {
		v := *p.RefundDate
		p.RefundDate = &v
	}
	if p.RefundReason != nil {
		v := *p.RefundReason
		p.RefundReason = &v
	}
	return p
}

// memDB is an in-memory store.  Transactions are serialized by mu, which
// gives the same isolation the row locks give on MySQL.
//
// stale, when set, is what plain seat and ledger reads see, the way an
// InnoDB transaction reads from a snapshot taken before another commit.
// Locking reads always see st.
type memDB struct {
	mu         sync.Mutex
	st         memState
	stale      *memState
	faults     map[string]error
	seatWrites int
}

type fakeTxKey struct{}

func newMemDB() *memDB {
	return &memDB{st: memState{}.clone(), faults: map[string]error{}}
}

func (d *memDB) inTx(ctx context.Context) bool { return ctx.Value(fakeTxKey{}) != nil }

// guard locks the store for calls made outside a transaction.
func (d *memDB) guard(ctx context.Context) func() {
	if d.inTx(ctx) {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

func (d *memDB) fault(op string) error { return d.faults[op] }

// plain returns the state seen by non-locking reads.
func (d *memDB) plain() *memState {
	if d.stale != nil {
		return d.stale
	}
	return &d.st
}

func (d *memDB) nextID() uint64 {
	d.st.NextID++
	return d.st.NextID
}

// snapshot returns a deep copy of the persisted state.
func (d *memDB) snapshot() memState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.clone()
}

func (d *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.inTx(ctx) {
		return fn(ctx)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	saved := d.st.clone()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		d.st = saved
		return err
	}
	return nil
}

func (d *memDB) InTx(ctx context.Context) bool { return d.inTx(ctx) }

func (d *memDB) bookedSeats(showtimeID uint64) []uint64 {
	ids := []uint64{}
	for k := range d.st.Ledger {
		if k.showtime == showtimeID {
			ids = append(ids, k.seat)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *memDB) deleteBookingRow(id uint64) {
	delete(d.st.Bookings, id)
	for k, e := range d.st.Ledger {
		if e.BookingID == id {
			delete(d.st.Ledger, k)
		}
	}
	for pid, p := range d.st.Payments {
		if p.BookingID != nil && *p.BookingID == id {
			p.BookingID = nil
			d.st.Payments[pid] = p
		}
	}
}

type fakeShowtimes struct{ *memDB }

func (f fakeShowtimes) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	defer f.guard(ctx)()
	if err := f.fault("showtimes.get"); err != nil {
		return nil, err
	}
	s, ok := f.st.Showtimes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	s.BookedSeats = f.bookedSeats(id)
	return &s, nil
}

func (f fakeShowtimes) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Showtime, error) {
	return f.GetByID(ctx, id)
}

func (f fakeShowtimes) GetDetail(ctx context.Context, id uint64) (*model.ShowtimeDetail, error) {
	defer f.guard(ctx)()
	d, ok := f.st.Details[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	d.Showtime = f.st.Showtimes[id]
	return &d, nil
}

func (f fakeShowtimes) ListByRoom(ctx context.Context, roomID uint64) ([]model.Showtime, error) {
	defer f.guard(ctx)()
	var out []model.Showtime
	for _, s := range f.st.Showtimes {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeShowtimes) Delete(ctx context.Context, id uint64) error {
	defer f.guard(ctx)()
	if _, ok := f.st.Showtimes[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.st.Showtimes, id)
	delete(f.st.Details, id)
	for k := range f.st.Ledger {
		if k.showtime == id {
			delete(f.st.Ledger, k)
		}
	}
	for bid, b := range f.st.Bookings {
		if b.ShowtimeID == id {
			f.deleteBookingRow(bid)
		}
	}
	return nil
}

type fakeSeats struct{ *memDB }

func (f fakeSeats) GetByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	defer f.guard(ctx)()
	return seatsIn(f.plain(), ids), nil
}

func (f fakeSeats) GetByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	defer f.guard(ctx)()
	return seatsIn(&f.st, ids), nil
}

func seatsIn(st *memState, ids []uint64) []model.Seat {
	var out []model.Seat
	for _, id := range ids {
		if s, ok := st.Seats[id]; ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeSeats) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	defer f.guard(ctx)()
	if err := f.fault("seats.list"); err != nil {
		return nil, err
	}
	var out []model.Seat
	for _, s := range f.st.Seats {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeSeats) UpdateStatus(ctx context.Context, ids []uint64, status string) error {
	defer f.guard(ctx)()
	for _, id := range ids {
		s, ok := f.st.Seats[id]
		if !ok || s.Status == model.SeatMaintenance {
			continue
		}
		if s.Status != status {
			f.seatWrites++
		}
		s.Status = status
		f.st.Seats[id] = s
	}
	return nil
}

func (f fakeSeats) Delete(ctx context.Context, ids []uint64) error {
	defer f.guard(ctx)()
	for _, id := range ids {
		delete(f.st.Seats, id)
		for k := range f.st.Ledger {
			if k.seat == id {
				delete(f.st.Ledger, k)
			}
		}
	}
	return nil
}

type fakeLedger struct{ *memDB }

func (f fakeLedger) sorted(match func(model.LedgerEntry) bool) []model.LedgerEntry {
	return sortedLedger(&f.st, match)
}

func sortedLedger(st *memState, match func(model.LedgerEntry) bool) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range st.Ledger {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShowtimeID != out[j].ShowtimeID {
			return out[i].ShowtimeID < out[j].ShowtimeID
		}
		return out[i].SeatID < out[j].SeatID
	})
	return out
}

func (f fakeLedger) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.LedgerEntry, error) {
	defer f.guard(ctx)()
	return f.sorted(func(e model.LedgerEntry) bool { return e.ShowtimeID == showtimeID }), nil
}

func (f fakeLedger) ListByShowtimeSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.LedgerEntry, error) {
	defer f.guard(ctx)()
	want := idSet(seatIDs)
	return f.sorted(func(e model.LedgerEntry) bool { return e.ShowtimeID == showtimeID && want[e.SeatID] }), nil
}

func (f fakeLedger) ListBySeats(ctx context.Context, seatIDs []uint64, scheduledOnly bool) ([]model.LedgerEntry, error) {
	defer f.guard(ctx)()
	return ledgerForSeats(f.plain(), seatIDs, scheduledOnly), nil
}

func (f fakeLedger) ListBySeatsForShare(ctx context.Context, seatIDs []uint64) ([]model.LedgerEntry, error) {
	defer f.guard(ctx)()
	return ledgerForSeats(&f.st, seatIDs, true), nil
}

func ledgerForSeats(st *memState, seatIDs []uint64, scheduledOnly bool) []model.LedgerEntry {
	want := idSet(seatIDs)
	return sortedLedger(st, func(e model.LedgerEntry) bool {
		if !want[e.SeatID] {
			return false
		}
		return !scheduledOnly || st.Showtimes[e.ShowtimeID].Status == model.ShowtimeScheduled
	})
}

func (f fakeLedger) Insert(ctx context.Context, entries []model.LedgerEntry) error {
	defer f.guard(ctx)()
	if err := f.fault("ledger.insert"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, ok := f.st.Ledger[ledgerKey{e.ShowtimeID, e.SeatID}]; ok {
			return fmt.Errorf("ledger insert: %w", model.ErrConflict)
		}
	}
	for _, e := range entries {
		f.st.Ledger[ledgerKey{e.ShowtimeID, e.SeatID}] = e
	}
	return nil
}

func (f fakeLedger) SetState(ctx context.Context, showtimeID uint64, seatIDs []uint64, state string) error {
	defer f.guard(ctx)()
	for _, id := range seatIDs {
		k := ledgerKey{showtimeID, id}
		if e, ok := f.st.Ledger[k]; ok {
			e.State = state
			f.st.Ledger[k] = e
		}
	}
	return nil
}

func (f fakeLedger) Delete(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int64, error) {
	defer f.guard(ctx)()
	var n int64
	for _, id := range seatIDs {
		k := ledgerKey{showtimeID, id}
		if _, ok := f.st.Ledger[k]; ok {
			delete(f.st.Ledger, k)
			n++
		}
	}
	return n, nil
}

type fakeBookings struct{ *memDB }

func (f fakeBookings) Create(ctx context.Context, b *model.Booking) error {
	defer f.guard(ctx)()
	b.ID = f.nextID()
	f.st.Bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (f fakeBookings) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	defer f.guard(ctx)()
	b, ok := f.st.Bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (f fakeBookings) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return f.GetByID(ctx, id)
}

func (f fakeBookings) FindByPayment(ctx context.Context, paymentID uint64) (*model.Booking, error) {
	defer f.guard(ctx)()
	var found *model.Booking
	for _, b := range f.st.Bookings {
		if b.PaymentID != nil && *b.PaymentID == paymentID && (found == nil || b.ID < found.ID) {
			c := cloneBooking(b)
			found = &c
		}
	}
	if found == nil {
		return nil, model.ErrNotFound
	}
	return found, nil
}

func (f fakeBookings) ListActiveByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error) {
	defer f.guard(ctx)()
	var out []model.Booking
	for _, b := range f.st.Bookings {
		if b.ShowtimeID == showtimeID && b.Active() {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeBookings) SetPayment(ctx context.Context, bookingID, paymentID uint64) error {
	defer f.guard(ctx)()
	b, ok := f.st.Bookings[bookingID]
	if !ok {
		return model.ErrNotFound
	}
	b.PaymentID = &paymentID
	f.st.Bookings[bookingID] = b
	return nil
}

func (f fakeBookings) UpdateStatus(ctx context.Context, id uint64, status string) error {
	defer f.guard(ctx)()
	if b, ok := f.st.Bookings[id]; ok {
		b.Status = status
		f.st.Bookings[id] = b
	}
	return nil
}

func (f fakeBookings) Delete(ctx context.Context, id uint64) error {
	defer f.guard(ctx)()
	if _, ok := f.st.Bookings[id]; !ok {
		return model.ErrNotFound
	}
	f.deleteBookingRow(id)
	return nil
}

type fakePayments struct{ *memDB }

func (f fakePayments) Create(ctx context.Context, p *model.Payment) error {
	defer f.guard(ctx)()
	if err := f.fault("payments.create"); err != nil {
		return err
	}
	p.ID = f.nextID()
	f.st.Payments[p.ID] = clonePayment(*p)
	return nil
}

func (f fakePayments) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	defer f.guard(ctx)()
	p, ok := f.st.Payments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	p = clonePayment(p)
	return &p, nil
}

func (f fakePayments) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Payment, error) {
	return f.GetByID(ctx, id)
}

func (f fakePayments) Update(ctx context.Context, p *model.Payment) error {
	defer f.guard(ctx)()
	if err := f.fault("payments.update"); err != nil {
		return err
	}
	if _, ok := f.st.Payments[p.ID]; !ok {
		return model.ErrNotFound
	}
	f.st.Payments[p.ID] = clonePayment(*p)
	return nil
}

type fakeRooms struct{ *memDB }

func (f fakeRooms) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	defer f.guard(ctx)()
	r, ok := f.st.Rooms[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (f fakeRooms) Delete(ctx context.Context, id uint64) error {
	defer f.guard(ctx)()
	if _, ok := f.st.Rooms[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.st.Rooms, id)
	for sid, s := range f.st.Seats {
		if s.RoomID == id {
			delete(f.st.Seats, sid)
		}
	}
	return nil
}

type fakeTicketTypes struct{ *memDB }

func (f fakeTicketTypes) GetByIDs(ctx context.Context, ids []uint64) ([]model.TicketType, error) {
	defer f.guard(ctx)()
	var out []model.TicketType
	for _, id := range ids {
		if t, ok := f.st.TicketTypes[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeUsers struct{ *memDB }

func (f fakeUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	defer f.guard(ctx)()
	u, ok := f.st.Users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &u, nil
}

func idSet(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeMetrics struct {
	mu        sync.Mutex
	created   int
	rejected  map[string]int
	settled   map[string]int
	released  int64
	conflicts int
}

func (m *fakeMetrics) ReservationCreated(int) { m.mu.Lock(); m.created++; m.mu.Unlock() }
func (m *fakeMetrics) ReservationRejected(r string) {
	m.mu.Lock()
	m.rejected[r]++
	m.mu.Unlock()
}
func (m *fakeMetrics) PaymentSettled(o string) { m.mu.Lock(); m.settled[o]++; m.mu.Unlock() }
func (m *fakeMetrics) SeatsReleased(n int64)   { m.mu.Lock(); m.released += n; m.mu.Unlock() }
func (m *fakeMetrics) SeatConflict()           { m.mu.Lock(); m.conflicts++; m.mu.Unlock() }

type fakeCache struct {
	mu          sync.Mutex
	entries     map[uint64][]model.SeatAvailability
	gens        map[uint64]int64
	invalidated []uint64
	// afterMiss runs once a miss has been reported, before the caller
	// stores its result.
	afterMiss func()
}

func (c *fakeCache) Get(_ context.Context, id uint64) ([]model.SeatAvailability, int64, bool) {
	c.mu.Lock()
	v, ok := c.entries[id]
	gen := c.gens[id]
	hook := c.afterMiss
	c.mu.Unlock()
	if !ok && hook != nil {
		hook()
	}
	return v, gen, ok
}

func (c *fakeCache) Set(_ context.Context, id uint64, gen int64, seats []model.SeatAvailability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] != gen {
		return
	}
	c.entries[id] = seats
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
		c.gens[id]++
		c.invalidated = append(c.invalidated, id)
	}
}

// Fixture ids.
const (
	userA     uint64 = 1
	userB     uint64 = 2
	adminUser uint64 = 9

	roomMain  uint64 = 1
	roomSmall uint64 = 2

	seatA1          uint64 = 1
	seatA2          uint64 = 2
	seatA3          uint64 = 3
	seatMaintenance uint64 = 4
	seatOtherRoom   uint64 = 5

	showX         uint64 = 10
	showLater     uint64 = 11
	showCancelled uint64 = 12
	showSmall     uint64 = 20

	ticketAdult   uint64 = 1
	ticketStudent uint64 = 2
)

var fixedNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	db      *memDB
	svc     *Service
	events  *fakePublisher
	metrics *fakeMetrics
	cache   *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	st := &db.st
	st.NextID = 100
	for _, u := range []model.User{
		{ID: userA, Email: "a@example.com", Role: model.RoleCustomer},
		{ID: userB, Email: "b@example.com", Role: model.RoleCustomer},
		{ID: adminUser, Email: "admin@example.com", Role: model.RoleAdmin},
	} {
		st.Users[u.ID] = u
	}
	st.Rooms[roomMain] = model.Room{ID: roomMain, CinemaID: 1, Name: "Hall 1"}
	st.Rooms[roomSmall] = model.Room{ID: roomSmall, CinemaID: 1, Name: "Hall 2"}
	for i, id := range []uint64{seatA1, seatA2, seatA3, seatMaintenance} {
		st.Seats[id] = model.Seat{ID: id, RoomID: roomMain, Row: "A", Column: i + 1, Type: model.SeatTypeStandard, Status: model.SeatAvailable}
	}
	m := st.Seats[seatMaintenance]
	m.Status = model.SeatMaintenance
	st.Seats[seatMaintenance] = m
	st.Seats[seatOtherRoom] = model.Seat{ID: seatOtherRoom, RoomID: roomSmall, Row: "B", Column: 1, Type: model.SeatTypeVIP, Status: model.SeatAvailable}

	start := fixedNow.Add(2 * time.Hour)
	for _, s := range []model.Showtime{
		{ID: showX, MovieID: 1, RoomID: roomMain, CinemaID: 1, Status: model.ShowtimeScheduled},
		{ID: showLater, MovieID: 1, RoomID: roomMain, CinemaID: 1, Status: model.ShowtimeScheduled},
		{ID: showCancelled, MovieID: 1, RoomID: roomMain, CinemaID: 1, Status: model.ShowtimeCancelled},
		{ID: showSmall, MovieID: 1, RoomID: roomSmall, CinemaID: 1, Status: model.ShowtimeScheduled},
	} {
		s.Date = start.Truncate(24 * time.Hour)
		s.StartTime = start
		s.EndTime = start.Add(2 * time.Hour)
		st.Showtimes[s.ID] = s
		st.Details[s.ID] = model.ShowtimeDetail{MovieTitle: "Arrival", RoomName: st.Rooms[s.RoomID].Name, CinemaName: "Downtown"}
	}
	st.TicketTypes[ticketAdult] = model.TicketType{ID: ticketAdult, Name: "adult", Price: decimal.RequireFromString("10.00")}
	st.TicketTypes[ticketStudent] = model.TicketType{ID: ticketStudent, Name: "student", Price: decimal.RequireFromString("7.50")}

	f := &fixture{
		db:      db,
		events:  &fakePublisher{},
		metrics: &fakeMetrics{rejected: map[string]int{}, settled: map[string]int{}},
		cache:   &fakeCache{entries: map[uint64][]model.SeatAvailability{}, gens: map[uint64]int64{}},
	}
	f.svc = New(Stores{
		Tx:          db,
		Showtimes:   fakeShowtimes{db},
		Seats:       fakeSeats{db},
		Ledger:      fakeLedger{db},
		Bookings:    fakeBookings{db},
		Payments:    fakePayments{db},
		Rooms:       fakeRooms{db},
		TicketTypes: fakeTicketTypes{db},
		Users:       fakeUsers{db},
	}, f.cache, f.events, f.metrics, clock.NewFixed(fixedNow))
	return f
}

func reserveReq(showtimeID, userID uint64, seats ...uint64) ReserveRequest {
	return ReserveRequest{
		ShowtimeID:    showtimeID,
		UserID:        userID,
		SeatIDs:       seats,
		Tickets:       []model.TicketLine{{TicketTypeID: ticketAdult, Quantity: len(seats)}},
		PaymentMethod: model.MethodCreditCard,
	}
}

func (f *fixture) reserve(t *testing.T, showtimeID, userID uint64, seats ...uint64) *ReserveResult {
	t.Helper()
	res, err := f.svc.Reserve(context.Background(), reserveReq(showtimeID, userID, seats...))
	if err != nil {
		t.Fatalf("reserve %v: %v", seats, err)
	}
	return res
}

func (f *fixture) seatStatus(id uint64) string {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.st.Seats[id].Status
}

func (f *fixture) ledger(showtimeID uint64) map[uint64]model.LedgerEntry {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := map[uint64]model.LedgerEntry{}
	for k, e := range f.db.st.Ledger {
		if k.showtime == showtimeID {
			out[k.seat] = e
		}
	}
	return out
}

func (f *fixture) booking(id uint64) (model.Booking, bool) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	b, ok := f.db.st.Bookings[id]
	return b, ok
}

func (f *fixture) payment(id uint64) model.Payment {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.st.Payments[id]
}

var (
	customerA = model.Caller{UserID: userA, Role: model.RoleCustomer}
	customerB = model.Caller{UserID: userB, Role: model.RoleCustomer}
	admin     = model.Caller{UserID: adminUser, Role: model.RoleAdmin}
)
