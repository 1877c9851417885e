// Package metrics exposes the Prometheus counters of the reservation
// engine.  Collectors are registered on the default registry at init and
// served by promhttp on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_reservations_created_total",
			Help: "Reservations committed",
		},
	)

	reservationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_reservations_rejected_total",
			Help: "Reservations rejected by reason",
		},
		[]string{"reason"},
	)

	seatsHeld = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_seats_held_total",
			Help: "Seats placed on hold by committed reservations",
		},
	)

	paymentsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_payments_settled_total",
			Help: "Payment settlements that changed state, by outcome",
		},
		[]string{"outcome"},
	)

	seatsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_seats_released_total",
			Help: "Ledger rows removed by settlement and cleanup",
		},
	)

	seatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_seat_conflicts_total",
			Help: "Operations aborted because a seat was already claimed",
		},
	)

	txRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_tx_retries_total",
			Help: "Transactions retried after a deadlock or lock wait timeout",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinema_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route", "status"},
	)
)

// Recorder records engine events on the package collectors.
type Recorder struct{}

// NewRecorder returns a Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (*Recorder) ReservationCreated(seats int) {
	reservationsCreated.Inc()
	seatsHeld.Add(float64(seats))
}

func (*Recorder) ReservationRejected(reason string) {
	reservationsRejected.WithLabelValues(reason).Inc()
}

func (*Recorder) PaymentSettled(outcome string) {
	paymentsSettled.WithLabelValues(outcome).Inc()
}

func (*Recorder) SeatsReleased(n int64) {
	if n > 0 {
		seatsReleased.Add(float64(n))
	}
}

func (*Recorder) SeatConflict() { seatConflicts.Inc() }

// TxRetry is wired to repository.TxManager.OnRetry.
func (*Recorder) TxRetry(attempt int, err error) { txRetries.Inc() }

// RequestDuration observes handler latency per route template.
func RequestDuration() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			requestDuration.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
