// Package model holds the entities moved by the reservation engine and the
// error values shared by the repository, service and handler layers.
package model

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the requested change collides with existing
// state: a seat already held or sold, a duplicate ticket type, or a
// deletion that would touch sold seats.
var ErrConflict = errors.New("conflict")

// ErrInvalidInput is returned for malformed requests detected before any
// write, and for disallowed payment transitions.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidStatus is returned when a settlement outcome is not a terminal
// payment status.
var ErrInvalidStatus = errors.New("invalid status")

// ErrForbidden is returned when the caller neither owns the resource nor
// holds the ADMIN role.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a payment cannot move from its
// current status to the requested one.
var ErrInvalidTransition = wrap(ErrInvalidInput, "invalid payment transition")

// ErrShowtimeClosed is returned when reserving seats for a cancelled or
// completed showtime.
var ErrShowtimeClosed = wrap(ErrConflict, "showtime is not open for booking")

// ErrNoTransaction guards ledger writes issued outside a unit of work.
var ErrNoTransaction = errors.New("ledger write outside transaction")

type wrappedError struct {
	base error
	msg  string
}

func wrap(base error, msg string) error { return &wrappedError{base: base, msg: msg} }

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.base }

// SeatConflictError names the seats that could not be claimed.  It matches
// ErrConflict through errors.Is.
type SeatConflictError struct {
	Seats []SeatRef
}

func (e *SeatConflictError) Error() string {
	labels := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		labels = append(labels, s.Label)
	}
	return "seats unavailable: " + strings.Join(labels, ", ")
}

// Is lets errors.Is(err, ErrConflict) succeed.
func (e *SeatConflictError) Is(target error) bool { return target == ErrConflict }

// SeatIDs returns the ids of the conflicting seats.
func (e *SeatConflictError) SeatIDs() []uint64 {
	ids := make([]uint64, 0, len(e.Seats))
	for _, s := range e.Seats {
		ids = append(ids, s.ID)
	}
	return ids
}

// Labels returns the labels of the conflicting seats.
func (e *SeatConflictError) Labels() []string {
	out := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		out = append(out, s.Label)
	}
	return out
}
