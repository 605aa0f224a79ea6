package service

import (
	"errors"
	"fmt"
	"strings"
)

// Validation and state errors returned by the booking service.  Handlers
// translate these to HTTP status codes; the repository sentinels
// (ErrBusNotFound and friends) pass through unchanged.
var (
	// ErrNoSeats means the request named zero seats.
	ErrNoSeats = errors.New("at least one seat is required")
	// ErrDuplicateSeat means the same seat appeared twice in one request.
	ErrDuplicateSeat = errors.New("duplicate seat in request")
	// ErrPastDate means the journey date is before today.
	ErrPastDate = errors.New("journey date is in the past")
	// ErrNotCancellable means the booking is in a terminal state.
	ErrNotCancellable = errors.New("booking cannot be cancelled in its current state")
	// ErrCapacityExceeded means the request would overbook the bus.
	ErrCapacityExceeded = errors.New("not enough seats left on this bus")
	// ErrInvalidStatusFilter means the list filter names an unknown status.
	ErrInvalidStatusFilter = errors.New("invalid status filter")
)

// SeatConflictError reports which requested seats are already held by a
// live booking for the same bus and journey date.  The seat labels are
// carried so the response can tell the customer exactly what to pick
// differently.
type SeatConflictError struct {
	JourneyDate string
	Seats       []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already booked for %s: %s", e.JourneyDate, strings.Join(e.Seats, ", "))
}
