package model

import (
	"errors"
	"time"
)

// Booking statuses.  CANCELLED and COMPLETED are terminal: once a booking
// reaches either state no further transition is permitted.  Only
// PENDING and CONFIRMED bookings hold seat inventory.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// ErrInvalidTransition is returned by the state-machine helpers when the
// requested transition would leave a terminal state or otherwise violate
// the booking lifecycle.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// ValidStatus reports whether s is one of the defined booking statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Booking records a user's reservation of one or more seats on a bus for
// a specific journey date.  Bookings are never deleted; cancellation is a
// status flip that preserves the row for auditing and reporting.
//
// Fields:
//  ID                 – primary key identifier.
//  Ref                – public UUID reference exposed in API payloads and events.
//  UserID             – user who made the booking.
//  BusID              – bus being booked.
//  JourneyDate        – calendar date of travel (date only, distinct from BookingTime).
//  Status             – lifecycle state (see constants above).
//  PriceCents         – total fare copied from the bus at booking time.
//  BookingTime        – instant the booking was created.
//  CancelledAt        – when the booking was cancelled (nullable).
//  CancellationReason – free-text reason, empty unless cancelled.
type Booking struct {
	ID                 uint64     // bookings.id
	Ref                string     // bookings.booking_ref
	UserID             uint64     // bookings.user_id
	BusID              uint64     // bookings.bus_id
	JourneyDate        time.Time  // bookings.journey_date (DATE)
	Status             string     // bookings.status
	PriceCents         uint32     // bookings.price_cents
	BookingTime        time.Time  // bookings.booking_time
	CancelledAt        *time.Time // bookings.cancelled_at (nullable)
	CancellationReason string     // bookings.cancellation_reason
}

// BookingSeat links a booking to a single seat for the booked journey
// date.  SeatID is set in catalog mode; SeatLabel is always populated for
// display and event payloads (copied from the catalog inside the booking
// transaction in catalog mode).  Active mirrors the parent booking's
// liveness: 1 while the booking holds inventory, null once released, so
// the unique indexes only ever see live rows.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – parent booking.
//  BusID       – denormalized bus reference for the uniqueness constraint.
//  JourneyDate – denormalized journey date for the uniqueness constraint.
//  SeatID      – catalog seat reference (nullable; nil in label mode).
//  SeatLabel   – seat label.
//  Active      – inventory liveness flag (nullable; see above).
type BookingSeat struct {
	ID          uint64    // booking_seats.id
	BookingID   uint64    // booking_seats.booking_id
	BusID       uint64    // booking_seats.bus_id
	JourneyDate time.Time // booking_seats.journey_date
	SeatID      *uint64   // booking_seats.seat_id (nullable)
	SeatLabel   string    // booking_seats.seat_label
	Active      *uint8    // booking_seats.active (nullable)
}

// CanCancel reports whether the booking may still be cancelled.  Only
// non-terminal bookings qualify.
func (b *Booking) CanCancel() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Cancel transitions the booking to CANCELLED at the given instant with
// the supplied reason.  It never double-applies: cancelling an already
// cancelled or completed booking returns ErrInvalidTransition and leaves
// the booking untouched.  An empty reason defaults to "Cancelled by user".
func (b *Booking) Cancel(at time.Time, reason string) error {
	if !b.CanCancel() {
		return ErrInvalidTransition
	}
	if reason == "" {
		reason = "Cancelled by user"
	}
	b.Status = StatusCancelled
	t := at.UTC()
	b.CancelledAt = &t
	b.CancellationReason = reason
	return nil
}

// Complete transitions the booking to COMPLETED.  Only PENDING and
// CONFIRMED bookings can complete; terminal states are preserved.
func (b *Booking) Complete() error {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.Status = StatusCompleted
	return nil
}
