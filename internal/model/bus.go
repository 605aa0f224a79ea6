package model

import "time"

// Bus represents a scheduled vehicle on a route.  A bus is the unit of
// inventory: every booking references a bus and a journey date, and the
// number of seats sold for that pair can never exceed SeatCount.  Buses
// are soft-deactivated rather than deleted so historical bookings keep
// their references.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name of the bus.
//  Number     – unique registration/route number.
//  Origin     – departure city.
//  Destination – arrival city.
//  StartTime  – daily departure time ("HH:MM", local to the route).
//  ReachTime  – daily arrival time ("HH:MM").
//  SeatCount  – total seat capacity.
//  PriceCents – fare per seat in cents, copied onto bookings at creation.
//  IsActive   – whether the bus accepts new bookings.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Bus struct {
	ID          uint64    // buses.id
	Name        string    // buses.name
	Number      string    // buses.number
	Origin      string    // buses.origin
	Destination string    // buses.destination
	StartTime   string    // buses.start_time
	ReachTime   string    // buses.reach_time
	SeatCount   uint32    // buses.seat_count
	PriceCents  uint32    // buses.price_cents
	IsActive    bool      // buses.is_active
	CreatedAt   time.Time // buses.created_at
	UpdatedAt   time.Time // buses.updated_at
}
