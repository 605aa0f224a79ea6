package model

import "time"

// Seat describes a catalog seat on a bus (catalog seat mode only).
// Seats are uniquely identified by their bus and label.  A seat row
// carries no booked flag: whether a seat is taken on a given journey
// date is always derived from confirmed bookings in the ledger, so the
// catalog can never drift from the bookings table.
//
// Fields:
//  ID        – primary key identifier.
//  BusID     – bus to which this seat belongs.
//  Label     – seat label such as "A1" or "12".
//  IsActive  – whether the seat is sellable at all (maintenance flag).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
	ID        uint64    // seats.id
	BusID     uint64    // seats.bus_id
	Label     string    // seats.label
	IsActive  bool      // seats.is_active
	CreatedAt time.Time // seats.created_at
	UpdatedAt time.Time // seats.updated_at
}
