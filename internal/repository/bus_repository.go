// Package repository contains data access logic for the bus catalog. A Bus
// is the unit of inventory: bookings reference a bus and a journey date.
// Catalog rows are read-mostly; the booking ledger is the only table the
// core mutates under concurrency.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// BusRepo manages persistence for buses.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo with the given DB handle.
func NewBusRepo(db *sql.DB) *BusRepo {
	return &BusRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.  Use this method to
// obtain a *sql.DB when you need fine-grained transaction control.
func (r *BusRepo) DB() *sql.DB {
	return r.db
}

const busColumns = `id, name, number, origin, destination, start_time, reach_time, seat_count, price_cents, is_active, created_at, updated_at`

func scanBus(row interface{ Scan(...interface{}) error }, b *model.Bus) error {
	return row.Scan(
		&b.ID, &b.Name, &b.Number, &b.Origin, &b.Destination,
		&b.StartTime, &b.ReachTime, &b.SeatCount, &b.PriceCents,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
}

// Create inserts a new bus and assigns the generated ID back to the
// struct.  The bus number must be unique; a duplicate surfaces as a
// plain driver error for the handler to translate.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	const q = `INSERT INTO buses (name, number, origin, destination, start_time, reach_time, seat_count, price_cents)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Name, b.Number, b.Origin, b.Destination, b.StartTime, b.ReachTime, b.SeatCount, b.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row to populate defaults (is_active, timestamps).
	const sel = `SELECT ` + busColumns + ` FROM buses WHERE id = ?`
	return scanBus(r.db.QueryRowContext(ctx, sel, b.ID), b)
}

// GetByID retrieves a bus by its ID.  It returns ErrBusNotFound if
// there is no matching row.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	const q = `SELECT ` + busColumns + ` FROM buses WHERE id = ?`
	var b model.Bus
	if err := scanBus(r.db.QueryRowContext(ctx, q, id), &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetActiveTx loads a bus inside the caller's transaction and reports
// ErrBusNotFound both for missing and for deactivated buses.  The booking
// transaction manager uses this so that the capacity and price it reads
// come from the same snapshot as the conflict check.
func (r *BusRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Bus, error) {
	const q = `SELECT ` + busColumns + ` FROM buses WHERE id = ? AND is_active = 1`
	var b model.Bus
	if err := scanBus(tx.QueryRowContext(ctx, q, id), &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Update applies partial changes to a bus.  Only non-nil fields are
// written.  ErrNoChange is returned when no field was supplied and
// ErrBusNotFound when the bus does not exist.
func (r *BusRepo) Update(ctx context.Context, id uint64, name, origin, destination, startTime, reachTime *string, priceCents *uint32, isActive *bool) error {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if origin != nil {
		sets = append(sets, "origin = ?")
		args = append(args, *origin)
	}
	if destination != nil {
		sets = append(sets, "destination = ?")
		args = append(args, *destination)
	}
	if startTime != nil {
		sets = append(sets, "start_time = ?")
		args = append(args, *startTime)
	}
	if reachTime != nil {
		sets = append(sets, "reach_time = ?")
		args = append(args, *reachTime)
	}
	if priceCents != nil {
		sets = append(sets, "price_cents = ?")
		args = append(args, *priceCents)
	}
	if isActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *isActive)
	}
	if len(sets) == 0 {
		return ErrNoChange
	}
	args = append(args, id)
	q := "UPDATE buses SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is absent or the values match; disambiguate.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM buses WHERE id = ?", id).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return ErrBusNotFound
			}
			return err
		}
		return ErrNoChange
	}
	return nil
}

// Deactivate soft-deletes a bus so it stops accepting bookings while
// historical bookings keep their reference.
func (r *BusRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE buses SET is_active = 0 WHERE id = ? AND is_active = 1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusNotFound
	}
	return nil
}

// BusSearch filters the active bus list.  Origin and Destination match
// case-insensitive substrings.  When JourneyDate is set, buses whose
// confirmed bookings already cover every seat for that date are omitted
// from the results.
type BusSearch struct {
	Origin      string
	Destination string
	JourneyDate *time.Time
}

// List returns active buses matching the search, newest first.  The
// fully-booked filter counts live booking_seats rows per bus for the
// requested date and compares against seat_count; availability is always
// derived from the ledger, never from catalog state.
func (r *BusRepo) List(ctx context.Context, s BusSearch) ([]model.Bus, error) {
	q := `SELECT b.id, b.name, b.number, b.origin, b.destination, b.start_time, b.reach_time,
	             b.seat_count, b.price_cents, b.is_active, b.created_at, b.updated_at
	      FROM buses b`
	args := make([]interface{}, 0, 4)
	where := []string{"b.is_active = 1"}
	if s.JourneyDate != nil {
		q += ` LEFT JOIN booking_seats bs
	             ON bs.bus_id = b.id AND bs.journey_date = ? AND bs.active = 1`
		args = append(args, s.JourneyDate.UTC().Format("2006-01-02"))
	}
	if s.Origin != "" {
		where = append(where, "b.origin LIKE ?")
		args = append(args, "%"+s.Origin+"%")
	}
	if s.Destination != "" {
		where = append(where, "b.destination LIKE ?")
		args = append(args, "%"+s.Destination+"%")
	}
	q += " WHERE " + strings.Join(where, " AND ")
	if s.JourneyDate != nil {
		q += ` GROUP BY b.id HAVING COUNT(bs.id) < b.seat_count`
	}
	q += " ORDER BY b.created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	buses := make([]model.Bus, 0)
	for rows.Next() {
		var b model.Bus
		if err := scanBus(rows, &b); err != nil {
			return nil, err
		}
		buses = append(buses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buses, nil
}
