package repository // repository defines data access for catalog seats

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SeatRepo provides methods to work with catalog seats (catalog seat
// mode).  Seat rows never record whether they are booked; that is
// derived from the booking ledger per journey date.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateBulk inserts multiple seats in a single statement.  Labels are
// unique per bus; a duplicate surfaces as a driver error.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (bus_id, label) VALUES `
	args := make([]interface{}, 0, len(seats)*2)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, seat.BusID, seat.Label)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByBus retrieves all seats of a bus ordered by label.
func (r *SeatRepo) GetByBus(ctx context.Context, busID uint64) ([]model.Seat, error) {
	const q = `SELECT id, bus_id, label, is_active, created_at, updated_at
	           FROM seats
	           WHERE bus_id = ?
	           ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.Label, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIDsForBusTx loads the requested seats within the caller's
// transaction, restricted to the given bus.  It is the seat-ownership
// precondition for booking: when any requested seat is missing, inactive
// or belongs to a different bus, ErrSeatNotFound is returned.  The result
// maps seat ID to label for use in conflict messages and ledger rows.
func (r *SeatRepo) GetByIDsForBusTx(ctx context.Context, tx *sql.Tx, busID uint64, seatIDs []uint64) (map[uint64]string, error) {
	if len(seatIDs) == 0 {
		return map[uint64]string{}, nil
	}
	placeholders := make([]string, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, busID)
	for i, id := range seatIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	q := `SELECT id, label FROM seats
	      WHERE bus_id = ? AND is_active = 1 AND id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make(map[uint64]string, len(seatIDs))
	for rows.Next() {
		var id uint64
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		labels[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(labels) != len(seatIDs) {
		return nil, ErrSeatNotFound
	}
	return labels, nil
}
