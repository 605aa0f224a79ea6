package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// BookingRepo provides access to the reservation ledger: the bookings
// table plus the booking_seats rows that pin individual seats to a
// (bus, journey_date).  The ledger is the single source of truth for
// seat availability.  All timestamp fields are stored in UTC; journey
// dates are DATE columns with no time component.
//
// Writes happen through the ...Tx methods inside a transaction owned by
// the booking service, so that conflict detection and the subsequent
// insert or release observe the same snapshot.  The unique indexes on
// booking_seats (bus, date, seat, active) act as the backstop: even if
// two transactions race past the application-level check, the second
// commit fails with a duplicate-key error.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB for callers that begin transactions
// spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const dateFormat = "2006-01-02"

// FindConflictingSeatIDsTx is the catalog-mode conflict detector.  Given
// candidate seat IDs it returns the labels of those already referenced by
// a live (PENDING or CONFIRMED) booking for the same bus and journey
// date, excluding excludeBookingID when non-zero.  The rows are read
// FOR UPDATE so a concurrent transaction targeting the same seats blocks
// until this one commits or rolls back.
func (r *BookingRepo) FindConflictingSeatIDsTx(ctx context.Context, tx *sql.Tx, busID uint64, journeyDate time.Time, seatIDs []uint64, excludeBookingID uint64) ([]string, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs)+3)
	args = append(args, busID, journeyDate.UTC().Format(dateFormat))
	for i, id := range seatIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	q := `SELECT seat_label FROM booking_seats
	      WHERE bus_id = ? AND journey_date = ? AND active = 1
	        AND seat_id IN (` + strings.Join(placeholders, ",") + `)`
	if excludeBookingID != 0 {
		q += " AND booking_id <> ?"
		args = append(args, excludeBookingID)
	}
	q += " ORDER BY seat_label FOR UPDATE"
	return r.queryLabels(ctx, tx, q, args)
}

// FindConflictingLabelsTx is the label-mode conflict detector.  It
// behaves like FindConflictingSeatIDsTx but matches on the opaque seat
// labels bound at booking time instead of catalog seat IDs.
func (r *BookingRepo) FindConflictingLabelsTx(ctx context.Context, tx *sql.Tx, busID uint64, journeyDate time.Time, labels []string, excludeBookingID uint64) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(labels))
	args := make([]interface{}, 0, len(labels)+3)
	args = append(args, busID, journeyDate.UTC().Format(dateFormat))
	for i, l := range labels {
		placeholders[i] = "?"
		args = append(args, l)
	}
	q := `SELECT seat_label FROM booking_seats
	      WHERE bus_id = ? AND journey_date = ? AND active = 1
	        AND seat_label IN (` + strings.Join(placeholders, ",") + `)`
	if excludeBookingID != 0 {
		q += " AND booking_id <> ?"
		args = append(args, excludeBookingID)
	}
	q += " ORDER BY seat_label FOR UPDATE"
	return r.queryLabels(ctx, tx, q, args)
}

func (r *BookingRepo) queryLabels(ctx context.Context, tx *sql.Tx, q string, args []interface{}) ([]string, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// CountActiveSeatsTx counts live booking_seats rows for a bus and journey
// date within the transaction.  Label mode uses this as the capacity
// check before admitting new labels.  The count is taken FOR UPDATE of
// the matched rows so concurrent label bookings serialize on the same
// inventory.  Assumes InnoDB at REPEATABLE READ: the locking read takes
// next-key locks on the uq_live_seat_label index range, which also
// blocks concurrent inserts of new live rows for this bus and date
// until the transaction ends.
func (r *BookingRepo) CountActiveSeatsTx(ctx context.Context, tx *sql.Tx, busID uint64, journeyDate time.Time) (uint32, error) {
	const q = `SELECT COUNT(*) FROM booking_seats
	           WHERE bus_id = ? AND journey_date = ? AND active = 1 FOR UPDATE`
	var n uint32
	err := tx.QueryRowContext(ctx, q, busID, journeyDate.UTC().Format(dateFormat)).Scan(&n)
	return n, err
}

// CreateTx inserts a new booking within the scope of an existing
// transaction.  It populates the generated ID and DB-default timestamps
// on the provided record.  The caller must commit or roll back the
// transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_ref, user_id, bus_id, journey_date, status, price_cents)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.Ref, b.UserID, b.BusID, b.JourneyDate.UTC().Format(dateFormat), b.Status, b.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the row to populate booking_time and normalized fields.
	const sel = `SELECT booking_time FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.BookingTime)
}

// CreateSeatsBulkTx inserts booking_seats rows in a single statement.
// Each row is created live (active = 1).  A duplicate-key error here is
// the backstop firing: another committed booking already holds one of the
// seats for that bus and date.  Passing an empty slice has no effect.
func (r *BookingRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, bus_id, journey_date, seat_id, seat_label, active) VALUES `
	args := make([]interface{}, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, 1)"
		var seatID interface{}
		if s.SeatID != nil {
			seatID = *s.SeatID
		}
		args = append(args, s.BookingID, s.BusID, s.JourneyDate.UTC().Format(dateFormat), seatID, s.SeatLabel)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func scanBooking(row interface{ Scan(...interface{}) error }, b *model.Booking) error {
	var cancelledAt sql.NullTime
	var reason sql.NullString
	if err := row.Scan(
		&b.ID, &b.Ref, &b.UserID, &b.BusID, &b.JourneyDate, &b.Status,
		&b.PriceCents, &b.BookingTime, &cancelledAt, &reason,
	); err != nil {
		return err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if reason.Valid {
		b.CancellationReason = reason.String
	}
	return nil
}

const bookingColumns = `id, booking_ref, user_id, bus_id, journey_date, status, price_cents, booking_time, cancelled_at, cancellation_reason`

// GetByIDTx loads a booking by ID inside the transaction, locking the
// row FOR UPDATE.  The cancellation manager uses this so the state check
// and the status flip cannot interleave with a concurrent cancel.
// ErrBookingNotFound is returned when no row matches.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	var b model.Booking
	if err := scanBooking(tx.QueryRowContext(ctx, q, id), &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetByID loads a booking without locking (read-side use).
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	var b model.Booking
	if err := scanBooking(r.db.QueryRowContext(ctx, q, id), &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// MarkCancelledTx flips a booking to CANCELLED and releases its seats in
// the same transaction.  Releasing sets booking_seats.active to NULL so
// the rows drop out of both the conflict queries and the unique indexes
// while remaining in place for history.  The caller has already verified
// the state transition on a FOR UPDATE copy of the row.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, bookingID uint64, at time.Time, reason string) error {
	const upd = `UPDATE bookings
	             SET status = ?, cancelled_at = ?, cancellation_reason = ?
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, model.StatusCancelled, at.UTC(), reason, bookingID); err != nil {
		return err
	}
	const release = `UPDATE booking_seats SET active = NULL WHERE booking_id = ?`
	_, err := tx.ExecContext(ctx, release, bookingID)
	return err
}

// CompletePast transitions CONFIRMED and PENDING bookings whose journey
// date has passed to COMPLETED and releases their seat rows.  It returns
// the number of bookings completed.  Run periodically by the sweeper.
func (r *BookingRepo) CompletePast(ctx context.Context, today time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	day := today.UTC().Format(dateFormat)
	const upd = `UPDATE bookings SET status = ?
	             WHERE status IN (?, ?) AND journey_date < ?`
	res, err := tx.ExecContext(ctx, upd, model.StatusCompleted, model.StatusConfirmed, model.StatusPending, day)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	const release = `UPDATE booking_seats SET active = NULL
	                 WHERE active = 1 AND journey_date < ?`
	if _, err := tx.ExecContext(ctx, release, day); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// BookingSeatInfo is a seat as presented inside a BookingDetail.
type BookingSeatInfo struct {
	SeatID *uint64 `json:"seat_id,omitempty"`
	Label  string  `json:"label"`
}

// BookingDetail aggregates a booking with its bus information and seats
// for display to customers and operators.
type BookingDetail struct {
	ID                 uint64            `json:"id"`
	Ref                string            `json:"booking_ref"`
	UserID             uint64            `json:"user_id"`
	BusID              uint64            `json:"bus_id"`
	BusName            string            `json:"bus_name"`
	BusNumber          string            `json:"bus_number"`
	Origin             string            `json:"origin"`
	Destination        string            `json:"destination"`
	StartTime          string            `json:"start_time"`
	ReachTime          string            `json:"reach_time"`
	JourneyDate        string            `json:"journey_date"`
	Status             string            `json:"status"`
	PriceCents         uint32            `json:"price_cents"`
	BookingTime        time.Time         `json:"booking_time"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CanCancel          bool              `json:"can_cancel"`
	Seats              []BookingSeatInfo `json:"seats"`
}

const detailColumns = `b.id, b.booking_ref, b.user_id, b.bus_id, b.journey_date, b.status,
	       b.price_cents, b.booking_time, b.cancelled_at, b.cancellation_reason,
	       v.name, v.number, v.origin, v.destination, v.start_time, v.reach_time`

func scanDetail(row interface{ Scan(...interface{}) error }, d *BookingDetail) error {
	var journeyDate time.Time
	var cancelledAt sql.NullTime
	var reason sql.NullString
	if err := row.Scan(
		&d.ID, &d.Ref, &d.UserID, &d.BusID, &journeyDate, &d.Status,
		&d.PriceCents, &d.BookingTime, &cancelledAt, &reason,
		&d.BusName, &d.BusNumber, &d.Origin, &d.Destination, &d.StartTime, &d.ReachTime,
	); err != nil {
		return err
	}
	d.JourneyDate = journeyDate.UTC().Format(dateFormat)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		d.CancelledAt = &t
	}
	if reason.Valid {
		d.CancellationReason = reason.String
	}
	d.CanCancel = d.Status == model.StatusPending || d.Status == model.StatusConfirmed
	d.Seats = []BookingSeatInfo{}
	return nil
}

// GetDetail returns a single booking with bus and seat information.
// ErrBookingNotFound is returned when the booking does not exist.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID uint64) (*BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
	           FROM bookings b
	           JOIN buses v ON v.id = b.bus_id
	           WHERE b.id = ?`
	var d BookingDetail
	if err := scanDetail(r.db.QueryRowContext(ctx, q, bookingID), &d); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.populateSeats(ctx, []*BookingDetail{&d}); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByUser returns all bookings for the given user along with bus and
// seat details, ordered by booking time descending (newest first).  The
// optional status filters the list; it must already be a valid status
// constant.  When no bookings exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]BookingDetail, error) {
	q := `SELECT ` + detailColumns + `
	      FROM bookings b
	      JOIN buses v ON v.id = b.bus_id
	      WHERE b.user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		q += " AND b.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY b.booking_time DESC"
	return r.listDetails(ctx, q, args)
}

// ListByBus returns all bookings for a bus, newest first.  Operators use
// this to inspect the ledger for one departure.
func (r *BookingRepo) ListByBus(ctx context.Context, busID uint64) ([]BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
	           FROM bookings b
	           JOIN buses v ON v.id = b.bus_id
	           WHERE b.bus_id = ?
	           ORDER BY b.booking_time DESC`
	return r.listDetails(ctx, q, []interface{}{busID})
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args []interface{}) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := scanDetail(rows, &d); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	refs := make([]*BookingDetail, len(details))
	for i := range details {
		refs[i] = &details[i]
	}
	if err := r.populateSeats(ctx, refs); err != nil {
		return nil, err
	}
	return details, nil
}

// populateSeats fills the Seats slice of each detail with one IN query.
func (r *BookingRepo) populateSeats(ctx context.Context, details []*BookingDetail) error {
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	index := make(map[uint64]*BookingDetail, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
		index[d.ID] = d
	}
	q := `SELECT booking_id, seat_id, seat_label FROM booking_seats
	      WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY booking_id, seat_label`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bid uint64
		var seatID sql.NullInt64
		var label string
		if err := rows.Scan(&bid, &seatID, &label); err != nil {
			return err
		}
		d, ok := index[bid]
		if !ok {
			continue
		}
		info := BookingSeatInfo{Label: label}
		if seatID.Valid {
			sid := uint64(seatID.Int64)
			info.SeatID = &sid
		}
		d.Seats = append(d.Seats, info)
	}
	return rows.Err()
}

// BookingStats is the per-user aggregation: total bookings ever made,
// active (confirmed with a future or today journey date), past
// (journeys before today, whether still CONFIRMED or already swept to
// COMPLETED) and cancelled.
type BookingStats struct {
	Total     uint64 `json:"total_bookings"`
	Active    uint64 `json:"active_bookings"`
	Past      uint64 `json:"past_bookings"`
	Cancelled uint64 `json:"cancelled_bookings"`
}

// StatsByUser computes the aggregation in a single scan of the user's
// ledger rows.  It is a read-side projection; no locking, and a booking
// committed mid-scan may or may not be counted.
func (r *BookingRepo) StatsByUser(ctx context.Context, userID uint64, today time.Time) (BookingStats, error) {
	const q = `SELECT
	             COUNT(*),
	             COUNT(CASE WHEN status = ? AND journey_date >= ? THEN 1 END),
	             COUNT(CASE WHEN status IN (?, ?) AND journey_date < ? THEN 1 END),
	             COUNT(CASE WHEN status = ? THEN 1 END)
	           FROM bookings WHERE user_id = ?`
	day := today.UTC().Format(dateFormat)
	var s BookingStats
	err := r.db.QueryRowContext(ctx, q,
		model.StatusConfirmed, day,
		model.StatusConfirmed, model.StatusCompleted, day,
		model.StatusCancelled,
		userID,
	).Scan(&s.Total, &s.Active, &s.Past, &s.Cancelled)
	return s, err
}

// BookedLabelsForDate returns the labels of live booked seats for a bus
// and journey date.  Public availability views derive seat state from
// this set instead of any flag on the seat catalog.
func (r *BookingRepo) BookedLabelsForDate(ctx context.Context, busID uint64, journeyDate time.Time) (map[string]bool, error) {
	const q = `SELECT seat_label FROM booking_seats
	           WHERE bus_id = ? AND journey_date = ? AND active = 1`
	rows, err := r.db.QueryContext(ctx, q, busID, journeyDate.UTC().Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	booked := make(map[string]bool)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		booked[l] = true
	}
	return booked, rows.Err()
}
