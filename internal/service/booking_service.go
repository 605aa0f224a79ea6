// Package service holds the booking transaction manager and the broker
// publisher.  The transaction manager owns the create and cancel flows:
// every mutation of the reservation ledger happens inside a single
// database transaction here, so a booking either lands with all its
// seats or not at all.
package service

import (
	"context"
	"database/sql"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// BookingService coordinates booking creation, cancellation and the
// read-side views over the ledger.  The seat mode is fixed at startup:
// a deployment runs either in catalog mode (requests carry seat IDs
// from the seats table) or in label mode (requests carry opaque labels
// checked against bus capacity).  The two are never mixed.
type BookingService struct {
	buses    *repository.BusRepo
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	seatMode string
}

// NewBookingService wires the service with its repositories and seat mode.
func NewBookingService(buses *repository.BusRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, seatMode string) *BookingService {
	return &BookingService{buses: buses, seats: seats, bookings: bookings, seatMode: seatMode}
}

// CreateBookingInput carries a booking request.  Exactly one of SeatIDs
// (catalog mode) or SeatLabels (label mode) is consulted, depending on
// the configured seat mode.
type CreateBookingInput struct {
	UserID      uint64
	BusID       uint64
	JourneyDate time.Time
	SeatIDs     []uint64
	SeatLabels  []string
}

// CreateBookingResult is the committed outcome of a create request.
type CreateBookingResult struct {
	Booking    *model.Booking
	Bus        *model.Bus
	SeatLabels []string
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// today truncates a time to its UTC date.
func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateBooking runs the full reservation flow: request validation,
// conflict detection and the ledger insert, all inside one transaction.
// The conflict queries lock the relevant ledger rows FOR UPDATE, and the
// unique indexes on booking_seats backstop the check: if a concurrent
// transaction slips a conflicting commit in first, the insert here fails
// with a duplicate key and is reported as a SeatConflictError, never as
// a partial write.
//
// On success the booking is CONFIRMED and a booking.confirmed event is
// published best-effort.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	if in.JourneyDate.Before(today()) {
		return nil, ErrPastDate
	}

	tx, err := s.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	bus, err := s.buses.GetActiveTx(ctx, tx, in.BusID)
	if err != nil {
		return nil, err
	}

	var labels []string
	var seatRows []model.BookingSeat
	switch s.seatMode {
	case config.SeatModeLabel:
		labels, seatRows, err = s.prepareLabelSeats(ctx, tx, bus, in)
	default:
		labels, seatRows, err = s.prepareCatalogSeats(ctx, tx, bus, in)
	}
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		Ref:         uuid.NewString(),
		UserID:      in.UserID,
		BusID:       in.BusID,
		JourneyDate: in.JourneyDate,
		Status:      model.StatusConfirmed,
		PriceCents:  bus.PriceCents * uint32(len(labels)),
	}
	if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}
	for i := range seatRows {
		seatRows[i].BookingID = booking.ID
	}
	if err := s.bookings.CreateSeatsBulkTx(ctx, tx, seatRows); err != nil {
		// The backstop: a concurrent booking committed one of these
		// seats between our conflict check and this insert.
		if repository.IsDuplicateKey(err) {
			return nil, &SeatConflictError{
				JourneyDate: in.JourneyDate.UTC().Format("2006-01-02"),
				Seats:       labels,
			}
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.publishConfirmed(booking, bus, labels)
	return &CreateBookingResult{Booking: booking, Bus: bus, SeatLabels: labels}, nil
}

// prepareCatalogSeats validates seat IDs against the catalog and checks
// them for conflicts.  The returned ledger rows carry the catalog label
// as a display cache alongside the seat ID.
func (s *BookingService) prepareCatalogSeats(ctx context.Context, tx *sql.Tx, bus *model.Bus, in CreateBookingInput) ([]string, []model.BookingSeat, error) {
	if len(in.SeatIDs) == 0 {
		return nil, nil, ErrNoSeats
	}
	seen := make(map[uint64]bool, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		if seen[id] {
			return nil, nil, ErrDuplicateSeat
		}
		seen[id] = true
	}

	labelByID, err := s.seats.GetByIDsForBusTx(ctx, tx, bus.ID, in.SeatIDs)
	if err != nil {
		return nil, nil, err
	}
	conflicts, err := s.bookings.FindConflictingSeatIDsTx(ctx, tx, bus.ID, in.JourneyDate, in.SeatIDs, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, nil, &SeatConflictError{
			JourneyDate: in.JourneyDate.UTC().Format("2006-01-02"),
			Seats:       conflicts,
		}
	}

	labels := make([]string, 0, len(in.SeatIDs))
	rows := make([]model.BookingSeat, 0, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		id := id
		labels = append(labels, labelByID[id])
		rows = append(rows, model.BookingSeat{
			BusID:       bus.ID,
			JourneyDate: in.JourneyDate,
			SeatID:      &id,
			SeatLabel:   labelByID[id],
		})
	}
	sort.Strings(labels)
	return labels, rows, nil
}

// prepareLabelSeats normalizes the requested labels, checks them for
// conflicts and enforces the capacity limit for the journey date.
func (s *BookingService) prepareLabelSeats(ctx context.Context, tx *sql.Tx, bus *model.Bus, in CreateBookingInput) ([]string, []model.BookingSeat, error) {
	labels := make([]string, 0, len(in.SeatLabels))
	seen := make(map[string]bool, len(in.SeatLabels))
	for _, raw := range in.SeatLabels {
		l := normalizeLabel(raw)
		if l == "" {
			return nil, nil, ErrNoSeats
		}
		if seen[l] {
			return nil, nil, ErrDuplicateSeat
		}
		seen[l] = true
		labels = append(labels, l)
	}
	if len(labels) == 0 {
		return nil, nil, ErrNoSeats
	}

	conflicts, err := s.bookings.FindConflictingLabelsTx(ctx, tx, bus.ID, in.JourneyDate, labels, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, nil, &SeatConflictError{
			JourneyDate: in.JourneyDate.UTC().Format("2006-01-02"),
			Seats:       conflicts,
		}
	}
	taken, err := s.bookings.CountActiveSeatsTx(ctx, tx, bus.ID, in.JourneyDate)
	if err != nil {
		return nil, nil, err
	}
	if taken+uint32(len(labels)) > bus.SeatCount {
		return nil, nil, ErrCapacityExceeded
	}

	rows := make([]model.BookingSeat, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, model.BookingSeat{
			BusID:       bus.ID,
			JourneyDate: in.JourneyDate,
			SeatLabel:   l,
		})
	}
	sort.Strings(labels)
	return labels, rows, nil
}

// CancelBooking flips a booking owned by userID to CANCELLED and
// releases its seats, in one transaction.  The booking row is locked
// FOR UPDATE before the state check so two concurrent cancels cannot
// both observe a cancellable state.  Ownership failures return
// repository.ErrForbidden; terminal states return ErrNotCancellable.
// An empty reason defaults to "Cancelled by user".
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uint64, reason string) (*model.Booking, error) {
	tx, err := s.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if err := b.Cancel(time.Now().UTC(), reason); err != nil {
		return nil, ErrNotCancellable
	}
	if err := s.bookings.MarkCancelledTx(ctx, tx, b.ID, *b.CancelledAt, b.CancellationReason); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.publishCancelled(b)
	return b, nil
}

// GetBookingDetail returns one booking with bus and seat information.
// Customers may only read their own bookings.
func (s *BookingService) GetBookingDetail(ctx context.Context, bookingID, userID uint64) (*repository.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return d, nil
}

// ListBookings returns the user's bookings newest first, optionally
// filtered by status.
func (s *BookingService) ListBookings(ctx context.Context, userID uint64, status string) ([]repository.BookingDetail, error) {
	if status != "" {
		status = strings.ToUpper(strings.TrimSpace(status))
		if !model.ValidStatus(status) {
			return nil, ErrInvalidStatusFilter
		}
	}
	return s.bookings.ListByUser(ctx, userID, status)
}

// Stats aggregates the user's booking counts.
func (s *BookingService) Stats(ctx context.Context, userID uint64) (repository.BookingStats, error) {
	return s.bookings.StatsByUser(ctx, userID, today())
}

// CompletePastBookings sweeps bookings whose journey date has passed to
// COMPLETED.  main runs it on a ticker.
func (s *BookingService) CompletePastBookings(ctx context.Context) (int64, error) {
	return s.bookings.CompletePast(ctx, today())
}

// publishConfirmed emits the booking.confirmed event in the background.
// Broker failures are logged and never affect the committed booking.
func (s *BookingService) publishConfirmed(b *model.Booking, bus *model.Bus, labels []string) {
	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		BookingRef:      b.Ref,
		UserID:          b.UserID,
		BusID:           bus.ID,
		BusName:         bus.Name,
		BusNumber:       bus.Number,
		Origin:          bus.Origin,
		Destination:     bus.Destination,
		StartTime:       bus.StartTime,
		JourneyDate:     b.JourneyDate.UTC().Format("2006-01-02"),
		SeatLabels:      labels,
		TotalPriceCents: b.PriceCents,
		ConfirmedAt:     b.BookingTime.UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := PublishBookingConfirmed(ctx, ev); err != nil {
			log.Printf("booking %d: publish confirmed event failed: %v", b.ID, err)
		}
	}()
}

func (s *BookingService) publishCancelled(b *model.Booking) {
	ev := queue.BookingCancelledEvent{
		BookingID:   b.ID,
		BookingRef:  b.Ref,
		UserID:      b.UserID,
		BusID:       b.BusID,
		JourneyDate: b.JourneyDate.UTC().Format("2006-01-02"),
		Reason:      b.CancellationReason,
		CancelledAt: b.CancelledAt.UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := PublishBookingCancelled(ctx, ev); err != nil {
			log.Printf("booking %d: publish cancelled event failed: %v", b.ID, err)
		}
	}()
}
