package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

func newTestService(t *testing.T, mode string) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewBookingService(
		repository.NewBusRepo(db),
		repository.NewSeatRepo(db),
		repository.NewBookingRepo(db),
		mode,
	)
	return svc, mock
}

var futureDate = time.Date(2031, 6, 15, 0, 0, 0, 0, time.UTC)

func busRow(seatCount, priceCents uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "number", "origin", "destination", "start_time", "reach_time",
		"seat_count", "price_cents", "is_active", "created_at", "updated_at",
	}).AddRow(7, "Night Express", "NE-42", "Hamburg", "Berlin", "22:30", "06:10",
		seatCount, priceCents, true, now, now)
}

func TestCreateBookingCatalogSuccess(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	mock.ExpectQuery("SELECT id, label FROM seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).
			AddRow(1, "A1").AddRow(2, "A2"))
	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT booking_time FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"booking_time"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("INSERT INTO booking_seats").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	res, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:      5,
		BusID:       7,
		JourneyDate: futureDate,
		SeatIDs:     []uint64{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.Booking.ID)
	assert.Equal(t, model.StatusConfirmed, res.Booking.Status)
	assert.Equal(t, uint32(5000), res.Booking.PriceCents)
	assert.Equal(t, []string{"A1", "A2"}, res.SeatLabels)
	assert.NotEmpty(t, res.Booking.Ref)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSeatConflict(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	mock.ExpectQuery("SELECT id, label FROM seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).
			AddRow(1, "A1").AddRow(2, "A2"))
	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}).AddRow("A2"))
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate, SeatIDs: []uint64{1, 2},
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)
	assert.Equal(t, "2031-06-15", conflict.JourneyDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDuplicateKeyBackstop(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	mock.ExpectQuery("SELECT id, label FROM seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(1, "A1"))
	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery("SELECT booking_time FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"booking_time"}).AddRow(time.Now().UTC()))
	// A concurrent transaction committed the same seat between our check
	// and the insert; the unique index fires.
	mock.ExpectExec("INSERT INTO booking_seats").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate, SeatIDs: []uint64{1},
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A1"}, conflict.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDuplicateSeatInRequest(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate, SeatIDs: []uint64{3, 3},
	})
	assert.ErrorIs(t, err, ErrDuplicateSeat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownSeat(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	// Only one of the two requested seats exists on this bus.
	mock.ExpectQuery("SELECT id, label FROM seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(1, "A1"))
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate, SeatIDs: []uint64{1, 99},
	})
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingPastDate(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:      5,
		BusID:       7,
		JourneyDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		SeatIDs:     []uint64{1},
	})
	assert.ErrorIs(t, err, ErrPastDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingLabelModeCapacity(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeLabel)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 2500))
	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(38))
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate,
		SeatLabels: []string{"x1", "x2", "x3"},
	})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingLabelModeSuccess(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeLabel)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id = \\? AND is_active = 1").
		WillReturnRows(busRow(40, 1500))
	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectQuery("SELECT booking_time FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"booking_time"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("INSERT INTO booking_seats").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	res, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 5, BusID: 7, JourneyDate: futureDate,
		SeatLabels: []string{" b2 ", "b1"},
	})
	require.NoError(t, err)
	// Labels are normalized to upper case and sorted in the result.
	assert.Equal(t, []string{"B1", "B2"}, res.SeatLabels)
	assert.Equal(t, uint32(3000), res.Booking.PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bookingRowFor(id, userID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_ref", "user_id", "bus_id", "journey_date", "status",
		"price_cents", "booking_time", "cancelled_at", "cancellation_reason",
	}).AddRow(id, "2f1a6c9e-0000-0000-0000-000000000000", userID, 7, futureDate,
		status, 2500, time.Now().UTC(), nil, nil)
}

func TestCancelBookingSuccess(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(bookingRowFor(11, 5, model.StatusConfirmed))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE booking_seats SET active = NULL").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	b, err := svc.CancelBooking(context.Background(), 11, 5, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, b.Status)
	assert.Equal(t, "Cancelled by user", b.CancellationReason)
	require.NotNil(t, b.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingNotOwner(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(bookingRowFor(11, 99, model.StatusConfirmed))
	mock.ExpectRollback()

	_, err := svc.CancelBooking(context.Background(), 11, 5, "")
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingAlreadyCancelled(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(bookingRowFor(11, 5, model.StatusCancelled))
	mock.ExpectRollback()

	_, err := svc.CancelBooking(context.Background(), 11, 5, "")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingNotFound(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_ref", "user_id", "bus_id", "journey_date", "status",
			"price_cents", "booking_time", "cancelled_at", "cancellation_reason",
		}))
	mock.ExpectRollback()

	_, err := svc.CancelBooking(context.Background(), 404, 5, "")
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	svc, mock := newTestService(t, config.SeatModeCatalog)

	mock.ExpectQuery("SELECT(.+)FROM bookings WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "past", "cancelled"}).
			AddRow(6, 3, 2, 1))

	s, err := svc.Stats(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), s.Total)
	assert.Equal(t, uint64(3), s.Active)
	assert.Equal(t, uint64(2), s.Past)
	assert.Equal(t, uint64(1), s.Cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsInvalidStatusFilter(t *testing.T) {
	svc, _ := newTestService(t, config.SeatModeCatalog)

	_, err := svc.ListBookings(context.Background(), 5, "NONSENSE")
	assert.ErrorIs(t, err, ErrInvalidStatusFilter)
}
