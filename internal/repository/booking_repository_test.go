package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

var journeyDate = time.Date(2031, 6, 15, 0, 0, 0, 0, time.UTC)

func TestListByUserPopulatesSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM bookings b(.+)JOIN buses v(.+)WHERE b.user_id = \\?").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_ref", "user_id", "bus_id", "journey_date", "status",
			"price_cents", "booking_time", "cancelled_at", "cancellation_reason",
			"name", "number", "origin", "destination", "start_time", "reach_time",
		}).
			AddRow(2, "ref-2", 5, 7, journeyDate, "CONFIRMED", 2500, now, nil, nil,
				"Night Express", "NE-42", "Hamburg", "Berlin", "22:30", "06:10").
			AddRow(1, "ref-1", 5, 7, journeyDate, "CANCELLED", 2500, now.Add(-time.Hour), now, "Cancelled by user",
				"Night Express", "NE-42", "Hamburg", "Berlin", "22:30", "06:10"))
	mock.ExpectQuery("SELECT booking_id, seat_id, seat_label FROM booking_seats").
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "seat_id", "seat_label"}).
			AddRow(1, 3, "A3").
			AddRow(2, 1, "A1").
			AddRow(2, 2, "A2"))

	details, err := repo.ListByUser(context.Background(), 5, "")
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, uint64(2), details[0].ID)
	assert.True(t, details[0].CanCancel)
	require.Len(t, details[0].Seats, 2)
	assert.Equal(t, "A1", details[0].Seats[0].Label)

	assert.Equal(t, uint64(1), details[1].ID)
	assert.False(t, details[1].CanCancel)
	assert.Equal(t, "Cancelled by user", details[1].CancellationReason)
	require.NotNil(t, details[1].CancelledAt)
	require.Len(t, details[1].Seats, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM bookings b").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_ref", "user_id", "bus_id", "journey_date", "status",
			"price_cents", "booking_time", "cancelled_at", "cancellation_reason",
			"name", "number", "origin", "destination", "start_time", "reach_time",
		}))

	details, err := repo.ListByUser(context.Background(), 5, "")
	require.NoError(t, err)
	assert.NotNil(t, details)
	assert.Empty(t, details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedLabelsForDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery("SELECT seat_label FROM booking_seats").
		WithArgs(uint64(7), "2031-06-15").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}).
			AddRow("A1").AddRow("B4"))

	booked, err := repo.BookedLabelsForDate(context.Background(), 7, journeyDate)
	require.NoError(t, err)
	assert.True(t, booked["A1"])
	assert.True(t, booked["B4"])
	assert.False(t, booked["C1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletePastReleasesSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings SET status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE booking_seats SET active = NULL").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	n, err := repo.CompletePast(context.Background(), journeyDate)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The completion sweep moves finished journeys from CONFIRMED to
// COMPLETED, so the past bucket has to count both statuses or swept
// bookings would vanish from the user's history numbers.
func TestStatsByUserCountsCompletedAsPast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery("SELECT(.+)status IN \\(\\?, \\?\\)(.+)FROM bookings WHERE user_id = \\?").
		WithArgs(
			model.StatusConfirmed, "2031-06-15",
			model.StatusConfirmed, model.StatusCompleted, "2031-06-15",
			model.StatusCancelled,
			uint64(5),
		).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "past", "cancelled"}).
			AddRow(5, 1, 3, 1))

	s, err := repo.StatsByUser(context.Background(), 5, journeyDate)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.Total)
	assert.Equal(t, uint64(1), s.Active)
	assert.Equal(t, uint64(3), s.Past)
	assert.Equal(t, uint64(1), s.Cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
