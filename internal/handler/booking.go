package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// BookingHandler exposes the booking flows backed by the transaction
// manager in the service package.
type BookingHandler struct {
	Svc *service.BookingService
}

// NewBookingHandler constructs a BookingHandler and panics on nil deps.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

type createBookingReq struct {
	BusID       uint64   `json:"bus_id"`
	JourneyDate string   `json:"journey_date"` // YYYY-MM-DD
	SeatIDs     []uint64 `json:"seat_ids"`     // catalog mode
	SeatLabels  []string `json:"seats"`        // label mode
}

// Create books seats on a bus for a journey date.  A seat conflict is a
// 400 with the machine-readable unavailable_seats list so clients can
// re-render the seat map without another round trip.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BusID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_id is required"})
	}
	date, err := parseJourneyDate(strings.TrimSpace(req.JourneyDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "journey_date must be YYYY-MM-DD"})
	}
	if len(req.SeatIDs) == 0 && len(req.SeatLabels) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one seat is required"})
	}

	res, err := h.Svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		UserID:      uid,
		BusID:       req.BusID,
		JourneyDate: date,
		SeatIDs:     req.SeatIDs,
		SeatLabels:  req.SeatLabels,
	})
	if err != nil {
		var conflict *service.SeatConflictError
		switch {
		case errors.As(err, &conflict):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":             "seats_unavailable",
				"message":           "some of the selected seats are already booked",
				"unavailable_seats": conflict.Seats,
				"journey_date":      conflict.JourneyDate,
			})
		case errors.Is(err, repository.ErrBusNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found on this bus"})
		case errors.Is(err, service.ErrNoSeats),
			errors.Is(err, service.ErrDuplicateSeat),
			errors.Is(err, service.ErrPastDate),
			errors.Is(err, service.ErrCapacityExceeded):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"booking": echo.Map{
			"id":           res.Booking.ID,
			"booking_ref":  res.Booking.Ref,
			"bus_id":       res.Bus.ID,
			"bus_name":     res.Bus.Name,
			"journey_date": res.Booking.JourneyDate.UTC().Format("2006-01-02"),
			"status":       res.Booking.Status,
			"seats":        res.SeatLabels,
			"price_cents":  res.Booking.PriceCents,
			"booking_time": res.Booking.BookingTime,
		},
	})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel flips a booking owned by the caller to CANCELLED and frees its
// seats for rebooking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	// The body is optional but not free-form: an empty body means no
	// reason, a malformed one is rejected rather than silently dropped.
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	b, err := h.Svc.CancelBooking(c.Request().Context(), id, uid, strings.TrimSpace(req.Reason))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only cancel your own bookings"})
		case errors.Is(err, service.ErrNotCancellable):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking cannot be cancelled in its current state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":   b.ID,
		"status":       b.Status,
		"cancelled_at": b.CancelledAt.UTC().Format(time.RFC3339),
	})
}

// requirePathUser checks that the :id path parameter names the caller
// and writes the 401 itself on mismatch.  Listing and stats are scoped
// this way; the mismatch is a 401 rather than a 403 to avoid confirming
// that the other user exists.
func requirePathUser(c echo.Context) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	pathUID, err := paramID(c, "id")
	if err != nil || pathUID != uid {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	return uid, true
}

// List returns the caller's bookings newest first.  ?status= filters by
// booking status.
func (h *BookingHandler) List(c echo.Context) error {
	uid, ok := requirePathUser(c)
	if !ok {
		return nil
	}
	details, err := h.Svc.ListBookings(c.Request().Context(), uid, c.QueryParam("status"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatusFilter) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// Stats returns the caller's booking counters.
func (h *BookingHandler) Stats(c echo.Context) error {
	uid, ok := requirePathUser(c)
	if !ok {
		return nil
	}
	stats, err := h.Svc.Stats(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

// Get returns one booking with its bus and seats, owner only.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	d, err := h.Svc.GetBookingDetail(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	return c.JSON(http.StatusOK, d)
}
