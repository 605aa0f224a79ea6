package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints: bus search
// and derived seat availability.  Availability is always computed from
// the booking ledger for the requested journey date.
type PublicHandler struct {
	Buses    *repository.BusRepo
	Seats    *repository.SeatRepo
	Bookings *repository.BookingRepo
	SeatMode string
}

// NewPublicHandler constructs a PublicHandler and panics on nil deps.
func NewPublicHandler(buses *repository.BusRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, seatMode string) *PublicHandler {
	if buses == nil || seats == nil || bookings == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Buses: buses, Seats: seats, Bookings: bookings, SeatMode: seatMode}
}

// ListBuses searches active buses.  Query params: origin, destination
// (case-insensitive substrings) and journey_date (YYYY-MM-DD).  When a
// date is given, buses with no seat left for that date are omitted.
func (h *PublicHandler) ListBuses(c echo.Context) error {
	search := repository.BusSearch{
		Origin:      strings.TrimSpace(c.QueryParam("origin")),
		Destination: strings.TrimSpace(c.QueryParam("destination")),
	}
	if raw := strings.TrimSpace(c.QueryParam("journey_date")); raw != "" {
		d, err := parseJourneyDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "journey_date must be YYYY-MM-DD"})
		}
		search.JourneyDate = &d
	}

	buses, err := h.Buses.List(c.Request().Context(), search)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list buses failed"})
	}
	views := make([]busView, 0, len(buses))
	for i := range buses {
		views = append(views, toBusView(&buses[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": views})
}

// GetBus returns one bus.  With ?journey_date= the response includes the
// derived availability summary for that date.
func (h *PublicHandler) GetBus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx := c.Request().Context()
	bus, err := h.Buses.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}

	resp := echo.Map{"bus": toBusView(bus)}
	if raw := strings.TrimSpace(c.QueryParam("journey_date")); raw != "" {
		d, err := parseJourneyDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "journey_date must be YYYY-MM-DD"})
		}
		booked, err := h.Bookings.BookedLabelsForDate(ctx, id, d)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load availability failed"})
		}
		resp["journey_date"] = d.Format("2006-01-02")
		resp["seats_total"] = bus.SeatCount
		resp["seats_booked"] = len(booked)
		resp["seats_available"] = int(bus.SeatCount) - len(booked)
	}
	return c.JSON(http.StatusOK, resp)
}

type seatAvailabilityView struct {
	SeatID   uint64 `json:"seat_id,omitempty"`
	Label    string `json:"label"`
	IsBooked bool   `json:"is_booked"`
}

// GetBusSeats returns per-seat availability for a journey date.  Catalog
// mode lists every catalog seat with its derived booked flag; label mode
// reports the booked labels and the remaining capacity, since seats only
// exist as ledger entries there.
func (h *PublicHandler) GetBusSeats(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	raw := strings.TrimSpace(c.QueryParam("journey_date"))
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "journey_date is required"})
	}
	d, err := parseJourneyDate(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "journey_date must be YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	bus, err := h.Buses.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	booked, err := h.Bookings.BookedLabelsForDate(ctx, id, d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load availability failed"})
	}

	resp := echo.Map{
		"bus_id":       id,
		"journey_date": d.Format("2006-01-02"),
	}
	if h.SeatMode == config.SeatModeCatalog {
		seats, err := h.Seats.GetByBus(ctx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
		}
		views := make([]seatAvailabilityView, 0, len(seats))
		available := 0
		for _, s := range seats {
			if !s.IsActive {
				continue
			}
			v := seatAvailabilityView{SeatID: s.ID, Label: s.Label, IsBooked: booked[s.Label]}
			if !v.IsBooked {
				available++
			}
			views = append(views, v)
		}
		resp["seats"] = views
		resp["seats_available"] = available
	} else {
		labels := make([]string, 0, len(booked))
		for l := range booked {
			labels = append(labels, l)
		}
		resp["booked_labels"] = labels
		resp["seats_total"] = bus.SeatCount
		resp["seats_available"] = int(bus.SeatCount) - len(booked)
	}
	return c.JSON(http.StatusOK, resp)
}
