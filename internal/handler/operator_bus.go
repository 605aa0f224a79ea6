package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// OperatorHandler bundles repositories for operators to manage the bus
// and seat catalog.
type OperatorHandler struct {
	Buses    *repository.BusRepo
	Seats    *repository.SeatRepo
	Bookings *repository.BookingRepo
	SeatMode string
}

// NewOperatorHandler constructs an OperatorHandler and panics if any
// dependency is nil.
func NewOperatorHandler(buses *repository.BusRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo, seatMode string) *OperatorHandler {
	if buses == nil || seats == nil || bookings == nil {
		panic("nil repository passed to NewOperatorHandler")
	}
	return &OperatorHandler{Buses: buses, Seats: seats, Bookings: bookings, SeatMode: seatMode}
}

type createBusReq struct {
	Name        string   `json:"name"`
	Number      string   `json:"number"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	StartTime   string   `json:"start_time"` // HH:MM
	ReachTime   string   `json:"reach_time"` // HH:MM
	SeatCount   uint32   `json:"seat_count"`
	PriceCents  uint32   `json:"price_cents"`
	SeatLabels  []string `json:"seat_labels"`   // optional explicit labels (catalog mode)
	SeatsPerRow int      `json:"seats_per_row"` // optional grid width for generated labels
}

type busView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Number      string `json:"number"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	StartTime   string `json:"start_time"`
	ReachTime   string `json:"reach_time"`
	SeatCount   uint32 `json:"seat_count"`
	PriceCents  uint32 `json:"price_cents"`
	IsActive    bool   `json:"is_active"`
}

func toBusView(b *model.Bus) busView {
	return busView{
		ID: b.ID, Name: b.Name, Number: b.Number,
		Origin: b.Origin, Destination: b.Destination,
		StartTime: b.StartTime, ReachTime: b.ReachTime,
		SeatCount: b.SeatCount, PriceCents: b.PriceCents, IsActive: b.IsActive,
	}
}

func validHHMM(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// CreateBus registers a new bus.  In catalog seat mode the seat catalog
// is created alongside: either from the explicit seat_labels list (whose
// length must equal seat_count) or generated as a grid of seats_per_row
// columns (default 4) with row letters, e.g. A1..A4, B1..B4.
func (h *OperatorHandler) CreateBus(c echo.Context) error {
	var req createBusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Number = strings.TrimSpace(req.Number)
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Name == "" || req.Number == "" || req.Origin == "" || req.Destination == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, number, origin and destination are required"})
	}
	if !validHHMM(req.StartTime) || !validHHMM(req.ReachTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and reach_time must be HH:MM"})
	}
	if req.SeatCount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_count must be positive"})
	}

	var labels []string
	if h.SeatMode == config.SeatModeCatalog {
		var err error
		labels, err = seatLabelsFor(req)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	bus := &model.Bus{
		Name: req.Name, Number: req.Number,
		Origin: req.Origin, Destination: req.Destination,
		StartTime: req.StartTime, ReachTime: req.ReachTime,
		SeatCount: req.SeatCount, PriceCents: req.PriceCents,
	}
	ctx := c.Request().Context()
	if err := h.Buses.Create(ctx, bus); err != nil {
		if repository.IsDuplicateKey(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "bus number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}

	if len(labels) > 0 {
		seats := make([]model.Seat, 0, len(labels))
		for _, l := range labels {
			seats = append(seats, model.Seat{BusID: bus.ID, Label: l})
		}
		if err := h.Seats.CreateBulk(ctx, seats); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seats failed"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"bus":   toBusView(bus),
		"seats": labels,
	})
}

// seatLabelsFor resolves the catalog labels for a new bus.
func seatLabelsFor(req createBusReq) ([]string, error) {
	if len(req.SeatLabels) > 0 {
		if uint32(len(req.SeatLabels)) != req.SeatCount {
			return nil, fmt.Errorf("seat_labels must contain exactly %d entries", req.SeatCount)
		}
		seen := make(map[string]bool, len(req.SeatLabels))
		labels := make([]string, 0, len(req.SeatLabels))
		for _, raw := range req.SeatLabels {
			l := strings.ToUpper(strings.TrimSpace(raw))
			if l == "" || seen[l] {
				return nil, fmt.Errorf("seat_labels contains an empty or duplicate label")
			}
			seen[l] = true
			labels = append(labels, l)
		}
		return labels, nil
	}
	perRow := req.SeatsPerRow
	if perRow <= 0 {
		perRow = 4
	}
	labels := make([]string, 0, req.SeatCount)
	for i := 0; i < int(req.SeatCount); i++ {
		labels = append(labels, fmt.Sprintf("%s%d", indexToRowLabel(i/perRow), i%perRow+1))
	}
	return labels, nil
}

type updateBusReq struct {
	Name        *string `json:"name"`
	Origin      *string `json:"origin"`
	Destination *string `json:"destination"`
	StartTime   *string `json:"start_time"`
	ReachTime   *string `json:"reach_time"`
	PriceCents  *uint32 `json:"price_cents"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateBus applies a partial update.  Seat count is immutable once the
// bus exists; capacity changes require a new bus.
func (h *OperatorHandler) UpdateBus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req updateBusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StartTime != nil && !validHHMM(*req.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	}
	if req.ReachTime != nil && !validHHMM(*req.ReachTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reach_time must be HH:MM"})
	}

	ctx := c.Request().Context()
	err = h.Buses.Update(ctx, id, req.Name, req.Origin, req.Destination, req.StartTime, req.ReachTime, req.PriceCents, req.IsActive)
	switch err {
	case nil:
	case repository.ErrBusNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	case repository.ErrNoChange:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update bus failed"})
	}

	bus, err := h.Buses.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	return c.JSON(http.StatusOK, toBusView(bus))
}

// DeactivateBus soft-deletes a bus so it stops accepting bookings.
func (h *OperatorHandler) DeactivateBus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	if err := h.Buses.Deactivate(c.Request().Context(), id); err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate bus failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type addSeatsReq struct {
	Labels []string `json:"labels"`
}

// AddSeats extends the seat catalog of a bus (catalog mode only).
func (h *OperatorHandler) AddSeats(c echo.Context) error {
	if h.SeatMode != config.SeatModeCatalog {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat catalog disabled in label mode"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	var req addSeatsReq
	if err := c.Bind(&req); err != nil || len(req.Labels) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "labels required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Buses.GetByID(ctx, id); err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}

	seats := make([]model.Seat, 0, len(req.Labels))
	seen := make(map[string]bool, len(req.Labels))
	for _, raw := range req.Labels {
		l := strings.ToUpper(strings.TrimSpace(raw))
		if l == "" || seen[l] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "labels contains an empty or duplicate label"})
		}
		seen[l] = true
		seats = append(seats, model.Seat{BusID: id, Label: l})
	}
	if err := h.Seats.CreateBulk(ctx, seats); err != nil {
		if repository.IsDuplicateKey(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat label already exists on this bus"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seats failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"bus_id": id, "added": len(seats)})
}

// ListBusBookings returns the full ledger for one bus, newest first.
func (h *OperatorHandler) ListBusBookings(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Buses.GetByID(ctx, id); err != nil {
		if err == repository.ErrBusNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bus failed"})
	}
	details, err := h.Bookings.ListByBus(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bus_id": id, "bookings": details})
}
