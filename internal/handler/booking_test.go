package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

// A malformed cancel body must be rejected, not silently treated as a
// cancel with the default reason.
func TestCancelRejectsMalformedBody(t *testing.T) {
	h := NewBookingHandler(service.NewBookingService(nil, nil, nil, config.SeatModeCatalog))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/3/cancel",
		strings.NewReader(`{"reason": `))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(5))
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}
