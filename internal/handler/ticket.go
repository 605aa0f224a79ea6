package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Ticket renders a single-page eTicket PDF for a confirmed booking.  The
// QR code encodes the booking reference so boarding staff can verify it
// against the ledger.
func (h *BookingHandler) Ticket(c echo.Context) error {
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
	if d.Status == model.StatusCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no ticket for a cancelled booking"})
	}

	pdfBytes, err := renderTicketPDF(d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render ticket failed"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=ticket-%s.pdf", d.Ref))
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}

func renderTicketPDF(d *repository.BookingDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pdf.SetAutoPageBreak(false, 0)

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, "BUS eTICKET")
	pdf.Ln(20)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// Summary box with the QR code on the right.
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "BOOKING SUMMARY")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Reference: %s", d.Ref))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", d.Status))
	pdf.Ln(6)
	seatLabels := make([]string, 0, len(d.Seats))
	for _, s := range d.Seats {
		seatLabels = append(seatLabels, s.Label)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Seats: %s", strings.Join(seatLabels, ", ")))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %d.%02d", d.PriceCents/100, d.PriceCents%100))

	qrBytes, err := qrcode.Encode(d.Ref, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrBytes))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this QR code when boarding.")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, "JOURNEY DETAILS", "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Bus: %s (%s)", d.BusName, d.BusNumber))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Route: %s to %s", d.Origin, d.Destination))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", d.JourneyDate))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Departure: %s   Arrival: %s", d.StartTime, d.ReachTime))
	pdf.Ln(8)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, "Carry a valid ID matching the booking account.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
