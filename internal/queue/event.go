// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by the publisher and the background consumer.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published when a booking is successfully
// confirmed. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID       uint64   `json:"booking_id"`
	BookingRef      string   `json:"booking_ref"`
	UserID          uint64   `json:"user_id"`
	BusID           uint64   `json:"bus_id"`
	BusName         string   `json:"bus_name"`
	BusNumber       string   `json:"bus_number"`
	Origin          string   `json:"origin"`
	Destination     string   `json:"destination"`
	StartTime       string   `json:"start_time"`
	JourneyDate     string   `json:"journey_date"`
	SeatLabels      []string `json:"seats"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and its
// seats return to the available pool.
type BookingCancelledEvent struct {
	BookingID   uint64 `json:"booking_id"`
	BookingRef  string `json:"booking_ref"`
	UserID      uint64 `json:"user_id"`
	BusID       uint64 `json:"bus_id"`
	JourneyDate string `json:"journey_date"`
	Reason      string `json:"reason"`
	CancelledAt string `json:"cancelled_at"`
}
