package models

import (
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
)

// BookingStatus values follow the lifecycle:
// PENDING -> BOOKED -> VERIFIED, with a reschedule chain off BOOKED capped at
// three hops. Cancellation by the user or by trip cancellation is terminal;
// trip cancellation never overrides VERIFIED.
type BookingStatus string

const (
	StatusPending         BookingStatus = "PENDING"
	StatusBooked          BookingStatus = "BOOKED"
	StatusVerified        BookingStatus = "VERIFIED"
	StatusBookingCanceled BookingStatus = "BOOKING_CANCELED"
	StatusTripCanceled    BookingStatus = "BUS_TRIP_CANCELED"
	StatusRescheduled1    BookingStatus = "RESCHEDULED_1"
	StatusRescheduled2    BookingStatus = "RESCHEDULED_2"
	StatusRescheduled3    BookingStatus = "RESCHEDULED_3"
)

// Canceled reports whether the booking no longer occupies its seat interval.
func (s BookingStatus) Canceled() bool {
	return s == StatusBookingCanceled || s == StatusTripCanceled
}

// Active statuses count against seat intervals and are swept when the trip
// is canceled.
func (s BookingStatus) Active() bool {
	return !s.Canceled()
}

// NextReschedule advances along the reschedule chain. A fourth reschedule is
// rejected outright rather than left undefined.
func (s BookingStatus) NextReschedule() (BookingStatus, error) {
	switch s {
	case StatusBooked, StatusPending:
		return StatusRescheduled1, nil
	case StatusRescheduled1:
		return StatusRescheduled2, nil
	case StatusRescheduled2:
		return StatusRescheduled3, nil
	case StatusRescheduled3:
		return "", domain.StateError{Msg: "booking has already been rescheduled three times"}
	case StatusVerified:
		return "", domain.StateError{Msg: "verified booking cannot be rescheduled"}
	default:
		return "", domain.StateError{Msg: "canceled booking cannot be rescheduled"}
	}
}

// Cancelable reports whether a user-initiated cancellation is allowed.
func (s BookingStatus) Cancelable() bool {
	switch s {
	case StatusPending, StatusBooked, StatusRescheduled1, StatusRescheduled2, StatusRescheduled3:
		return true
	default:
		return false
	}
}

type Booking struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	TripID       int64           `json:"trip_id"`
	SeatID       int64           `json:"seat_id"`
	SeatNumber   int             `json:"seat_number"`
	StartPointID int64           `json:"start_point_id"`
	EndPointID   int64           `json:"end_point_id"`
	StartPos     int             `json:"start_pos"`
	EndPos       int             `json:"end_pos"`
	FarePrice    decimal.Decimal `json:"fare_price"`
	BookedAt     time.Time       `json:"booked_at"`
	TicketToken  string          `json:"ticket_token,omitempty"`
	Status       BookingStatus   `json:"status"`
}

// OverlapsRange applies the half-open interval rule: [a,b) and [c,d)
// conflict unless b<=c or a>=d. Touching endpoints do not conflict.
func (b Booking) OverlapsRange(startPos, endPos int) bool {
	return !(endPos <= b.StartPos || startPos >= b.EndPos)
}
