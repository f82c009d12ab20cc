package models

import "time"

const (
	NotifyBookingConfirmation = "BOOKING_CONFIRMATION"
	NotifyBookingRescheduled  = "BOOKING_RESCHEDULED"
	NotifyTripCanceled        = "BUS_TRIP_CANCELED"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
