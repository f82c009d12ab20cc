package models

import "strings"

// ServiceClass determines which fare table applies to a bus.
type ServiceClass string

const (
	ClassNormal     ServiceClass = "NORMAL"
	ClassSemiLuxury ServiceClass = "SEMI_LUXURY"
	ClassLuxury     ServiceClass = "LUXURY"
)

func ParseServiceClass(s string) ServiceClass {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ClassSemiLuxury), "SEMI-LUXURY":
		return ClassSemiLuxury
	case string(ClassLuxury):
		return ClassLuxury
	default:
		return ClassNormal
	}
}

type Bus struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Number       string       `json:"number"`
	SeatCount    int          `json:"seat_count"`
	ServiceClass ServiceClass `json:"service_class"`
	OwnerID      int64        `json:"owner_id"`
	Approved     bool         `json:"approved"`
}

// Seat is a physical seat on a bus, numbered 1..seat_count. Seats are
// long-lived reference entities; bookings reference them but never own them.
type Seat struct {
	ID         int64 `json:"id"`
	BusID      int64 `json:"bus_id"`
	SeatNumber int   `json:"seat_number"`
}
