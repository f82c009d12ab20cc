package models

import (
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
)

// BoardingPoint is a named, geocoded stop. Long-lived shared reference data;
// bookings point at it but never own it.
type BoardingPoint struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Province  string  `json:"province"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Section is one ordered segment of a route. Position is 0-based and unique
// within the route; the contiguous position order is what makes any two
// boarding points comparable as a half-open interval.
type Section struct {
	ID             int64           `json:"id"`
	RouteID        int64           `json:"route_id"`
	Name           string          `json:"name"`
	Position       int             `json:"position"`
	DistanceKM     decimal.Decimal `json:"distance_km"`
	TravelTime     time.Duration   `json:"travel_time"`
	BusyTravelTime time.Duration   `json:"busy_travel_time"`
	PointIDs       []int64         `json:"point_ids"`
}

// ServesPoint reports whether the section's boarding-point set contains id.
func (s Section) ServesPoint(id int64) bool {
	for _, p := range s.PointIDs {
		if p == id {
			return true
		}
	}
	return false
}

type Route struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RouteNumber string    `json:"route_number"`
	DisplayName string    `json:"display_name"`
	Reversed    bool      `json:"reversed"`
	Sections    []Section `json:"sections,omitempty"`
}

// ValidateSections enforces the topology invariant at creation time:
// positions form a contiguous 0..n-1 order. A route that fails this is a
// configuration error, surfaced here and never at query time.
func ValidateSections(sections []Section) error {
	if len(sections) == 0 {
		return domain.ValidationError{Field: "sections", Msg: "route has no sections"}
	}
	seen := make(map[int]bool, len(sections))
	max := -1
	for _, s := range sections {
		if s.Position < 0 {
			return domain.ValidationError{Field: "position", Msg: "section position must not be negative"}
		}
		if seen[s.Position] {
			return domain.ValidationError{Field: "position", Msg: "duplicate section position"}
		}
		seen[s.Position] = true
		if s.Position > max {
			max = s.Position
		}
	}
	if max != len(sections)-1 {
		return domain.ValidationError{Field: "position", Msg: "section positions must be contiguous from 0"}
	}
	return nil
}
