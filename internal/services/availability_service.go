package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
)

// AvailabilityService answers "which seats are free for this itinerary" with
// interval-overlap logic over the trip's active bookings. Results are cached
// in Redis on the query path only; the authoritative recheck happens inside
// the booking transaction, so a stale cache can never corrupt an interval.
type AvailabilityService struct {
	TripRepo          repositories.TripRepository
	RouteRepo         repositories.RouteRepository
	SeatRepo          repositories.SeatRepository
	BookingRepo       repositories.BookingRepository
	BoardingPointRepo repositories.BoardingPointRepository
	Topology          TopologyService

	Redis    *redis.Client
	CacheTTL time.Duration
}

type SeatAvailability struct {
	SeatID     int64 `json:"seat_id"`
	SeatNumber int   `json:"seat_number"`
	Available  bool  `json:"available"`
}

// resolveItinerary maps two boarding points onto section positions of an
// ordered section list. Points not on the route, or out of order, are an
// invalid itinerary.
func resolveItinerary(sections []models.Section, startPointID, endPointID int64) (int, int, error) {
	topo := TopologyService{}
	start, err := topo.SectionContaining(sections, startPointID)
	if err != nil {
		return 0, 0, domain.ValidationError{Field: "itinerary", Msg: "start point is not on this route"}
	}
	end, err := topo.SectionContaining(sections, endPointID)
	if err != nil {
		return 0, 0, domain.ValidationError{Field: "itinerary", Msg: "end point is not on this route"}
	}
	if start.Position >= end.Position {
		return 0, 0, domain.ValidationError{Field: "itinerary", Msg: "start point must precede end point"}
	}
	return start.Position, end.Position, nil
}

// AvailableSeats returns every seat on the trip's bus with its availability
// for the candidate range. A bus with zero seats yields an empty set, not an
// error.
func (s AvailabilityService) AvailableSeats(ctx context.Context, tripID, startPointID, endPointID int64) ([]SeatAvailability, error) {
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return nil, err
	}

	sections, err := s.RouteRepo.SectionsByRoute(trip.RouteID)
	if err != nil {
		return nil, err
	}
	startPos, endPos, err := resolveItinerary(sections, startPointID, endPointID)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(ctx, tripID, startPointID, endPointID)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	seats, err := s.SeatRepo.ListByBus(trip.BusID)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return []SeatAvailability{}, nil
	}

	bookings, err := s.BookingRepo.ListActiveByTrip(tripID)
	if err != nil {
		return nil, err
	}
	bySeat := map[int64][]models.Booking{}
	for _, b := range bookings {
		bySeat[b.SeatID] = append(bySeat[b.SeatID], b)
	}

	out := make([]SeatAvailability, 0, len(seats))
	for _, seat := range seats {
		available := true
		for _, b := range bySeat[seat.ID] {
			if b.OverlapsRange(startPos, endPos) {
				available = false
				break
			}
		}
		out = append(out, SeatAvailability{
			SeatID:     seat.ID,
			SeatNumber: seat.SeatNumber,
			Available:  available,
		})
	}

	s.cacheSet(ctx, cacheKey, out)
	return out, nil
}

// Invalidate bumps the trip's cache version so every cached itinerary for it
// goes stale at once. Called after each committed create/reschedule/cancel.
func (s AvailabilityService) Invalidate(ctx context.Context, tripID int64) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Incr(ctx, versionKey(tripID)).Err()
}

func versionKey(tripID int64) string {
	return fmt.Sprintf("seats:ver:%d", tripID)
}

func (s AvailabilityService) cacheKey(ctx context.Context, tripID, startPointID, endPointID int64) string {
	version := "0"
	if s.Redis != nil {
		if v, err := s.Redis.Get(ctx, versionKey(tripID)).Result(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("seats:%d:v%s:%d-%d", tripID, version, startPointID, endPointID)
}

func (s AvailabilityService) cacheGet(ctx context.Context, key string) ([]SeatAvailability, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var out []SeatAvailability
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s AvailabilityService) cacheSet(ctx context.Context, key string, value []SeatAvailability) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	_ = s.Redis.Set(ctx, key, raw, ttl).Err()
}

// SeatMapEntry mirrors the conductor seat-map view: occupancy plus the
// booked journey when a seat is taken anywhere on the trip.
type SeatMapEntry struct {
	SeatID     int64  `json:"seat_id"`
	SeatNumber int    `json:"seat_number"`
	Available  bool   `json:"available"`
	StartPoint string `json:"start_point,omitempty"`
	EndPoint   string `json:"end_point,omitempty"`
}

// SeatMap lists each seat with the first active booking's journey endpoints.
func (s AvailabilityService) SeatMap(tripID int64) ([]SeatMapEntry, error) {
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	seats, err := s.SeatRepo.ListByBus(trip.BusID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.BookingRepo.ListActiveByTrip(tripID)
	if err != nil {
		return nil, err
	}
	bySeat := map[int64]models.Booking{}
	for _, b := range bookings {
		if _, ok := bySeat[b.SeatID]; !ok {
			bySeat[b.SeatID] = b
		}
	}

	out := make([]SeatMapEntry, 0, len(seats))
	for _, seat := range seats {
		entry := SeatMapEntry{SeatID: seat.ID, SeatNumber: seat.SeatNumber, Available: true}
		if b, ok := bySeat[seat.ID]; ok {
			entry.Available = false
			if p, err := s.BoardingPointRepo.GetByID(b.StartPointID); err == nil {
				entry.StartPoint = p.Name
			}
			if p, err := s.BoardingPointRepo.GetByID(b.EndPointID); err == nil {
				entry.EndPoint = p.Name
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
