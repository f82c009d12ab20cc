package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
	"busline/internal/utils"
)

// TripService manages scheduled runs: creation by conductors, whole-trip
// cancellation, itinerary search and the conductor revenue report.
type TripService struct {
	DB *sql.DB

	TripRepo          repositories.TripRepository
	RouteRepo         repositories.RouteRepository
	BusRepo           repositories.BusRepository
	BookingRepo       repositories.BookingRepository
	BoardingPointRepo repositories.BoardingPointRepository
	NotificationRepo  repositories.NotificationRepository

	Topology     TopologyService
	Availability AvailabilityService
	RequestID    string
}

// bookingLeadTime is the minimum gap between now and departure for a trip
// to appear in search results.
const bookingLeadTime = 30 * time.Minute

type CreateTripRequest struct {
	BusID     int64
	RouteID   int64
	StartTime time.Time
}

func (s TripService) Create(req CreateTripRequest, conductor models.User) (models.Trip, error) {
	var none models.Trip
	if conductor.Role != models.RoleBusConductor {
		return none, domain.AuthorizationError{Msg: "only bus conductors can schedule trips"}
	}
	if req.BusID <= 0 {
		return none, domain.ValidationError{Field: "bus_id"}
	}
	if req.StartTime.IsZero() {
		return none, domain.ValidationError{Field: "start_time"}
	}
	if conductor.BusID != req.BusID {
		return none, domain.AuthorizationError{Msg: "conductor is not assigned to this bus"}
	}

	bus, err := s.BusRepo.GetByID(req.BusID)
	if err != nil {
		return none, err
	}
	route, err := s.RouteRepo.GetByID(req.RouteID)
	if err != nil {
		return none, err
	}

	trip := models.Trip{
		Name:      fmt.Sprintf("%s | on | %s", bus.Name, route.Name),
		BusID:     bus.ID,
		RouteID:   route.ID,
		StartTime: req.StartTime,
		Revenue:   decimal.Zero,
	}
	id, err := s.TripRepo.Create(trip)
	if err != nil {
		return none, err
	}
	trip.ID = id

	utils.LogEvent(s.RequestID, "trip", "create",
		fmt.Sprintf("trip_id=%d bus_id=%d route_id=%d", id, bus.ID, route.ID))
	return trip, nil
}

// Cancel marks the trip canceled, zeroes its revenue and sweeps every
// active booking to BUS_TRIP_CANCELED in one transaction. Verified bookings
// are left alone: the passenger already traveled.
func (s TripService) Cancel(ctx context.Context, tripID int64, conductor models.User) (int64, error) {
	if conductor.Role != models.RoleBusConductor {
		return 0, domain.AuthorizationError{Msg: "only bus conductors can cancel trips"}
	}
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return 0, err
	}
	if conductor.BusID != trip.BusID {
		return 0, domain.AuthorizationError{Msg: "conductor is not assigned to this trip's bus"}
	}

	affected, err := s.BookingRepo.ListActiveByTrip(tripID)
	if err != nil {
		return 0, err
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	locked, err := s.TripRepo.GetForUpdate(tx, tripID)
	if err != nil {
		return 0, err
	}
	if locked.Canceled {
		return 0, domain.StateError{Msg: "trip has already been canceled"}
	}

	if err := s.TripRepo.MarkCanceled(tx, tripID); err != nil {
		return 0, err
	}
	swept, err := s.BookingRepo.SweepTripCanceled(tx, tripID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.InternalError{Err: err}
	}

	s.Availability.Invalidate(ctx, tripID)
	msg := fmt.Sprintf("Trip %s has been canceled. Your booking is no longer valid.", trip.Name)
	notified := make(map[int64]bool, len(affected))
	for _, b := range affected {
		if b.Status == models.StatusVerified || notified[b.UserID] {
			continue
		}
		notified[b.UserID] = true
		if err := s.NotificationRepo.Create(b.UserID, msg, models.NotifyTripCanceled); err != nil {
			utils.LogEvent(s.RequestID, "trip", "cancel",
				fmt.Sprintf("user_id=%d notify failed: %v", b.UserID, err))
		}
	}

	utils.LogEvent(s.RequestID, "trip", "cancel",
		fmt.Sprintf("trip_id=%d bookings_swept=%d", tripID, swept))
	return swept, nil
}

// TripSearchResult is one bookable trip serving the requested itinerary,
// annotated with the projected arrival at the rider's start point.
type TripSearchResult struct {
	Trip             models.Trip     `json:"trip"`
	RouteName        string          `json:"route_name"`
	EstimatedArrival time.Time       `json:"estimated_arrival"`
	DistanceKM       decimal.Decimal `json:"distance_km"`
}

// Search returns upcoming trips whose route serves start before end, at
// least the booking lead time in the future.
func (s TripService) Search(startPointID, endPointID int64, now time.Time) ([]TripSearchResult, error) {
	if startPointID <= 0 || endPointID <= 0 {
		return nil, domain.ValidationError{Field: "point_id"}
	}
	if startPointID == endPointID {
		return nil, domain.ValidationError{Field: "point_id", Msg: "start and end points must differ"}
	}

	routeIDs, err := s.RouteRepo.RoutesServingPoints(startPointID, endPointID)
	if err != nil {
		return nil, err
	}

	// Keep only routes where the itinerary runs forward; a route serving
	// both points in the wrong order cannot carry this rider.
	type routeInfo struct {
		name     string
		sections []models.Section
		start    models.Section
		end      models.Section
	}
	usable := make(map[int64]routeInfo)
	var usableIDs []int64
	for _, routeID := range routeIDs {
		route, err := s.RouteRepo.GetByID(routeID)
		if err != nil {
			return nil, err
		}
		if _, _, err := resolveItinerary(route.Sections, startPointID, endPointID); err != nil {
			continue
		}
		start, _ := s.Topology.SectionContaining(route.Sections, startPointID)
		end, _ := s.Topology.SectionContaining(route.Sections, endPointID)
		usable[routeID] = routeInfo{name: route.Name, sections: route.Sections, start: start, end: end}
		usableIDs = append(usableIDs, routeID)
	}
	if len(usableIDs) == 0 {
		return []TripSearchResult{}, nil
	}

	trips, err := s.TripRepo.ListBookableByRoutes(usableIDs, now.Add(bookingLeadTime))
	if err != nil {
		return nil, err
	}

	results := make([]TripSearchResult, 0, len(trips))
	for _, trip := range trips {
		info := usable[trip.RouteID]
		results = append(results, TripSearchResult{
			Trip:             trip,
			RouteName:        info.name,
			EstimatedArrival: EstimateArrival(trip.StartTime, info.sections, info.start),
			DistanceKM:       SpanDistance(info.sections, info.start, info.end),
		})
	}
	return results, nil
}

// ConductorReport summarizes a bus for its conductor dashboard.
type ConductorReport struct {
	BusID             int64            `json:"bus_id"`
	UnreleasedRevenue decimal.Decimal  `json:"unreleased_revenue"`
	TripsThisWeek     int              `json:"trips_this_week"`
	RecentBookings    []models.Booking `json:"recent_bookings"`
}

func (s TripService) Report(conductor models.User, now time.Time) (ConductorReport, error) {
	var none ConductorReport
	if conductor.Role != models.RoleBusConductor {
		return none, domain.AuthorizationError{Msg: "only bus conductors can view bus reports"}
	}

	revenue, err := s.TripRepo.UnreleasedRevenue(conductor.BusID)
	if err != nil {
		return none, err
	}
	weekStart := startOfWeek(now)
	count, err := s.TripRepo.CountInWindow(conductor.BusID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return none, err
	}
	recent, err := s.BookingRepo.RecentByBus(conductor.BusID, 5)
	if err != nil {
		return none, err
	}

	return ConductorReport{
		BusID:             conductor.BusID,
		UnreleasedRevenue: revenue,
		TripsThisWeek:     count,
		RecentBookings:    recent,
	}, nil
}

// startOfWeek returns midnight on the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

func (s TripService) Upcoming(conductor models.User, now time.Time) ([]models.Trip, error) {
	if conductor.Role != models.RoleBusConductor {
		return nil, domain.AuthorizationError{Msg: "only bus conductors can list their trips"}
	}
	return s.TripRepo.ListUpcomingByBus(conductor.BusID, now)
}

// TripDetail is a single trip with its route context.
type TripDetail struct {
	Trip     models.Trip      `json:"trip"`
	Bus      models.Bus       `json:"bus"`
	Route    models.Route     `json:"route"`
	EndsAt   time.Time        `json:"ends_at"`
	Sections []models.Section `json:"sections"`
}

// ConductorDetail is the trip detail plus its booking list, restricted to
// the conductor assigned to the trip's bus.
type ConductorTripDetail struct {
	TripDetail
	Bookings []models.Booking `json:"bookings"`
}

func (s TripService) ConductorDetail(tripID int64, conductor models.User) (ConductorTripDetail, error) {
	var none ConductorTripDetail
	detail, err := s.Detail(tripID)
	if err != nil {
		return none, err
	}
	if conductor.BusID != detail.Trip.BusID {
		return none, domain.AuthorizationError{Msg: "conductor is not assigned to this trip's bus"}
	}
	bookings, err := s.BookingRepo.ListByTrip(tripID)
	if err != nil {
		return none, err
	}
	return ConductorTripDetail{TripDetail: detail, Bookings: bookings}, nil
}

func (s TripService) Detail(tripID int64) (TripDetail, error) {
	var none TripDetail
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return none, err
	}
	bus, err := s.BusRepo.GetByID(trip.BusID)
	if err != nil {
		return none, err
	}
	route, err := s.RouteRepo.GetByID(trip.RouteID)
	if err != nil {
		return none, err
	}
	return TripDetail{
		Trip:     trip,
		Bus:      bus,
		Route:    route,
		EndsAt:   TripEndTime(trip.StartTime, route.Sections),
		Sections: route.Sections,
	}, nil
}
