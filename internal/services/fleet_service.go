package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
	"busline/internal/utils"
)

// FleetService covers the admin surface: routes, buses, fare tables and
// boarding points. All mutations require the admin role.
type FleetService struct {
	RouteRepo         repositories.RouteRepository
	BusRepo           repositories.BusRepository
	FareRepo          repositories.FareRepository
	BoardingPointRepo repositories.BoardingPointRepository
	RequestID         string
}

func requireAdmin(caller models.User) error {
	if caller.Role != models.RoleAdmin {
		return domain.AuthorizationError{Msg: "admin role required"}
	}
	return nil
}

func (s FleetService) CreateRoute(route models.Route, caller models.User) (models.Route, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Route{}, err
	}
	if route.Name == "" {
		return models.Route{}, domain.ValidationError{Field: "name"}
	}
	id, err := s.RouteRepo.Create(route)
	if err != nil {
		return models.Route{}, err
	}
	utils.LogEvent(s.RequestID, "fleet", "create_route", fmt.Sprintf("route_id=%d", id))
	return s.RouteRepo.GetByID(id)
}

func (s FleetService) CreateBus(bus models.Bus, caller models.User) (models.Bus, error) {
	if err := requireAdmin(caller); err != nil {
		return models.Bus{}, err
	}
	switch {
	case bus.Name == "":
		return models.Bus{}, domain.ValidationError{Field: "name"}
	case bus.Number == "":
		return models.Bus{}, domain.ValidationError{Field: "number"}
	case bus.SeatCount <= 0:
		return models.Bus{}, domain.ValidationError{Field: "seat_count", Msg: "must be positive"}
	}
	id, err := s.BusRepo.Create(bus)
	if err != nil {
		return models.Bus{}, err
	}
	bus.ID = id
	utils.LogEvent(s.RequestID, "fleet", "create_bus", fmt.Sprintf("bus_id=%d", id))
	return bus, nil
}

// ResyncSeats reconciles the seat rows of a bus after its physical layout
// changed. Seats above the new count are removed, missing ones created.
func (s FleetService) ResyncSeats(busID int64, seatCount int, caller models.User) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if seatCount <= 0 {
		return domain.ValidationError{Field: "seat_count", Msg: "must be positive"}
	}
	if _, err := s.BusRepo.GetByID(busID); err != nil {
		return err
	}
	if err := s.BusRepo.ResyncSeats(busID, seatCount); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "fleet", "resync_seats",
		fmt.Sprintf("bus_id=%d seat_count=%d", busID, seatCount))
	return nil
}

func (s FleetService) SetFare(class models.ServiceClass, fareNumber int, price decimal.Decimal, caller models.User) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if class == models.ClassNormal {
		return domain.ValidationError{Field: "service_class", Msg: "normal class has no fare table"}
	}
	if fareNumber <= 0 {
		return domain.ValidationError{Field: "fare_number", Msg: "must be positive"}
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return domain.ValidationError{Field: "price", Msg: "must be positive"}
	}
	if err := s.FareRepo.UpsertFare(class, fareNumber, price); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "fleet", "set_fare",
		fmt.Sprintf("class=%s fare_number=%d", class, fareNumber))
	return nil
}

func (s FleetService) CreateBoardingPoint(p models.BoardingPoint, caller models.User) (models.BoardingPoint, error) {
	if err := requireAdmin(caller); err != nil {
		return models.BoardingPoint{}, err
	}
	if p.Name == "" {
		return models.BoardingPoint{}, domain.ValidationError{Field: "name"}
	}
	id, err := s.BoardingPointRepo.Create(p)
	if err != nil {
		return models.BoardingPoint{}, err
	}
	p.ID = id
	utils.LogEvent(s.RequestID, "fleet", "create_boarding_point", fmt.Sprintf("point_id=%d", id))
	return p, nil
}

// UpdateBoardingPointCoordinates corrects a point's position. Coordinates are
// the only field still mutable once sections or bookings reference the point.
func (s FleetService) UpdateBoardingPointCoordinates(id int64, lat, lon float64, caller models.User) (models.BoardingPoint, error) {
	if err := requireAdmin(caller); err != nil {
		return models.BoardingPoint{}, err
	}
	if lat < -90 || lat > 90 {
		return models.BoardingPoint{}, domain.ValidationError{Field: "latitude", Msg: "out of range"}
	}
	if lon < -180 || lon > 180 {
		return models.BoardingPoint{}, domain.ValidationError{Field: "longitude", Msg: "out of range"}
	}
	if err := s.BoardingPointRepo.UpdateCoordinates(id, lat, lon); err != nil {
		return models.BoardingPoint{}, err
	}
	utils.LogEvent(s.RequestID, "fleet", "update_boarding_point", fmt.Sprintf("point_id=%d", id))
	return s.BoardingPointRepo.GetByID(id)
}
