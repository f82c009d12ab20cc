package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/utils"
)

type sectionPayload struct {
	Name          string  `json:"name"`
	Position      int     `json:"position"`
	DistanceKM    string  `json:"distance_km"`
	TravelTimeMin int     `json:"travel_time_min"`
	BusyTimeMin   int     `json:"busy_travel_time_min"`
	PointIDs      []int64 `json:"point_ids"`
}

type createRoutePayload struct {
	Name        string           `json:"name"`
	RouteNumber string           `json:"route_number"`
	DisplayName string           `json:"display_name"`
	Reversed    bool             `json:"is_reversed"`
	Sections    []sectionPayload `json:"sections"`
}

func CreateRoute(c *gin.Context) {
	var p createRoutePayload
	if !BindJSONOrError(c, &p) {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	sections := make([]models.Section, 0, len(p.Sections))
	for _, sp := range p.Sections {
		dist, err := utils.ParseMoney(sp.DistanceKM)
		if err != nil {
			RespondDomainError(c, domain.ValidationError{Field: "distance_km", Msg: "invalid number"})
			return
		}
		sections = append(sections, models.Section{
			Name:           sp.Name,
			Position:       sp.Position,
			DistanceKM:     dist,
			TravelTime:     time.Duration(sp.TravelTimeMin) * time.Minute,
			BusyTravelTime: time.Duration(sp.BusyTimeMin) * time.Minute,
			PointIDs:       sp.PointIDs,
		})
	}

	route, err := fleetService(c).CreateRoute(models.Route{
		Name:        p.Name,
		RouteNumber: p.RouteNumber,
		DisplayName: p.DisplayName,
		Reversed:    p.Reversed,
		Sections:    sections,
	}, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": route})
}

func SearchRoutes(c *gin.Context) {
	routes, err := fleetService(c).RouteRepo.Search(c.Query("q"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

type createBusPayload struct {
	Name         string `json:"name"`
	Number       string `json:"number"`
	SeatCount    int    `json:"seat_count"`
	ServiceClass string `json:"service_class"`
	OwnerID      int64  `json:"owner_id"`
}

func CreateBus(c *gin.Context) {
	var p createBusPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	bus, err := fleetService(c).CreateBus(models.Bus{
		Name:         p.Name,
		Number:       p.Number,
		SeatCount:    p.SeatCount,
		ServiceClass: models.ParseServiceClass(p.ServiceClass),
		OwnerID:      p.OwnerID,
	}, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bus": bus})
}

type resyncSeatsPayload struct {
	SeatCount int `json:"seat_count"`
}

func ResyncSeats(c *gin.Context) {
	busID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var p resyncSeatsPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := fleetService(c).ResyncSeats(busID, p.SeatCount, caller); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resynced", "bus_id": busID, "seat_count": p.SeatCount})
}

type setFarePayload struct {
	ServiceClass string `json:"service_class"`
	FareNumber   int    `json:"fare_number"`
	Price        string `json:"price"`
}

func SetFare(c *gin.Context) {
	var p setFarePayload
	if !BindJSONOrError(c, &p) {
		return
	}
	price, err := utils.ParseMoney(p.Price)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "price", Msg: "invalid amount"})
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := fleetService(c).SetFare(models.ParseServiceClass(p.ServiceClass), p.FareNumber, price, caller); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createBoardingPointPayload struct {
	Name      string  `json:"name"`
	Province  string  `json:"province"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func CreateBoardingPoint(c *gin.Context) {
	var p createBoardingPointPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	point, err := fleetService(c).CreateBoardingPoint(models.BoardingPoint{
		Name:      p.Name,
		Province:  p.Province,
		City:      p.City,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"boarding_point": point})
}

type updateCoordinatesPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func UpdateBoardingPointCoordinates(c *gin.Context) {
	pointID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var p updateCoordinatesPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	point, err := fleetService(c).UpdateBoardingPointCoordinates(pointID, p.Latitude, p.Longitude, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boarding_point": point})
}
