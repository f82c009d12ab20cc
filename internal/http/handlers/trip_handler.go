package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"busline/internal/domain"
	"busline/internal/services"
	"busline/internal/utils"
)

type createTripPayload struct {
	BusID     int64  `json:"bus_id"`
	RouteID   int64  `json:"route_id"`
	StartTime string `json:"start_time"`
}

func CreateTrip(c *gin.Context) {
	var p createTripPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	startTime, err := utils.ParseDateTime(p.StartTime)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "start_time", Msg: "invalid datetime"})
		return
	}
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	trip, err := tripService(c).Create(services.CreateTripRequest{
		BusID:     p.BusID,
		RouteID:   p.RouteID,
		StartTime: startTime,
	}, conductor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": trip})
}

func CancelTrip(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	swept, err := tripService(c).Cancel(c.Request.Context(), tripID, conductor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled", "trip_id": tripID, "bookings_canceled": swept})
}

// SearchTrips lists bookable trips between two boarding points.
func SearchTrips(c *gin.Context) {
	startPointID, ok := parseIDQuery(c, "start_point_id")
	if !ok {
		return
	}
	endPointID, ok := parseIDQuery(c, "end_point_id")
	if !ok {
		return
	}
	results, err := tripService(c).Search(startPointID, endPointID, time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": results})
}

func TripDetail(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := tripService(c).Detail(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func ConductorTripDetail(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	detail, err := tripService(c).ConductorDetail(tripID, conductor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func UpcomingTrips(c *gin.Context) {
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	trips, err := tripService(c).Upcoming(conductor, time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func ConductorReport(c *gin.Context) {
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	report, err := tripService(c).Report(conductor, time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// FareQuote returns the flat fare for a luxury or semi-luxury trip.
func FareQuote(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	quote, err := fareService().QuoteForTrip(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
