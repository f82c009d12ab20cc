package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AvailableSeats answers the seat picker: which seats are free on a trip
// for the rider's boarding-to-alighting span.
func AvailableSeats(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	startPointID, ok := parseIDQuery(c, "start_point_id")
	if !ok {
		return
	}
	endPointID, ok := parseIDQuery(c, "end_point_id")
	if !ok {
		return
	}
	seats, err := availabilityService(c).AvailableSeats(c.Request.Context(), tripID, startPointID, endPointID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip_id": tripID, "seats": seats})
}

// SeatMap is the conductor view: every active booking on the trip with its
// occupied span.
func SeatMap(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	svc := availabilityService(c)
	trip, err := svc.TripRepo.GetByID(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if conductor.BusID != trip.BusID {
		respondError(c, http.StatusForbidden, "forbidden", "conductor is not assigned to this trip's bus", nil)
		return
	}
	entries, err := svc.SeatMap(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip_id": tripID, "seat_map": entries})
}
