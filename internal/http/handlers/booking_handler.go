package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"busline/internal/domain"
	"busline/internal/http/middleware"
	"busline/internal/services"
	"busline/internal/utils"
)

type createBookingPayload struct {
	TripID       int64   `json:"trip_id"`
	SeatIDs      []int64 `json:"seat_ids"`
	StartPointID int64   `json:"start_point_id"`
	EndPointID   int64   `json:"end_point_id"`
	FarePrice    string  `json:"fare_price"`
}

func CreateBooking(c *gin.Context) {
	var p createBookingPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	fare, err := utils.ParseMoney(p.FarePrice)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "fare_price", Msg: "invalid amount"})
		return
	}

	snapshots, err := bookingService(c).Create(c.Request.Context(), services.CreateBookingRequest{
		UserID:       middleware.UserID(c),
		TripID:       p.TripID,
		SeatIDs:      p.SeatIDs,
		StartPointID: p.StartPointID,
		EndPointID:   p.EndPointID,
		FarePrice:    fare,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bookings": snapshots})
}

type reschedulePayload struct {
	TripID       int64   `json:"trip_id"`
	SeatIDs      []int64 `json:"seat_ids"`
	StartPointID int64   `json:"start_point_id"`
	EndPointID   int64   `json:"end_point_id"`
	FarePrice    string  `json:"fare_price"`
}

func RescheduleBooking(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var p reschedulePayload
	if !BindJSONOrError(c, &p) {
		return
	}
	fare, err := utils.ParseMoney(p.FarePrice)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "fare_price", Msg: "invalid amount"})
		return
	}

	snapshot, err := bookingService(c).Reschedule(c.Request.Context(), services.RescheduleRequest{
		UserID:       middleware.UserID(c),
		BookingID:    bookingID,
		TripID:       p.TripID,
		SeatIDs:      p.SeatIDs,
		StartPointID: p.StartPointID,
		EndPointID:   p.EndPointID,
		FarePrice:    fare,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": snapshot})
}

func CancelBooking(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := bookingService(c).Cancel(c.Request.Context(), bookingID, caller); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled", "booking_id": bookingID})
}

func BookingHistory(c *gin.Context) {
	entries, err := bookingService(c).History(middleware.UserID(c), time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": entries})
}

func TicketDetails(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	detail, err := bookingService(c).TicketDetails(bookingID, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func TicketPDF(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	data, name, err := bookingService(c).TicketPDF(bookingID, caller)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
