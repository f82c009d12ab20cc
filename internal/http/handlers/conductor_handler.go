package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type verifyTicketPayload struct {
	Token string `json:"token"`
}

// VerifyTicket authenticates a scanned ticket token and marks the booking
// verified.
func VerifyTicket(c *gin.Context) {
	var p verifyTicketPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	conductor, err := currentUser(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	result, err := bookingService(c).VerifyTicket(p.Token, conductor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified", "booking": result})
}
