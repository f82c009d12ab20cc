package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"busline/internal/services"
)

type registerPayload struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func Register(c *gin.Context) {
	var p registerPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	result, err := authService(c).Register(services.RegisterRequest{
		Name:     p.Name,
		Username: p.Username,
		Email:    p.Email,
		Phone:    p.Phone,
		Password: p.Password,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type loginPayload struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

func Login(c *gin.Context) {
	var p loginPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	result, err := authService(c).Login(p.Identity, p.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type conductorLoginPayload struct {
	BusNumber string `json:"bus_number"`
	Password  string `json:"password"`
}

// ConductorLogin authenticates the onboard scanner device by bus number.
func ConductorLogin(c *gin.Context) {
	var p conductorLoginPayload
	if !BindJSONOrError(c, &p) {
		return
	}
	result, err := authService(c).ConductorLogin(p.BusNumber, p.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
