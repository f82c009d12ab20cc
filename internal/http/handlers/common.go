package handlers

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	intconfig "busline/internal/config"
	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/http/middleware"
	"busline/internal/repositories"
	"busline/internal/services"
	"busline/internal/ticket"
)

var (
	depsMu sync.RWMutex
	env    intconfig.Env
	rdb    *redis.Client
	signer *ticket.Signer
)

// Configure stores the process-wide dependencies the handlers build their
// services from. Called once at startup, before the router serves traffic.
func Configure(e intconfig.Env, redisClient *redis.Client) {
	depsMu.Lock()
	defer depsMu.Unlock()
	env = e
	rdb = redisClient
	signer = ticket.NewSigner(e.TicketSecret)
}

func deps() (intconfig.Env, *redis.Client, *ticket.Signer) {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return env, rdb, signer
}

func availabilityService(c *gin.Context) services.AvailabilityService {
	e, r, _ := deps()
	db := intconfig.DB
	return services.AvailabilityService{
		TripRepo:          repositories.TripRepository{DB: db},
		RouteRepo:         repositories.RouteRepository{DB: db},
		SeatRepo:          repositories.SeatRepository{DB: db},
		BookingRepo:       repositories.BookingRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		Topology:          services.TopologyService{RouteRepo: repositories.RouteRepository{DB: db}},
		Redis:             r,
		CacheTTL:          e.AvailabilityCacheTTL,
	}
}

func bookingService(c *gin.Context) services.BookingService {
	_, _, sg := deps()
	db := intconfig.DB
	return services.BookingService{
		DB:                db,
		TripRepo:          repositories.TripRepository{DB: db},
		RouteRepo:         repositories.RouteRepository{DB: db},
		SeatRepo:          repositories.SeatRepository{DB: db},
		BookingRepo:       repositories.BookingRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		BusRepo:           repositories.BusRepository{DB: db},
		NotificationRepo:  repositories.NotificationRepository{DB: db},
		Signer:            sg,
		Availability:      availabilityService(c),
		RequestID:         middleware.GetRequestID(c),
	}
}

func tripService(c *gin.Context) services.TripService {
	db := intconfig.DB
	return services.TripService{
		DB:                db,
		TripRepo:          repositories.TripRepository{DB: db},
		RouteRepo:         repositories.RouteRepository{DB: db},
		BusRepo:           repositories.BusRepository{DB: db},
		BookingRepo:       repositories.BookingRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		NotificationRepo:  repositories.NotificationRepository{DB: db},
		Topology:          services.TopologyService{RouteRepo: repositories.RouteRepository{DB: db}},
		Availability:      availabilityService(c),
		RequestID:         middleware.GetRequestID(c),
	}
}

func fareService() services.FareService {
	db := intconfig.DB
	return services.FareService{
		TripRepo:  repositories.TripRepository{DB: db},
		BusRepo:   repositories.BusRepository{DB: db},
		RouteRepo: repositories.RouteRepository{DB: db},
		FareRepo:  repositories.FareRepository{DB: db},
	}
}

func authService(c *gin.Context) services.AuthService {
	e, _, _ := deps()
	db := intconfig.DB
	return services.AuthService{
		UserRepo:  repositories.UserRepository{DB: db},
		BusRepo:   repositories.BusRepository{DB: db},
		JWTSecret: e.JWTSecret,
		RequestID: middleware.GetRequestID(c),
	}
}

func fleetService(c *gin.Context) services.FleetService {
	db := intconfig.DB
	return services.FleetService{
		RouteRepo:         repositories.RouteRepository{DB: db},
		BusRepo:           repositories.BusRepository{DB: db},
		FareRepo:          repositories.FareRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		RequestID:         middleware.GetRequestID(c),
	}
}

// currentUser loads the authenticated caller's full profile. Conductor
// handlers need the bus assignment, which the token does not carry.
func currentUser(c *gin.Context) (models.User, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return models.User{}, domain.AuthorizationError{Msg: "authentication required"}
	}
	return repositories.UserRepository{DB: intconfig.DB}.GetByID(id)
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondDomainError(c, domain.ValidationError{Field: name, Msg: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseIDQuery(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		RespondDomainError(c, domain.ValidationError{Field: name, Msg: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "empty request body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid request payload", err.Error())
		return false
	}
	return true
}
