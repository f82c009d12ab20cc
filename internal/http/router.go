package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	intconfig "busline/internal/config"
	"busline/internal/domain/models"
	h "busline/internal/http/handlers"
	"busline/internal/http/middleware"
)

func NewRouter(env intconfig.Env, rdb *redis.Client) *gin.Engine {
	h.Configure(env, rdb)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(env.JWTSecret)
	conductorOnly := middleware.RequireRoles(models.RoleBusConductor)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		// Auth
		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/conductor-login", h.ConductorLogin)

		// Trip discovery, open to any authenticated rider
		trips := api.Group("/trips", auth)
		trips.GET("/search", h.SearchTrips)
		trips.GET("/:id", h.TripDetail)
		trips.GET("/:id/availability", h.AvailableSeats)
		trips.GET("/:id/fare", h.FareQuote)

		// Bookings
		bookings := api.Group("/bookings", auth)
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.BookingHistory)
		bookings.PUT("/:id/reschedule", h.RescheduleBooking)
		bookings.DELETE("/:id", h.CancelBooking)
		bookings.GET("/:id/ticket", h.TicketDetails)
		bookings.GET("/:id/ticket/pdf", h.TicketPDF)

		// Notifications
		notifications := api.Group("/notifications", auth)
		notifications.GET("", h.ListNotifications)
		notifications.PUT("/:id/read", h.MarkNotificationRead)

		// Conductor surface
		conductor := api.Group("/conductor", auth, conductorOnly)
		conductor.POST("/trips", h.CreateTrip)
		conductor.DELETE("/trips/:id", h.CancelTrip)
		conductor.GET("/trips", h.UpcomingTrips)
		conductor.GET("/trips/:id", h.ConductorTripDetail)
		conductor.GET("/trips/:id/seat-map", h.SeatMap)
		conductor.POST("/verify", h.VerifyTicket)
		conductor.GET("/report", h.ConductorReport)

		// Admin surface
		admin := api.Group("/admin", auth, adminOnly)
		admin.POST("/routes", h.CreateRoute)
		admin.GET("/routes", h.SearchRoutes)
		admin.POST("/buses", h.CreateBus)
		admin.PUT("/buses/:id/resync-seats", h.ResyncSeats)
		admin.POST("/fares", h.SetFare)
		admin.POST("/boarding-points", h.CreateBoardingPoint)
		admin.PUT("/boarding-points/:id/coordinates", h.UpdateBoardingPointCoordinates)
	}

	return r
}
