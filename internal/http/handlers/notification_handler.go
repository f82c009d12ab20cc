package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	intconfig "busline/internal/config"
	"busline/internal/http/middleware"
	"busline/internal/repositories"
)

func notificationRepo() repositories.NotificationRepository {
	return repositories.NotificationRepository{DB: intconfig.DB}
}

func ListNotifications(c *gin.Context) {
	items, err := notificationRepo().ListByUser(middleware.UserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func MarkNotificationRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := notificationRepo().MarkRead(middleware.UserID(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read", "notification_id": id})
}
