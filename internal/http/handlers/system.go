package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	intconfig "busline/internal/config"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func DBCheck(c *gin.Context) {
	if intconfig.DB == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database not connected"})
		return
	}
	if err := intconfig.DB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database ping failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
