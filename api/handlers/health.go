package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck responds with the service liveness status
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "tracker",
	})
}
