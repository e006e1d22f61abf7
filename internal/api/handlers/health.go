package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck is the liveness probe used by failover clients
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}
