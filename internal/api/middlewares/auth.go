package middlewares

import (
	"fmt"
	"net"
	"net/http"

	"auth-failover/internal/api/models"
	"auth-failover/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TrustedNetworks only lets through clients whose IP is inside one of nets
func TrustedNetworks(nets []*net.IPNet, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		ip := net.ParseIP(clientIP)
		if ip != nil {
			for _, n := range nets {
				if n.Contains(ip) {
					c.Next()
					return
				}
			}
		}

		log.SecurityLogger("untrusted_network", "", fmt.Sprintf("%s %s from %s", c.Request.Method, c.Request.URL.Path, clientIP))
		c.AbortWithStatusJSON(http.StatusForbidden, models.NewErrorResponse(models.MsgForbidden))
	}
}
