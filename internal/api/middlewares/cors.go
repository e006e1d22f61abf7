package middlewares

import (
	"net/http"
	"slices"
	"strconv"

	"auth-failover/pkg/config"

	"github.com/gin-gonic/gin"
)

// CORS middleware answers preflights and allows only configured origins.
// A "*" entry allows any origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := slices.Contains(cfg.AllowedOrigins, "*")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(cfg.AllowedOrigins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
