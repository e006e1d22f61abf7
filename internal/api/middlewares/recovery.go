package middlewares

import (
	"net/http"

	"auth-failover/internal/api/models"
	"auth-failover/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery middleware turns panics into a 500 error body
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(requestIDKey),
		}).Error("Recovered from panic: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewErrorResponse(models.MsgInternalError))
	})
}
