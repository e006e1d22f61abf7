package handlers

import (
	"errors"
	"net/http"

	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/models"
	"auth-failover/internal/database"
	"auth-failover/internal/token"

	"github.com/gin-gonic/gin"
)

// VerifyToken checks a device token. A token bound to another device is
// reported as expired, the same as one past its expiry.
func VerifyToken(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DeviceAuthRequest
		if !bindJSON(c, services, &req) {
			return
		}

		claims, err := services.Tokens().Validate(req.AuthToken, req.DeviceID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, models.DeviceAuthResponse{
				Status:       models.StatusValid,
				FamilyMember: claims.FamilyMember,
			})
		case errors.Is(err, token.ErrExpired), errors.Is(err, token.ErrDeviceMismatch):
			c.JSON(http.StatusUnauthorized, models.DeviceAuthResponse{Status: models.StatusExpired})
		default:
			c.JSON(http.StatusUnauthorized, models.DeviceAuthResponse{Status: models.StatusInvalid})
		}
	}
}

// GenerateToken issues a long-lived token without checking credentials.
// Routes must restrict who can reach it.
func GenerateToken(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GenerateTokenRequest
		if !bindJSON(c, services, &req) {
			return
		}

		event := newEvent(c, database.ActionGenerateToken, req.FamilyMember, req.DeviceID)

		tok, err := services.Tokens().Issue(req.DeviceID, req.FamilyMember, services.GetConfig().Security.GenerateTokenTTL)
		if err != nil {
			services.GetLogger().Error("Failed to generate token: %v", err)
			recordEvent(c, services, event, database.OutcomeError, "token signing failed")
			respondError(c, http.StatusInternalServerError, models.MsgInternalError)
			return
		}

		recordEvent(c, services, event, database.OutcomeSuccess, "")
		c.JSON(http.StatusOK, models.GenerateTokenResponse{Token: tok})
	}
}
