package handlers

import (
	"net/http"

	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/models"
	"auth-failover/internal/database"

	"github.com/gin-gonic/gin"
)

// Login verifies credentials and device access, then issues a login token
func Login(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if !bindJSON(c, services, &req) {
			return
		}

		event := newEvent(c, database.ActionLogin, req.Username, req.DeviceID)

		account, err := services.Accounts().Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			outcome, details := credentialFault(services, "Login lookup", err, "invalid credentials")
			recordEvent(c, services, event, outcome, details)
			respondError(c, http.StatusUnauthorized, models.MsgInvalidCredentials)
			return
		}

		if !account.HasDeviceAccess(req.DeviceID) {
			recordEvent(c, services, event, database.OutcomeRejected, "no device access")
			respondError(c, http.StatusForbidden, models.MsgNoDeviceAccess)
			return
		}

		token, err := services.Tokens().Issue(req.DeviceID, account.Username, services.GetConfig().Security.LoginTokenTTL)
		if err != nil {
			services.GetLogger().Error("Failed to issue login token: %v", err)
			recordEvent(c, services, event, database.OutcomeError, "token signing failed")
			respondError(c, http.StatusInternalServerError, models.MsgInternalError)
			return
		}

		recordEvent(c, services, event, database.OutcomeSuccess, "")
		c.JSON(http.StatusOK, models.LoginResponse{
			Status:            models.StatusSuccess,
			Token:             token,
			Username:          account.Username,
			Role:              string(account.Role),
			CanModifySettings: account.CanModifySettings,
		})
	}
}

// VerifySettings reports whether an account may change settings on a device.
// Every failure is answered with the same 401.
func VerifySettings(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.VerifySettingsRequest
		if !bindJSON(c, services, &req) {
			return
		}

		event := newEvent(c, database.ActionVerifySettings, req.Username, req.DeviceID)

		account, err := services.Accounts().Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			outcome, details := credentialFault(services, "Settings access lookup", err, "invalid credentials")
			recordEvent(c, services, event, outcome, details)
			respondError(c, http.StatusUnauthorized, models.MsgInvalidOrNoAccess)
			return
		}
		if !account.HasDeviceAccess(req.DeviceID) {
			recordEvent(c, services, event, database.OutcomeRejected, "no device access")
			respondError(c, http.StatusUnauthorized, models.MsgInvalidOrNoAccess)
			return
		}

		recordEvent(c, services, event, database.OutcomeSuccess, "")
		c.JSON(http.StatusOK, models.VerifySettingsResponse{
			Status:            models.StatusSuccess,
			CanModifySettings: account.CanModifySettings,
			Username:          account.Username,
			Role:              string(account.Role),
		})
	}
}
