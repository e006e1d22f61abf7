package handlers

import (
	"errors"
	"net/http"

	"auth-failover/internal/accounts"
	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/models"
	"auth-failover/internal/database"

	"github.com/gin-gonic/gin"
)

// newEvent starts an auth event for the current request
func newEvent(c *gin.Context, action, username, deviceID string) database.AuthEvent {
	return database.AuthEvent{
		Action:   action,
		Username: username,
		DeviceID: deviceID,
		ClientIP: c.ClientIP(),
	}
}

func recordEvent(c *gin.Context, services interfaces.Services, event database.AuthEvent, outcome, details string) {
	event.Outcome = outcome
	event.Details = details
	services.Audit().Record(c.Request.Context(), event)
}

// credentialFault logs a credential check that failed for a reason other than
// bad credentials and returns the outcome and details to record for it.
func credentialFault(services interfaces.Services, what string, err error, details string) (string, string) {
	if errors.Is(err, accounts.ErrUnauthorized) {
		return database.OutcomeRejected, details
	}
	services.GetLogger().Error("%s failed: %v", what, err)
	return database.OutcomeError, "storage failure"
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, models.NewErrorResponse(message))
}

func bindJSON(c *gin.Context, services interfaces.Services, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		services.GetLogger().Warning("Invalid %s request: %v", c.FullPath(), err)
		respondError(c, http.StatusBadRequest, models.MsgInvalidRequest)
		return false
	}
	return true
}
