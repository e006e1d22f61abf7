package handlers

import (
	"errors"
	"net/http"
	"strings"

	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/models"
	"auth-failover/internal/database"

	"github.com/gin-gonic/gin"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// ListAuthEvents returns the stored auth events, newest first, after checking
// the admin password
func ListAuthEvents(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AuthEventsRequest
		if !bindJSON(c, services, &req) {
			return
		}

		ctx := c.Request.Context()
		event := newEvent(c, database.ActionListAuthEvents, "", "")

		if err := services.Accounts().VerifyAdmin(ctx, req.AdminPassword); err != nil {
			outcome, details := credentialFault(services, "Admin check", err, "invalid admin password")
			recordEvent(c, services, event, outcome, details)
			respondError(c, http.StatusUnauthorized, models.MsgInvalidAdminPassword)
			return
		}

		limit := req.Limit
		if limit <= 0 || limit > maxEventLimit {
			limit = defaultEventLimit
		}

		events, err := services.Audit().Recent(ctx, strings.TrimSpace(req.Username), limit)
		if errors.Is(err, interfaces.ErrNoEventStore) {
			respondError(c, http.StatusNotImplemented, models.MsgNoEventHistory)
			return
		}
		if err != nil {
			services.GetLogger().Error("Error getting auth events: %v", err)
			respondError(c, http.StatusInternalServerError, models.MsgInternalError)
			return
		}

		out := make([]models.AuthEventInfo, 0, len(events))
		for _, e := range events {
			out = append(out, models.AuthEventInfo{
				Action:    e.Action,
				Username:  e.Username,
				DeviceID:  e.DeviceID,
				ClientIP:  e.ClientIP,
				Outcome:   e.Outcome,
				Details:   e.Details,
				CreatedAt: e.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, models.AuthEventsResponse{
			Status: models.StatusSuccess,
			Limit:  limit,
			Events: out,
		})
	}
}
