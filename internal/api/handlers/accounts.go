package handlers

import (
	"errors"
	"net/http"
	"strings"

	"auth-failover/internal/accounts"
	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/api/models"
	"auth-failover/internal/database"

	"github.com/gin-gonic/gin"
)

// CreateAccount adds an account after checking the admin password
func CreateAccount(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateAccountRequest
		if !bindJSON(c, services, &req) {
			return
		}

		username := strings.TrimSpace(req.NewUsername)
		event := newEvent(c, database.ActionCreateAccount, username, "")

		err := services.Accounts().CreateAccount(c.Request.Context(), req.AdminPassword, accounts.NewAccount{
			Username:          username,
			Password:          req.NewPassword,
			Role:              req.Role,
			CanModifySettings: req.CanModifySettings,
			DeviceIDs:         req.DeviceIDs,
		})
		switch {
		case err == nil:
		case errors.Is(err, accounts.ErrUnauthorized), errors.Is(err, accounts.ErrStorage):
			outcome, details := credentialFault(services, "Admin check", err, "invalid admin password")
			recordEvent(c, services, event, outcome, details)
			respondError(c, http.StatusUnauthorized, models.MsgInvalidAdminPassword)
			return
		case errors.Is(err, accounts.ErrConflict):
			recordEvent(c, services, event, database.OutcomeRejected, "username exists")
			respondError(c, http.StatusConflict, models.MsgUsernameExists)
			return
		case errors.Is(err, accounts.ErrInvalidAccount):
			recordEvent(c, services, event, database.OutcomeRejected, err.Error())
			respondError(c, http.StatusBadRequest, models.MsgInvalidAccount)
			return
		default:
			services.GetLogger().Error("Failed to create account %s: %v", username, err)
			recordEvent(c, services, event, database.OutcomeError, "storage failure")
			respondError(c, http.StatusInternalServerError, models.MsgInternalError)
			return
		}

		recordEvent(c, services, event, database.OutcomeSuccess, "role="+req.Role)
		c.JSON(http.StatusOK, models.CreateAccountResponse{
			Status:   models.StatusSuccess,
			Message:  models.MsgAccountCreated,
			Username: username,
		})
	}
}

// ListAccounts returns every account without password hashes
func ListAccounts(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AdminRequest
		if !bindJSON(c, services, &req) {
			return
		}

		event := newEvent(c, database.ActionListAccounts, "", "")

		summaries, err := services.Accounts().ListAccounts(c.Request.Context(), req.AdminPassword)
		switch {
		case err == nil:
		case errors.Is(err, accounts.ErrUnauthorized), errors.Is(err, accounts.ErrStorage):
			outcome, details := credentialFault(services, "Admin check", err, "invalid admin password")
			recordEvent(c, services, event, outcome, details)
			respondError(c, http.StatusUnauthorized, models.MsgInvalidAdminPassword)
			return
		default:
			services.GetLogger().Error("Failed to list accounts: %v", err)
			recordEvent(c, services, event, database.OutcomeError, "storage failure")
			respondError(c, http.StatusInternalServerError, models.MsgInternalError)
			return
		}

		out := make([]models.AccountInfo, 0, len(summaries))
		for _, s := range summaries {
			devices := s.DeviceIDs
			if devices == nil {
				devices = []string{}
			}
			out = append(out, models.AccountInfo{
				Username:          s.Username,
				Role:              string(s.Role),
				CanModifySettings: s.CanModifySettings,
				DeviceIDs:         devices,
			})
		}

		recordEvent(c, services, event, database.OutcomeSuccess, "")
		c.JSON(http.StatusOK, models.ListAccountsResponse{
			Status:   models.StatusSuccess,
			Accounts: out,
		})
	}
}
