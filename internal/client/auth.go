package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"auth-failover/internal/api/models"
)

const fallbackMessage = "Authentication failed"

// ErrSettingsNotPermitted is returned when the credentials are valid but the
// account may not change settings
var ErrSettingsNotPermitted = errors.New("account does not have permission to modify settings")

// LoginResult is a successful login
type LoginResult struct {
	Status            string `json:"status"`
	Token             string `json:"token"`
	Username          string `json:"username"`
	Role              string `json:"role"`
	CanModifySettings bool   `json:"can_modify_settings"`
}

// VerifyResult is a successful settings-access check
type VerifyResult struct {
	Status            string `json:"status"`
	CanModifySettings bool   `json:"can_modify_settings"`
	Username          string `json:"username"`
	Role              string `json:"role"`
}

// Login authenticates username on this device, failing over between endpoints
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := models.LoginRequest{Username: username, Password: password, DeviceID: c.settings.DeviceID}

	return Execute(ctx, c, "login", func(ctx context.Context, baseURL string) (*LoginResult, error) {
		var resp models.LoginResponse
		if err := c.postJSON(ctx, baseURL, "/api/login", body, &resp); err != nil {
			return nil, err
		}
		return &LoginResult{
			Status:            resp.Status,
			Token:             resp.Token,
			Username:          resp.Username,
			Role:              resp.Role,
			CanModifySettings: resp.CanModifySettings,
		}, nil
	})
}

// VerifySettings checks that username may modify settings on this device
func (c *Client) VerifySettings(ctx context.Context, username, password string) (*VerifyResult, error) {
	body := models.VerifySettingsRequest{DeviceID: c.settings.DeviceID, Username: username, Password: password}

	return Execute(ctx, c, "verify_settings", func(ctx context.Context, baseURL string) (*VerifyResult, error) {
		var resp models.VerifySettingsResponse
		if err := c.postJSON(ctx, baseURL, "/api/verify-settings", body, &resp); err != nil {
			return nil, err
		}
		if !resp.CanModifySettings {
			return nil, ErrSettingsNotPermitted
		}
		return &VerifyResult{
			Status:            resp.Status,
			CanModifySettings: resp.CanModifySettings,
			Username:          resp.Username,
			Role:              resp.Role,
		}, nil
	})
}

// AuthEvents fetches the newest auth events recorded by the service,
// optionally only those for username
func (c *Client) AuthEvents(ctx context.Context, adminPassword, username string, limit int) ([]models.AuthEventInfo, error) {
	body := models.AuthEventsRequest{AdminPassword: adminPassword, Username: username, Limit: limit}

	return Execute(ctx, c, "auth_events", func(ctx context.Context, baseURL string) ([]models.AuthEventInfo, error) {
		var resp models.AuthEventsResponse
		if err := c.postJSON(ctx, baseURL, "/api/auth-events", body, &resp); err != nil {
			return nil, err
		}
		return resp.Events, nil
	})
}

// postJSON sends body to baseURL+path and decodes a 2xx response into out
func (c *Client) postJSON(ctx context.Context, baseURL, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// serviceError builds the error for a rejected request from its body's message
func serviceError(resp *http.Response) error {
	message := fallbackMessage
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		message = body.Message
	}

	kind := ErrNetwork
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = ErrUnauthorized
	}
	return &ServiceError{StatusCode: resp.StatusCode, Message: message, kind: kind}
}
