package models

import "time"

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusValid   = "valid"
	StatusExpired = "expired"
	StatusInvalid = "invalid"
)

// ErrorResponse is the body of every rejected request
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message" example:"Invalid username or password"`
}

// NewErrorResponse creates an error body with the given message
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message}
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Status            string `json:"status" example:"success"`
	Token             string `json:"token"`
	Username          string `json:"username" example:"admin"`
	Role              string `json:"role" example:"admin"`
	CanModifySettings bool   `json:"can_modify_settings" example:"true"`
}

// VerifySettingsResponse reports whether the account may modify settings
type VerifySettingsResponse struct {
	Status            string `json:"status" example:"success"`
	CanModifySettings bool   `json:"can_modify_settings" example:"true"`
	Username          string `json:"username" example:"admin"`
	Role              string `json:"role" example:"admin"`
}

// CreateAccountResponse represents a created account
type CreateAccountResponse struct {
	Status   string `json:"status" example:"success"`
	Message  string `json:"message,omitempty" example:"Account created successfully"`
	Username string `json:"username" example:"kid"`
}

// AccountInfo is an account without its password hash
type AccountInfo struct {
	Username          string   `json:"username"`
	Role              string   `json:"role"`
	CanModifySettings bool     `json:"can_modify_settings"`
	DeviceIDs         []string `json:"device_ids"`
}

// ListAccountsResponse lists every account
type ListAccountsResponse struct {
	Status   string        `json:"status" example:"success"`
	Accounts []AccountInfo `json:"accounts"`
}

// DeviceAuthResponse is the outcome of a device token check
type DeviceAuthResponse struct {
	Status       string `json:"status" example:"valid"`
	FamilyMember string `json:"family_member,omitempty" example:"kid"`
}

// GenerateTokenResponse carries a provisioned token
type GenerateTokenResponse struct {
	Token string `json:"token"`
}

// AuthEventInfo is one entry of the auth event trail
type AuthEventInfo struct {
	Action    string    `json:"action" example:"login"`
	Username  string    `json:"username" example:"kid"`
	DeviceID  string    `json:"device_id" example:"dev-1"`
	ClientIP  string    `json:"client_ip" example:"192.168.1.20"`
	Outcome   string    `json:"outcome" example:"rejected"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthEventsResponse lists auth events, newest first
type AuthEventsResponse struct {
	Status string          `json:"status" example:"success"`
	Limit  int             `json:"limit" example:"50"`
	Events []AuthEventInfo `json:"events"`
}
