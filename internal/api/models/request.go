package models

// LoginRequest represents an account login from a device
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
	DeviceID string `json:"device_id" binding:"required" example:"dev-1"`
}

// VerifySettingsRequest asks whether an account may change device settings
type VerifySettingsRequest struct {
	DeviceID string `json:"device_id" binding:"required" example:"dev-1"`
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// CreateAccountRequest represents admin-gated account creation
type CreateAccountRequest struct {
	AdminPassword     string   `json:"admin_password" binding:"required"`
	NewUsername       string   `json:"new_username" binding:"required" example:"kid"`
	NewPassword       string   `json:"new_password" binding:"required"`
	Role              string   `json:"role" binding:"required" example:"student"`
	CanModifySettings bool     `json:"can_modify_settings" example:"false"`
	DeviceIDs         []string `json:"device_ids" example:"dev-1"`
}

// AdminRequest carries only the admin password
type AdminRequest struct {
	AdminPassword string `json:"admin_password" binding:"required"`
}

// DeviceAuthRequest presents a token on behalf of a device
type DeviceAuthRequest struct {
	DeviceID  string `json:"device_id" binding:"required" example:"dev-1"`
	AuthToken string `json:"auth_token" binding:"required"`
}

// GenerateTokenRequest provisions a long-lived token for a device
type GenerateTokenRequest struct {
	DeviceID     string `json:"device_id" example:"dev-1"`
	FamilyMember string `json:"family_member" example:"kid"`
}

// AuthEventsRequest asks for the newest auth events
type AuthEventsRequest struct {
	AdminPassword string `json:"admin_password" binding:"required"`
	Username      string `json:"username" example:"kid"`
	Limit         int    `json:"limit" example:"50"`
}
