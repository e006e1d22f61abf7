package models

// Error messages returned to clients
const (
	MsgInvalidRequest       = "Invalid request format"
	MsgInvalidCredentials   = "Invalid username or password"
	MsgNoDeviceAccess       = "No access to this device"
	MsgInvalidOrNoAccess    = "Invalid credentials or no access"
	MsgInvalidAdminPassword = "Invalid admin password"
	MsgUsernameExists       = "Username already exists"
	MsgInvalidAccount       = "Invalid account details"
	MsgAccountCreated       = "Account created successfully"
	MsgForbidden            = "Access denied"
	MsgRateLimited          = "Rate limit exceeded. Please try again later."
	MsgInternalError        = "Internal server error"
	MsgNoEventHistory       = "Auth event history requires a database backend"
)
