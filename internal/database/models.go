package database

import "time"

// Auth event actions
const (
	ActionLogin          = "login"
	ActionVerifySettings = "verify_settings"
	ActionCreateAccount  = "create_account"
	ActionListAccounts   = "list_accounts"
	ActionGenerateToken  = "generate_token"
	ActionListAuthEvents = "list_auth_events"
)

// Auth event outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthEvent is one entry of the authentication trail
type AuthEvent struct {
	ID        int64     `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Username  string    `db:"username" json:"username"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	ClientIP  string    `db:"client_ip" json:"client_ip"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
