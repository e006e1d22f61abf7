package interfaces

import (
	"context"
	"errors"
	"time"

	"auth-failover/internal/accounts"
	"auth-failover/internal/database"
	"auth-failover/internal/token"
)

// AccountService is the account store as seen by handlers
type AccountService interface {
	VerifyAdmin(ctx context.Context, adminPassword string) error
	Authenticate(ctx context.Context, username, password string) (*accounts.Account, error)
	CreateAccount(ctx context.Context, adminPassword string, req accounts.NewAccount) error
	ListAccounts(ctx context.Context, adminPassword string) ([]accounts.Summary, error)
}

// TokenService issues and validates device tokens
type TokenService interface {
	Issue(deviceID, subject string, ttl time.Duration) (string, error)
	Validate(raw, expectedDeviceID string) (*token.Claims, error)
}

// ErrNoEventStore is returned when auth events are only logged
var ErrNoEventStore = errors.New("auth event history is not stored")

// AuditRecorder keeps the trail of authentication events
type AuditRecorder interface {
	Record(ctx context.Context, event database.AuthEvent)
	Recent(ctx context.Context, username string, limit int) ([]database.AuthEvent, error)
}
