package api

import (
	"context"
	"database/sql"

	"auth-failover/internal/accounts"
	"auth-failover/internal/api/interfaces"
	"auth-failover/internal/database"
	"auth-failover/internal/token"
	"auth-failover/pkg/config"
	"auth-failover/pkg/logger"
)

// EventStore persists auth events
type EventStore interface {
	Record(ctx context.Context, event database.AuthEvent) error
	ListRecent(ctx context.Context, username string, limit int) ([]database.AuthEvent, error)
}

// Services contains all the dependencies for API handlers
type Services struct {
	DB     *sql.DB
	Logger *logger.Logger
	Config *config.Config

	store  *accounts.Store
	issuer *token.Issuer
	audit  *AuditTrail
}

// NewServices creates a new services container. db and events may be nil
// when accounts live in memory.
func NewServices(
	db *sql.DB,
	store *accounts.Store,
	issuer *token.Issuer,
	events EventStore,
	logger *logger.Logger,
	config *config.Config,
) *Services {
	return &Services{
		DB:     db,
		Logger: logger,
		Config: config,
		store:  store,
		issuer: issuer,
		audit:  NewAuditTrail(logger, events),
	}
}

func (s *Services) GetLogger() *logger.Logger {
	return s.Logger
}

func (s *Services) GetConfig() *config.Config {
	return s.Config
}

func (s *Services) Accounts() interfaces.AccountService {
	return s.store
}

func (s *Services) Tokens() interfaces.TokenService {
	return s.issuer
}

func (s *Services) Audit() interfaces.AuditRecorder {
	return s.audit
}

// AuditTrail writes auth events to the log and, when configured, to the event store
type AuditTrail struct {
	log    *logger.Logger
	events EventStore
}

func NewAuditTrail(log *logger.Logger, events EventStore) *AuditTrail {
	return &AuditTrail{log: log.WithComponent("audit"), events: events}
}

// Record never fails the request; storage errors are only logged.
func (a *AuditTrail) Record(ctx context.Context, event database.AuthEvent) {
	if event.Outcome == database.OutcomeSuccess {
		a.log.AuditLogger(event.Action, event.Username, event.DeviceID, event.Details)
	} else {
		a.log.SecurityLogger(event.Action, event.Username, event.Details)
	}

	if a.events == nil {
		return
	}
	if err := a.events.Record(ctx, event); err != nil {
		a.log.Error("Failed to persist auth event: %v", err)
	}
}

// Recent returns the newest stored events, optionally for one username
func (a *AuditTrail) Recent(ctx context.Context, username string, limit int) ([]database.AuthEvent, error) {
	if a.events == nil {
		return nil, interfaces.ErrNoEventStore
	}
	return a.events.ListRecent(ctx, username, limit)
}
