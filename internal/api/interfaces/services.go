package interfaces

import (
	"auth-failover/pkg/config"
	"auth-failover/pkg/logger"
)

// Services defines the interface for API services
type Services interface {
	GetLogger() *logger.Logger
	GetConfig() *config.Config
	Accounts() AccountService
	Tokens() TokenService
	Audit() AuditRecorder
}
