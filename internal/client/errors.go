package client

import (
	"errors"

	"auth-failover/internal/registry"
)

var (
	// ErrNetwork covers transport failures, timeouts and unexpected status codes
	ErrNetwork = errors.New("network error")
	// ErrParse is returned when a response body cannot be decoded
	ErrParse = errors.New("parse error")
	// ErrUnauthorized is returned when the service rejects the credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoServersAvailable is returned without retrying when selection finds no endpoint
	ErrNoServersAvailable = registry.ErrNoServersAvailable
	// ErrAllServersFailed wraps the last attempt error once every attempt is used up
	ErrAllServersFailed = errors.New("all API servers failed")
)

// ServiceError carries the message the auth service put in a rejection body
type ServiceError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.kind
}
