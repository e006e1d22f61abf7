// Package token issues and validates the signed device tokens handed out by
// the auth service.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid        = errors.New("token is invalid")
	ErrExpired        = errors.New("token has expired")
	ErrDeviceMismatch = errors.New("token was issued for a different device")
	ErrMissingSecret  = errors.New("signing secret is empty")
)

// Claims binds a device to an authenticated identity until ExpiresAt.
type Claims struct {
	DeviceID     string `json:"device_id"`
	FamilyMember string `json:"family_member"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and expiry checks
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	i := &Issuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a token for deviceID and subject that expires after ttl.
func (i *Issuer) Issue(deviceID, subject string, ttl time.Duration) (string, error) {
	if ttl < time.Second {
		return "", fmt.Errorf("token ttl must be at least one second, got %s", ttl)
	}

	now := i.now()
	claims := Claims{
		DeviceID:     deviceID,
		FamilyMember: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, then the device binding, then expiry.
func (i *Issuer) Validate(raw, expectedDeviceID string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}

	if claims.DeviceID != expectedDeviceID {
		return nil, ErrDeviceMismatch
	}

	validator := jwt.NewValidator(jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err := validator.Validate(claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	return claims, nil
}
