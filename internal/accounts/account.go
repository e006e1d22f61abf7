package accounts

import (
	"fmt"
	"strings"
)

// Role is the coarse permission class of an account
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFamily  Role = "family"
	RoleStudent Role = "student"
)

// WildcardDevice grants access to every device
const WildcardDevice = "*"

// ParseRole converts a wire value into a Role
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleFamily:
		return RoleFamily, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidAccount, value)
	}
}

// Account is a stored login identity with its device policy
type Account struct {
	Username          string
	PasswordHash      string
	Role              Role
	CanModifySettings bool
	DeviceIDs         []string
}

// HasDeviceAccess reports whether the account may act on deviceID
func (a *Account) HasDeviceAccess(deviceID string) bool {
	for _, id := range a.DeviceIDs {
		if id == WildcardDevice || id == deviceID {
			return true
		}
	}
	return false
}

// Summary returns the account without its password hash
func (a *Account) Summary() Summary {
	return Summary{
		Username:          a.Username,
		Role:              a.Role,
		CanModifySettings: a.CanModifySettings,
		DeviceIDs:         append([]string(nil), a.DeviceIDs...),
	}
}

func (a *Account) clone() *Account {
	cp := *a
	cp.DeviceIDs = append([]string(nil), a.DeviceIDs...)
	return &cp
}

// Summary is the listing view of an account
type Summary struct {
	Username          string
	Role              Role
	CanModifySettings bool
	DeviceIDs         []string
}

// NewAccount carries the fields needed to create an account
type NewAccount struct {
	Username          string
	Password          string
	Role              string
	CanModifySettings bool
	DeviceIDs         []string
}

// normalizeDevices trims, drops empties and removes duplicates while keeping order.
func normalizeDevices(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
