package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrConflict       = errors.New("account already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidAccount = errors.New("invalid account")
	// ErrStorage wraps repository faults hit while checking credentials
	ErrStorage = errors.New("account storage unavailable")
)

// DefaultAdminUsername is the account that gates creation and listing
const DefaultAdminUsername = "admin"

// Store owns account lookups, credential checks and the admin gate on
// mutations. Persistence is delegated to a Repository.
type Store struct {
	repo              Repository
	adminUsername     string
	minPasswordLength int
}

// Option configures a Store
type Option func(*Store)

func WithAdminUsername(username string) Option {
	return func(s *Store) {
		if username != "" {
			s.adminUsername = username
		}
	}
}

func WithMinPasswordLength(n int) Option {
	return func(s *Store) { s.minPasswordLength = n }
}

func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:              repo,
		adminUsername:     DefaultAdminUsername,
		minPasswordLength: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdminUsername returns the name of the gating account
func (s *Store) AdminUsername() string {
	return s.adminUsername
}

// Bootstrap provisions the admin account with wildcard device access when it
// does not exist yet. It reports whether an account was created.
func (s *Store) Bootstrap(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, fmt.Errorf("%w: admin password is empty", ErrInvalidAccount)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	err = s.repo.Insert(ctx, &Account{
		Username:          s.adminUsername,
		PasswordHash:      hash,
		Role:              RoleAdmin,
		CanModifySettings: true,
		DeviceIDs:         []string{WildcardDevice},
	})
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}

// FindAccount looks up an account without side effects
func (s *Store) FindAccount(ctx context.Context, username string) (*Account, error) {
	return s.repo.Get(ctx, username)
}

// Authenticate returns the account when the password verifies. Unknown users,
// wrong passwords and unreadable hashes all yield ErrUnauthorized; repository
// faults yield ErrStorage.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	account, err := s.repo.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ok, err := VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, ErrUnauthorized
	}
	return account, nil
}

// VerifyAdmin checks adminPassword against the admin account
func (s *Store) VerifyAdmin(ctx context.Context, adminPassword string) error {
	_, err := s.Authenticate(ctx, s.adminUsername, adminPassword)
	return err
}

// CreateAccount inserts a new account after checking the admin password.
func (s *Store) CreateAccount(ctx context.Context, adminPassword string, req NewAccount) error {
	if err := s.VerifyAdmin(ctx, adminPassword); err != nil {
		return err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidAccount)
	}
	if len(req.Password) < s.minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, s.minPasswordLength)
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}

	return s.repo.Insert(ctx, &Account{
		Username:          username,
		PasswordHash:      hash,
		Role:              role,
		CanModifySettings: req.CanModifySettings,
		DeviceIDs:         normalizeDevices(req.DeviceIDs),
	})
}

// ListAccounts returns summaries of every account after checking the admin password.
func (s *Store) ListAccounts(ctx context.Context, adminPassword string) ([]Summary, error) {
	if err := s.VerifyAdmin(ctx, adminPassword); err != nil {
		return nil, err
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]Summary, 0, len(all))
	for i := range all {
		out = append(out, all[i].Summary())
	}
	return out, nil
}
