package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"auth-failover/internal/accounts"
	"auth-failover/internal/database"
)

// AccountRepository persists accounts in SQL and implements accounts.Repository.
type AccountRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAccountRepository(db *sql.DB, dialect database.Dialect) *AccountRepository {
	return &AccountRepository{db: db, dialect: dialect}
}

func (r *AccountRepository) Get(ctx context.Context, username string) (*accounts.Account, error) {
	query := database.Rebind(r.dialect, `
        SELECT username, password_hash, role, can_modify_settings, device_ids
        FROM accounts
        WHERE username = ?
    `)

	var account accounts.Account
	var role, devices string
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username, &account.PasswordHash, &role, &account.CanModifySettings, &devices,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	account.Role = accounts.Role(role)
	if err := json.Unmarshal([]byte(devices), &account.DeviceIDs); err != nil {
		return nil, fmt.Errorf("decode device ids for %s: %w", username, err)
	}
	return &account, nil
}

func (r *AccountRepository) Insert(ctx context.Context, account *accounts.Account) error {
	devices, err := encodeDevices(account.DeviceIDs)
	if err != nil {
		return err
	}

	query := database.Rebind(r.dialect, `
        INSERT INTO accounts (username, password_hash, role, can_modify_settings, device_ids)
        VALUES (?, ?, ?, ?, ?)
    `)
	_, err = r.db.ExecContext(ctx, query,
		account.Username, account.PasswordHash, string(account.Role), account.CanModifySettings, devices)
	if isUniqueViolation(err) {
		return accounts.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context) ([]accounts.Account, error) {
	query := `
        SELECT username, password_hash, role, can_modify_settings, device_ids
        FROM accounts
        ORDER BY username
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		var account accounts.Account
		var role, devices string
		if err := rows.Scan(&account.Username, &account.PasswordHash, &role, &account.CanModifySettings, &devices); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.Role = accounts.Role(role)
		if err := json.Unmarshal([]byte(devices), &account.DeviceIDs); err != nil {
			return nil, fmt.Errorf("decode device ids for %s: %w", account.Username, err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func encodeDevices(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode device ids: %w", err)
	}
	return string(data), nil
}
