package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"auth-failover/internal/database"
)

type AuthEventRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAuthEventRepository(db *sql.DB, dialect database.Dialect) *AuthEventRepository {
	return &AuthEventRepository{db: db, dialect: dialect}
}

// Record inserts a new auth event
func (r *AuthEventRepository) Record(ctx context.Context, event database.AuthEvent) error {
	query := database.Rebind(r.dialect, `
        INSERT INTO auth_events (action, username, device_id, client_ip, outcome, details)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	_, err := r.db.ExecContext(ctx, query,
		event.Action, event.Username, event.DeviceID, event.ClientIP, event.Outcome, event.Details)
	if err != nil {
		return fmt.Errorf("record auth event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first, optionally filtered by username
func (r *AuthEventRepository) ListRecent(ctx context.Context, username string, limit int) ([]database.AuthEvent, error) {
	query := `
        SELECT id, action, username, device_id, client_ip, outcome, details, created_at
        FROM auth_events
        WHERE 1=1
    `
	args := []interface{}{}

	if username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, database.Rebind(r.dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer rows.Close()

	var events []database.AuthEvent
	for rows.Next() {
		var e database.AuthEvent
		if err := rows.Scan(&e.ID, &e.Action, &e.Username, &e.DeviceID, &e.ClientIP, &e.Outcome, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
