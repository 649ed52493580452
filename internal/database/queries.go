package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no user has the given name
	ErrUserNotFound = errors.New("user not found")
	// ErrQuotaExceeded is returned when a user has no scans left
	ErrQuotaExceeded = errors.New("scan quota exceeded")
)

// User is a quota holder
type User struct {
	Username     string `json:"user"`
	Plan         string `json:"plan"`
	ScansUsed    int    `json:"scans_used"`
	LastTextHash string `json:"-"`
}

// GetUser retrieves a user by name
func (db *DB) GetUser(ctx context.Context, username string) (*User, error) {
	u := User{Username: username}
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT plan, scans_used, COALESCE(last_text_hash, '')
		FROM users
		WHERE username = ?
	`), username).Scan(&u.Plan, &u.ScansUsed, &u.LastTextHash)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetOrCreateUser returns the user, creating it on plan when absent.
// An existing user's plan is left untouched.
func (db *DB) GetOrCreateUser(ctx context.Context, username, plan string) (*User, error) {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO users (username, plan, scans_used)
		VALUES (?, ?, 0)
		ON CONFLICT (username) DO NOTHING
	`), username, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return db.GetUser(ctx, username)
}

// SetPlan moves a user to another plan
func (db *DB) SetPlan(ctx context.Context, username, plan string) error {
	return db.updateUser(ctx, `UPDATE users SET plan = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, plan, username)
}

// ResetScans zeroes a user's scan counter
func (db *DB) ResetScans(ctx context.Context, username string) error {
	return db.updateUser(ctx, `UPDATE users SET scans_used = 0, updated_at = CURRENT_TIMESTAMP WHERE username = ?`, username)
}

// ConsumeScan atomically charges one scan and remembers the hash of the
// scanned text. It fails with ErrQuotaExceeded once scans_used reaches limit.
func (db *DB) ConsumeScan(ctx context.Context, username, textHash string, limit int) (*User, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE users
		SET scans_used = scans_used + 1, last_text_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE username = ? AND scans_used < ?
	`), textHash, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to consume scan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to consume scan: %w", err)
	}
	if n == 0 {
		if _, err := db.GetUser(ctx, username); err != nil {
			return nil, err
		}
		return nil, ErrQuotaExceeded
	}
	return db.GetUser(ctx, username)
}

// ListUsers returns all users ordered by name
func (db *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT username, plan, scans_used, COALESCE(last_text_hash, '')
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.Plan, &u.ScansUsed, &u.LastTextHash); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
