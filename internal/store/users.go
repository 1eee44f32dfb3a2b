package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/znamke/internal/model"
)

const userColumns = `id, username, password_hash, role,
	min_count, max_count, target_value, max_value, allow_repeats,
	token_version, created_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	c := &u.CalcConfig
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&c.MinCount, &c.MaxCount, &c.TargetValue, &c.MaxValue, &c.AllowRepeats,
		&u.TokenVersion, &u.CreatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user with the default combination settings and
// one desk of each type, in a single transaction.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.User, error) {
	cfg := model.DefaultCalcConfig()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, min_count, max_count, target_value, max_value, allow_repeats)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		username, passwordHash, role,
		cfg.MinCount, cfg.MaxCount, cfg.TargetValue.String(), cfg.MaxValue.String(), cfg.AllowRepeats,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating user %q: %w", username, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	for _, deskType := range model.DeskTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO desks (user_id, type) VALUES (?, ?)`, id, deskType,
		); err != nil {
			return nil, fmt.Errorf("creating %s desk: %w", deskType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's role.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// UpdateCalcConfig stores a user's combination settings. The config must
// already be valid.
func UpdateCalcConfig(ctx context.Context, db *sql.DB, id int64, cfg model.CalcConfig) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET min_count = ?, max_count = ?, target_value = ?, max_value = ?, allow_repeats = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		cfg.MinCount, cfg.MaxCount, cfg.TargetValue.String(), cfg.MaxValue.String(), cfg.AllowRepeats, id,
	)
	if err != nil {
		return fmt.Errorf("updating calc config: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
