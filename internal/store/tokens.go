package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken puts a single token of a user on the revocation list until it
// expires. Revocations of tokens that have since expired are dropped.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, userID int64, expiresAt time.Time) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, user_id, expires_at) VALUES (?, ?, ?)`,
		jti, userID, expiresAt.Unix(),
	); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	_, _ = PurgeRevokedTokens(ctx, db, time.Now())
	return nil
}

// RevokeUserTokens invalidates every token issued to a user so far by
// bumping their token version.
func RevokeUserTokens(ctx context.Context, db *sql.DB, userID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET token_version = token_version + 1 WHERE id = ? AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("revoking user tokens: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// TokenValid reports whether a token may still be used: its user is active,
// it carries the user's current token version and it was not revoked.
func TokenValid(ctx context.Context, db *sql.DB, jti string, userID, version int64) (bool, error) {
	var valid bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = ? AND deleted_at IS NULL AND token_version = ?)
		    AND NOT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`,
		userID, version, jti,
	).Scan(&valid)
	if err != nil {
		return false, fmt.Errorf("checking token: %w", err)
	}
	return valid, nil
}

// PurgeRevokedTokens deletes revocations of tokens that expired before now
// and returns how many were removed.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return result.RowsAffected()
}
