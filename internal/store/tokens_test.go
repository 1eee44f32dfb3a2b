package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/znamke/internal/db"
)

func TestTokenValid(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "collector")

	check := func(name, jti string, userID, version int64, want bool) {
		t.Helper()
		got, err := TokenValid(ctx, database, jti, userID, version)
		if err != nil {
			t.Fatalf("%s: TokenValid: %v", name, err)
		}
		if got != want {
			t.Errorf("%s: expected valid=%v, got %v", name, want, got)
		}
	}

	check("fresh token", "jti-1", user.ID, 0, true)
	check("unknown user", "jti-1", user.ID+100, 0, false)
	check("future version", "jti-1", user.ID, 1, false)

	if err := RevokeToken(ctx, database, "jti-1", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	check("revoked token", "jti-1", user.ID, 0, false)
	check("other token", "jti-2", user.ID, 0, true)

	if err := RevokeUserTokens(ctx, database, user.ID); err != nil {
		t.Fatalf("RevokeUserTokens: %v", err)
	}
	check("old version", "jti-2", user.ID, 0, false)
	check("new version", "jti-3", user.ID, 1, true)

	got, _ := GetUser(ctx, database, user.ID)
	if got.TokenVersion != 1 {
		t.Errorf("expected token version 1, got %d", got.TokenVersion)
	}

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	check("deleted user", "jti-3", user.ID, 1, false)

	if err := RevokeUserTokens(ctx, database, user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted user, got %v", err)
	}
}

func TestRevokeTokenIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "collector")

	// Revoking the same token twice should not error (INSERT OR IGNORE).
	for i := range 2 {
		if err := RevokeToken(ctx, database, "jti-1", user.ID, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("RevokeToken #%d: %v", i+1, err)
		}
	}
}

func TestPurgeRevokedTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user := mustUser(t, database, "collector")
	now := time.Now()

	if err := RevokeToken(ctx, database, "live", user.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := database.Exec(
		`INSERT INTO revoked_tokens (jti, user_id, expires_at) VALUES ('stale', ?, ?)`,
		user.ID, now.Add(-time.Hour).Unix(),
	); err != nil {
		t.Fatalf("inserting stale revocation: %v", err)
	}

	n, err := PurgeRevokedTokens(ctx, database, now)
	if err != nil {
		t.Fatalf("PurgeRevokedTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged revocation, got %d", n)
	}

	valid, _ := TokenValid(ctx, database, "live", user.ID, 0)
	if valid {
		t.Error("unexpired revocation must survive the purge")
	}
}
