package db

import "testing"

func TestMigrateIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := Migrate(database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var n int
	err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		('users', 'desks', 'catalog_items', 'stamps', 'stamp_moves', 'settings', 'revoked_tokens')`).Scan(&n)
	if err != nil {
		t.Fatalf("counting tables: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 tables, got %d", n)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO desks (user_id, type) VALUES (999, 'available')`)
	if err == nil {
		t.Error("expected foreign key violation")
	}
}
