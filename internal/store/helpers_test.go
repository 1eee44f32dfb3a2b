package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/znamke/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, username string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func mustCatalogItem(t *testing.T, database *sql.DB, name string, year int, value string) *model.CatalogItem {
	t.Helper()
	c, err := CreateCatalogItem(context.Background(), database, model.CatalogItem{
		Name:    name,
		Year:    year,
		Country: "Slovenija",
		Value:   decimal.RequireFromString(value),
	})
	if err != nil {
		t.Fatalf("CreateCatalogItem: %v", err)
	}
	return c
}

func mustStamps(t *testing.T, database *sql.DB, userID, catalogID int64, deskType string, count int) []model.InventoryItem {
	t.Helper()
	stamps, err := AddStamps(context.Background(), database, userID, catalogID, deskType, count, false)
	if err != nil {
		t.Fatalf("AddStamps: %v", err)
	}
	return stamps
}
