package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/erazemk/znamke/internal/model"
)

// ExportStamps returns a user's stamps in portable form, in creation order.
func ExportStamps(ctx context.Context, db *sql.DB, userID int64) ([]model.StampExport, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT u.username, c.slug, d.type, s.custom_name, s.comment, s.allow_repeat
		 FROM stamps s
		 JOIN users u ON u.id = s.user_id
		 JOIN catalog_items c ON c.id = s.catalog_id
		 JOIN desks d ON d.id = s.desk_id
		 WHERE s.user_id = ?
		 ORDER BY s.created_at, s.id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("exporting stamps: %w", err)
	}
	defer rows.Close()

	exports := []model.StampExport{}
	for rows.Next() {
		var e model.StampExport
		var customName, comment sql.NullString
		if err := rows.Scan(&e.Username, &e.CatalogSlug, &e.DeskType, &customName, &comment, &e.AllowRepeat); err != nil {
			return nil, fmt.Errorf("scanning stamp export: %w", err)
		}
		e.CustomName = customName.String
		e.Comment = comment.String
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// ImportStamps creates a stamp for every record. Users are matched by
// username, catalog items by slug and desks by type. Nothing is imported
// if any record fails to resolve. It returns the IDs of the users that
// received stamps.
func ImportStamps(ctx context.Context, db *sql.DB, records []model.StampExport) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var users []int64
	for i, r := range records {
		var userID, deskID int64
		err := tx.QueryRowContext(ctx,
			`SELECT u.id, d.id FROM users u JOIN desks d ON d.user_id = u.id
			 WHERE u.username = ? AND u.deleted_at IS NULL AND d.type = ?`,
			r.Username, r.DeskType,
		).Scan(&userID, &deskID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record %d: %s desk of user %q: %w", i, r.DeskType, r.Username, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: finding desk: %w", i, err)
		}

		var catalogID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM catalog_items WHERE slug = ?`, r.CatalogSlug,
		).Scan(&catalogID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record %d: catalog item %q: %w", i, r.CatalogSlug, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: finding catalog item: %w", i, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stamps (catalog_id, user_id, desk_id, custom_name, comment, allow_repeat)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			catalogID, userID, deskID, nullString(r.CustomName), nullString(r.Comment), r.AllowRepeat,
		); err != nil {
			return nil, fmt.Errorf("record %d: importing stamp: %w", i, err)
		}
		users = append(users, userID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	slices.Sort(users)
	return slices.Compact(users), nil
}
