package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/znamke/internal/model"
)

// ErrSameDesk is returned when moving a stamp to the desk it is already on.
var ErrSameDesk = errors.New("stamp is already on that desk")

const stampSelect = `SELECT s.id, s.catalog_id, s.user_id, s.desk_id, s.custom_name, s.comment,
	       s.allow_repeat, s.created_at, d.type, c.name, c.slug, c.value
	FROM stamps s
	JOIN desks d ON d.id = s.desk_id
	JOIN catalog_items c ON c.id = s.catalog_id`

func scanStamp(row interface{ Scan(...any) error }) (*model.InventoryItem, error) {
	s := &model.InventoryItem{}
	var customName, comment sql.NullString
	err := row.Scan(&s.ID, &s.CatalogID, &s.UserID, &s.DeskID, &customName, &comment,
		&s.AllowRepeat, &s.CreatedAt, &s.DeskType, &s.CatalogName, &s.CatalogSlug, &s.CatalogValue)
	if err != nil {
		return nil, err
	}
	s.CustomName = customName.String
	s.Comment = comment.String
	return s, nil
}

func scanStamps(rows *sql.Rows) ([]model.InventoryItem, error) {
	var stamps []model.InventoryItem
	for rows.Next() {
		s, err := scanStamp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stamp: %w", err)
		}
		stamps = append(stamps, *s)
	}
	return stamps, rows.Err()
}

// AddStamps records count new copies of a catalog item on one of the
// user's desks and returns them.
func AddStamps(ctx context.Context, db *sql.DB, userID, catalogID int64, deskType string, count int, allowRepeat bool) ([]model.InventoryItem, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if !model.ValidDeskType(deskType) {
		return nil, fmt.Errorf("invalid desk type %q", deskType)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var deskID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM desks WHERE user_id = ? AND type = ?`, userID, deskType,
	).Scan(&deskID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s desk of user %d: %w", deskType, userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding desk: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM catalog_items WHERE id = ?)`, catalogID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking catalog item: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("catalog item %d: %w", catalogID, ErrNotFound)
	}

	ids := make([]int64, 0, count)
	for range count {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO stamps (catalog_id, user_id, desk_id, allow_repeat) VALUES (?, ?, ?, ?)`,
			catalogID, userID, deskID, allowRepeat,
		)
		if err != nil {
			return nil, fmt.Errorf("adding stamp: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting stamp id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stamps: %w", err)
	}

	stamps := make([]model.InventoryItem, 0, len(ids))
	for _, id := range ids {
		s, err := GetStamp(ctx, db, id)
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, *s)
	}
	return stamps, nil
}

// GetStamp returns a stamp by ID.
func GetStamp(ctx context.Context, db *sql.DB, id int64) (*model.InventoryItem, error) {
	s, err := scanStamp(db.QueryRowContext(ctx, stampSelect+` WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stamp: %w", err)
	}
	return s, nil
}

// ListStamps returns a user's stamps in creation order, optionally limited
// to one desk type.
func ListStamps(ctx context.Context, db *sql.DB, userID int64, deskType string) ([]model.InventoryItem, error) {
	query := stampSelect + ` WHERE s.user_id = ?`
	args := []any{userID}
	if deskType != "" {
		query += ` AND d.type = ?`
		args = append(args, deskType)
	}
	query += ` ORDER BY s.created_at, s.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stamps: %w", err)
	}
	defer rows.Close()

	return scanStamps(rows)
}

// LoadInventory returns every stamp a user owns, on all desks, in creation
// order.
func LoadInventory(ctx context.Context, db *sql.DB, userID int64) ([]model.InventoryItem, error) {
	stamps, err := ListStamps(ctx, db, userID, "")
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	return stamps, nil
}

// UpdateStamp updates a stamp's user-editable fields.
func UpdateStamp(ctx context.Context, db *sql.DB, id int64, customName, comment string, allowRepeat bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE stamps SET custom_name = ?, comment = ?, allow_repeat = ? WHERE id = ?`,
		nullString(customName), nullString(comment), allowRepeat, id,
	)
	if err != nil {
		return fmt.Errorf("updating stamp: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStamp deletes a stamp and its move history.
func DeleteStamp(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM stamps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting stamp: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveStamp moves a stamp to another of its owner's desks and records the
// move.
func MoveStamp(ctx context.Context, db *sql.DB, stampID int64, deskType, notes string, movedBy *int64) (*model.Move, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM stamps WHERE id = ?`, stampID).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stamp %d: %w", stampID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting stamp owner: %w", err)
	}

	moveID, err := moveStamp(ctx, tx, userID, stampID, deskType, notes, movedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing move: %w", err)
	}

	return GetMove(ctx, db, moveID)
}

// MoveStamps moves several of a user's stamps to one desk in a single
// transaction. Stamps already on that desk are left alone. It returns the
// number of stamps moved.
func MoveStamps(ctx context.Context, db *sql.DB, userID int64, stampIDs []int64, deskType, notes string, movedBy *int64) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	moved := 0
	for _, id := range stampIDs {
		_, err := moveStamp(ctx, tx, userID, id, deskType, notes, movedBy)
		if errors.Is(err, ErrSameDesk) {
			continue
		}
		if err != nil {
			return 0, err
		}
		moved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing moves: %w", err)
	}
	return moved, nil
}

func moveStamp(ctx context.Context, tx *sql.Tx, userID, stampID int64, deskType, notes string, movedBy *int64) (int64, error) {
	if !model.ValidDeskType(deskType) {
		return 0, fmt.Errorf("invalid desk type %q", deskType)
	}

	var fromDeskID int64
	err := tx.QueryRowContext(ctx,
		`SELECT desk_id FROM stamps WHERE id = ? AND user_id = ?`, stampID, userID,
	).Scan(&fromDeskID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("stamp %d: %w", stampID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("getting stamp desk: %w", err)
	}

	var toDeskID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM desks WHERE user_id = ? AND type = ?`, userID, deskType,
	).Scan(&toDeskID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s desk of user %d: %w", deskType, userID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("finding desk: %w", err)
	}

	if fromDeskID == toDeskID {
		return 0, ErrSameDesk
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE stamps SET desk_id = ? WHERE id = ?`, toDeskID, stampID,
	); err != nil {
		return 0, fmt.Errorf("moving stamp: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO stamp_moves (stamp_id, from_desk_id, to_desk_id, notes, moved_by)
		 VALUES (?, ?, ?, ?, ?)`,
		stampID, fromDeskID, toDeskID, nullString(notes), movedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("recording move: %w", err)
	}
	return result.LastInsertId()
}
