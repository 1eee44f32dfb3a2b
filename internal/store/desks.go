package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/znamke/internal/model"
)

// ListDesks returns a user's desks in creation order, with the number of
// stamps on each.
func ListDesks(ctx context.Context, db *sql.DB, userID int64) ([]model.Desk, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT d.id, d.user_id, d.type, COUNT(s.id)
		 FROM desks d
		 LEFT JOIN stamps s ON s.desk_id = d.id
		 WHERE d.user_id = ?
		 GROUP BY d.id
		 ORDER BY d.id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing desks: %w", err)
	}
	defer rows.Close()

	var desks []model.Desk
	for rows.Next() {
		var d model.Desk
		if err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Stamps); err != nil {
			return nil, fmt.Errorf("scanning desk: %w", err)
		}
		desks = append(desks, d)
	}
	return desks, rows.Err()
}

// GetDesk returns a desk by ID.
func GetDesk(ctx context.Context, db *sql.DB, id int64) (*model.Desk, error) {
	d := &model.Desk{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, type FROM desks WHERE id = ?`, id,
	).Scan(&d.ID, &d.UserID, &d.Type)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting desk: %w", err)
	}
	return d, nil
}

// GetDeskByType returns the user's desk of the given type.
func GetDeskByType(ctx context.Context, db *sql.DB, userID int64, deskType string) (*model.Desk, error) {
	d := &model.Desk{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, type FROM desks WHERE user_id = ? AND type = ?`, userID, deskType,
	).Scan(&d.ID, &d.UserID, &d.Type)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s desk: %w", deskType, err)
	}
	return d, nil
}
