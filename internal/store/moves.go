package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/znamke/internal/model"
)

const moveSelect = `SELECT m.id, m.stamp_id, m.from_desk_id, m.to_desk_id, m.notes,
	       m.moved_at, m.moved_by,
	       COALESCE(s.custom_name, c.name) AS stamp_name, fd.type AS from_desk_type, td.type AS to_desk_type
	FROM stamp_moves m
	JOIN stamps s ON s.id = m.stamp_id
	JOIN catalog_items c ON c.id = s.catalog_id
	JOIN desks fd ON fd.id = m.from_desk_id
	JOIN desks td ON td.id = m.to_desk_id`

func scanMove(row interface{ Scan(...any) error }) (*model.Move, error) {
	m := &model.Move{}
	var notes sql.NullString
	err := row.Scan(&m.ID, &m.StampID, &m.FromDeskID, &m.ToDeskID, &notes,
		&m.MovedAt, &m.MovedBy,
		&m.StampName, &m.FromDeskType, &m.ToDeskType)
	if err != nil {
		return nil, err
	}
	m.Notes = notes.String
	return m, nil
}

// GetMove returns a move by ID.
func GetMove(ctx context.Context, db *sql.DB, id int64) (*model.Move, error) {
	m, err := scanMove(db.QueryRowContext(ctx, moveSelect+` WHERE m.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting move: %w", err)
	}
	return m, nil
}

// ListMoves returns a user's move history, newest first, optionally
// filtered by stamp.
func ListMoves(ctx context.Context, db *sql.DB, userID, stampID int64) ([]model.Move, error) {
	query := moveSelect + ` WHERE s.user_id = ?`
	args := []any{userID}

	if stampID > 0 {
		query += ` AND m.stamp_id = ?`
		args = append(args, stampID)
	}

	query += ` ORDER BY m.moved_at DESC, m.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing moves: %w", err)
	}
	defer rows.Close()

	var moves []model.Move
	for rows.Next() {
		m, err := scanMove(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning move: %w", err)
		}
		moves = append(moves, *m)
	}
	return moves, rows.Err()
}
