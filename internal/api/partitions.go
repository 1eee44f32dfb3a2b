package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/erazemk/znamke/internal/auth"
	"github.com/erazemk/znamke/internal/combo"
	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// partitions ties a user's inventory to its combination cache entry. A
// partition is named after the user's available desk. Every handler that
// changes what a search would see invalidates it after the change is
// committed.
type partitions struct {
	db     *sql.DB
	engine *combo.Engine
}

// of returns the partition of the token holder. Tokens carry the desk, so
// only tokens issued without one cost a lookup.
func (p partitions) of(ctx context.Context, claims *auth.Claims) (string, error) {
	if claims.DeskID > 0 {
		return combo.PartitionKey(claims.DeskID), nil
	}
	return p.forUser(ctx, claims.UserID)
}

// forUser looks up the partition of any user.
func (p partitions) forUser(ctx context.Context, userID int64) (string, error) {
	desk, err := store.GetDeskByType(ctx, p.db, userID, model.DeskAvailable)
	if err != nil {
		return "", err
	}
	if desk == nil {
		return "", fmt.Errorf("available desk of user %d: %w", userID, store.ErrNotFound)
	}
	return combo.PartitionKey(desk.ID), nil
}

// invalidate drops the cached searches of the token holder.
func (p partitions) invalidate(ctx context.Context, claims *auth.Claims) {
	key, err := p.of(ctx, claims)
	if err != nil {
		slog.Error("failed to invalidate combinations", "user_id", claims.UserID, "error", err)
		return
	}
	p.engine.Invalidate(key)
}

// invalidateUser drops the cached searches of another user.
func (p partitions) invalidateUser(ctx context.Context, userID int64) {
	key, err := p.forUser(ctx, userID)
	if err != nil {
		slog.Error("failed to invalidate combinations", "user_id", userID, "error", err)
		return
	}
	p.engine.Invalidate(key)
}
