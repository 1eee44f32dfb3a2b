package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/erazemk/znamke/internal/combo"
	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// CombinationsHandler runs combination searches over the caller's inventory.
type CombinationsHandler struct {
	DB         *sql.DB
	Engine     *combo.Engine
	partitions partitions
}

type tooLargeResponse struct {
	Error string   `json:"error"`
	Total *big.Int `json:"total"`
	Limit int64    `json:"limit"`
}

type stickRequest struct {
	StampIDs []int64 `json:"stamp_ids"`
	Notes    string  `json:"notes"`
}

// Search handles GET /api/combinations?pin=.
// Every pin is a catalog ID that must appear in each combination.
func (h *CombinationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var pinned []int64
	for _, v := range r.URL.Query()["pin"] {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid pin")
			return
		}
		pinned = append(pinned, id)
	}

	claims := GetClaims(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	key, err := h.partitions.of(r.Context(), claims)
	if err != nil {
		storeError(w, err, "find inventory")
		return
	}

	result, err := h.Engine.Search(r.Context(), combo.Request{
		PartitionKey: key,
		Config:       user.CalcConfig,
		Pinned:       pinned,
		Load: func(ctx context.Context) ([]model.InventoryItem, error) {
			return store.LoadInventory(ctx, h.DB, user.ID)
		},
	})
	if err != nil {
		searchError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// searchError writes the response for a failed search. Nothing is written
// when the client has gone away.
func searchError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *combo.EnumerationTooLargeError
	switch {
	case errors.As(err, &tooLarge):
		jsonResponse(w, http.StatusUnprocessableEntity, tooLargeResponse{
			Error: "too many combinations to search, narrow the count range or remove stamps",
			Total: tooLarge.Total,
			Limit: tooLarge.Limit,
		})
	case errors.Is(err, combo.ErrInvalidConfig):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		jsonError(w, http.StatusGatewayTimeout, "combination search timed out")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// The client went away.
	default:
		slog.Error("failed to search combinations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to search combinations")
	}
}

// Stick handles POST /api/combinations/stick. It moves the stamps of a
// chosen combination onto the postcard desk.
func (h *CombinationsHandler) Stick(w http.ResponseWriter, r *http.Request) {
	var req stickRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.StampIDs) == 0 {
		jsonError(w, http.StatusBadRequest, "stamp_ids required")
		return
	}

	claims := GetClaims(r.Context())
	moved, err := store.MoveStamps(r.Context(), h.DB, claims.UserID, req.StampIDs, model.DeskPostcard, req.Notes, &claims.UserID)
	if err != nil {
		storeError(w, err, "stick stamps")
		return
	}
	h.partitions.invalidate(r.Context(), claims)

	slog.Info("combination stuck", "user", claims.Username, "moved", moved)
	jsonResponse(w, http.StatusOK, map[string]int{"moved": moved})
}
