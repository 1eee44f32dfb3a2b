package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// StampsHandler handles the calling user's inventory.
type StampsHandler struct {
	DB         *sql.DB
	partitions partitions
}

type createStampsRequest struct {
	CatalogID   int64  `json:"catalog_id"`
	Count       int    `json:"count"`
	Desk        string `json:"desk"`
	AllowRepeat bool   `json:"allow_repeat"`
}

type updateStampRequest struct {
	CustomName  string `json:"custom_name"`
	Comment     string `json:"comment"`
	AllowRepeat bool   `json:"allow_repeat"`
}

type moveStampRequest struct {
	Desk  string `json:"desk"`
	Notes string `json:"notes"`
}

// ownStamp loads the stamp named by the path and checks it belongs to the
// caller. Other users' stamps are reported as missing.
func (h *StampsHandler) ownStamp(w http.ResponseWriter, r *http.Request) (*model.InventoryItem, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid stamp id")
		return nil, false
	}

	stamp, err := store.GetStamp(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get stamp")
		return nil, false
	}
	if stamp == nil || stamp.UserID != GetClaims(r.Context()).UserID {
		jsonError(w, http.StatusNotFound, "stamp not found")
		return nil, false
	}
	return stamp, true
}

// List handles GET /api/stamps?desk=.
func (h *StampsHandler) List(w http.ResponseWriter, r *http.Request) {
	desk := r.URL.Query().Get("desk")
	if desk != "" && !model.ValidDeskType(desk) {
		jsonError(w, http.StatusBadRequest, "invalid desk")
		return
	}

	stamps, err := store.ListStamps(r.Context(), h.DB, GetClaims(r.Context()).UserID, desk)
	if err != nil {
		storeError(w, err, "list stamps")
		return
	}
	if stamps == nil {
		stamps = []model.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, stamps)
}

// Create handles POST /api/stamps.
func (h *StampsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStampsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Count == 0 {
		req.Count = 1
	}
	if req.Desk == "" {
		req.Desk = model.DeskAvailable
	}
	if req.CatalogID <= 0 || req.Count < 0 || req.Count > 100 {
		jsonError(w, http.StatusBadRequest, "catalog_id is required and count must be between 1 and 100")
		return
	}
	if !model.ValidDeskType(req.Desk) {
		jsonError(w, http.StatusBadRequest, "invalid desk")
		return
	}

	claims := GetClaims(r.Context())
	stamps, err := store.AddStamps(r.Context(), h.DB, claims.UserID, req.CatalogID, req.Desk, req.Count, req.AllowRepeat)
	if err != nil {
		storeError(w, err, "add stamps")
		return
	}
	h.partitions.invalidate(r.Context(), claims)

	slog.Info("stamps added", "user", claims.Username, "catalog_id", req.CatalogID, "count", req.Count, "desk", req.Desk)
	jsonResponse(w, http.StatusCreated, stamps)
}

// Get handles GET /api/stamps/{id}.
func (h *StampsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stamp, ok := h.ownStamp(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, stamp)
}

// Update handles PUT /api/stamps/{id}.
func (h *StampsHandler) Update(w http.ResponseWriter, r *http.Request) {
	stamp, ok := h.ownStamp(w, r)
	if !ok {
		return
	}

	var req updateStampRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateStamp(r.Context(), h.DB, stamp.ID, req.CustomName, req.Comment, req.AllowRepeat); err != nil {
		storeError(w, err, "update stamp")
		return
	}
	h.partitions.invalidate(r.Context(), GetClaims(r.Context()))

	updated, err := store.GetStamp(r.Context(), h.DB, stamp.ID)
	if err != nil {
		storeError(w, err, "get stamp")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/stamps/{id}.
func (h *StampsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	stamp, ok := h.ownStamp(w, r)
	if !ok {
		return
	}

	if err := store.DeleteStamp(r.Context(), h.DB, stamp.ID); err != nil {
		storeError(w, err, "delete stamp")
		return
	}
	h.partitions.invalidate(r.Context(), GetClaims(r.Context()))

	slog.Info("stamp deleted", "user", GetClaims(r.Context()).Username, "stamp", stamp.DisplayName())
	jsonResponse(w, http.StatusOK, map[string]string{"message": "stamp deleted"})
}

// Move handles PUT /api/stamps/{id}/desk.
func (h *StampsHandler) Move(w http.ResponseWriter, r *http.Request) {
	stamp, ok := h.ownStamp(w, r)
	if !ok {
		return
	}

	var req moveStampRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidDeskType(req.Desk) {
		jsonError(w, http.StatusBadRequest, "invalid desk")
		return
	}

	claims := GetClaims(r.Context())
	move, err := store.MoveStamp(r.Context(), h.DB, stamp.ID, req.Desk, req.Notes, &claims.UserID)
	if err != nil {
		storeError(w, err, "move stamp")
		return
	}
	h.partitions.invalidate(r.Context(), claims)

	slog.Info("stamp moved", "user", claims.Username, "stamp", move.StampName,
		"from", move.FromDeskType, "to", move.ToDeskType)
	jsonResponse(w, http.StatusOK, move)
}

// Moves handles GET /api/stamps/moves?stamp_id=.
func (h *StampsHandler) Moves(w http.ResponseWriter, r *http.Request) {
	var stampID int64
	if v := r.URL.Query().Get("stamp_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid stamp_id")
			return
		}
		stampID = id
	}

	moves, err := store.ListMoves(r.Context(), h.DB, GetClaims(r.Context()).UserID, stampID)
	if err != nil {
		storeError(w, err, "list moves")
		return
	}
	if moves == nil {
		moves = []model.Move{}
	}
	jsonResponse(w, http.StatusOK, moves)
}

// Export handles GET /api/stamps/export.
func (h *StampsHandler) Export(w http.ResponseWriter, r *http.Request) {
	exports, err := store.ExportStamps(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		storeError(w, err, "export stamps")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="stamps.json"`)
	jsonResponse(w, http.StatusOK, exports)
}

// Import handles POST /api/stamps/import (manager+). Records may target any
// user by username.
func (h *StampsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var records []model.StampExport
	if err := decodeJSON(r, &records); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	users, err := store.ImportStamps(r.Context(), h.DB, records)
	if err != nil {
		storeError(w, err, "import stamps")
		return
	}
	for _, id := range users {
		h.partitions.invalidateUser(r.Context(), id)
	}

	slog.Info("stamps imported", "user", GetClaims(r.Context()).Username, "count", len(records), "users", len(users))
	jsonResponse(w, http.StatusOK, map[string]int{"imported": len(records)})
}
