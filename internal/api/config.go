package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// ConfigHandler handles the caller's combination settings.
type ConfigHandler struct {
	DB         *sql.DB
	partitions partitions
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		storeError(w, err, "get config")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user.CalcConfig)
}

// Update handles PUT /api/config.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cfg model.CalcConfig
	if err := decodeJSON(r, &cfg); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := cfg.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	if err := store.UpdateCalcConfig(r.Context(), h.DB, claims.UserID, cfg); err != nil {
		storeError(w, err, "update config")
		return
	}
	h.partitions.invalidate(r.Context(), claims)

	slog.Info("calc config updated", "user", claims.Username,
		"min", cfg.MinCount, "max", cfg.MaxCount,
		"target", cfg.TargetValue.String(), "max_value", cfg.MaxValue.String(),
		"allow_repeats", cfg.AllowRepeats)
	jsonResponse(w, http.StatusOK, cfg)
}
