package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB         *sql.DB
	partitions partitions
}

type createUserRequest struct {
	Username   string            `json:"username"`
	Password   string            `json:"password"`
	Role       string            `json:"role"`
	CalcConfig *model.CalcConfig `json:"calc_config"`
}

// updateUserRequest changes the role, the combination settings or both.
type updateUserRequest struct {
	Role       string            `json:"role"`
	CalcConfig *model.CalcConfig `json:"calc_config"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// userDetail is a user together with their desks and stamp counts.
type userDetail struct {
	*model.User
	Desks []model.Desk `json:"desks"`
}

func (h *UsersHandler) detail(ctx context.Context, id int64) (*userDetail, error) {
	user, err := store.GetUser(ctx, h.DB, id)
	if err != nil || user == nil {
		return nil, err
	}
	desks, err := store.ListDesks(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	return &userDetail{User: user, Desks: desks}, nil
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users. Settings left out of the request get
// the defaults.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "username, password, and role required")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CalcConfig != nil {
		if err := req.CalcConfig.Validate(); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		storeError(w, err, "create user")
		return
	}
	if req.CalcConfig != nil {
		if err := store.UpdateCalcConfig(r.Context(), h.DB, user.ID, *req.CalcConfig); err != nil {
			storeError(w, err, "store calc config")
			return
		}
	}

	detail, err := h.detail(r.Context(), user.ID)
	if err != nil {
		storeError(w, err, "get user")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user created", "user", claims.Username, "new_user", req.Username, "role", req.Role)
	jsonResponse(w, http.StatusCreated, detail)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	detail, err := h.detail(r.Context(), id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if detail == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, detail)
}

// Update handles PUT /api/users/{id}. A role change signs the user out
// everywhere so their tokens cannot keep the old role; new settings drop
// their cached searches.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" && req.CalcConfig == nil {
		jsonError(w, http.StatusBadRequest, "role or calc_config required")
		return
	}
	if req.Role != "" && !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.CalcConfig != nil {
		if err := req.CalcConfig.Validate(); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	claims := GetClaims(r.Context())
	if req.Role != "" && req.Role != user.Role {
		if err := store.UpdateUser(r.Context(), h.DB, id, req.Role); err != nil {
			storeError(w, err, "update user")
			return
		}
		if err := store.RevokeUserTokens(r.Context(), h.DB, id); err != nil {
			storeError(w, err, "revoke user tokens")
			return
		}
		slog.Info("user role updated", "user", claims.Username, "target_user", user.Username,
			"old_role", user.Role, "new_role", req.Role)
	}

	if req.CalcConfig != nil {
		if err := store.UpdateCalcConfig(r.Context(), h.DB, id, *req.CalcConfig); err != nil {
			storeError(w, err, "update calc config")
			return
		}
		h.partitions.invalidateUser(r.Context(), id)
		slog.Info("user calc config updated", "user", claims.Username, "target_user", user.Username)
	}

	detail, err := h.detail(r.Context(), id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	jsonResponse(w, http.StatusOK, detail)
}

// ResetPassword handles PUT /api/users/{id}/password. The user's existing
// tokens stop working.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		storeError(w, err, "reset password")
		return
	}
	if err := store.RevokeUserTokens(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "revoke user tokens")
		return
	}

	slog.Info("user password reset", "user", GetClaims(r.Context()).Username, "target_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. The user's stamps stay in the
// database; their tokens and cached searches do not.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete user")
		return
	}
	h.partitions.invalidateUser(r.Context(), id)

	slog.Info("user deleted", "user", claims.Username, "deleted_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
