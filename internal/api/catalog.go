package api

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/znamke/internal/imaging"
	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

// maxImageUpload bounds catalog scan uploads.
const maxImageUpload = 5 << 20

// CatalogHandler handles catalog endpoints.
type CatalogHandler struct {
	DB *sql.DB
}

type createCatalogRequest struct {
	Name          string          `json:"name"`
	Year          int             `json:"year"`
	Country       string          `json:"country"`
	Value         decimal.Decimal `json:"value"`
	Width         *int            `json:"width"`
	Height        *int            `json:"height"`
	Topics        []string        `json:"topics"`
	CatalogNumber string          `json:"catalog_number"`
	Slug          string          `json:"slug"`
	SourceURL     string          `json:"source_url"`
}

// List handles GET /api/catalog?page=&per_page=.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := 1, 50
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			jsonError(w, http.StatusBadRequest, "per_page must be between 1 and 500")
			return
		}
		perPage = n
	}

	result, err := store.ListCatalogItems(r.Context(), h.DB, page, perPage)
	if err != nil {
		storeError(w, err, "list catalog")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Create handles POST /api/catalog.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCatalogRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Value.IsNegative() {
		jsonError(w, http.StatusBadRequest, "value must not be negative")
		return
	}

	item, err := store.CreateCatalogItem(r.Context(), h.DB, model.CatalogItem{
		Name:          req.Name,
		Year:          req.Year,
		Country:       req.Country,
		Value:         req.Value,
		Width:         req.Width,
		Height:        req.Height,
		Topics:        req.Topics,
		CatalogNumber: req.CatalogNumber,
		Slug:          req.Slug,
		SourceURL:     req.SourceURL,
	})
	if err != nil {
		storeError(w, err, "create catalog item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item created", "user", claims.Username, "item", item.Name, "slug", item.Slug)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}

	item, err := store.GetCatalogItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get catalog item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "catalog item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/catalog/{id}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}

	if err := store.DeleteCatalogItem(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete catalog item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item deleted", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "catalog item deleted"})
}

// UploadImage handles PUT /api/catalog/{id}/image.
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	scan, err := imaging.Process(data, imaging.MaxDimension)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetCatalogImage(r.Context(), h.DB, id, scan.Data, scan.MIME); err != nil {
		storeError(w, err, "save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"mime":    scan.MIME,
		"width":   scan.Width,
		"height":  scan.Height,
	})
}

// GetImage handles GET /api/catalog/{id}/image.
func (h *CatalogHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}

	data, mime, err := store.GetCatalogImage(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// UpdateSlugs handles POST /api/catalog/slugs.
func (h *CatalogHandler) UpdateSlugs(w http.ResponseWriter, r *http.Request) {
	changed, err := store.UpdateSlugs(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "update slugs")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog slugs recomputed", "user", claims.Username, "changed", changed)
	jsonResponse(w, http.StatusOK, map[string]int{"changed": changed})
}
