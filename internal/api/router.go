package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/znamke/internal/combo"
	"github.com/erazemk/znamke/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, engine *combo.Engine) http.Handler {
	mux := http.NewServeMux()

	parts := partitions{db: db, engine: engine}
	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db, partitions: parts}
	catalogHandler := &CatalogHandler{DB: db}
	stampsHandler := &StampsHandler{DB: db, partitions: parts}
	configHandler := &ConfigHandler{DB: db, partitions: parts}
	combosHandler := &CombinationsHandler{DB: db, Engine: engine, partitions: parts}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login and metrics.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: read (all roles), write (manager+).
	mux.Handle("GET /api/catalog", authMW(http.HandlerFunc(catalogHandler.List)))
	mux.Handle("POST /api/catalog", authMW(requireManager(http.HandlerFunc(catalogHandler.Create))))
	mux.Handle("POST /api/catalog/slugs", authMW(requireManager(http.HandlerFunc(catalogHandler.UpdateSlugs))))
	mux.Handle("GET /api/catalog/{id}", authMW(http.HandlerFunc(catalogHandler.Get)))
	mux.Handle("DELETE /api/catalog/{id}", authMW(requireManager(http.HandlerFunc(catalogHandler.Delete))))
	mux.Handle("PUT /api/catalog/{id}/image", authMW(requireManager(http.HandlerFunc(catalogHandler.UploadImage))))
	mux.Handle("GET /api/catalog/{id}/image", authMW(http.HandlerFunc(catalogHandler.GetImage)))

	// Stamps: the caller's own inventory.
	mux.Handle("GET /api/stamps", authMW(http.HandlerFunc(stampsHandler.List)))
	mux.Handle("POST /api/stamps", authMW(http.HandlerFunc(stampsHandler.Create)))
	mux.Handle("GET /api/stamps/moves", authMW(http.HandlerFunc(stampsHandler.Moves)))
	mux.Handle("GET /api/stamps/export", authMW(http.HandlerFunc(stampsHandler.Export)))
	mux.Handle("POST /api/stamps/import", authMW(requireManager(http.HandlerFunc(stampsHandler.Import))))
	mux.Handle("GET /api/stamps/{id}", authMW(http.HandlerFunc(stampsHandler.Get)))
	mux.Handle("PUT /api/stamps/{id}", authMW(http.HandlerFunc(stampsHandler.Update)))
	mux.Handle("DELETE /api/stamps/{id}", authMW(http.HandlerFunc(stampsHandler.Delete)))
	mux.Handle("PUT /api/stamps/{id}/desk", authMW(http.HandlerFunc(stampsHandler.Move)))

	// Combination settings and search.
	mux.Handle("GET /api/config", authMW(http.HandlerFunc(configHandler.Get)))
	mux.Handle("PUT /api/config", authMW(http.HandlerFunc(configHandler.Update)))
	mux.Handle("GET /api/combinations", authMW(http.HandlerFunc(combosHandler.Search)))
	mux.Handle("POST /api/combinations/stick", authMW(http.HandlerFunc(combosHandler.Stick)))

	return mux
}
