package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/znamke/internal/auth"
	"github.com/erazemk/znamke/internal/combo"
	"github.com/erazemk/znamke/internal/db"
	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/store"
)

const testJWTSecret = "test-secret"

// newTestServer starts a server over a fresh database with a caching engine.
func newTestServer(t *testing.T, maxSubsets int64) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)

	cache, err := combo.NewLRUCache(100)
	if err != nil {
		t.Fatalf("NewLRUCache: %v", err)
	}
	t.Cleanup(cache.Close)

	engine := combo.New(combo.Options{
		MaxSubsets: maxSubsets,
		Cache:      cache,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	server := httptest.NewServer(NewRouter(database, testJWTSecret, engine))
	t.Cleanup(server.Close)
	return server, database
}

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	server, database := newTestServer(t, 0)
	return server, loginAdmin(t, server, database)
}

func loginAdmin(t *testing.T, server *httptest.Server, database *sql.DB) string {
	t.Helper()

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	return login(t, server.URL, "admin", "password")
}

func login(t *testing.T, serverURL, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(serverURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return token
}

// tokenFor issues a token for a user without logging in. The token names no
// desk, so its partition is looked up.
func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := auth.IssueToken(testJWTSecret, auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Version:  user.TokenVersion,
	}, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the
// response into out when it is not nil.
func do(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func createCatalogItem(t *testing.T, serverURL, token, name, value string) model.CatalogItem {
	t.Helper()
	var item model.CatalogItem
	do(t, "POST", serverURL+"/api/catalog", token, map[string]any{
		"name":    name,
		"year":    2020,
		"country": "Slovenija",
		"value":   value,
	}, http.StatusCreated, &item)
	return item
}

func addStamps(t *testing.T, serverURL, token string, catalogID int64, count int) []model.InventoryItem {
	t.Helper()
	var stamps []model.InventoryItem
	do(t, "POST", serverURL+"/api/stamps", token, map[string]any{
		"catalog_id": catalogID,
		"count":      count,
	}, http.StatusCreated, &stamps)
	return stamps
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	do(t, "GET", server.URL+"/api/config", token, nil, http.StatusOK, nil)
	do(t, "POST", server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/config", token, nil, http.StatusUnauthorized, nil)
}

func TestCatalogAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	item := createCatalogItem(t, server.URL, token, "Triglav", "0.85")
	if item.Slug != "triglav-2020-0-85" {
		t.Errorf("unexpected slug %q", item.Slug)
	}
	createCatalogItem(t, server.URL, token, "Sava", "1")

	var page model.Page[model.CatalogItem]
	do(t, "GET", server.URL+"/api/catalog?page=1&per_page=1", token, nil, http.StatusOK, &page)
	if page.Total != 2 || len(page.Items) != 1 || page.Items[0].Name != "Sava" {
		t.Errorf("unexpected page %+v", page)
	}

	do(t, "GET", server.URL+"/api/catalog?per_page=0", token, nil, http.StatusBadRequest, nil)

	var slugs map[string]int
	do(t, "POST", server.URL+"/api/catalog/slugs", token, nil, http.StatusOK, &slugs)
	if slugs["changed"] != 0 {
		t.Errorf("expected no slug changes, got %d", slugs["changed"])
	}
}

func TestCombinationsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	a := createCatalogItem(t, server.URL, token, "Forty", "40")
	b := createCatalogItem(t, server.URL, token, "Thirty-five", "35")
	sa := addStamps(t, server.URL, token, a.ID, 1)
	sb := addStamps(t, server.URL, token, b.ID, 2)

	// Default settings: one or two stamps worth 75 to 100.
	var result combo.Result
	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusOK, &result)
	if len(result.Combinations) != 1 || !result.Combinations[0].Sum.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected one combination worth 75, got %+v", result.Combinations)
	}
	if result.Cached {
		t.Error("first search should not be cached")
	}
	if result.Candidates != 2 {
		t.Errorf("expected repeats to collapse to 2 candidates, got %d", result.Candidates)
	}

	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusOK, &result)
	if !result.Cached {
		t.Error("second search should be cached")
	}

	// Adding a stamp invalidates the cached result.
	c := createCatalogItem(t, server.URL, token, "Sixty", "60")
	addStamps(t, server.URL, token, c.ID, 1)
	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusOK, &result)
	if result.Cached || len(result.Combinations) != 3 {
		t.Fatalf("expected 3 fresh combinations, got cached=%v %+v", result.Cached, result.Combinations)
	}

	// Pinning a catalog item keeps only combinations containing it.
	do(t, "GET", server.URL+"/api/combinations?pin="+itoa(c.ID), token, nil, http.StatusOK, &result)
	if len(result.Combinations) != 2 {
		t.Errorf("expected 2 combinations with the pinned stamp, got %d", len(result.Combinations))
	}

	// Sticking a combination stages it on the postcard desk, which pins it.
	var stuck map[string]int
	do(t, "POST", server.URL+"/api/combinations/stick", token, map[string]any{
		"stamp_ids": []int64{sa[0].ID, sb[0].ID},
	}, http.StatusOK, &stuck)
	if stuck["moved"] != 2 {
		t.Errorf("expected 2 stamps moved, got %d", stuck["moved"])
	}

	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusOK, &result)
	if len(result.Combinations) != 1 || result.Combinations[0].Sum.String() != "75" {
		t.Errorf("expected only the staged combination, got %+v", result.Combinations)
	}

	var postcard []model.InventoryItem
	do(t, "GET", server.URL+"/api/stamps?desk=postcard", token, nil, http.StatusOK, &postcard)
	if len(postcard) != 2 {
		t.Errorf("expected 2 stamps on the postcard desk, got %d", len(postcard))
	}

	do(t, "GET", server.URL+"/api/combinations?pin=abc", token, nil, http.StatusBadRequest, nil)
}

func TestCombinationsTooLarge(t *testing.T) {
	server, database := newTestServer(t, 10)
	token := loginAdmin(t, server, database)

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		item := createCatalogItem(t, server.URL, token, name, "1")
		addStamps(t, server.URL, token, item.ID, 1)
	}
	do(t, "PUT", server.URL+"/api/config", token, map[string]any{
		"min_count":    1,
		"max_count":    5,
		"target_value": "0",
		"max_value":    "1000",
	}, http.StatusOK, nil)

	var body struct {
		Error string `json:"error"`
		Total int64  `json:"total"`
		Limit int64  `json:"limit"`
	}
	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusUnprocessableEntity, &body)
	if body.Total != 31 || body.Limit != 10 || body.Error == "" {
		t.Errorf("unexpected 422 body %+v", body)
	}
}

func TestConfigAPI(t *testing.T) {
	server, token := setupTestServer(t)

	var cfg model.CalcConfig
	do(t, "GET", server.URL+"/api/config", token, nil, http.StatusOK, &cfg)
	if cfg.MinCount != 1 || cfg.MaxCount != 2 || cfg.TargetValue.String() != "75" {
		t.Errorf("unexpected default config %+v", cfg)
	}

	do(t, "PUT", server.URL+"/api/config", token, map[string]any{
		"min_count": 3, "max_count": 2, "target_value": "1", "max_value": "2",
	}, http.StatusBadRequest, nil)
	do(t, "PUT", server.URL+"/api/config", token, map[string]any{
		"min_count": 1, "max_count": 2, "target_value": "5", "max_value": "2",
	}, http.StatusBadRequest, nil)

	do(t, "PUT", server.URL+"/api/config", token, map[string]any{
		"min_count": 2, "max_count": 3, "target_value": "1.5", "max_value": "2", "allow_repeats": true,
	}, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/config", token, nil, http.StatusOK, &cfg)
	if cfg.MinCount != 2 || cfg.MaxCount != 3 || cfg.TargetValue.String() != "1.5" || !cfg.AllowRepeats {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestStampsAPI(t *testing.T) {
	server, database := newTestServer(t, 0)
	token := loginAdmin(t, server, database)

	item := createCatalogItem(t, server.URL, token, "Lipizzaner", "2")
	stamp := addStamps(t, server.URL, token, item.ID, 1)[0]
	stampURL := server.URL + "/api/stamps/" + itoa(stamp.ID)

	var updated model.InventoryItem
	do(t, "PUT", stampURL, token, map[string]any{
		"custom_name": "White horse", "comment": "corner crease", "allow_repeat": true,
	}, http.StatusOK, &updated)
	if updated.DisplayName() != "White horse" || !updated.AllowRepeat {
		t.Errorf("unexpected stamp %+v", updated)
	}

	var move model.Move
	do(t, "PUT", stampURL+"/desk", token, map[string]string{"desk": "removed"}, http.StatusOK, &move)
	if move.ToDeskType != model.DeskRemoved {
		t.Errorf("unexpected move %+v", move)
	}
	do(t, "PUT", stampURL+"/desk", token, map[string]string{"desk": "removed"}, http.StatusBadRequest, nil)
	do(t, "PUT", stampURL+"/desk", token, map[string]string{"desk": "drawer"}, http.StatusBadRequest, nil)

	var moves []model.Move
	do(t, "GET", server.URL+"/api/stamps/moves", token, nil, http.StatusOK, &moves)
	if len(moves) != 1 {
		t.Errorf("expected 1 move, got %d", len(moves))
	}

	// Other users cannot see the stamp.
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	other, err := store.CreateUser(context.Background(), database, "other", string(hash), model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	otherToken := tokenFor(t, other)
	do(t, "GET", stampURL, otherToken, nil, http.StatusNotFound, nil)
	do(t, "DELETE", stampURL, otherToken, nil, http.StatusNotFound, nil)

	var exported []model.StampExport
	do(t, "GET", server.URL+"/api/stamps/export", token, nil, http.StatusOK, &exported)
	if len(exported) != 1 || exported[0].CatalogSlug != item.Slug || exported[0].DeskType != model.DeskRemoved {
		t.Fatalf("unexpected export %+v", exported)
	}

	exported[0].Username = "other"
	var imported map[string]int
	do(t, "POST", server.URL+"/api/stamps/import", token, exported, http.StatusOK, &imported)
	if imported["imported"] != 1 {
		t.Errorf("expected 1 imported, got %d", imported["imported"])
	}
	do(t, "POST", server.URL+"/api/stamps/import", otherToken, exported, http.StatusForbidden, nil)

	var theirs []model.InventoryItem
	do(t, "GET", server.URL+"/api/stamps", otherToken, nil, http.StatusOK, &theirs)
	if len(theirs) != 1 || theirs[0].CustomName != "White horse" {
		t.Errorf("unexpected imported stamps %+v", theirs)
	}

	do(t, "DELETE", stampURL, token, nil, http.StatusOK, nil)
	do(t, "GET", stampURL, token, nil, http.StatusNotFound, nil)
}

func TestMetricsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	do(t, "GET", server.URL+"/api/combinations", token, nil, http.StatusOK, nil)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "znamke_combo_searches_total") {
		t.Error("expected combination search counter in metrics output")
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := newTestServer(t, 0)

	resp, _ := http.Get(server.URL + "/api/stamps")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, database := newTestServer(t, 0)

	// Create a regular user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.DefaultCost)
	user, _ := store.CreateUser(ctx, database, "user1", string(hash), model.RoleUser)

	userToken := tokenFor(t, user)

	// Regular user should not be able to create catalog items (manager+ required).
	req, _ := authRequest("POST", server.URL+"/api/catalog", userToken, map[string]string{
		"name": "Test",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user creating catalog item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular user should not access /api/users.
	req, _ = authRequest("GET", server.URL+"/api/users", userToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
