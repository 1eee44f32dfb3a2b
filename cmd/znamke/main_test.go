package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erazemk/znamke/internal/combo"
)

func TestConfigPrecedence(t *testing.T) {
	cfg := defaultConfig()
	if cfg.MaxSubsets != combo.DefaultMaxSubsets {
		t.Fatalf("expected default max subsets %d, got %d", combo.DefaultMaxSubsets, cfg.MaxSubsets)
	}
	if cfg.CacheSize != combo.DefaultCacheSize {
		t.Fatalf("expected default cache size %d, got %d", combo.DefaultCacheSize, cfg.CacheSize)
	}

	env := map[string]string{
		"ZNAMKE_DB":          "env.sqlite3",
		"ZNAMKE_MAX_SUBSETS": "500",
		"ZNAMKE_WORKERS":     "4",
	}
	if err := applyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if err := parseFlags(&cfg, []string{"-d", "flag.sqlite3", "-cache-size", "16"}); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.DBPath != "flag.sqlite3" {
		t.Errorf("flag should override env, got db %q", cfg.DBPath)
	}
	if cfg.MaxSubsets != 500 || cfg.Workers != 4 {
		t.Errorf("env should override defaults, got max %d workers %d", cfg.MaxSubsets, cfg.Workers)
	}
	if cfg.CacheSize != 16 {
		t.Errorf("expected cache size 16, got %d", cfg.CacheSize)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	for _, v := range []string{"abc", "0", "-3"} {
		cfg := defaultConfig()
		getenv := func(k string) string {
			if k == "ZNAMKE_MAX_SUBSETS" {
				return v
			}
			return ""
		}
		if err := applyEnv(&cfg, getenv); err == nil {
			t.Errorf("expected error for ZNAMKE_MAX_SUBSETS=%q", v)
		}
	}
}

func TestParseFlagsRejectsArguments(t *testing.T) {
	cfg := defaultConfig()
	if err := parseFlags(&cfg, []string{"serve"}); err == nil {
		t.Error("expected error for positional argument")
	}
	cfg = defaultConfig()
	if err := parseFlags(&cfg, []string{"-workers", "0"}); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ZNAMKE_TEST_ADDR=:9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZNAMKE_TEST_ADDR", "")
	os.Unsetenv("ZNAMKE_TEST_ADDR")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("ZNAMKE_TEST_ADDR"); got != ":9090" {
		t.Errorf("expected :9090 from .env, got %q", got)
	}
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "znamke.sqlite3")
	database, password, err := initDatabase(path, "Admin")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	defer database.Close()

	if len(password) != 16 {
		t.Errorf("expected 16 character password, got %d", len(password))
	}

	var desks int
	if err := database.QueryRow(`SELECT COUNT(*) FROM desks`).Scan(&desks); err != nil {
		t.Fatalf("counting desks: %v", err)
	}
	if desks != 3 {
		t.Errorf("expected the admin to own 3 desks, got %d", desks)
	}
}
