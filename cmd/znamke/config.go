package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/erazemk/znamke/internal/combo"
)

// config holds the server settings. Flags override ZNAMKE_* environment
// variables, which override the defaults. A .env file in the working
// directory is read into the environment first without replacing
// variables that are already set.
type config struct {
	DBPath     string
	Addr       string
	AdminUser  string
	LogPath    string
	MaxSubsets int64
	CacheSize  int64
	Workers    int
}

func defaultConfig() config {
	return config{
		DBPath:     "znamke.sqlite3",
		Addr:       ":8080",
		AdminUser:  "Admin",
		MaxSubsets: combo.DefaultMaxSubsets,
		CacheSize:  combo.DefaultCacheSize,
		Workers:    1,
	}
}

// loadDotEnv reads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg with the ZNAMKE_* variables that are set.
func applyEnv(cfg *config, getenv func(string) string) error {
	if v := getenv("ZNAMKE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("ZNAMKE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("ZNAMKE_ADMIN_USER"); v != "" {
		cfg.AdminUser = v
	}
	if v := getenv("ZNAMKE_LOG"); v != "" {
		cfg.LogPath = v
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"ZNAMKE_MAX_SUBSETS", &cfg.MaxSubsets},
		{"ZNAMKE_CACHE_SIZE", &cfg.CacheSize},
	}
	for _, e := range ints {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", e.name, v)
		}
		*e.dst = n
	}

	if v := getenv("ZNAMKE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("ZNAMKE_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = n
	}
	return nil
}

// parseFlags binds every setting to a long and a short flag, using the
// values already in cfg as defaults.
func parseFlags(cfg *config, args []string) error {
	fs := flag.NewFlagSet("znamke", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.Int64Var(&cfg.MaxSubsets, "max-subsets", cfg.MaxSubsets, "")
	fs.Int64Var(&cfg.CacheSize, "cache-size", cfg.CacheSize, "")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: znamke [flags]

Flags:
  -d, -db <path>          SQLite database path (default: znamke.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -max-subsets <n>        largest search the server will run (default: 1000000)
  -cache-size <n>         cached search results kept (default: 1000)
  -w, -workers <n>        parallel enumeration workers per search (default: 1)
  -h, -help               show this help and exit

Every flag can also be set with a ZNAMKE_* environment variable or a .env
file, for example ZNAMKE_DB or ZNAMKE_MAX_SUBSETS.
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if cfg.MaxSubsets <= 0 || cfg.CacheSize <= 0 || cfg.Workers <= 0 {
		return errors.New("max-subsets, cache-size and workers must be positive")
	}
	return nil
}
