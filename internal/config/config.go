// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every variable name read by LoadFromEnv.
const EnvPrefix = "SPT3G_VIEWER_"

// Insecure defaults. Production mode refuses to start with either.
const (
	DefaultSecretKey = "super-secret-change-me"
	DefaultPassword  = "password"
)

// DefaultServerPort is the port the HTTP server binds when SERVER_PORT is unset.
const DefaultServerPort = 8000

// Notes backends.
const (
	NotesBackendJSON   = "json"
	NotesBackendSQLite = "sqlite"
)

// S3Config locates the catalog CSVs in an S3-compatible bucket. The catalog
// is read from the local assets directory when Bucket is empty.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
	KeyID    string
	Secret   string
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// Config holds the configuration of the catalog viewer.
type Config struct {
	NotesFile           string
	NotesBackend        string // json or sqlite
	NotesDBPath         string
	NotesBackupSchedule string // cron spec; empty disables backups
	NotesBackupDir      string

	Username  string
	Password  string
	SecretKey string
	LoginTTL  time.Duration

	DebugEnabled bool
	BasePath     string // URL prefix the app is mounted under, always "/"-terminated
	ServerHost   string
	ServerPort   int

	FilePrefix    string // prepended to relative local paths
	AssetsDir     string
	CatalogFile   string
	FitParamsFile string
	CatalogS3     S3Config

	MapImage       string
	MapWCS         string
	DefaultColorBy string

	RequireForwardedBy string // expected X-Forwarded-By value; empty disables the check
	SessionTTL         time.Duration

	LogLevel string // debug, info, warn, error (default "info")
	Env      string // "development" (default) or "production"

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string

	// Warnings collects non-fatal problems found while loading. The caller
	// logs them once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ListenAddr is the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// AssetPath resolves name inside the assets directory. Absolute names are
// returned unchanged.
func (c *Config) AssetPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.AssetsDir, name)
}

// CatalogDir is the local directory holding the catalog CSV files.
func (c *Config) CatalogDir() string {
	if c.FilePrefix == "" {
		return "."
	}
	return c.FilePrefix
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// LoadFromEnv loads configuration from SPT3G_VIEWER_* environment variables
// and validates it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		NotesBackend:        strings.ToLower(getenvDefault("NOTES_BACKEND", NotesBackendJSON)),
		NotesBackupSchedule: getenv("NOTES_BACKUP_SCHEDULE"),
		Username:            getenvDefault("USERNAME", "username"),
		Password:            getenvDefault("PASSWORD", DefaultPassword),
		SecretKey:           getenvDefault("SECRET_KEY", DefaultSecretKey),
		BasePath:            normalizeBasePath(getenvDefault("URL_BASE_PATHNAME", "/")),
		ServerHost:          getenvDefault("SERVER_HOST", "0.0.0.0"),
		FilePrefix:          getenv("URL_FILE_PREFIX"),
		DefaultColorBy:      getenvDefault("DEFAULT_COLOR_BY", "z"),
		RequireForwardedBy:  getenv("REQUIRE_FORWARDED_BY"),
		LogLevel:            getenvDefault("LOG_LEVEL", "info"),
		Env:                 getenv("ENV"),
		CatalogS3: S3Config{
			Bucket:   getenv("CATALOG_S3_BUCKET"),
			Prefix:   getenv("CATALOG_S3_PREFIX"),
			Region:   getenvDefault("CATALOG_S3_REGION", "us-east-1"),
			Endpoint: getenv("CATALOG_S3_ENDPOINT"),
			KeyID:    getenv("CATALOG_S3_KEY_ID"),
			Secret:   getenv("CATALOG_S3_SECRET"),
		},
	}

	cfg.DebugEnabled = parseBool(cfg, "DEBUG_ENABLED", false)
	cfg.ServerPort = parseInt(cfg, "SERVER_PORT", DefaultServerPort)
	cfg.RateLimitBurst = parseInt(cfg, "RATE_LIMIT_BURST", 20)
	cfg.RateLimitRPS = parseFloat(cfg, "RATE_LIMIT_RPS", 10)
	cfg.SessionTTL = parseDuration(cfg, "SESSION_TTL", 12*time.Hour)
	cfg.LoginTTL = cfg.SessionTTL

	cfg.AssetsDir = prefixed(cfg.FilePrefix, getenvDefault("ASSETS_DIR", "assets"))
	cfg.NotesFile = prefixed(cfg.FilePrefix, getenvDefault("NOTES_FILE", "notes.json"))
	cfg.NotesDBPath = prefixed(cfg.FilePrefix, getenvDefault("NOTES_DB_PATH", "notes.sqlite"))
	cfg.NotesBackupDir = prefixed(cfg.FilePrefix, getenvDefault("NOTES_BACKUP_DIR", "notes-backups"))
	cfg.CatalogFile = getenvDefault("CATALOG_FILE", "all_spt3g_sources_in_spire_field_20250519_no_NaNs.csv")
	cfg.FitParamsFile = getenvDefault("FIT_PARAMS_FILE", "all_spt3g_sources_in_spire_field_20250519_no_NaNs_mbb_fit_params.csv")
	cfg.MapImage = getenvDefault("MAP_IMAGE", "spt2_itermap_20120621_PLW.jpg")
	cfg.MapWCS = getenvDefault("MAP_WCS", "spt2_itermap_20120621_PLW.wcs.yaml")

	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.SecretKey == DefaultSecretKey {
		cfg.Warnings = append(cfg.Warnings, EnvPrefix+"SECRET_KEY not set, using insecure default")
	}
	if cfg.Password == DefaultPassword {
		cfg.Warnings = append(cfg.Warnings, EnvPrefix+"PASSWORD not set, using insecure default")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent. In
// production the insecure defaults are fatal.
func (c *Config) Validate() error {
	if c.NotesBackend != NotesBackendJSON && c.NotesBackend != NotesBackendSQLite {
		return fmt.Errorf("%sNOTES_BACKEND must be %q or %q, got %q", EnvPrefix, NotesBackendJSON, NotesBackendSQLite, c.NotesBackend)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%sSERVER_PORT out of range: %d", EnvPrefix, c.ServerPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%sSESSION_TTL must be positive", EnvPrefix)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive (rps=%g burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.Username == "" {
		return fmt.Errorf("%sUSERNAME must not be empty", EnvPrefix)
	}

	if c.IsProduction() {
		if c.SecretKey == DefaultSecretKey {
			return fmt.Errorf("%sSECRET_KEY must be set in production", EnvPrefix)
		}
		if c.Password == DefaultPassword {
			return fmt.Errorf("%sPASSWORD must be set in production", EnvPrefix)
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production")
		}
	}
	return nil
}

func parseBool(cfg *Config, key string, def bool) bool {
	v := strings.ToLower(getenv(key))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s%s=%q is not a boolean, using %t", EnvPrefix, key, v, def))
	return def
}

func parseInt(cfg *Config, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s%s=%q is not an integer, using %d", EnvPrefix, key, v, def))
		return def
	}
	return n
}

func parseFloat(cfg *Config, key string, def float64) float64 {
	v := getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s%s=%q is not a number, using %g", EnvPrefix, key, v, def))
		return def
	}
	return f
}

func parseDuration(cfg *Config, key string, def time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s%s=%q is not a duration, using %s", EnvPrefix, key, v, def))
		return def
	}
	return d
}

func prefixed(prefix, path string) string {
	if prefix == "" || filepath.IsAbs(path) {
		return path
	}
	return prefix + path
}

// normalizeBasePath returns p with exactly one leading and trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
