package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage backends.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// Bind is the HTTP listen address
	Bind string `json:"bind,omitempty"`

	// Port is the HTTP listen port
	Port int `json:"port,omitempty"`

	// Backend selects case storage: json, sqlite or postgres.
	Backend string `json:"backend,omitempty"`

	// DataDir holds case files and the sqlite database.
	// Relative paths resolve against the config base directory; empty means <base>/data.
	DataDir string `json:"data_dir,omitempty"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// KBPath is an optional knowledge base file (.json, .yaml, .yml).
	// Empty uses the built-in knowledge base.
	KBPath string `json:"kb_path,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// HistoryLimit caps case listings.
	HistoryLimit int `json:"history_limit,omitempty"`

	// RedFlagThreshold is the confidence at which a red-flag symptom escalates to 911.
	RedFlagThreshold float64 `json:"red_flag_threshold,omitempty"`

	// ReasonThreshold is the confidence at which a symptom is listed as a reason.
	ReasonThreshold float64 `json:"reason_threshold,omitempty"`

	// FuzzyThreshold is the minimum similarity for a misspelled symptom to count.
	FuzzyThreshold float64 `json:"fuzzy_threshold,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:             "127.0.0.1",
		Port:             8080,
		Backend:          BackendJSON,
		LogLevel:         "info",
		HistoryLimit:     50,
		RedFlagThreshold: 0.60,
		ReasonThreshold:  0.40,
		FuzzyThreshold:   0.80,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.triage.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.triage) and project (.triage) directories.
// Project config is found by walking upward from startDir to find the nearest .triage/config.json.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .triage/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".triage", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		Bind:             pick(overlay.Bind, base.Bind),
		Port:             pick(overlay.Port, base.Port),
		Backend:          pick(overlay.Backend, base.Backend),
		DataDir:          pick(overlay.DataDir, base.DataDir),
		PostgresDSN:      pick(overlay.PostgresDSN, base.PostgresDSN),
		KBPath:           pick(overlay.KBPath, base.KBPath),
		LogLevel:         pick(overlay.LogLevel, base.LogLevel),
		HistoryLimit:     pick(overlay.HistoryLimit, base.HistoryLimit),
		RedFlagThreshold: pick(overlay.RedFlagThreshold, base.RedFlagThreshold),
		ReasonThreshold:  pick(overlay.ReasonThreshold, base.ReasonThreshold),
		FuzzyThreshold:   pick(overlay.FuzzyThreshold, base.FuzzyThreshold),
		DBMaxOpenConns:   pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:   pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		DisabledTools:    mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

// pick returns overlay if non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Environment variables read by ApplyEnv.
const (
	EnvBind        = "TRIAGE_BIND"
	EnvPort        = "TRIAGE_PORT"
	EnvBackend     = "TRIAGE_BACKEND"
	EnvDataDir     = "TRIAGE_DATA_DIR"
	EnvPostgresDSN = "TRIAGE_POSTGRES_DSN"
	EnvKBPath      = "TRIAGE_KB_PATH"
	EnvLogLevel    = "TRIAGE_LOG_LEVEL"
)

// ApplyEnv overrides fields from environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvBind, &c.Bind},
		{EnvBackend, &c.Backend},
		{EnvDataDir, &c.DataDir},
		{EnvPostgresDSN, &c.PostgresDSN},
		{EnvKBPath, &c.KBPath},
		{EnvLogLevel, &c.LogLevel},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvPort, v)
		}
		c.Port = port
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("backend postgres requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q (want json, sqlite or postgres)", c.Backend)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return errors.New("db connection limits must not be negative")
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"red_flag_threshold", c.RedFlagThreshold},
		{"reason_threshold", c.ReasonThreshold},
		{"fuzzy_threshold", c.FuzzyThreshold},
	}
	for _, th := range thresholds {
		if th.value <= 0 || th.value > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", th.name, th.value)
		}
	}
	return nil
}

// ResolveDataDir returns the absolute data directory for a config loaded from baseDir.
func (c *Config) ResolveDataDir(baseDir string) string {
	switch {
	case c.DataDir == "":
		return filepath.Join(baseDir, "data")
	case filepath.IsAbs(c.DataDir):
		return c.DataDir
	default:
		return filepath.Join(baseDir, c.DataDir)
	}
}

// ParseLogLevel maps a config level name to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", name)
	}
}
