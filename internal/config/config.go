package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// ContentDir is the root holding notes/<locale>/ and articles/<locale>/.
	ContentDir string `json:"content_dir,omitempty"`

	// DatabaseURL selects the relational note backend when set.
	// Postgres URLs and key=value DSNs use lib/pq; sqlite:, file: and *.db use SQLite.
	DatabaseURL string `json:"database_url,omitempty"`

	// ReadOnly rejects every note write with CAPABILITY_UNAVAILABLE.
	ReadOnly bool `json:"read_only,omitempty"`

	// Bind and Port are the HTTP listen address for `folio serve`.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// GLMURL and OpenAIURL override the chat-completions endpoints.
	GLMURL    string `json:"glm_url,omitempty"`
	OpenAIURL string `json:"openai_url,omitempty"`

	// API keys come from the environment only.
	GLMAPIKey    string `json:"-"`
	OpenAIAPIKey string `json:"-"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every MCP tool of a group ("notes", "articles").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContentDir: "content",
		Bind:       "127.0.0.1",
		Port:       3000,
		LogLevel:   "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// FromEnvironment is the full startup path: .env files, then config.json in
// baseDir, then environment overrides.
func FromEnvironment(baseDir string) (*Config, error) {
	if err := LoadEnvFiles(baseDir); err != nil {
		return nil, err
	}
	cfg, err := Load(baseDir)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env files into the process environment:
//  1. ENV_FILE, if set, is the only file loaded
//  2. .env.local (overrides .env)
//  3. .env
//
// Variables already set in the environment are never overwritten.
// Missing files are ignored.
func LoadEnvFiles(dir string) error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with environment variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("POSTGRES_URL"); v != "" {
		cfg.DatabaseURL = v
	} else if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("FOLIO_CONTENT_DIR"); v != "" {
		cfg.ContentDir = v
	}
	if v := getenv("FOLIO_READ_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FOLIO_READ_ONLY: %w", err)
		}
		cfg.ReadOnly = b
	}
	if v := getenv("FOLIO_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := getenv("FOLIO_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("FOLIO_PORT: invalid port %q", v)
		}
		cfg.Port = p
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.GLMAPIKey = getenv("GLM_API_KEY")
	cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
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
	result := &Config{
		ContentDir:     firstNonEmpty(overlay.ContentDir, base.ContentDir),
		DatabaseURL:    firstNonEmpty(overlay.DatabaseURL, base.DatabaseURL),
		Bind:           firstNonEmpty(overlay.Bind, base.Bind),
		LogLevel:       firstNonEmpty(overlay.LogLevel, base.LogLevel),
		GLMURL:         firstNonEmpty(overlay.GLMURL, base.GLMURL),
		OpenAIURL:      firstNonEmpty(overlay.OpenAIURL, base.OpenAIURL),
		GLMAPIKey:      firstNonEmpty(overlay.GLMAPIKey, base.GLMAPIKey),
		OpenAIAPIKey:   firstNonEmpty(overlay.OpenAIAPIKey, base.OpenAIAPIKey),
		Port:           firstNonZero(overlay.Port, base.Port),
		DBMaxOpenConns: firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.ReadOnly = base.ReadOnly || overlay.ReadOnly

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
