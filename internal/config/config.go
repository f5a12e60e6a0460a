// Package config holds the engine's on-disk configuration: LLM provider
// settings, vector store thresholds, bible registry location, and the
// monitor dashboard's server settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level application configuration.
type Config struct {
	WorkDir  string         `json:"work_dir"`
	LLM      LLMConfig      `json:"llm"`
	RAG      RAGConfig      `json:"rag"`
	Bible    BibleConfig    `json:"bible"`
	Monitor  MonitorConfig  `json:"monitor"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// LLMConfig configures the C1 LLM client.
type LLMConfig struct {
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	FallbackModel     string `json:"fallback_model"`
	APIKey            string `json:"api_key,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	CacheTTLSeconds   int    `json:"cache_ttl_seconds"`
	RequestTimeoutSec int    `json:"request_timeout_seconds"`
	MaxAttempts       int    `json:"max_attempts"`
	ThinkingEnabled   bool   `json:"thinking_enabled"`
	ThinkingSaveFiles bool   `json:"thinking_save_to_file"`
	ThinkingLevel     string `json:"thinking_level,omitempty"`  // gemini-3 family: low|medium|high
	ThinkingBudget    int    `json:"thinking_budget,omitempty"` // gemini-2.5 family: token budget
	SafetyBlockNone   bool   `json:"safety_block_none"`
}

// RAGConfig configures the C2 vector pattern store.
type RAGConfig struct {
	StoreDir            string  `json:"store_dir"`
	EmbeddingModel       string  `json:"embedding_model"`
	EmbeddingDimensions  int     `json:"embedding_dimensions"`
	NegativeThreshold    float64 `json:"negative_anchor_threshold"`
	NegativePenalty      float64 `json:"negative_anchor_penalty"`
	LogThreshold         float64 `json:"log_threshold"`
	GenreMismatchFactor  float64 `json:"genre_mismatch_factor"`
	BatchSize            int     `json:"batch_size"`
}

// BibleConfig configures the C3 bible resolver.
type BibleConfig struct {
	RegistryDir          string  `json:"registry_dir"`
	FuzzyMatchThreshold  float64 `json:"fuzzy_match_threshold"`
}

// MonitorConfig configures the ambient dashboard server.
type MonitorConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	StorageDSN   string `json:"storage_dsn"`
	StorageKind  string `json:"storage_kind"` // sqlite|postgres|redis
}

// SecurityConfig configures dashboard auth and rate limiting.
type SecurityConfig struct {
	EnableAuth     bool            `json:"enable_auth"`
	JWTSecret      string          `json:"jwt_secret"`
	RateLimitRPS   int             `json:"rate_limit_rps"`
	RateLimitBurst int             `json:"rate_limit_burst"`
	CIAPIKeys      []string        `json:"ci_api_keys,omitempty"` // pre-issued keys for service-to-service polling (e.g. CI), bypassing the JWT login flow
	Users          []DashboardUser `json:"users,omitempty"`
}

// DashboardUser is a config-seeded monitor account. PasswordHash is a
// bcrypt hash produced out-of-band; config files never hold plaintext.
type DashboardUser struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles"`
}

// LoggingConfig configures the ambient logger.
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	OutputFile string `json:"output_file"`
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config {
	return &Config{
		WorkDir: "./WORK",
		LLM: LLMConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-pro",
			FallbackModel:     "gemini-2.5-flash",
			RequestsPerMinute: 15,
			CacheTTLSeconds:   3600,
			RequestTimeoutSec: 120,
			MaxAttempts:       8,
			ThinkingEnabled:   false,
			SafetyBlockNone:   true,
		},
		RAG: RAGConfig{
			StoreDir:            "./WORK/rag",
			EmbeddingModel:      "gemini-embedding-001",
			EmbeddingDimensions: 768,
			NegativeThreshold:   0.72,
			NegativePenalty:     0.15,
			LogThreshold:        0.65,
			GenreMismatchFactor: 0.85,
			BatchSize:           100,
		},
		Bible: BibleConfig{
			RegistryDir:         "./WORK/bibles",
			FuzzyMatchThreshold: 0.70,
		},
		Monitor: MonitorConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         8765,
			ReadTimeout:  30,
			WriteTimeout: 30,
			StorageKind:  "sqlite",
			StorageDSN:   "./WORK/monitor.db",
		},
		Security: SecurityConfig{
			EnableAuth:     false,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a JSON file and overlays environment
// variables (API keys, JWT secret, work dir).
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

// Save writes configuration to a JSON file.
func Save(filename string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if wd := os.Getenv("WORK_DIR"); wd != "" {
		c.WorkDir = wd
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Security.JWTSecret = secret
	}
}

// Validate checks the configuration for obvious mistakes before a run starts.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir must not be empty")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("no LLM API key configured (set GOOGLE_API_KEY or GEMINI_API_KEY)")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be positive")
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be positive")
	}
	if c.Monitor.Enabled && c.Security.EnableAuth && c.Security.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required when monitor auth is enabled")
	}
	if c.Monitor.Enabled && c.Security.EnableAuth && len(c.Security.Users) == 0 {
		return fmt.Errorf("at least one dashboard user is required when monitor auth is enabled")
	}
	return nil
}
