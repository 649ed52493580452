// Package config loads humanscore settings from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service and CLI configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Models    ModelsConfig    `yaml:"models"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Limits    LimitsConfig    `yaml:"limits"`
	Plans     map[string]Plan `yaml:"plans"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ReadTimeout    string   `yaml:"read_timeout"`
	WriteTimeout   string   `yaml:"write_timeout"`
}

// ModelsConfig points at the inference sidecar hosting the language model
// and classifier. An empty URL disables both; analyses then use sentinels.
type ModelsConfig struct {
	URL              string `yaml:"url"`
	Classifier       string `yaml:"classifier"` // http, ollama or none
	LMWindow         int    `yaml:"lm_window"`
	ClassifierWindow int    `yaml:"classifier_window"`
	Timeout          string `yaml:"timeout"`
	MaxRetries       int    `yaml:"max_retries"`
}

// OllamaConfig configures the Ollama client used as classifier or rewriter.
type OllamaConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// AnthropicConfig configures the Claude rewrite backend.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// RewriteConfig selects the rewrite backend.
type RewriteConfig struct {
	Backend string `yaml:"backend"` // ollama, anthropic or none
}

// AnalysisConfig enables the optional flag categories.
type AnalysisConfig struct {
	Mixed        bool `yaml:"mixed"`
	SectionFlags bool `yaml:"section_flags"`
}

// LimitsConfig bounds the text accepted for analysis.
type LimitsConfig struct {
	MinWords int `yaml:"min_words"`
	MaxChars int `yaml:"max_chars"`
}

// ErrEmptyText is returned by Check for blank input
var ErrEmptyText = errors.New("text is empty")

// Check enforces the word and character limits on text
func (l LimitsConfig) Check(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if l.MaxChars > 0 && len(text) > l.MaxChars {
		return fmt.Errorf("text exceeds the %d character limit", l.MaxChars)
	}
	if n := len(strings.Fields(text)); n < l.MinWords {
		return fmt.Errorf("text must contain at least %d words, got %d", l.MinWords, n)
	}
	return nil
}

// Plan is a subscription tier.
type Plan struct {
	Name       string `yaml:"name"`
	ScansLimit int    `yaml:"scans_limit"`
	DocxExport bool   `yaml:"docx_export"`
}

// DatabaseConfig selects the usage store. An empty driver disables quotas.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// QueueConfig configures asynchronous analysis. An empty address keeps
// everything synchronous.
type QueueConfig struct {
	RedisAddr       string `yaml:"redis_addr"`
	Concurrency     int    `yaml:"concurrency"`
	ResultRetention string `yaml:"result_retention"`
}

// LoggingConfig sets the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// DefaultPlan is assigned to users seen for the first time.
const DefaultPlan = "free"

// Default returns a configuration that works without a file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    "30s",
			WriteTimeout:   "420s",
		},
		Models: ModelsConfig{
			Classifier:       "http",
			LMWindow:         1024,
			ClassifierWindow: 512,
			Timeout:          "30s",
			MaxRetries:       3,
		},
		Ollama: OllamaConfig{
			URL:     "http://localhost:11434",
			Model:   "gpt-oss:20b",
			Timeout: "360s",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-haiku-20241022",
		},
		Rewrite: RewriteConfig{Backend: "ollama"},
		Limits: LimitsConfig{
			MinWords: 10,
			MaxChars: 50000,
		},
		Plans: map[string]Plan{
			"free": {Name: "Free", ScansLimit: 10},
			"pro":  {Name: "Pro", ScansLimit: 500, DocxExport: true},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "humanscore.db",
		},
		Queue: QueueConfig{
			Concurrency:     4,
			ResultRetention: "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Driver = "sqlite"
		c.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Queue.RedisAddr = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}

	if v := os.Getenv("HUMANSCORE_MODEL_URL"); v != "" {
		c.Models.URL = v
	}
	if v := os.Getenv("HUMANSCORE_CLASSIFIER"); v != "" {
		c.Models.Classifier = v
	}
	if v := os.Getenv("HUMANSCORE_REWRITE_BACKEND"); v != "" {
		c.Rewrite.Backend = v
	}
	if v := os.Getenv("HUMANSCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v, ok := envBool("HUMANSCORE_MIXED"); ok {
		c.Analysis.Mixed = v
	}
	if v, ok := envBool("HUMANSCORE_SECTION_FLAGS"); ok {
		c.Analysis.SectionFlags = v
	}
}

// envBool reads a boolean variable, accepting true/1/yes
func envBool(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b, true
	}
	return strings.EqualFold(value, "yes"), true
}

var (
	validClassifiers = []string{"http", "ollama", "none"}
	validRewriters   = []string{"ollama", "anthropic", "none"}
	validDrivers     = []string{"", "sqlite", "postgres"}
)

// Validate checks enumerations and limits.
func (c *Config) Validate() error {
	if !contains(validClassifiers, c.Models.Classifier) {
		return fmt.Errorf("invalid classifier: %q (valid: %v)", c.Models.Classifier, validClassifiers)
	}
	if !contains(validRewriters, c.Rewrite.Backend) {
		return fmt.Errorf("invalid rewrite backend: %q (valid: %v)", c.Rewrite.Backend, validRewriters)
	}
	if !contains(validDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver: %q (valid: sqlite, postgres)", c.Database.Driver)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database driver %s needs a dsn", c.Database.Driver)
	}
	if c.Limits.MinWords < 0 || c.Limits.MaxChars <= 0 {
		return fmt.Errorf("invalid limits: min_words=%d max_chars=%d", c.Limits.MinWords, c.Limits.MaxChars)
	}
	if _, ok := c.Plans[DefaultPlan]; !ok {
		return fmt.Errorf("plans must define %q", DefaultPlan)
	}
	for key, plan := range c.Plans {
		if plan.ScansLimit <= 0 {
			return fmt.Errorf("plan %s: scans_limit must be positive", key)
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Plan returns the named plan, falling back to the default plan.
func (c *Config) Plan(name string) Plan {
	if p, ok := c.Plans[name]; ok {
		return p
	}
	return c.Plans[DefaultPlan]
}

// LogLevel returns the configured slog level, info when unparsable.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level: %q", s)
	}
	return level, nil
}

// ModelTimeout returns the sidecar request timeout.
func (c *Config) ModelTimeout() time.Duration {
	return duration(c.Models.Timeout, 30*time.Second)
}

// OllamaTimeout returns the Ollama request timeout.
func (c *Config) OllamaTimeout() time.Duration {
	return duration(c.Ollama.Timeout, 360*time.Second)
}

// ReadTimeout returns the HTTP server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 30*time.Second)
}

// WriteTimeout returns the HTTP server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 420*time.Second)
}

// ResultRetention returns how long async results are kept.
func (c *Config) ResultRetention() time.Duration {
	return duration(c.Queue.ResultRetention, 24*time.Hour)
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
