// Package config loads the rollcall YAML configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Match       MatchConfig       `yaml:"match"`
	Resolve     ResolveConfig     `yaml:"resolve"`
	Enroll      EnrollConfig      `yaml:"enroll"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
	Inbox       InboxConfig       `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxBodyBytes caps request bodies; base64 media makes them large.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// StorageConfig selects the record store and where its files live.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	BadgerPath   string `yaml:"badger_path"`
	// CatalogPath is the Bleve label index; empty disables the catalog.
	CatalogPath string `yaml:"catalog_path"`
}

// ExtractorConfig configures the feature extractor.
type ExtractorConfig struct {
	Type        string `yaml:"type"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	InputWidth  int    `yaml:"input_width"`
	InputHeight int    `yaml:"input_height"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
	CacheSize   int    `yaml:"cache_size"`
}

// ScoringConfig controls how mismatched vector lengths are handled.
type ScoringConfig struct {
	TruncateMismatched bool `yaml:"truncate_mismatched"`
}

// MatchConfig holds pairwise matching settings.
type MatchConfig struct {
	DefaultThreshold     *float64 `yaml:"default_threshold"`
	MaxVerboseCandidates int      `yaml:"max_verbose_candidates"`
}

// ResolveConfig holds batch resolution settings.
type ResolveConfig struct {
	DefaultThreshold *float64 `yaml:"default_threshold"`
}

// DefaultThreshold is the match threshold when none is configured.
const DefaultThreshold = 0.9

// ThresholdOrDefault returns the configured threshold, or DefaultThreshold when unset.
func (m *MatchConfig) ThresholdOrDefault() float64 {
	if m.DefaultThreshold != nil {
		return *m.DefaultThreshold
	}
	return DefaultThreshold
}

// ThresholdOrDefault returns the configured threshold, or DefaultThreshold when unset.
func (r *ResolveConfig) ThresholdOrDefault() float64 {
	if r.DefaultThreshold != nil {
		return *r.DefaultThreshold
	}
	return DefaultThreshold
}

// EnrollConfig holds enrollment settings.
type EnrollConfig struct {
	// Dimensions pins the vector length per source type, e.g. student-face: 512.
	Dimensions map[string]int `yaml:"dimensions"`
}

// RecognitionConfig holds frame recognition settings.
type RecognitionConfig struct {
	ExtractConcurrency int `yaml:"extract_concurrency"`
}

// AttendanceConfig configures where attendance events are sent.
type AttendanceConfig struct {
	WebhookURL string            `yaml:"webhook_url"`
	Timeout    time.Duration     `yaml:"timeout"`
	RateLimit  float64           `yaml:"rate_limit"`
	RateBurst  int               `yaml:"rate_burst"`
	Headers    map[string]string `yaml:"headers"`
	LogEvents  bool              `yaml:"log_events"`
}

// InboxConfig holds enrollment inbox watch settings.
type InboxConfig struct {
	Directories []string      `yaml:"directories"`
	Extensions  []string      `yaml:"extensions"`
	Patterns    []string      `yaml:"patterns"`
	Recursive   *bool         `yaml:"recursive"`
	Debounce    time.Duration `yaml:"debounce"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *InboxConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads the config file at path, applies defaults and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BadgerPath = expandPath(cfg.Storage.BadgerPath, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Extractor.ModelPath = expandPath(cfg.Extractor.ModelPath, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects settings that would fail later at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch c.Extractor.Type {
	case "mock", "onnx":
	default:
		return fmt.Errorf("extractor.type: unknown type %q", c.Extractor.Type)
	}
	for name, t := range map[string]*float64{
		"match.default_threshold":   c.Match.DefaultThreshold,
		"resolve.default_threshold": c.Resolve.DefaultThreshold,
	} {
		if t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0)) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}
	for st, d := range c.Enroll.Dimensions {
		if d <= 0 {
			return fmt.Errorf("enroll.dimensions[%s] must be positive, got %d", st, d)
		}
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" to the home directory. Other relative paths are relative to the home directory.
// Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
