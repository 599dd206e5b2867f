package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 15s
storage:
  backend: badger
  badger_path: "./badger"
match:
  default_threshold: 0.85
resolve:
  default_threshold: 0
enroll:
  dimensions:
    student-face: 512
attendance:
  webhook_url: "http://attendance.local/events"
  timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("request_timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("backend = %s", cfg.Storage.Backend)
	}
	if want := filepath.Join(filepath.Dir(path), "badger"); cfg.Storage.BadgerPath != want {
		t.Errorf("badger_path = %s, want %s", cfg.Storage.BadgerPath, want)
	}
	if got := cfg.Match.ThresholdOrDefault(); got != 0.85 {
		t.Errorf("match threshold = %v", got)
	}
	if got := cfg.Resolve.ThresholdOrDefault(); got != 0 {
		t.Errorf("explicit zero resolve threshold became %v", got)
	}
	if cfg.Enroll.Dimensions["student-face"] != 512 {
		t.Errorf("enroll dimensions = %v", cfg.Enroll.Dimensions)
	}
	if cfg.Attendance.Timeout != 2*time.Second {
		t.Errorf("attendance timeout = %v", cfg.Attendance.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/records.db"
  catalog_path: "./data/catalog"
inbox:
  directories: ["./inbox"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "db", "records.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "catalog"); cfg.Storage.CatalogPath != want {
		t.Errorf("catalog_path = %s, want %s", cfg.Storage.CatalogPath, want)
	}
	if len(cfg.Inbox.Directories) != 1 || cfg.Inbox.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("inbox directories = %v", cfg.Inbox.Directories)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"backend", "storage:\n  backend: postgres\n", "storage.backend"},
		{"extractor", "extractor:\n  type: dlib\n", "extractor.type"},
		{"threshold", "match:\n  default_threshold: .nan\n", "match.default_threshold"},
		{"dimensions", "enroll:\n  dimensions:\n    student-face: -1\n", "enroll.dimensions"},
		{"yaml", "server: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("default backend: %s", cfg.Storage.Backend)
	}
	if cfg.Storage.CatalogPath != "" {
		t.Error("catalog should be disabled by default")
	}
	if cfg.Extractor.Type != "mock" || cfg.Extractor.Dimensions != 512 {
		t.Errorf("default extractor: %+v", cfg.Extractor)
	}
	if cfg.Match.ThresholdOrDefault() != 0.9 || cfg.Resolve.ThresholdOrDefault() != 0.9 {
		t.Error("default thresholds should be 0.9")
	}
	if cfg.Match.MaxVerboseCandidates != 10 {
		t.Errorf("max_verbose_candidates = %d", cfg.Match.MaxVerboseCandidates)
	}
	if cfg.Recognition.ExtractConcurrency != 4 {
		t.Errorf("extract_concurrency = %d", cfg.Recognition.ExtractConcurrency)
	}
	if len(cfg.Inbox.Extensions) != 1 || cfg.Inbox.Extensions[0] != ".json" {
		t.Errorf("inbox extensions: got %v", cfg.Inbox.Extensions)
	}
	if cfg.Scoring.TruncateMismatched {
		t.Error("truncation must be opt-in")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_onnxModelPath(t *testing.T) {
	cfg := &Config{Extractor: ExtractorConfig{Type: "onnx"}}
	ApplyDefaults(cfg)
	if !strings.HasSuffix(cfg.Extractor.ModelPath, ".onnx") {
		t.Errorf("model path = %s", cfg.Extractor.ModelPath)
	}
}

func TestApplyDefaults_InboxRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Inbox: InboxConfig{Directories: []string{"/srv/inbox"}}}
	ApplyDefaults(cfg)
	if cfg.Inbox.Recursive == nil || !*cfg.Inbox.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestInboxConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &InboxConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &InboxConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	th := 0.75
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		Match:   MatchConfig{DefaultThreshold: &th},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Match.ThresholdOrDefault() != 0.75 {
		t.Errorf("loaded threshold: got %v", loaded.Match.ThresholdOrDefault())
	}
}
