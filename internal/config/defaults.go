package config

import "time"

const dataDir = "/usr/local/var/rollcall/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 32 << 20
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = dataDir + "/db/records.db"
	}
	if cfg.Storage.BadgerPath == "" {
		cfg.Storage.BadgerPath = dataDir + "/badger"
	}
	if cfg.Extractor.Type == "" {
		cfg.Extractor.Type = "mock"
	}
	if cfg.Extractor.Type == "onnx" && cfg.Extractor.ModelPath == "" {
		cfg.Extractor.ModelPath = dataDir + "/models/arcface.onnx"
	}
	if cfg.Extractor.Dimensions == 0 {
		cfg.Extractor.Dimensions = 512
	}
	if cfg.Extractor.InputWidth == 0 {
		cfg.Extractor.InputWidth = 112
	}
	if cfg.Extractor.InputHeight == 0 {
		cfg.Extractor.InputHeight = 112
	}
	if cfg.Extractor.CacheSize == 0 {
		cfg.Extractor.CacheSize = 1000
	}
	if cfg.Match.MaxVerboseCandidates == 0 {
		cfg.Match.MaxVerboseCandidates = 10
	}
	if cfg.Recognition.ExtractConcurrency == 0 {
		cfg.Recognition.ExtractConcurrency = 4
	}
	if cfg.Attendance.Timeout == 0 {
		cfg.Attendance.Timeout = 5 * time.Second
	}
	if cfg.Inbox.Extensions == nil && cfg.Inbox.Patterns == nil {
		cfg.Inbox.Extensions = []string{".json"}
	}
	if cfg.Inbox.Debounce == 0 {
		cfg.Inbox.Debounce = 400 * time.Millisecond
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
