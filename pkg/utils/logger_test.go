package utils

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Error("debug logger should log at debug level")
		}
		_ = logger.Sync()
	})

	t.Run("production mode logs at info", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			t.Error("production logger should not log debug")
		}
		_ = logger.Sync()
	})
}

func TestNewCLILogger(t *testing.T) {
	l := NewCLILogger(false)
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("CLI logger should be quiet below warn")
	}
	if !l.Core().Enabled(zap.WarnLevel) {
		t.Error("CLI logger should report warnings")
	}
}
