package logging

import (
	"testing"

	"go.uber.org/zap"

	"foiadir/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(config.LoggingConfig{}, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zap.DebugLevel) {
		t.Error("debug should be disabled by default")
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be enabled by default")
	}
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, true)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("verbose must force debug level")
	}
}

func TestNew_ConfiguredLevel(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "error", Format: "console"}, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zap.WarnLevel) {
		t.Error("warn should be disabled at error level")
	}
}

func TestNew_InvalidInputs(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "shouting"}, false); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, false); err == nil {
		t.Error("expected error for bad format")
	}
}
