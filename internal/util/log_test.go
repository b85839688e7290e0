package util

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestComponentTagging(t *testing.T) {
	base := NewLogger("warn")
	tagged := Component(base, "broadcast")
	if tagged.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("component tagging must not change the level, got %s", tagged.GetLevel())
	}
}
