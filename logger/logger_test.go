package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestWarnErrorCounters(t *testing.T) {
	log := Logger()
	before := WarnCount("counter_test")
	log.WithComponent("counter_test").Warn("hmm")
	if got := WarnCount("counter_test"); got != before+1 {
		t.Fatalf("warn count = %d, want %d", got, before+1)
	}

	beforeErr := ErrorCount("counter_test")
	log.WithComponent("counter_test").Error("boom")
	if got := ErrorCount("counter_test"); got != beforeErr+1 {
		t.Fatalf("error count = %d, want %d", got, beforeErr+1)
	}
}
