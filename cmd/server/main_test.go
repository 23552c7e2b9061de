package main

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/gradebook/internal/config"
)

func TestRun_ReturnsConfigError(t *testing.T) {
	t.Setenv(config.FileEnv, "")
	t.Setenv("INGEST_MIN_GRADE", "10")
	t.Setenv("INGEST_MAX_GRADE", "5")

	err := run()
	if err == nil {
		t.Fatal("run() error = nil, want configuration error")
	}
	if !strings.Contains(err.Error(), "load configuration") {
		t.Errorf("run() error = %q, want it to mention load configuration", err)
	}
	if !strings.Contains(err.Error(), "INGEST_MAX_GRADE") {
		t.Errorf("run() error = %q, want the offending setting named", err)
	}
}
