package main

import (
	"context"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("EMBER_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestGetConfigPath verifies environment override of the config path.
func TestGetConfigPath(t *testing.T) {
	t.Setenv("EMBER_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want default", got)
	}

	t.Setenv("EMBER_CONFIG", "/etc/ember/config.yaml")
	if got := getConfigPath(); got != "/etc/ember/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
