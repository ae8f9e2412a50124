package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/emberhaus/ember-core/internal/infrastructure/config"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		logger := New(config.LoggingConfig{
			Level:  "info",
			Format: format,
			Output: "stdout",
		}, "1.0.0")
		if logger == nil {
			t.Fatalf("New(format=%q) returned nil", format)
		}
	}
}

func TestWriterFor(t *testing.T) {
	if writerFor("stderr") != os.Stderr {
		t.Error(`writerFor("stderr") should return stderr`)
	}
	if writerFor("stdout") != os.Stdout {
		t.Error(`writerFor("stdout") should return stdout`)
	}
	if writerFor("") != os.Stdout {
		t.Error("writerFor should default to stdout")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_With(t *testing.T) {
	logger := Default()
	child := logger.With("component", "heating")

	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == logger {
		t.Error("With() should return a new logger")
	}
}

func TestLogger_DefaultFieldsInOutput(t *testing.T) {
	var buf bytes.Buffer

	handler := newHandler(&buf, config.LoggingConfig{Level: "info", Format: "json"})
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", "test"),
	})

	logger := &Logger{Logger: slog.New(handler)}
	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	for field, want := range map[string]string{
		"service": serviceName,
		"version": "test",
		"msg":     "test message",
		"key":     "value",
	} {
		if entry[field] != want {
			t.Errorf("entry[%q] = %v, want %q", field, entry[field], want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	handler := newHandler(&buf, config.LoggingConfig{Level: "warn", Format: "json"})
	logger := &Logger{Logger: slog.New(handler)}

	logger.Debug("hidden")
	logger.Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("records below warn should be filtered, got %q", buf.String())
	}

	logger.Warn("visible")
	if buf.Len() == 0 {
		t.Error("warn record should be emitted")
	}
}
