package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/emberhaus/ember-core/internal/infrastructure/config"
)

// serviceName is attached to every log record so aggregated logs from
// multiple daemons can be told apart.
const serviceName = "ember-core"

// Logger wraps slog.Logger and carries the daemon's default fields.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the daemon config.
//
// Format selects JSON (default) or text output, level filters records
// below the configured severity, and every record carries the service
// name and build version.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Build version attached as a default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(writerFor(cfg.Output), cfg)

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// writerFor maps a configured output name to a writer. Anything other
// than "stderr" goes to stdout.
func writerFor(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// newHandler builds the slog handler for the configured format and level.
func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel converts a level name to slog.Level, defaulting to info
// when the name is not recognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger carrying additional default attributes.
//
// Example:
//
//	roomLog := log.With("room", "living")
//	roomLog.Info("schedule applied") // includes room=living
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a stdout JSON logger at info level for use during
// early startup, before the configuration file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
