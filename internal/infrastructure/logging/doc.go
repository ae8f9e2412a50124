// Package logging wraps log/slog for the daemon's structured logging.
//
// Every record carries the service name and build version; the format
// (JSON or text), level and destination come from the logging section
// of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("starting service", "port", 8090)
//	log.With("room", "living").Debug("schedule resolved")
//
// Packages that log declare their own narrow Logger interface and
// accept this type; logging.Default() covers startup before the config
// is read.
//
// Never log credentials or tokens.
package logging
