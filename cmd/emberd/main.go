// Ember Core - rule-based heating scheduler
//
// This is the main entry point for the Ember Core daemon. It connects
// the entity store (MQTT), the SQLite actuation journal, the per-room
// heating controllers, the event dispatcher and the HTTP status API,
// then waits for a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/emberhaus/ember-core/migrations"

	"github.com/emberhaus/ember-core/internal/api"
	"github.com/emberhaus/ember-core/internal/dispatch"
	"github.com/emberhaus/ember-core/internal/heating"
	"github.com/emberhaus/ember-core/internal/infrastructure/config"
	"github.com/emberhaus/ember-core/internal/infrastructure/database"
	"github.com/emberhaus/ember-core/internal/infrastructure/logging"
	"github.com/emberhaus/ember-core/internal/infrastructure/mqtt"
	"github.com/emberhaus/ember-core/internal/journal"
	"github.com/emberhaus/ember-core/internal/platform"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// journalRetention is how long resolved commands are kept. Older
// entries are purged at startup.
const journalRetention = 90 * 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Ember Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Actuation journal
	journalRepo := journal.New(db)
	if purged, purgeErr := journalRepo.Purge(ctx, time.Now().Add(-journalRetention)); purgeErr != nil {
		log.Warn("journal purge failed", "error", purgeErr)
	} else if purged > 0 {
		log.Info("journal purged", "entries", purged)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Entity store: mirrors retained platform state and carries
	// service calls and events.
	store := platform.NewStore(mqttClient, byte(cfg.MQTT.QoS), log)
	if err := store.Start(); err != nil {
		return fmt.Errorf("starting entity store: %w", err)
	}
	log.Info("entity store started")

	// Heating configuration: rooms, thermostats, schedules. Expression
	// compile errors abort startup here.
	heatingCfg, evaluator, err := heating.LoadConfig(cfg.Heating.ConfigFile, store, log)
	if err != nil {
		return fmt.Errorf("loading heating config: %w", err)
	}
	log.Info("heating config loaded",
		"path", cfg.Heating.ConfigFile,
		"rooms", len(heatingCfg.Rooms),
	)

	// Room controllers
	manager := heating.NewManager(heatingCfg, evaluator, store, store, store, journalRepo, log)

	// Dispatcher: ticks, control events, reschedule entities
	dispatcher := dispatch.New(manager, store, cfg.Scheduler, log)
	manager.OnRescheduleEntity(dispatcher.RescheduleEntityChanged)

	// Route entity state changes to the rooms that care.
	store.OnChange(func(_ *platform.State, state platform.State) {
		manager.EntityChanged(state.EntityID, state.Value)
	})

	manager.Start()
	defer func() {
		log.Info("stopping heating manager")
		manager.Stop()
	}()

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Stop()
	}()

	// HTTP status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Rooms:   manager,
			Journal: journalRepo,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := apiServer.Start(); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API, dispatcher, manager, MQTT, database.

	log.Info("Ember Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EMBER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EMBER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
