// WriterBot - a Discord bot for tracking writing progress
//
// This is the main entry point. It loads settings, connects to the
// database, applies pending install files, registers the chat commands,
// and runs until interrupted.
//
// Optional components (enabled in the settings file):
//   - MQTT: command events and remote prefix cache flushes
//   - InfluxDB: command timing telemetry
//   - Status API: health, metrics, and install status over HTTP
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/writerbot/install"
	"github.com/nerrad567/writerbot/internal/api"
	"github.com/nerrad567/writerbot/internal/bot"
	"github.com/nerrad567/writerbot/internal/infrastructure/config"
	"github.com/nerrad567/writerbot/internal/infrastructure/database"
	"github.com/nerrad567/writerbot/internal/infrastructure/influxdb"
	"github.com/nerrad567/writerbot/internal/infrastructure/logging"
	"github.com/nerrad567/writerbot/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default settings file path
const defaultSettingsPath = "settings.json"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until settings are loaded
	log := logging.Default()
	log.Info("starting WriterBot",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	settingsPath := getSettingsPath()
	cfg, err := config.Load(settingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("settings loaded",
		"path", settingsPath,
		"level", cfg.Logging.Level,
		"driver", cfg.Database.Driver,
	)

	db, err := database.Open(ctx, databaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", db.Driver(), "name", db.Name())

	source, err := installSource(cfg)
	if err != nil {
		return err
	}
	installStart := time.Now()
	applied, err := db.Install(ctx, source)
	if err != nil {
		return fmt.Errorf("installing database: %w", err)
	}
	installDuration := time.Since(installStart)
	log.Info("database install complete", "applied", len(applied), "files", applied)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		influxClient.RecordInstall(len(applied), installDuration)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	chat, err := bot.NewDiscord(cfg.Token, cfg.Status, log.Component("discord"))
	if err != nil {
		return err
	}

	b, err := bot.New(botOptions(cfg, chat, db, log, influxClient, mqttClient))
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}
	if err := b.LoadCommands(); err != nil {
		return fmt.Errorf("loading commands: %w", err)
	}
	if n, warmErr := b.Prefixes().Warm(ctx); warmErr != nil {
		log.Warn("loading guild prefixes failed, they will be read on demand", "error", warmErr)
	} else {
		log.Info("guild prefixes loaded", "count", n)
	}
	chat.Attach(b)

	if mqttClient != nil {
		if err := subscribePrefixFlush(mqttClient, byte(cfg.MQTT.QoS), b.Prefixes(), log); err != nil { //nolint:gosec // QoS validated to 0-2
			return fmt.Errorf("subscribing to prefix flush: %w", err)
		}
	}

	// Start status API (optional)
	if cfg.API.Enabled {
		srv, apiErr := startAPI(ctx, cfg, log, db, source, b, chat, mqttClient, influxClient)
		if apiErr != nil {
			return fmt.Errorf("starting API: %w", apiErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := chat.Open(ctx); err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from Discord")
		if closeErr := chat.Close(); closeErr != nil {
			log.Error("error closing Discord", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// Discord, API, MQTT, InfluxDB, database.

	return nil
}

// getSettingsPath returns the settings file path.
// Uses WRITERBOT_SETTINGS environment variable if set, otherwise default.
func getSettingsPath() string {
	if path := os.Getenv("WRITERBOT_SETTINGS"); path != "" {
		return path
	}
	return defaultSettingsPath
}

// databaseConfig maps the settings file onto database.Config.
func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:         cfg.Database.Driver,
		Host:           cfg.DBHost,
		Port:           cfg.Database.Port,
		User:           cfg.DBUser,
		Password:       cfg.DBPass,
		Name:           cfg.DBName,
		Path:           cfg.Database.Path,
		WALMode:        cfg.Database.WALMode,
		BusyTimeout:    cfg.Database.BusyTimeout,
		ConnectTimeout: cfg.ConnectTimeout(),
	}
}

// installSource returns the configured install directory, or the
// embedded install files when none is set.
func installSource(cfg *config.Config) (fs.FS, error) {
	dir := cfg.Database.InstallDir
	if dir == "" {
		return install.Files, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading install directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("install directory %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// botOptions assembles bot.Options. Optional clients are only set when
// present so the bot never holds a typed nil.
func botOptions(cfg *config.Config, chat bot.Session, store bot.Store, log *logging.Logger,
	influxClient *influxdb.Client, mqttClient *mqtt.Client) bot.Options {
	opts := bot.Options{
		Session: chat,
		Store:   store,
		Logger:  log.Component("bot"),
		Prefix:  cfg.Prefix,
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}
	if mqttClient != nil {
		opts.Events = &commandEventPublisher{client: mqttClient}
	}
	return opts
}

// startAPI creates and starts the status server.
func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, db *database.DB, source fs.FS,
	b *bot.Bot, chat *bot.Discord, mqttClient *mqtt.Client, influxClient *influxdb.Client) (*api.Server, error) {
	components := map[string]api.HealthChecker{"discord": chat}
	if mqttClient != nil {
		components["mqtt"] = mqttClient
	}
	if influxClient != nil {
		components["influxdb"] = influxClient
	}

	srv, err := api.New(api.Deps{
		Config:       cfg.API,
		Logger:       log.Component("api"),
		Database:     db,
		InstallFiles: source,
		Commands:     b.Registry(),
		Prefixes:     b.Prefixes(),
		Components:   components,
		Version:      version,
	})
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// The optional clients may be nil. Discord readiness arrives
// asynchronously and is reported by the status API instead.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// subscribePrefixFlush drops the prefix cache whenever a message arrives
// on the flush control topic.
func subscribePrefixFlush(client *mqtt.Client, qos byte, prefixes *bot.PrefixResolver, log *logging.Logger) error {
	return client.Subscribe(mqtt.Topics{}.ControlPrefixFlush(), qos, func(_ string, _ []byte) error {
		flushed := prefixes.Cached()
		prefixes.Flush()
		log.Info("prefix cache flushed via MQTT", "entries", flushed)
		return nil
	})
}

// commandEventPublisher adapts the MQTT client to bot.EventPublisher.
// Each event goes to the topic for its command.
type commandEventPublisher struct {
	client *mqtt.Client
}

// PublishCommandEvent implements bot.EventPublisher.
func (p *commandEventPublisher) PublishCommandEvent(event bot.CommandEvent) error {
	return p.client.PublishJSON(mqtt.Topics{}.CommandEvent(event.Command), event)
}
