// Treeow Core - Cloud Device Synchronization Daemon
//
// This is the main entry point for the Treeow daemon. It keeps a local
// mirror of the devices registered to a Treeow cloud account:
//   - Authenticates against the vendor API and keeps the token pair fresh
//   - Discovers devices and their capability schemas
//   - Polls device state and republishes it over MQTT
//   - Accepts control commands and writes them back to the cloud
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lboswell/treeow-core/internal/account"
	"github.com/lboswell/treeow-core/internal/device"
	"github.com/lboswell/treeow-core/internal/engine"
	"github.com/lboswell/treeow-core/internal/eventbus"
	"github.com/lboswell/treeow-core/internal/infrastructure/config"
	"github.com/lboswell/treeow-core/internal/infrastructure/database"
	"github.com/lboswell/treeow-core/internal/infrastructure/influxdb"
	"github.com/lboswell/treeow-core/internal/infrastructure/logging"
	"github.com/lboswell/treeow-core/internal/infrastructure/mqtt"
	"github.com/lboswell/treeow-core/internal/relay"
	"github.com/lboswell/treeow-core/internal/treeow"
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

func main() {
	// Cancel the root context on interrupt signals (Ctrl+C, SIGTERM).
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Treeow Core",
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

	// Open the credential database
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

	store, err := account.NewSQLiteStore(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("initialising credential store: %w", err)
	}

	creds, err := loadCredentials(ctx, store, cfg, log)
	if err != nil {
		return err
	}

	// Vendor API client
	client := treeow.NewClient(treeow.Config{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.GetAPITimeout(),
		AppVersionURL: cfg.API.AppVersionURL,
		IOSVersionURL: cfg.API.IOSVersionURL,
		PageSize:      cfg.Sync.PageSize,
		CacheTTL:      cfg.GetCacheTTL(),
	})
	client.SetLogger(log.With("component", "treeow"))

	// Resolve app/firmware versions for request headers. Failures fall
	// back to pinned defaults, so this never blocks startup.
	client.InitVersions(ctx)

	// Authenticate before touching any device endpoint. A failure here is
	// fatal: without a valid token pair nothing else can work.
	tokens := treeow.NewTokenManager(client, store, creds)
	tokens.SetLogger(log.With("component", "auth"))
	if _, err := tokens.EnsureFresh(ctx); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	log.Info("authenticated", "account", creds.Account)

	// Discover devices and build the registry
	cache := treeow.NewModelCache(cfg.GetCacheTTL())
	registry := device.NewRegistry()

	infos, err := client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("discovering devices: %w", err)
	}
	for _, info := range infos {
		if cfg.SkipDevice(info.ID) {
			log.Info("device filtered out", "device_id", info.ID, "name", info.Name)
			continue
		}
		d, initErr := client.InitDevice(ctx, cache, info)
		if initErr != nil {
			// One broken device must not take down the rest.
			log.Warn("device initialisation failed, skipping",
				"device_id", info.ID,
				"name", info.Name,
				"error", initErr,
			)
			continue
		}
		if addErr := registry.Add(d); addErr != nil {
			log.Warn("device not registered", "device_id", info.ID, "error", addErr)
			continue
		}
		log.Info("device registered",
			"device_id", info.ID,
			"name", d.Name,
			"capabilities", len(d.Capabilities()),
		)
	}
	if registry.Count() == 0 {
		log.Warn("no devices registered; polling will idle until restart")
	}

	bus := eventbus.New()

	eng := engine.New(client, cache, registry, bus, engine.Config{
		PollInterval:      cfg.GetPollInterval(),
		HeartbeatInterval: cfg.GetHeartbeatInterval(),
		PurgeEvery:        cfg.Cache.PurgeEvery,
	})
	eng.SetLogger(log.With("component", "engine"))

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		stateRelay := relay.NewMQTT(mqttClient, bus, registry, byte(cfg.MQTT.QoS))
		stateRelay.SetLogger(log.With("component", "relay"))
		if startErr := stateRelay.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT relay: %w", startErr)
		}
		defer stateRelay.Stop()
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		history := relay.NewHistory(influxClient, bus, registry)
		history.SetLogger(log.With("component", "history"))
		history.Start()
		defer history.Stop()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the sync session and the background token refresher.
	session := eng.Start(ctx)
	log.Info("sync session started", "session_id", session.ID())

	tokenErr := make(chan error, 1)
	go func() {
		tokenErr <- tokens.Run(ctx)
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		session.Stop()
		log.Info("Treeow Core stopped")
		return nil

	case err := <-tokenErr:
		// Run only returns on context cancellation or a hard auth
		// failure. The latter means the stored credentials are no good
		// and the operator has to intervene.
		session.Stop()
		if errors.Is(err, treeow.ErrAuth) {
			return fmt.Errorf("authentication lost, re-enter account credentials: %w", err)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("token refresher stopped: %w", err)
		}
		return nil
	}
}

// loadCredentials merges stored tokens with the configured account.
//
// The account and password always come from configuration; stored tokens
// are only adopted when they belong to the configured account, so switching
// accounts in config does not resurrect a stale token pair.
func loadCredentials(ctx context.Context, store account.Store, cfg *config.Config, log *logging.Logger) (account.Credentials, error) {
	creds := account.Credentials{
		Account:  cfg.Account.Account,
		Password: cfg.Account.Password,
	}

	stored, err := store.Load(ctx)
	switch {
	case errors.Is(err, account.ErrNotFound):
		log.Info("no stored credentials, will perform initial login")
	case err != nil:
		return account.Credentials{}, fmt.Errorf("loading stored credentials: %w", err)
	case stored.Account != cfg.Account.Account:
		log.Warn("stored credentials belong to a different account, ignoring",
			"stored", stored.Account,
			"configured", cfg.Account.Account,
		)
	default:
		creds.AccessToken = stored.AccessToken
		creds.RefreshToken = stored.RefreshToken
		creds.ExpiresAt = stored.ExpiresAt
		log.Info("stored credentials loaded")
	}

	return creds, nil
}

// getConfigPath returns the configuration file path.
// Uses TREEOW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TREEOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
