// Chapa Agent - Command Relay Bridge
//
// This is the entry point of the agent that runs next to an electric door
// lock (chapa) or a light relay. It keeps a WebSocket session with the
// rentals server, registers on every connect, drives the relay on
// abrir/cerrar commands and reports status every 30 seconds.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/FernandoPintoL/socket-rentals/migrations"

	"github.com/FernandoPintoL/socket-rentals/internal/bridge"
	"github.com/FernandoPintoL/socket-rentals/internal/diag"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/database"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/influxdb"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/logging"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/mqtt"
	"github.com/FernandoPintoL/socket-rentals/internal/journal"
	"github.com/FernandoPintoL/socket-rentals/internal/provision"
	"github.com/FernandoPintoL/socket-rentals/internal/relay"
	"github.com/FernandoPintoL/socket-rentals/internal/wsclient"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// pruneInterval is how often the journal retention is enforced while
	// the agent stays up.
	pruneInterval = 24 * time.Hour

	// eventQueueSize buffers transport events while the bridge is busy.
	eventQueueSize = 64

	sourceWebSocket = "ws"
	sourceMQTT      = "mqtt"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting chapa agent",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("device_id", cfg.Device.ID)
	defer log.Close() //nolint:errcheck // Nothing useful to do on shutdown
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	// Relay first, so the lock is in a known state before anything talks
	// to the network.
	rel, err := openRelay(cfg.Relay)
	if err != nil {
		return fmt.Errorf("opening relay: %w", err)
	}
	defer func() {
		log.Info("releasing relay")
		if closeErr := rel.Release(); closeErr != nil {
			log.Error("error releasing relay", "error", closeErr)
		}
	}()
	log.Info("relay ready",
		"driver", cfg.Relay.Driver,
		"pin", cfg.Relay.Pin,
		"active_high", cfg.Relay.ActiveHigh,
		"open", rel.IsOpen(),
	)

	if cfg.Provision.Enabled {
		if err := provisionDevice(ctx, cfg, log); err != nil {
			return err
		}
	}

	// Local journal (optional)
	var db *database.DB
	var journalRepo *journal.SQLiteRepository
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		journalRepo = journal.NewSQLiteRepository(db.DB)
		pruneJournal(ctx, cfg, journalRepo, log)

		pruneCtx, stopPrune := context.WithCancel(ctx)
		pruneDone := make(chan struct{})
		go func() {
			defer close(pruneDone)
			pruneLoop(pruneCtx, pruneInterval, cfg, journalRepo, log)
		}()
		defer func() {
			stopPrune()
			<-pruneDone
		}()
		log.Info("journal ready", "path", db.Path())
	} else {
		log.Info("journal disabled")
	}

	// MQTT mirror (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Device.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
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
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB metrics (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Every input to the bridge goes through one queue so a single
	// goroutine owns the session.
	events := make(chan bridge.Event, eventQueueSize)
	push := func(ev bridge.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	wsCfg, err := wsclient.ConfigFrom(cfg.Server)
	if err != nil {
		return fmt.Errorf("configuring websocket: %w", err)
	}
	ws := wsclient.New(wsCfg)
	ws.SetLogger(log.With("component", "wsclient"))
	ws.SetOnConnect(func(url string) { push(bridge.Connected{URL: url}) })
	ws.SetOnDisconnect(func(err error) { push(bridge.Disconnected{Err: err}) })
	ws.SetOnText(func(data string) { push(bridge.TextPayload{Data: data, Source: sourceWebSocket}) })

	session, err := newSession(cfg, rel, ws, journalRepo, mqttClient, influxClient, log)
	if err != nil {
		return fmt.Errorf("creating bridge session: %w", err)
	}

	if mqttClient != nil {
		subErr := mqttClient.SubscribeCommands(cfg.Device.ID, func(payload []byte) {
			push(bridge.TextPayload{Data: string(payload), Source: sourceMQTT})
		})
		if subErr != nil {
			return fmt.Errorf("subscribing to MQTT commands: %w", subErr)
		}
		defer func() {
			if unsubErr := mqttClient.UnsubscribeCommands(cfg.Device.ID); unsubErr != nil {
				log.Warn("error unsubscribing MQTT commands", "error", unsubErr)
			}
		}()
		log.Info("MQTT command topic subscribed", "topic", mqtt.Topics{}.Command(cfg.Device.ID))
	}

	// Diagnostics server (optional)
	if cfg.Diag.Enabled {
		deps := diag.Deps{
			Config:    cfg.Diag,
			Logger:    log.With("component", "diag"),
			Session:   session,
			Transport: ws,
			Version:   version,
		}
		if journalRepo != nil {
			deps.Journal = journalRepo
		}
		if db != nil {
			deps.Schema = db
		}
		diagServer, diagErr := diag.New(deps)
		if diagErr != nil {
			return fmt.Errorf("creating diag server: %w", diagErr)
		}
		if startErr := diagServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting diag server: %w", startErr)
		}
		defer func() {
			if closeErr := diagServer.Close(); closeErr != nil {
				log.Error("error closing diag server", "error", closeErr)
			}
		}()
	}

	if err := ws.Start(ctx); err != nil {
		return fmt.Errorf("starting websocket client: %w", err)
	}
	defer func() {
		log.Info("closing websocket")
		if closeErr := ws.Close(); closeErr != nil {
			log.Error("error closing websocket", "error", closeErr)
		}
	}()
	log.Info("initialisation complete", "server", wsCfg.URL)

	// Blocks until shutdown.
	if err := session.Run(ctx, events); err != nil {
		return fmt.Errorf("bridge loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CHAPA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CHAPA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openRelay opens the configured pin driver and applies the initial state.
func openRelay(cfg config.RelayConfig) (*relay.Relay, error) {
	drv, err := relay.OpenDriver(cfg)
	if err != nil {
		return nil, err
	}
	rel, err := relay.New(drv, cfg)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return rel, nil
}

// provisionDevice registers the device over HTTP. Only a rejection is
// fatal; a server that is down now may be up by the time the socket
// connects.
func provisionDevice(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	client, err := provision.New(cfg.Provision)
	if err != nil {
		return fmt.Errorf("configuring provisioning: %w", err)
	}

	res, err := client.Register(ctx, cfg.Device.ID, cfg.Device.Type)
	switch {
	case errors.Is(err, provision.ErrRejected):
		return fmt.Errorf("device registration: %w", err)
	case err != nil:
		log.Warn("device registration failed, continuing", "url", cfg.Provision.URL, "error", err)
		return nil
	}

	log.Info("device registered",
		"created", res.Created,
		"type", res.Device.Type,
		"mac", res.Device.MACAddress,
	)
	return nil
}

// journalPruner is the part of the journal that enforces retention.
type journalPruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// pruneJournal drops entries older than the retention period. Failures
// are logged; an oversized journal is not a reason to stay offline.
func pruneJournal(ctx context.Context, cfg *config.Config, repo journalPruner, log *logging.Logger) {
	retention := cfg.RetentionPeriod()
	if retention <= 0 {
		return
	}
	removed, err := repo.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		log.Warn("journal prune failed", "error", err)
		return
	}
	if removed > 0 {
		log.Info("journal pruned", "removed", removed, "retention_days", cfg.Database.RetentionDays)
	}
}

// pruneLoop re-applies the retention period every interval until ctx is
// cancelled.
func pruneLoop(ctx context.Context, interval time.Duration, cfg *config.Config, repo journalPruner, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneJournal(ctx, cfg, repo, log)
		}
	}
}

// newSession builds the bridge session. Optional sinks are only set when
// enabled so the session never sees a typed nil.
func newSession(
	cfg *config.Config,
	rel *relay.Relay,
	sender bridge.Sender,
	journalRepo *journal.SQLiteRepository,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*bridge.Session, error) {
	opts := bridge.OptionsFrom(cfg)
	opts.Relay = rel
	opts.Sender = sender
	opts.Logger = log.With("component", "bridge")

	if journalRepo != nil {
		opts.Journal = journalRepo
	}
	if mqttClient != nil {
		opts.Mirror = mqttClient
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	return bridge.NewSession(opts)
}

// healthCheck verifies the enabled infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Journal database (nil if disabled)
//   - mqttClient: MQTT client (nil if disabled)
//   - influxClient: InfluxDB client (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
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

	// The WebSocket is not checked here: the server may come up later and
	// the client keeps retrying.
	return nil
}
