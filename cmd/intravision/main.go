// Intravision Core
//
// This is the entry point for the Intravision core process. It builds the
// configured systems, serves them to websocket observers through the
// subscription broker, and optionally ingests entity state from MQTT,
// journals published messages to SQLite, and writes telemetry to InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/intravision-core/internal/broker"
	"github.com/nerrad567/intravision-core/internal/devices"
	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/infrastructure/config"
	"github.com/nerrad567/intravision-core/internal/infrastructure/database"
	"github.com/nerrad567/intravision-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/intravision-core/internal/infrastructure/logging"
	"github.com/nerrad567/intravision-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/intravision-core/internal/ingest"
	"github.com/nerrad567/intravision-core/internal/journal"
	"github.com/nerrad567/intravision-core/internal/services"
	"github.com/nerrad567/intravision-core/internal/system"
	"github.com/nerrad567/intravision-core/internal/wire"
	"github.com/nerrad567/intravision-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

const (
	shutdownTimeout = 10 * time.Second
	statsInterval   = 30 * time.Second
	pruneInterval   = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Intravision Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(getConfigPath(), log)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	registry, err := newRegistry()
	if err != nil {
		return err
	}

	systems, err := buildSystems(registry, cfg, log)
	if err != nil {
		return fmt.Errorf("building systems: %w", err)
	}
	if len(systems) == 0 {
		log.Warn("no systems configured; clients can connect but cannot subscribe")
	}

	deps := broker.Deps{
		Config:       cfg.Broker,
		WS:           cfg.WebSocket,
		Logger:       log.Component("broker"),
		Codec:        wire.NewCodec(registry),
		HistoryLimit: cfg.Journal.HistoryLimit,
		Version:      version,
	}

	// Event journal (optional)
	var db *database.DB
	var journalRepo *journal.SQLiteRepository
	if cfg.Journal.Enabled {
		db, err = database.Open(cfg.Journal.Database)
		if err != nil {
			return fmt.Errorf("opening journal database: %w", err)
		}
		defer func() {
			log.Info("closing journal database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx, migrations.Source()); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		journalRepo = journal.NewSQLiteRepository(db.DB)
		deps.Journal = journalRepo
		log.Info("journal enabled", "path", db.Path())
	} else {
		log.Info("journal disabled")
	}

	// InfluxDB (optional)
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
		deps.Telemetry = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	b, err := broker.New(deps)
	if err != nil {
		return fmt.Errorf("creating broker: %w", err)
	}
	for _, sys := range systems {
		if regErr := b.RegisterSystem(sys); regErr != nil {
			return fmt.Errorf("registering system %s: %w", sys.Name(), regErr)
		}
	}
	if startErr := b.Start(ctx); startErr != nil {
		return fmt.Errorf("starting broker: %w", startErr)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := b.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("error shutting down broker", "error", shutdownErr)
		}
	}()

	// MQTT state ingest (optional)
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

		ingestSvc, ingestErr := ingest.New(ingest.Deps{
			Locator: b,
			Bus:     mqttClient,
			Logger:  log.Component("ingest"),
		})
		if ingestErr != nil {
			return fmt.Errorf("creating ingest: %w", ingestErr)
		}
		if startErr := ingestSvc.Start(); startErr != nil {
			return fmt.Errorf("starting ingest: %w", startErr)
		}
		defer func() {
			if stopErr := ingestSvc.Stop(); stopErr != nil {
				log.Warn("error stopping ingest", "error", stopErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	if err := healthCheck(ctx, b, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners(systems) {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}
	if journalRepo != nil && cfg.JournalRetention() > 0 {
		g.Go(func() error {
			return pruneJournal(gctx, journalRepo, cfg.JournalRetention(), log)
		})
	}
	if influxClient != nil {
		g.Go(func() error {
			return sampleBrokerStats(gctx, b, influxClient)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return fmt.Errorf("background task failed: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses INTRAVISION_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("INTRAVISION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the config file, falling back to built-in defaults when
// the file does not exist.
func loadConfig(path string, log *logging.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log.Warn("config file not found, using defaults", "path", path)
	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating default config: %w", err)
	}
	return cfg, nil
}

// newRegistry registers every built-in entity variant.
func newRegistry() (*entity.Registry, error) {
	reg := entity.NewRegistry()
	if err := devices.Register(reg); err != nil {
		return nil, fmt.Errorf("registering devices: %w", err)
	}
	if err := services.Register(reg); err != nil {
		return nil, fmt.Errorf("registering services: %w", err)
	}
	return reg, nil
}

// buildSystems creates the configured systems and their members.
// Members with the same name across systems are the same entity.
func buildSystems(reg *entity.Registry, cfg *config.Config, log *logging.Logger) ([]*system.System, error) {
	byName := make(map[string]entity.Entity)
	out := make([]*system.System, 0, len(cfg.Systems))

	for _, sc := range cfg.Systems {
		sys, err := system.New(sc.Name)
		if err != nil {
			return nil, err
		}
		sys.SetLogger(log)

		groups := []struct {
			members []config.MemberConfig
			add     func(entity.Entity) error
		}{
			{sc.Devices, sys.AddDevice},
			{sc.Services, sys.AddService},
		}
		for _, g := range groups {
			for _, mc := range g.members {
				e, err := sharedMember(byName, reg, mc, cfg.UpdateInterval(), log)
				if err != nil {
					return nil, fmt.Errorf("system %s: %w", sc.Name, err)
				}
				if err := g.add(e); err != nil {
					return nil, fmt.Errorf("system %s: %w", sc.Name, err)
				}
			}
		}

		log.Info("system built",
			"system", sys.Name(),
			"devices", len(sys.Devices()),
			"services", len(sys.Services()),
		)
		out = append(out, sys)
	}
	return out, nil
}

// sharedMember returns the entity already built for mc.Name, or builds it.
func sharedMember(byName map[string]entity.Entity, reg *entity.Registry, mc config.MemberConfig, interval time.Duration, log *logging.Logger) (entity.Entity, error) {
	if e, ok := byName[mc.Name]; ok {
		if e.Type() != mc.Type {
			return nil, fmt.Errorf("%s is declared as both %s and %s", mc.Name, e.Type(), mc.Type)
		}
		return e, nil
	}
	e, err := newMember(reg, mc, interval, log)
	if err != nil {
		return nil, err
	}
	byName[mc.Name] = e
	return e, nil
}

// newMember constructs one entity and applies its initial properties.
func newMember(reg *entity.Registry, mc config.MemberConfig, interval time.Duration, log *logging.Logger) (entity.Entity, error) {
	e, err := reg.New(mc.Type, mc.Name)
	if err != nil {
		return nil, err
	}
	if l, ok := e.(interface{ SetLogger(entity.Logger) }); ok {
		l.SetLogger(log)
	}
	if interval > 0 {
		e.SetUpdateInterval(interval)
	}

	for name, value := range mc.Properties {
		current, ok := e.Property(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no property %s", entity.ErrUnknownProperty, mc.Name, name)
		}
		value = entity.Coerce(current, value)
		if reflect.TypeOf(value) != reflect.TypeOf(current) {
			return nil, fmt.Errorf("%w: %s.%s wants %T, got %T", entity.ErrTypeMismatch, mc.Name, name, current, value)
		}
		if err := e.SetField(name, value); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", mc.Name, name, err)
		}
	}
	return e, nil
}

// runner is an entity with its own background loop.
type runner interface {
	entity.Entity
	Run(ctx context.Context) error
}

// runners returns the distinct members of systems that run a loop.
func runners(systems []*system.System) []runner {
	seen := make(map[string]struct{})
	var out []runner
	for _, sys := range systems {
		for _, m := range sys.Members() {
			r, ok := m.(runner)
			if !ok {
				continue
			}
			if _, dup := seen[m.ID()]; dup {
				continue
			}
			seen[m.ID()] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// healthCheck verifies the broker and every enabled integration.
// db, mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, b *broker.Broker, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := b.HealthCheck(ctx); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal database: %w", err)
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
	return nil
}

// pruneJournal deletes old journal rows on start and then hourly.
func pruneJournal(ctx context.Context, repo journal.Repository, retention time.Duration, log *logging.Logger) error {
	prune := func() {
		n, err := repo.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("journal prune failed", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("journal pruned", "rows", n, "retention", retention.String())
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			prune()
		}
	}
}

// statsWriter is the subset of the InfluxDB client used for broker stats.
type statsWriter interface {
	WriteBrokerStats(clients, systems, entities int)
}

// sampleBrokerStats writes the broker's counts every statsInterval.
func sampleBrokerStats(ctx context.Context, b *broker.Broker, w statsWriter) error {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.WriteBrokerStats(b.ClientCount(), len(b.Systems()), b.SubscribedEntityCount())
		}
	}
}
