// Package app wires keepd's configuration, infrastructure connections, the
// housekeeper scheduler, and the admin HTTP API together into one running
// process. It plays the role the teacher's internal/app package plays: the
// single place that knows about every other package.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/larkmail/keepd/internal/acmemgr"
	"github.com/larkmail/keepd/internal/config"
	"github.com/larkmail/keepd/internal/housekeeper"
	"github.com/larkmail/keepd/internal/httpserver"
	"github.com/larkmail/keepd/internal/notify"
	"github.com/larkmail/keepd/internal/platform"
	"github.com/larkmail/keepd/internal/storeadapter"
	"github.com/larkmail/keepd/internal/telemetry"
)

// intakeBufferSize bounds the housekeeper's event channel: producers block
// rather than drop once it fills (see housekeeper.NewScheduler).
const intakeBufferSize = 256

// shutdownTimeout bounds how long Run waits for in-flight HTTP requests to
// drain once ctx is canceled.
const shutdownTimeout = 10 * time.Second

// Run reads config, connects to infrastructure, and runs keepd until ctx is
// canceled. In "migrate" mode it only applies the directory schema
// migrations and returns.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)

	if cfg.Mode == "migrate" {
		logger.Info("running directory migrations", "dir", cfg.MigrationsDir)
		return platform.RunDirectoryMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	}

	logger.Info("starting keepd", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunDirectoryMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running directory migrations: %w", err)
	}

	metricsReg := telemetry.NewMetricsRegistry()
	metricsCollector := telemetry.Collector{}

	storeSchedules, err := cfg.ParseStoreSchedules()
	if err != nil {
		return fmt.Errorf("parsing store purge schedules: %w", err)
	}
	acmeProviders, err := cfg.ParseAcmeProviders()
	if err != nil {
		return fmt.Errorf("parsing acme providers: %w", err)
	}
	accountSchedule, err := cfg.AccountPurgeSchedule()
	if err != nil {
		return fmt.Errorf("parsing account purge schedule: %w", err)
	}

	lookupStore := &storeadapter.RedisLookupStore{Client: rdb, Prefix: "housekeeper:"}
	accounts := storeadapter.NewPostgresAccountService(db)
	notifier := notify.NewNotifier(cfg.SlackBotToken, cfg.SlackOpsChannel, logger)
	acme := acmemgr.NewManager(acmeProviderConfigs(acmeProviders), logger)

	dispatcher := housekeeper.NewDispatcher(lookupStore, metricsCollector, notifier, logger)
	scheduler := housekeeper.NewScheduler(dispatcher, accounts, acme, nil, metricsCollector, logger, intakeBufferSize)
	scheduler.SetAcmeNotifier(notifier)

	if cfg.OTLPEndpoint != "" {
		pusher, err := telemetry.NewOtelPusher(ctx, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("setting up otel exporter: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := pusher.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutting down otel exporter", "error", err)
			}
		}()
		scheduler.SetOtelPusher(pusher.Push)
	}

	stores, storeHandles, err := buildStores(db, lookupStore, storeSchedules)
	if err != nil {
		return fmt.Errorf("building store purge schedules: %w", err)
	}

	scheduler.Seed(ctx, &housekeeper.Snapshot{
		PurgeAccountsEnabled: cfg.PurgeAccountsEnabled,
		AccountPurgeNextRun:  accountSchedule.Next,
		Stores:               stores,
		OtelEnabled:          cfg.OTLPEndpoint != "",
		OtelInterval:         cfg.OTELInterval,
		AcmeProviders:        acmeProviderKinds(acmeProviders),
	})

	schedulerCtx, cancelScheduler := context.WithCancel(ctx)
	defer cancelScheduler()
	go scheduler.Run(schedulerCtx)

	directoryStore := storeadapter.NewPrincipalSetStore(storeadapter.NewPrincipalRepo(db))

	srv := httpserver.NewServer(
		logger, db, rdb, metricsReg, scheduler.Intake(), directoryStore,
		httpserver.PurgeTargets{Stores: storeHandles, Accounts: accounts},
		cfg.CORSAllowedOrigins,
	)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin api listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		select {
		case scheduler.Intake() <- housekeeper.ExitEvent{}:
		default:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// buildStores constructs one storeadapter PostgresDataStore/BlobStore pair
// per configured schedule index, the matching housekeeper.StoreSchedule
// entries (each scheduled as a recurring DataPurge; Blobs and Lookup purges
// for the same index remain reachable on demand via POST /admin/purge), and
// the httpserver.StoreHandle registry the purge endpoint resolves against.
func buildStores(
	pool *pgxpool.Pool,
	lookup *storeadapter.RedisLookupStore,
	schedules []config.StoreSchedule,
) ([]housekeeper.StoreSchedule, map[uint32]httpserver.StoreHandle, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	stores := make([]housekeeper.StoreSchedule, 0, len(schedules))
	handles := make(map[uint32]httpserver.StoreHandle, len(schedules))

	for _, sc := range schedules {
		idx := uint32(sc.Index)
		name := fmt.Sprintf("store_%d", idx)

		sched, err := parser.Parse(sc.Cron)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing cron for store %d: %w", idx, err)
		}

		data := &storeadapter.PostgresDataStore{Pool: pool, Index: idx, Name: name, Table: name + "_data"}
		blob := &storeadapter.PostgresBlobStore{Table: name + "_blobs"}

		stores = append(stores, housekeeper.StoreSchedule{
			Index:   idx,
			Purge:   housekeeper.DataPurge{Store: data, StoreName: name, StoreIndex: idx},
			NextRun: sched.Next,
		})
		handles[idx] = httpserver.StoreHandle{Index: idx, Name: name, Data: data, Blob: blob, Mem: lookup}
	}

	return stores, handles, nil
}

// acmeProviderConfigs adapts parsed config providers into acmemgr's
// provider configuration shape.
func acmeProviderConfigs(in []config.AcmeProvider) []acmemgr.ProviderConfig {
	out := make([]acmemgr.ProviderConfig, len(in))
	for i, p := range in {
		out[i] = acmemgr.ProviderConfig{ID: p.ID, Directory: p.Directory, Contact: p.Contact, Domains: p.Domains}
	}
	return out
}

// acmeProviderKinds adapts parsed config providers into the housekeeper's
// scheduling-only view of an ACME provider.
func acmeProviderKinds(in []config.AcmeProvider) []housekeeper.AcmeProvider {
	out := make([]housekeeper.AcmeProvider, len(in))
	for i, p := range in {
		out[i] = housekeeper.AcmeProvider{ID: p.ID}
	}
	return out
}
