package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductCatalog/internal/auth"
	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/config"
	"ProductCatalog/internal/events"
	"ProductCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal("catalog stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, closeStore, err := openStore(ctx, cfg.Store, log, catalog.NewStoreMetrics(reg))
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, log)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		store = catalog.NewNotifyingStore(store, pub, log)
		log.Info("publishing catalog events", zap.String("subject", cfg.Events.Subject))
	}

	deps := catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	}
	if cfg.Auth.Enabled {
		deps.Auth = &auth.Server{
			Log:      log,
			Admin:    auth.Admin{Username: cfg.Auth.AdminUser, PasswordHash: []byte(cfg.Auth.AdminPasswordHash)},
			JWT:      auth.NewTokenMaker(cfg.Auth.JWTSecret),
			TokenTTL: cfg.Auth.TokenTTL,
		}
	} else {
		log.Warn("auth disabled: catalog mutations are open")
	}

	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log}, deps)
	return kit.RunHTTPServer(ctx, cfg.HTTP.Addr, h, log, cfg.HTTP.ShutdownTimeout)
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger, m *catalog.StoreMetrics) (catalog.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return catalog.NewMemStore(), func() {}, nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := catalog.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return catalog.NewPostgresStore(db), func() { _ = db.Close() }, nil

	default:
		s := catalog.OpenFileStore(ctx, cfg.Path, catalog.FileStoreOptions{Log: log, Metrics: m})
		return s, func() {}, nil
	}
}
