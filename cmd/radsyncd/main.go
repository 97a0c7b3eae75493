package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ispkit/radsync/internal/metrics"
	"github.com/ispkit/radsync/internal/radiusdb"
	"github.com/ispkit/radsync/internal/session"
	"github.com/ispkit/radsync/pkg/config"
	"github.com/ispkit/radsync/pkg/logger"
	"github.com/ispkit/radsync/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/radsync.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.Components)

	mainLog := logger.Get(logger.Main)
	mainLog.Info("Starting radsyncd", "version", version.Full(), "instance_id", uuid.NewString())

	db, err := radiusdb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := radiusdb.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	mainLog.Info("Database ready", "driver", cfg.Database.Driver)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		m = metrics.New(registry)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: mux}
		go func() {
			mainLog.Info("Metrics listener started", "address", cfg.Metrics.ListenAddress)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				mainLog.Error("Metrics listener failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	store := session.NewStore(db, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Cleanup.Interval.Std())
	defer ticker.Stop()

	mainLog.Info("Reconciliation loop started",
		"interval", cfg.Cleanup.Interval, "stale_after", cfg.Cleanup.StaleAfter)

	for {
		select {
		case <-ctx.Done():
			mainLog.Info("Shutting down")
			return
		case <-ticker.C:
			if _, err := store.CleanupStale(ctx, "", cfg.Cleanup.StaleAfter.Std()); err != nil {
				mainLog.Error("Stale session sweep failed", "error", err)
			}
		}
	}
}
