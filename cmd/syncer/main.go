package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/azuratime/internal/config"
	"github.com/your-org/azuratime/internal/observability"
	"github.com/your-org/azuratime/internal/queue"
	"github.com/your-org/azuratime/internal/storage"
	syncpkg "github.com/your-org/azuratime/internal/sync"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting AzuraTime syncer",
		"endpoint", cfg.Sync.Endpoint,
		"interval", cfg.Sync.Interval.String(),
	)

	if cfg.Sync.Endpoint == "" {
		slog.Error("sync endpoint is not configured")
		os.Exit(1)
	}

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (throttle state)
	redisStore, err := storage.NewRedisStore(cfg.Redis)
	if err != nil {
		slog.Error("connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	remote := syncpkg.NewRemoteClient(cfg.Sync.Endpoint, cfg.Sync.APIKey, cfg.Sync.Timeout)
	syncer := syncpkg.NewSyncer(db, remote, redisStore, cfg.Sync.Throttle, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for nudges from the check-in services
	var nudges <-chan struct{}
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Warn("connect to nats — running on interval only", "error", err)
	} else {
		defer consumer.Close()
		nudges, err = consumer.SubscribeSyncTrigger(ctx)
		if err != nil {
			slog.Warn("subscribe sync trigger — running on interval only", "error", err)
			nudges = nil
		}
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("syncer metrics listening", "addr", ":8083")
		if err := http.ListenAndServe(":8083", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		syncer.Run(ctx, cfg.Sync.Interval, nudges)
		close(done)
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down syncer...")
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("syncer did not stop in time")
	}
	slog.Info("syncer stopped")
}
