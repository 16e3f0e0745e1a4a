package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/azuratime/internal/api"
	"github.com/your-org/azuratime/internal/api/ws"
	"github.com/your-org/azuratime/internal/checkin"
	"github.com/your-org/azuratime/internal/config"
	"github.com/your-org/azuratime/internal/gallery"
	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/observability"
	"github.com/your-org/azuratime/internal/queue"
	"github.com/your-org/azuratime/internal/storage"
	"github.com/your-org/azuratime/internal/vision"
	"github.com/your-org/azuratime/pkg/dto"
)

// syncNudger adapts the NATS producer to the check-in service's notifier.
type syncNudger struct {
	p *queue.Producer
}

func (n syncNudger) TriggerSync(context.Context) error {
	return n.p.TriggerSync()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting AzuraTime API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to Redis
	redisStore, err := storage.NewRedisStore(cfg.Redis)
	if err != nil {
		slog.Error("connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Admission service (manual check-ins from the operator desk)
	roster := gallery.New(db)
	gate := checkin.NewGate(cfg.CheckIn.Cooldown, redisStore, nil)
	service := checkin.NewService(roster, gate, db, syncNudger{producer}, float32(cfg.Recognition.MatchThreshold), nil)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Broadcast accepted check-ins via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create check-in consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeCheckIns(ctx, "api-checkins", func(ctx context.Context, msg jetstream.Msg) error {
		var event models.CheckInEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:      "check_in",
			DeviceID:  event.DeviceID,
			CheckInID: event.CheckInID,
			StudentID: event.StudentID,
			Name:      event.Name,
			Timestamp: event.Timestamp,
			Distance:  event.Distance,
		})
		return nil
	})
	if err != nil {
		slog.Warn("start check-in consumer", "error", err)
	}

	// Initialize ONNX Runtime for face embedding (registration endpoints)
	var embedFn func([]byte) ([]float32, error)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — face registration will be unavailable", "error", err)
	} else {
		pipeline, err := vision.NewPipeline(cfg.Recognition, service, minioStore, producer)
		if err != nil {
			slog.Warn("recognition pipeline init failed — face registration will be unavailable", "error", err)
		} else {
			embedFn = pipeline.EmbedImage
			defer pipeline.Close()
			defer ort.DestroyEnvironment()
			slog.Info("recognition pipeline ready for API (registration)")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		MinIO:    minioStore,
		Redis:    redisStore,
		Producer: producer,
		Hub:      hub,
		Service:  service,
		EmbedFn:  embedFn,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
