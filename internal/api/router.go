package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/azuratime/internal/api/handlers"
	"github.com/your-org/azuratime/internal/api/ws"
	"github.com/your-org/azuratime/internal/auth"
	"github.com/your-org/azuratime/internal/checkin"
	"github.com/your-org/azuratime/internal/queue"
	"github.com/your-org/azuratime/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Redis    *storage.RedisStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Service  *checkin.Service
	// EmbedFn extracts a face embedding from image bytes (from the
	// recognition pipeline).
	EmbedFn func(imageData []byte) ([]float32, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Redis, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket live feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Face roster
	faceH := handlers.NewFaceHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	faceH.EmbedFn = cfg.EmbedFn
	v1.POST("/faces", faceH.Register)
	v1.GET("/faces", faceH.List)
	v1.GET("/faces/:studentId", faceH.Get)
	v1.DELETE("/faces/:studentId", faceH.Delete)
	v1.POST("/faces/import", faceH.Import)

	// Check-ins
	checkInH := handlers.NewCheckInHandler(cfg.DB, cfg.Service)
	v1.GET("/checkins", checkInH.List)
	v1.POST("/checkins", checkInH.Create)

	// Frames from edge devices
	frameH := handlers.NewFrameHandler(cfg.MinIO, cfg.Producer)
	v1.POST("/frames", frameH.Upload)

	// Users & device bindings
	userH := handlers.NewUserHandler(cfg.DB)
	v1.POST("/users", userH.Create)
	v1.GET("/users", userH.List)
	v1.POST("/users/login", userH.Login)
	v1.POST("/users/:username/phone", userH.BindPhone)

	return r
}
