package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "frames_processed_total",
		Help:      "Total number of camera frames processed",
	}, []string{"device_id"})

	CheckInsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "checkins_accepted_total",
		Help:      "Total number of accepted check-ins",
	})

	CheckInsBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "checkins_blocked_total",
		Help:      "Check-ins denied by the admission gate",
	}, []string{"reason"})

	FacesUnrecognized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "faces_unrecognized_total",
		Help:      "Probes that matched no registered identity",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "azuratime",
		Name:      "inference_duration_seconds",
		Help:      "Duration of recognition stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	GallerySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "azuratime",
		Name:      "gallery_size",
		Help:      "Number of identities in the in-memory gallery",
	})

	SyncBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "sync_batches_total",
		Help:      "Remote sync batch attempts by result",
	}, []string{"result"})

	SyncedCheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "azuratime",
		Name:      "synced_checkins_total",
		Help:      "Check-in events uploaded to the remote store",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "azuratime",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "azuratime",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "azuratime",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
