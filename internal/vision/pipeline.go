package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/your-org/azuratime/internal/checkin"
	"github.com/your-org/azuratime/internal/config"
	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/observability"
	"github.com/your-org/azuratime/internal/queue"
	"github.com/your-org/azuratime/internal/storage"
)

// Pipeline runs the recognition flow for one frame task:
// load crop → embed → match/admit → emit check-in event.
//
// Edge devices detect and crop faces before uploading, so the worker
// only embeds and matches.
type Pipeline struct {
	embedder *Embedder
	service  *checkin.Service
	minio    *storage.MinIOStore
	producer *queue.Producer
	cfg      config.RecognitionConfig
}

// NewPipeline loads the ONNX model and returns a ready pipeline.
func NewPipeline(
	cfg config.RecognitionConfig,
	service *checkin.Service,
	minio *storage.MinIOStore,
	producer *queue.Producer,
) (*Pipeline, error) {

	modelPath := filepath.Join(cfg.ModelsDir, "facenet.onnx")

	slog.Info("loading embedding model", "path", modelPath)
	emb, err := NewEmbedder(modelPath, cfg.InputSize, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("recognition pipeline ready")

	return &Pipeline{
		embedder: emb,
		service:  service,
		minio:    minio,
		producer: producer,
		cfg:      cfg,
	}, nil
}

// ProcessFrame handles one frame task end to end.
func (p *Pipeline) ProcessFrame(ctx context.Context, task models.FrameTask) error {
	frameData, err := p.minio.GetObject(ctx, task.FrameRef)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}

	img, err := decodeImage(frameData)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	start := time.Now()
	input := preprocessForEmbedding(img, p.embedder.InputSize())
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	embedding, err := p.embedder.Extract(input)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	start = time.Now()
	outcome, err := p.service.Process(ctx, embedding)
	if err != nil {
		return fmt.Errorf("process probe: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())

	observability.FramesProcessed.WithLabelValues(task.DeviceID).Inc()

	if outcome.Status != checkin.StatusCheckedIn {
		return nil
	}

	event := models.CheckInEvent{
		CheckInID: outcome.CheckInID,
		StudentID: outcome.StudentID,
		Name:      outcome.Name,
		Timestamp: task.Timestamp,
		Distance:  outcome.Distance,
		DeviceID:  task.DeviceID,
	}
	if err := p.producer.PublishCheckIn(ctx, task.DeviceID, event); err != nil {
		// The check-in is already recorded; the live feed just misses it.
		slog.Error("publish check-in event", "error", err, "student_id", outcome.StudentID)
	}

	return nil
}

// EmbedImage extracts an embedding from a standalone photo (registration
// and bulk import). The photo is expected to be a face crop.
func (p *Pipeline) EmbedImage(imageData []byte) ([]float32, error) {
	img, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}

	input := preprocessForEmbedding(img, p.embedder.InputSize())
	embedding, err := p.embedder.Extract(input)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return embedding, nil
}

// Close releases the ONNX session.
func (p *Pipeline) Close() {
	if p.embedder != nil {
		p.embedder.Close()
	}
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		// Try other formats
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	return img, nil
}

// --- Image preprocessing helpers ---

// preprocessForEmbedding resizes to the model input size and applies
// FaceNet normalization: pixel' = (pixel - 127.5) / 128.
func preprocessForEmbedding(img image.Image, size int) []float32 {
	return imageToFloat32CHW(img, size, size, [3]float32{127.5, 127.5, 127.5}, [3]float32{128.0, 128.0, 128.0})
}

// imageToFloat32CHW converts an image to CHW float32 format with
// normalization: pixel = (pixel - mean) / std.
func imageToFloat32CHW(img image.Image, targetW, targetH int, mean, std [3]float32) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// Convert from 16-bit to 8-bit
			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			// CHW layout: [C][H][W]
			idx := y*w + x
			data[0*h*w+idx] = (rf - mean[0]) / std[0] // R
			data[1*h*w+idx] = (gf - mean[1]) / std[1] // G
			data[2*h*w+idx] = (bf - mean[2]) / std[2] // B
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}
