package handlers

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/queue"
	"github.com/your-org/azuratime/internal/storage"
)

type FrameHandler struct {
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewFrameHandler(minio *storage.MinIOStore, producer *queue.Producer) *FrameHandler {
	return &FrameHandler{minio: minio, producer: producer}
}

// Upload accepts a face crop from an edge device, stores it, and queues
// a recognition task for the worker fleet.
func (h *FrameHandler) Upload(c *gin.Context) {
	deviceID := c.PostForm("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not a decodable image"})
		return
	}

	frameID := uuid.New()
	frameRef := "frames/" + deviceID + "/" + frameID.String() + ".jpg"
	if err := h.minio.PutObject(c.Request.Context(), frameRef, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store frame failed"})
		return
	}

	task := models.FrameTask{
		FrameID:   frameID,
		DeviceID:  deviceID,
		Timestamp: time.Now().UnixMilli(),
		FrameRef:  frameRef,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}
	if err := h.producer.PublishFrame(c.Request.Context(), deviceID, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue frame failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"frame_id": frameID, "status": "queued"})
}
