package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/azuratime/internal/checkin"
	"github.com/your-org/azuratime/internal/storage"
	"github.com/your-org/azuratime/pkg/dto"
)

type CheckInHandler struct {
	db      *storage.PostgresStore
	service *checkin.Service
}

func NewCheckInHandler(db *storage.PostgresStore, service *checkin.Service) *CheckInHandler {
	return &CheckInHandler{db: db, service: service}
}

// List pages through recorded check-ins, newest first. from/to accept
// RFC3339 timestamps.
func (h *CheckInHandler) List(c *gin.Context) {
	var q dto.CheckInQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var from, to *time.Time
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		from = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		to = &t
	}

	events, total, err := h.db.QueryCheckIns(c.Request.Context(), from, to, q.StudentID, q.Pending, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CheckInResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, dto.CheckInResponse{
			ID:        e.ID,
			StudentID: e.StudentID,
			Name:      e.Name,
			Timestamp: e.Timestamp,
			Synced:    e.Synced,
		})
	}

	c.JSON(http.StatusOK, dto.CheckInListResponse{CheckIns: resp, Total: total})
}

// Create records a manual check-in for a registered student, subject to
// the same cooldown rules as recognition.
func (h *CheckInHandler) Create(c *gin.Context) {
	var req dto.ManualCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	face, err := h.db.GetFace(c.Request.Context(), req.StudentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if face == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not registered"})
		return
	}

	outcome, err := h.service.CheckInIdentity(c.Request.Context(), face.StudentID, face.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if outcome.Status != checkin.StatusCheckedIn {
		status = http.StatusOK
	}
	c.JSON(status, dto.CheckInOutcomeResponse{
		Status:    outcome.Status.String(),
		StudentID: outcome.StudentID,
		Name:      outcome.Name,
		CheckInID: outcome.CheckInID,
	})
}
