package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/pkg/dto"
)

// FaceStore is the roster persistence the face handlers need.
type FaceStore interface {
	UpsertFace(ctx context.Context, f *models.Face) (bool, error)
	GetFace(ctx context.Context, studentID string) (*models.Face, error)
	ListFaces(ctx context.Context) ([]models.Face, error)
	DeleteFace(ctx context.Context, studentID string) error
}

// ObjectStore is the blob storage for photos and import batches.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// RosterNotifier tells workers to reload the gallery after roster changes.
type RosterNotifier interface {
	TriggerGalleryRefresh() error
}

type FaceHandler struct {
	db       FaceStore
	minio    ObjectStore
	producer RosterNotifier
	// EmbedFn extracts a face embedding from image bytes.
	// Set this after the recognition pipeline is initialized.
	EmbedFn func(imageData []byte) ([]float32, error)
}

func NewFaceHandler(db FaceStore, minio ObjectStore, producer RosterNotifier) *FaceHandler {
	return &FaceHandler{db: db, minio: minio, producer: producer}
}

// Register accepts a multipart photo upload plus roster fields, extracts
// the embedding, and upserts the student. Re-registering an existing
// student requires replace=true; otherwise the duplicate is reported
// with the existing name.
func (h *FaceHandler) Register(c *gin.Context) {
	studentID := strings.TrimSpace(c.PostForm("student_id"))
	name := strings.TrimSpace(c.PostForm("name"))
	if studentID == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id and name are required"})
		return
	}
	replace := c.PostForm("replace") == "true"

	existing, err := h.db.GetFace(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil && !replace {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "student already registered",
			"student_id":    studentID,
			"existing_name": existing.Name,
		})
		return
	}

	file, header, err := c.Request.FormFile("image")
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

	if h.EmbedFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recognition pipeline not initialized"})
		return
	}

	embedding, err := h.EmbedFn(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
		return
	}

	photoKey := "faces/" + studentID + path.Ext(header.Filename)
	if path.Ext(header.Filename) == "" {
		photoKey += ".jpg"
	}
	if err := h.minio.PutObject(c.Request.Context(), photoKey, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo failed"})
		return
	}

	face := &models.Face{
		StudentID: studentID,
		Name:      name,
		Embedding: embedding,
		PhotoKey:  photoKey,
		ClassName: c.PostForm("class_name"),
		SubClass:  c.PostForm("sub_class"),
		Grade:     c.PostForm("grade"),
		SubGrade:  c.PostForm("sub_grade"),
		Program:   c.PostForm("program"),
		Role:      c.PostForm("role"),
	}

	replaced, err := h.db.UpsertFace(c.Request.Context(), face)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.producer.TriggerGalleryRefresh(); err != nil {
		slog.Warn("trigger gallery refresh", "error", err)
	}

	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	c.JSON(status, faceResponse(face))
}

func (h *FaceHandler) List(c *gin.Context) {
	faces, err := h.db.ListFaces(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceResponse, 0, len(faces))
	for i := range faces {
		resp = append(resp, faceResponse(&faces[i]))
	}

	c.JSON(http.StatusOK, dto.FaceListResponse{Faces: resp, Total: len(resp)})
}

func (h *FaceHandler) Get(c *gin.Context) {
	face, err := h.db.GetFace(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if face == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not registered"})
		return
	}
	c.JSON(http.StatusOK, faceResponse(face))
}

func (h *FaceHandler) Delete(c *gin.Context) {
	studentID := c.Param("studentId")

	face, err := h.db.GetFace(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if face == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not registered"})
		return
	}

	if err := h.db.DeleteFace(c.Request.Context(), studentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if face.PhotoKey != "" {
		if err := h.minio.DeleteObject(c.Request.Context(), face.PhotoKey); err != nil {
			slog.Warn("delete photo", "key", face.PhotoKey, "error", err)
		}
	}

	if err := h.producer.TriggerGalleryRefresh(); err != nil {
		slog.Warn("trigger gallery refresh", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Import bulk-registers students from a CSV upload. Expected header:
//
//	student_id,name,class_name,sub_class,grade,sub_grade,program,role
//
// Photos must already be uploaded to MinIO under imports/<student_id>.jpg.
func (h *FaceHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv file required"})
		return
	}
	defer file.Close()

	if h.EmbedFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recognition pipeline not initialized"})
		return
	}

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read csv header: " + err.Error()})
		return
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["student_id"]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv missing student_id column"})
		return
	}
	if _, ok := col["name"]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv missing name column"})
		return
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// One listing instead of a GetObject miss per absent photo.
	keys, err := h.minio.ListObjects(c.Request.Context(), "imports/")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list import photos: " + err.Error()})
		return
	}
	photos := make(map[string]bool, len(keys))
	for _, k := range keys {
		photos[k] = true
	}

	var resp dto.ImportResponse
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			resp.Results = append(resp.Results, dto.ImportRowResult{
				Status: "failed", Error: "malformed row: " + err.Error(),
			})
			resp.Failed++
			continue
		}

		studentID := field(row, "student_id")
		name := field(row, "name")
		if studentID == "" || name == "" {
			resp.Results = append(resp.Results, dto.ImportRowResult{
				StudentID: studentID, Status: "failed", Error: "student_id and name are required",
			})
			resp.Failed++
			continue
		}

		result := h.importRow(c, studentID, name, field, row, photos)
		resp.Results = append(resp.Results, result)
		switch result.Status {
		case "failed":
			resp.Failed++
		case "replaced":
			resp.Replaced++
		default:
			resp.Registered++
		}
	}

	if resp.Registered+resp.Replaced > 0 {
		if err := h.producer.TriggerGalleryRefresh(); err != nil {
			slog.Warn("trigger gallery refresh", "error", err)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *FaceHandler) importRow(c *gin.Context, studentID, name string, field func([]string, string) string, row []string, photos map[string]bool) dto.ImportRowResult {
	ctx := c.Request.Context()

	photoKey := fmt.Sprintf("imports/%s.jpg", studentID)
	if !photos[photoKey] {
		return dto.ImportRowResult{StudentID: studentID, Status: "failed", Error: "photo not found: " + photoKey}
	}
	imageData, err := h.minio.GetObject(ctx, photoKey)
	if err != nil {
		return dto.ImportRowResult{StudentID: studentID, Status: "failed", Error: "read photo " + photoKey + ": " + err.Error()}
	}

	embedding, err := h.EmbedFn(imageData)
	if err != nil {
		return dto.ImportRowResult{StudentID: studentID, Status: "failed", Error: "extract face: " + err.Error()}
	}

	face := &models.Face{
		StudentID: studentID,
		Name:      name,
		Embedding: embedding,
		PhotoKey:  photoKey,
		ClassName: field(row, "class_name"),
		SubClass:  field(row, "sub_class"),
		Grade:     field(row, "grade"),
		SubGrade:  field(row, "sub_grade"),
		Program:   field(row, "program"),
		Role:      field(row, "role"),
	}

	replaced, err := h.db.UpsertFace(ctx, face)
	if err != nil {
		return dto.ImportRowResult{StudentID: studentID, Status: "failed", Error: err.Error()}
	}

	status := "registered"
	if replaced {
		status = "replaced"
	}
	return dto.ImportRowResult{StudentID: studentID, Status: status}
}

func faceResponse(f *models.Face) dto.FaceResponse {
	return dto.FaceResponse{
		StudentID: f.StudentID,
		Name:      f.Name,
		ClassName: f.ClassName,
		SubClass:  f.SubClass,
		Grade:     f.Grade,
		SubGrade:  f.SubGrade,
		Program:   f.Program,
		Role:      f.Role,
		PhotoKey:  f.PhotoKey,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}
