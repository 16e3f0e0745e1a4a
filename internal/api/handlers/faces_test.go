package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/pkg/dto"
)

type memFaceStore struct {
	mu    sync.Mutex
	faces map[string]*models.Face
}

func newMemFaceStore() *memFaceStore {
	return &memFaceStore{faces: make(map[string]*models.Face)}
}

func (s *memFaceStore) UpsertFace(_ context.Context, f *models.Face) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.faces[f.StudentID]
	s.faces[f.StudentID] = f
	return existed, nil
}

func (s *memFaceStore) GetFace(_ context.Context, studentID string) (*models.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faces[studentID], nil
}

func (s *memFaceStore) ListFaces(_ context.Context) ([]models.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Face, 0, len(s.faces))
	for _, f := range s.faces {
		out = append(out, *f)
	}
	return out, nil
}

func (s *memFaceStore) DeleteFace(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faces, studentID)
	return nil
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) PutObject(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *memObjectStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) ListObjects(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type memRosterNotifier struct {
	mu     sync.Mutex
	nudged int
}

func (n *memRosterNotifier) TriggerGalleryRefresh() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nudged++
	return nil
}

func (n *memRosterNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nudged
}

func stubEmbed([]byte) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newFaceRouter(h *FaceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/faces", h.Register)
	r.POST("/faces/import", h.Import)
	return r
}

func csvRequest(t *testing.T, csvBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/faces/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportCountsRegisteredReplacedFailed(t *testing.T) {
	db := newMemFaceStore()
	objects := newMemObjectStore()
	notifier := &memRosterNotifier{}

	// s2 is already on the roster, so its row replaces. s3 has no photo.
	db.faces["s2"] = &models.Face{StudentID: "s2", Name: "Old Name"}
	objects.objects["imports/s1.jpg"] = []byte("photo-1")
	objects.objects["imports/s2.jpg"] = []byte("photo-2")

	h := NewFaceHandler(db, objects, notifier)
	h.EmbedFn = stubEmbed
	r := newFaceRouter(h)

	csvBody := "student_id,name,class_name\n" +
		"s1,Alice,1A\n" +
		"s2,Bob,1B\n" +
		"s3,Carol,1C\n"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, csvRequest(t, csvBody))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Registered)
	assert.Equal(t, 1, resp.Replaced)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "registered", resp.Results[0].Status)
	assert.Equal(t, "replaced", resp.Results[1].Status)
	assert.Equal(t, "failed", resp.Results[2].Status)
	assert.Contains(t, resp.Results[2].Error, "photo not found")

	// Photos are located through a single prefix listing, and the roster
	// change nudges the workers exactly once.
	assert.Equal(t, 1, objects.lists)
	assert.Equal(t, 1, notifier.count())

	replaced, err := db.GetFace(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", replaced.Name)
}

func TestImportAllFailedSkipsRefresh(t *testing.T) {
	db := newMemFaceStore()
	objects := newMemObjectStore()
	notifier := &memRosterNotifier{}

	h := NewFaceHandler(db, objects, notifier)
	h.EmbedFn = stubEmbed
	r := newFaceRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, csvRequest(t, "student_id,name\ns1,Alice\n"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Registered)
	assert.Equal(t, 0, resp.Replaced)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 0, notifier.count())
}

func TestRegisterDuplicateWithoutReplace(t *testing.T) {
	db := newMemFaceStore()
	db.faces["s1"] = &models.Face{StudentID: "s1", Name: "Alice"}

	h := NewFaceHandler(db, newMemObjectStore(), &memRosterNotifier{})
	h.EmbedFn = stubEmbed
	r := newFaceRouter(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("student_id", "s1"))
	require.NoError(t, mw.WriteField("name", "Alice B"))
	fw, err := mw.CreateFormFile("image", "alice.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("photo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/faces", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
}
