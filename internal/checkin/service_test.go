package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/azuratime/internal/gallery"
	"github.com/your-org/azuratime/internal/models"
)

type memEventStore struct {
	mu     sync.Mutex
	events []models.CheckIn
	nextID int64
}

func (s *memEventStore) InsertCheckIn(_ context.Context, c *models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	s.events = append(s.events, *c)
	return nil
}

type memNotifier struct {
	mu       sync.Mutex
	triggers int
}

func (n *memNotifier) TriggerSync(context.Context) error {
	n.mu.Lock()
	n.triggers++
	n.mu.Unlock()
	return nil
}

type staticSource struct{ faces []models.Face }

func (s staticSource) ListFaces(context.Context) ([]models.Face, error) {
	return s.faces, nil
}

func newTestService(t *testing.T, clock *fakeClock, faces []models.Face) (*Service, *memEventStore, *memNotifier) {
	t.Helper()
	g := gallery.New(staticSource{faces: faces})
	gate := NewGate(time.Minute, newMemKV(), clock.Now)
	store := &memEventStore{}
	notifier := &memNotifier{}
	svc := NewService(g, gate, store, notifier, 0.4, clock.Now)
	return svc, store, notifier
}

func TestProcessAcceptsMatch(t *testing.T) {
	clock := newFakeClock()
	alice := []float32{1, 0, 0}
	svc, store, notifier := newTestService(t, clock, []models.Face{
		{StudentID: "alice", Name: "Alice", Embedding: alice},
	})

	out, err := svc.Process(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, out.Status)
	assert.Equal(t, "alice", out.StudentID)
	assert.InDelta(t, 0, out.Distance, 1e-5)

	require.Len(t, store.events, 1)
	assert.Equal(t, "alice", store.events[0].StudentID)
	assert.False(t, store.events[0].Synced)
	assert.Equal(t, clock.Now().UnixMilli(), store.events[0].Timestamp)
	assert.Equal(t, 1, notifier.triggers)
}

func TestProcessUnrecognized(t *testing.T) {
	clock := newFakeClock()
	svc, store, _ := newTestService(t, clock, []models.Face{
		{StudentID: "alice", Name: "Alice", Embedding: []float32{1, 0, 0}},
	})

	// Orthogonal probe: distance 1.0, above threshold.
	out, err := svc.Process(context.Background(), []float32{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, StatusUnrecognized, out.Status)
	assert.Empty(t, store.events)
}

func TestProcessCooldownBlocksSecond(t *testing.T) {
	clock := newFakeClock()
	alice := []float32{1, 0, 0}
	svc, store, _ := newTestService(t, clock, []models.Face{
		{StudentID: "alice", Name: "Alice", Embedding: alice},
	})
	ctx := context.Background()

	out, err := svc.Process(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, out.Status)

	clock.Advance(10 * time.Second)
	out, err = svc.Process(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCheckedIn, out.Status)
	assert.Equal(t, "Alice", out.Name)
	assert.Len(t, store.events, 1, "no second row inside the window")

	clock.Advance(51 * time.Second)
	out, err = svc.Process(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, out.Status)
	assert.Len(t, store.events, 2)
}

func TestProcessTestIdentityNeverRecorded(t *testing.T) {
	clock := newFakeClock()
	probe := []float32{1, 0, 0}
	svc, store, _ := newTestService(t, clock, []models.Face{
		{StudentID: "test_user", Name: "Test User", Embedding: probe},
	})

	out, err := svc.Process(context.Background(), probe)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCheckedIn, out.Status)
	assert.Empty(t, store.events)
}

func TestConcurrentFramesSingleInsert(t *testing.T) {
	clock := newFakeClock()
	alice := []float32{1, 0, 0}
	svc, store, _ := newTestService(t, clock, []models.Face{
		{StudentID: "alice", Name: "Alice", Embedding: alice},
	})

	var wg sync.WaitGroup
	accepted := int32(0)
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Process(context.Background(), alice)
			assert.NoError(t, err)
			if out.Status == StatusCheckedIn {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Len(t, store.events, 1, "rapid frames must not double-insert")
}
