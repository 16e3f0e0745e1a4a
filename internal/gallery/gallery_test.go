package gallery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/azuratime/internal/models"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int32
	faces []models.Face
	err   error
	delay time.Duration
}

func (f *fakeSource) ListFaces(ctx context.Context) ([]models.Face, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.faces, nil
}

func TestLoadCachesAfterFirstCall(t *testing.T) {
	src := &fakeSource{faces: []models.Face{{StudentID: "s1", Name: "One"}}}
	g := New(src)

	first, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 1)

	_, err = g.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestConcurrentLoadSingleFlight(t *testing.T) {
	src := &fakeSource{
		faces: []models.Face{{StudentID: "s1"}},
		delay: 50 * time.Millisecond,
	}
	g := New(src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			faces, err := g.Load(context.Background())
			assert.NoError(t, err)
			assert.Len(t, faces, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestLoadErrorNotCached(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	g := New(src)

	_, err := g.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, g.Size())

	// Recovery: source comes back, next Load retries.
	src.mu.Lock()
	src.err = nil
	src.faces = []models.Face{{StudentID: "s1"}}
	src.mu.Unlock()

	faces, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, faces, 1)
}

// blockingSource parks the first read between started and release so a
// test can act while the load is in flight.
type blockingSource struct {
	calls   int32
	faces   []models.Face
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) ListFaces(context.Context) ([]models.Face, error) {
	snapshot := append([]models.Face(nil), s.faces...)
	if atomic.AddInt32(&s.calls, 1) == 1 {
		s.started <- struct{}{}
		<-s.release
	}
	return snapshot, nil
}

func TestClearDuringLoadInvalidates(t *testing.T) {
	src := &blockingSource{
		faces:   []models.Face{{StudentID: "s1"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	g := New(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := g.Load(context.Background())
		assert.NoError(t, err)
	}()

	<-src.started
	// Registration lands while the first read is still in flight.
	src.faces = []models.Face{{StudentID: "s1"}, {StudentID: "s2"}}
	g.Clear()
	close(src.release)
	<-done

	// The pre-Clear result must not have stuck in the cache: the next
	// Load re-reads and sees the new roster.
	faces, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, faces, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}

func TestRefreshReloads(t *testing.T) {
	src := &fakeSource{faces: []models.Face{{StudentID: "s1"}}}
	g := New(src)

	_, err := g.Load(context.Background())
	require.NoError(t, err)

	src.mu.Lock()
	src.faces = []models.Face{{StudentID: "s1"}, {StudentID: "s2"}}
	src.mu.Unlock()

	faces, err := g.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, faces, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}
