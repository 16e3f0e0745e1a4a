// Package gallery holds the in-memory copy of all registered face
// embeddings so that per-frame matching never touches the database.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/observability"
)

// Source is the persistent backing store for registered faces.
type Source interface {
	ListFaces(ctx context.Context) ([]models.Face, error)
}

// Gallery lazily loads and caches the full face roster. The first Load
// populates the cache from the Source; concurrent first callers share a
// single in-flight database read. Mutation is a coarse invalidate-and-reload
// (Refresh), expected only after registration changes.
//
// The generation counter makes Clear effective against an in-flight load:
// the load only commits its result if no Clear happened since it started,
// and post-Clear Loads run under a fresh single-flight key instead of
// joining the stale read.
type Gallery struct {
	src Source

	mu     sync.RWMutex
	faces  []models.Face
	loaded bool
	gen    uint64

	group singleflight.Group
}

func New(src Source) *Gallery {
	return &Gallery{src: src}
}

// Load returns the cached roster, populating it from the source on first
// call. On a storage error nothing is cached and the error is returned;
// callers never observe a partial list.
func (g *Gallery) Load(ctx context.Context) ([]models.Face, error) {
	g.mu.RLock()
	if g.loaded {
		faces := g.faces
		g.mu.RUnlock()
		return faces, nil
	}
	gen := g.gen
	g.mu.RUnlock()

	v, err, _ := g.group.Do(fmt.Sprintf("load-%d", gen), func() (interface{}, error) {
		// Another caller may have finished the load while we waited.
		g.mu.RLock()
		if g.loaded {
			faces := g.faces
			g.mu.RUnlock()
			return faces, nil
		}
		g.mu.RUnlock()

		faces, err := g.src.ListFaces(ctx)
		if err != nil {
			return nil, fmt.Errorf("load gallery: %w", err)
		}

		g.mu.Lock()
		// A Clear during the read invalidates this result; the next Load
		// re-reads under the new generation.
		if g.gen == gen {
			g.faces = faces
			g.loaded = true
			observability.GallerySize.Set(float64(len(faces)))
			slog.Info("gallery loaded", "faces", len(faces))
		}
		g.mu.Unlock()

		return faces, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Face), nil
}

// Refresh clears the cache and reloads from the source. Use after bulk
// registration or deletions.
func (g *Gallery) Refresh(ctx context.Context) ([]models.Face, error) {
	g.Clear()
	return g.Load(ctx)
}

// Clear drops the cached roster; the next Load repopulates it. Also
// invalidates any load still in flight.
func (g *Gallery) Clear() {
	g.mu.Lock()
	n := len(g.faces)
	g.faces = nil
	g.loaded = false
	g.gen++
	g.mu.Unlock()
	slog.Debug("gallery cleared", "had", n)
}

// Size returns the number of cached identities (0 when not loaded).
func (g *Gallery) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.faces)
}
