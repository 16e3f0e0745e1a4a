// Package checkin implements check-in admission (cooldown gating) and
// recording for recognized identities.
package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// CooldownStore persists last-accepted check-in times so the cooldown
// survives process restarts. Keyed by student ID, epoch millis values.
type CooldownStore interface {
	LastCheckIn(ctx context.Context, studentID string) (millis int64, ok bool, err error)
	SetLastCheckIn(ctx context.Context, studentID string, millis int64) error
}

// Gate decides whether an identity may check in. An identity is warm
// (denied) while now-lastAccepted <= window, evaluated lazily on each
// query; there are no timers. Identities whose ID contains "test"
// (case-insensitive) are always denied so synthetic data never lands in
// attendance records.
//
// The in-process cache is the fast path; the CooldownStore is consulted
// only when memory has no entry (fresh process) and written on every
// accepted check-in.
type Gate struct {
	window time.Duration
	mem    *gocache.Cache
	store  CooldownStore // optional
	now    Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGate builds a Gate with the given cooldown window. store may be nil,
// in which case cooldown state is process-local only.
func NewGate(window time.Duration, store CooldownStore, now Clock) *Gate {
	if now == nil {
		now = time.Now
	}
	// Entries are only read within the window; the TTL is pure hygiene.
	return &Gate{
		window: window,
		mem:    gocache.New(2*window, 10*window),
		store:  store,
		now:    now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// LockIdentity returns the mutex serializing check→record for one
// identity. Callers hold it across CanCheckIn and RecordCheckIn so rapid
// repeated frames cannot double-insert.
func (g *Gate) LockIdentity(studentID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.locks[studentID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[studentID] = m
	}
	return m
}

// CanCheckIn reports whether the identity is outside its cooldown window.
// Test-tagged identities are permanently denied.
func (g *Gate) CanCheckIn(ctx context.Context, studentID string) (bool, error) {
	if isTestIdentity(studentID) {
		return false, nil
	}

	last, err := g.lastCheckIn(ctx, studentID)
	if err != nil {
		return false, err
	}

	return g.now().UnixMilli()-last > g.window.Milliseconds(), nil
}

// RecordCheckIn marks the identity warm as of now, in memory and in the
// durable store.
func (g *Gate) RecordCheckIn(ctx context.Context, studentID string) error {
	millis := g.now().UnixMilli()
	g.mem.Set(studentID, millis, gocache.DefaultExpiration)

	if g.store != nil {
		if err := g.store.SetLastCheckIn(ctx, studentID, millis); err != nil {
			return fmt.Errorf("persist cooldown for %s: %w", studentID, err)
		}
	}
	return nil
}

func (g *Gate) lastCheckIn(ctx context.Context, studentID string) (int64, error) {
	if v, ok := g.mem.Get(studentID); ok {
		return v.(int64), nil
	}

	if g.store == nil {
		return 0, nil
	}

	millis, ok, err := g.store.LastCheckIn(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("read cooldown for %s: %w", studentID, err)
	}
	if !ok {
		return 0, nil
	}

	g.mem.Set(studentID, millis, gocache.DefaultExpiration)
	return millis, nil
}

func isTestIdentity(studentID string) bool {
	return strings.Contains(strings.ToLower(studentID), "test")
}
