package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// memKV is an in-memory CooldownStore.
type memKV struct {
	mu sync.Mutex
	m  map[string]int64
}

func newMemKV() *memKV { return &memKV{m: make(map[string]int64)} }

func (s *memKV) LastCheckIn(_ context.Context, id string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[id]
	return v, ok, nil
}

func (s *memKV) SetLastCheckIn(_ context.Context, id string, millis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = millis
	return nil
}

func TestCooldownWindow(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Minute, newMemKV(), clock.Now)
	ctx := context.Background()

	ok, err := gate.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "no prior check-in")

	require.NoError(t, gate.RecordCheckIn(ctx, "alice"))

	ok, err = gate.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "immediately after check-in")

	clock.Advance(60_000 * time.Millisecond)
	ok, err = gate.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "exactly at the window boundary")

	clock.Advance(time.Millisecond) // 60,001 ms total
	ok, err = gate.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "past the window")
}

func TestTestIdentityAlwaysDenied(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Minute, nil, clock.Now)
	ctx := context.Background()

	for _, id := range []string{"test_user", "TEST123", "myTestAccount"} {
		ok, err := gate.CanCheckIn(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}

	clock.Advance(24 * time.Hour)
	ok, err := gate.CanCheckIn(ctx, "test_user")
	require.NoError(t, err)
	assert.False(t, ok, "elapsed time never unblocks test identities")
}

func TestCooldownSurvivesRestart(t *testing.T) {
	clock := newFakeClock()
	kv := newMemKV()
	ctx := context.Background()

	gate := NewGate(time.Minute, kv, clock.Now)
	require.NoError(t, gate.RecordCheckIn(ctx, "alice"))

	// A fresh gate (new process) with the same backing store.
	restarted := NewGate(time.Minute, kv, clock.Now)
	ok, err := restarted.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "durable cooldown must survive restart")

	clock.Advance(61 * time.Second)
	ok, err = restarted.CanCheckIn(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIndependentIdentities(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Minute, nil, clock.Now)
	ctx := context.Background()

	require.NoError(t, gate.RecordCheckIn(ctx, "alice"))

	ok, err := gate.CanCheckIn(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok, "alice's cooldown must not affect bob")
}

func TestLockIdentityReturnsSameMutex(t *testing.T) {
	gate := NewGate(time.Minute, nil, nil)
	assert.Same(t, gate.LockIdentity("alice"), gate.LockIdentity("alice"))
	assert.NotSame(t, gate.LockIdentity("alice"), gate.LockIdentity("bob"))
}
