// Package sync uploads pending check-in events to the remote attendance
// store, best-effort with all-or-nothing batch marking.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/observability"
)

// EventStore reads and flips the synced flag on local check-in events.
type EventStore interface {
	ListUnsynced(ctx context.Context) ([]models.CheckIn, error)
	MarkSynced(ctx context.Context, ids []int64) error
}

// Remote accepts a batch of check-in records. The write must be
// all-or-nothing from the caller's point of view: an error means no
// record may be assumed stored.
type Remote interface {
	WriteBatch(ctx context.Context, records []RemoteCheckIn) error
}

// ThrottleStore persists the last sync attempt time across restarts.
type ThrottleStore interface {
	LastSyncAttempt(ctx context.Context) (millis int64, err error)
	SetLastSyncAttempt(ctx context.Context, millis int64) error
}

// RemoteCheckIn is the wire shape of one uploaded event. The remote side
// assigns its own document IDs; no idempotency key is sent, so a retry
// after a partial server-side commit can duplicate remote records.
type RemoteCheckIn struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	SyncedAt  int64  `json:"syncedAt"`
}

type Clock func() time.Time

// Syncer drains pending events. It holds no retry state of its own:
// SyncPending reports failure and the hosting loop re-attempts with
// backoff.
type Syncer struct {
	store    EventStore
	remote   Remote
	throttle ThrottleStore
	window   time.Duration
	now      Clock
}

func NewSyncer(store EventStore, remote Remote, throttle ThrottleStore, window time.Duration, now Clock) *Syncer {
	if now == nil {
		now = time.Now
	}
	return &Syncer{
		store:    store,
		remote:   remote,
		throttle: throttle,
		window:   window,
		now:      now,
	}
}

// SyncPending uploads all unsynced events in one batch and marks them
// synced on success. Self-throttles: a no-op when the previous attempt
// was less than the throttle window ago. Events for test-tagged
// identities are never uploaded and stay pending locally. Returns the
// number of events marked synced; a non-nil error means retry.
func (s *Syncer) SyncPending(ctx context.Context) (int, error) {
	nowMillis := s.now().UnixMilli()

	last, err := s.throttle.LastSyncAttempt(ctx)
	if err != nil {
		return 0, fmt.Errorf("read last sync attempt: %w", err)
	}
	if nowMillis-last < s.window.Milliseconds() {
		slog.Debug("sync throttled", "since_last_ms", nowMillis-last)
		observability.SyncBatches.WithLabelValues("throttled").Inc()
		return 0, nil
	}

	if err := s.throttle.SetLastSyncAttempt(ctx, nowMillis); err != nil {
		return 0, fmt.Errorf("record sync attempt: %w", err)
	}

	pending, err := s.store.ListUnsynced(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unsynced: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	records := make([]RemoteCheckIn, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, c := range pending {
		if isTestIdentity(c.StudentID) {
			continue
		}
		records = append(records, RemoteCheckIn{
			StudentID: c.StudentID,
			Name:      c.Name,
			Timestamp: c.Timestamp,
			SyncedAt:  nowMillis,
		})
		ids = append(ids, c.ID)
	}
	if len(records) == 0 {
		slog.Debug("only test events pending, nothing to upload", "pending", len(pending))
		return 0, nil
	}

	if err := s.remote.WriteBatch(ctx, records); err != nil {
		observability.SyncBatches.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("write batch of %d: %w", len(records), err)
	}

	if err := s.store.MarkSynced(ctx, ids); err != nil {
		// Uploaded but not marked: the next run re-uploads, which the
		// remote cannot deduplicate. Documented limitation.
		observability.SyncBatches.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("mark synced: %w", err)
	}

	observability.SyncBatches.WithLabelValues("ok").Inc()
	observability.SyncedCheckIns.Add(float64(len(ids)))
	slog.Info("sync batch uploaded", "events", len(ids))
	return len(ids), nil
}

// Run drives SyncPending on a ticker and on nudges until ctx is done.
// Failed attempts are retried with doubling backoff, capped at the
// interval; the retry budget lives here, not in SyncPending.
func (s *Syncer) Run(ctx context.Context, interval time.Duration, nudges <-chan struct{}) {
	backoff := time.Duration(0)
	timer := time.NewTimer(0) // fire immediately on start
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-nudges:
		case <-timer.C:
		}

		if _, err := s.SyncPending(ctx); err != nil {
			if backoff == 0 {
				backoff = 5 * time.Second
			} else {
				backoff *= 2
			}
			if backoff > interval {
				backoff = interval
			}
			slog.Warn("sync failed, will retry", "error", err, "backoff", backoff.String())
			timer.Reset(backoff)
			continue
		}

		backoff = 0
		timer.Reset(interval)
	}
}
