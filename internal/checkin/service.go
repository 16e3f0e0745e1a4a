package checkin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/azuratime/internal/gallery"
	"github.com/your-org/azuratime/internal/match"
	"github.com/your-org/azuratime/internal/models"
	"github.com/your-org/azuratime/internal/observability"
)

// Status is the outcome of processing one probe. Rejections are expected
// states, not errors.
type Status int

const (
	// StatusCheckedIn: matched, admitted, and recorded.
	StatusCheckedIn Status = iota
	// StatusAlreadyCheckedIn: matched but within the cooldown window
	// (or a test-tagged identity).
	StatusAlreadyCheckedIn
	// StatusUnrecognized: no gallery entry under the match threshold.
	StatusUnrecognized
)

func (s Status) String() string {
	switch s {
	case StatusCheckedIn:
		return "checked_in"
	case StatusAlreadyCheckedIn:
		return "already_checked_in"
	case StatusUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Outcome carries the result of one probe or manual check-in.
type Outcome struct {
	Status    Status
	StudentID string
	Name      string
	Distance  float32
	CheckInID int64
}

// EventStore persists accepted check-in events.
type EventStore interface {
	InsertCheckIn(ctx context.Context, c *models.CheckIn) error
}

// SyncNotifier nudges the sync worker after a new pending event.
// Best-effort: failures are logged, never block a check-in.
type SyncNotifier interface {
	TriggerSync(ctx context.Context) error
}

// Service runs the full admission flow: match probe against the gallery,
// gate on cooldown, record the event, nudge sync.
type Service struct {
	gallery   *gallery.Gallery
	gate      *Gate
	store     EventStore
	notifier  SyncNotifier // optional
	threshold float32
	now       Clock
}

func NewService(g *gallery.Gallery, gate *Gate, store EventStore, notifier SyncNotifier, threshold float32, now Clock) *Service {
	if now == nil {
		now = gate.now
	}
	return &Service{
		gallery:   g,
		gate:      gate,
		store:     store,
		notifier:  notifier,
		threshold: threshold,
		now:       now,
	}
}

// Process matches a probe embedding against the gallery and, on an
// admitted match, records the check-in. Unmatched probes and cooldown
// blocks come back as Outcome statuses; only infrastructure failures
// return an error.
func (s *Service) Process(ctx context.Context, probe []float32) (Outcome, error) {
	faces, err := s.gallery.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load gallery: %w", err)
	}

	m, ok, err := match.Best(probe, faces, s.threshold)
	if err != nil {
		return Outcome{}, fmt.Errorf("match probe: %w", err)
	}
	if !ok {
		observability.FacesUnrecognized.Inc()
		return Outcome{Status: StatusUnrecognized}, nil
	}

	out, err := s.CheckInIdentity(ctx, m.StudentID, m.Name)
	if err != nil {
		return Outcome{}, err
	}
	out.Distance = m.Distance
	return out, nil
}

// CheckInIdentity runs admission and recording for an already-identified
// student. The per-identity lock makes check→record atomic with respect
// to concurrent frames of the same person.
func (s *Service) CheckInIdentity(ctx context.Context, studentID, name string) (Outcome, error) {
	lock := s.gate.LockIdentity(studentID)
	lock.Lock()
	defer lock.Unlock()

	allowed, err := s.gate.CanCheckIn(ctx, studentID)
	if err != nil {
		return Outcome{}, fmt.Errorf("cooldown check: %w", err)
	}
	if !allowed {
		reason := "cooldown"
		if isTestIdentity(studentID) {
			reason = "test_identity"
		}
		observability.CheckInsBlocked.WithLabelValues(reason).Inc()
		return Outcome{Status: StatusAlreadyCheckedIn, StudentID: studentID, Name: name}, nil
	}

	event := &models.CheckIn{
		StudentID: studentID,
		Name:      name,
		Timestamp: s.now().UnixMilli(),
		Synced:    false,
	}
	if err := s.store.InsertCheckIn(ctx, event); err != nil {
		return Outcome{}, fmt.Errorf("record check-in: %w", err)
	}

	if err := s.gate.RecordCheckIn(ctx, studentID); err != nil {
		// The event is already durable; a failed cooldown write only
		// risks an extra accept after restart.
		slog.Warn("record cooldown", "student_id", studentID, "error", err)
	}

	if s.notifier != nil {
		if err := s.notifier.TriggerSync(ctx); err != nil {
			slog.Warn("trigger sync", "error", err)
		}
	}

	observability.CheckInsAccepted.Inc()
	slog.Info("check-in accepted", "student_id", studentID, "name", name)

	return Outcome{
		Status:    StatusCheckedIn,
		StudentID: studentID,
		Name:      name,
		CheckInID: event.ID,
	}, nil
}
