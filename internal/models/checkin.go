package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is one accepted attendance event. Synced flips to true after the
// event has been uploaded to the remote store; rows are never deleted here.
type CheckIn struct {
	ID        int64     `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Name      string    `json:"name" db:"name"`
	Timestamp int64     `json:"timestamp" db:"timestamp"` // epoch millis
	Synced    bool      `json:"synced" db:"synced"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FrameTask is the message published to NATS for worker processing.
type FrameTask struct {
	FrameID   uuid.UUID `json:"frame_id"`
	DeviceID  string    `json:"device_id"`
	Timestamp int64     `json:"timestamp"` // epoch millis, capture time
	FrameRef  string    `json:"frame_ref"` // MinIO object key
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// CheckInEvent is published after an accepted check-in for live consumers.
type CheckInEvent struct {
	CheckInID int64   `json:"checkin_id"`
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"`
	Distance  float32 `json:"distance"`
	DeviceID  string  `json:"device_id,omitempty"`
}
