package dto

// WSEvent is a WebSocket message for real-time check-in delivery.
type WSEvent struct {
	Type      string  `json:"type"` // check_in
	DeviceID  string  `json:"device_id"`
	CheckInID int64   `json:"check_in_id"`
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"`
	Distance  float32 `json:"distance"`
}
