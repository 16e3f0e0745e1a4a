package dto

type CheckInResponse struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	Synced    bool   `json:"synced"`
}

type CheckInListResponse struct {
	CheckIns []CheckInResponse `json:"check_ins"`
	Total    int               `json:"total"`
}

type CheckInQuery struct {
	StudentID string `form:"student_id"`
	From      string `form:"from"`
	To        string `form:"to"`
	Pending   *bool  `form:"pending"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// ManualCheckInRequest records a check-in for an already-known student,
// bypassing face recognition (operator desk flow).
type ManualCheckInRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

type CheckInOutcomeResponse struct {
	Status    string  `json:"status"` // checked_in, already_checked_in, unrecognized
	StudentID string  `json:"student_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Distance  float32 `json:"distance,omitempty"`
	CheckInID int64   `json:"check_in_id,omitempty"`
}
