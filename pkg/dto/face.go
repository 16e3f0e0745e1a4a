package dto

type FaceResponse struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	ClassName string `json:"class_name,omitempty"`
	SubClass  string `json:"sub_class,omitempty"`
	Grade     string `json:"grade,omitempty"`
	SubGrade  string `json:"sub_grade,omitempty"`
	Program   string `json:"program,omitempty"`
	Role      string `json:"role,omitempty"`
	PhotoKey  string `json:"photo_key,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type FaceListResponse struct {
	Faces []FaceResponse `json:"faces"`
	Total int            `json:"total"`
}

// ImportRowResult is the per-row outcome of a bulk CSV import.
type ImportRowResult struct {
	StudentID string `json:"student_id"`
	Status    string `json:"status"` // registered, replaced, skipped, failed
	Error     string `json:"error,omitempty"`
}

type ImportResponse struct {
	Results    []ImportRowResult `json:"results"`
	Registered int               `json:"registered"`
	Replaced   int               `json:"replaced"`
	Failed     int               `json:"failed"`
}
