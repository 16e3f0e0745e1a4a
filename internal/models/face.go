package models

import "time"

// Face is one registered identity with its reference embedding.
// Re-registration replaces the embedding in place.
type Face struct {
	StudentID string    `json:"student_id" db:"student_id"`
	Name      string    `json:"name" db:"name"`
	Embedding []float32 `json:"-" db:"embedding"`
	PhotoKey  string    `json:"photo_key,omitempty" db:"photo_key"`
	ClassName string    `json:"class_name,omitempty" db:"class_name"`
	SubClass  string    `json:"sub_class,omitempty" db:"sub_class"`
	Grade     string    `json:"grade,omitempty" db:"grade"`
	SubGrade  string    `json:"sub_grade,omitempty" db:"sub_grade"`
	Program   string    `json:"program,omitempty" db:"program"`
	Role      string    `json:"role,omitempty" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
