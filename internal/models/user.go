package models

import "time"

// User roles as used by the legacy roster: admin, guru (teacher), siswa (student).
const (
	RoleAdmin = "admin"
	RoleGuru  = "guru"
	RoleSiswa = "siswa"
)

// ValidRole reports whether role is one of the known roster roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleGuru, RoleSiswa:
		return true
	}
	return false
}

type User struct {
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	PhoneID      string    `json:"phone_id,omitempty" db:"phone_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PhoneBinding ties a user account to a single device.
type PhoneBinding struct {
	Username string `json:"username" db:"username"`
	PhoneID  string `json:"phone_id" db:"phone_id"`
}
