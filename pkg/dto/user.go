package dto

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UserResponse struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	PhoneID   string `json:"phone_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// PhoneID identifies the device making the login. When the account
	// already has a binding, a different device is rejected.
	PhoneID string `json:"phone_id"`
}

type LoginResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type BindPhoneRequest struct {
	PhoneID string `json:"phone_id" binding:"required"`
}
