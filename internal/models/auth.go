package models

// LoginRequest is posted to /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest is posted to /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned by the login and signup endpoints. Every field is optional.
type AuthResponse struct {
	Token    string `json:"token,omitempty"`
	Type     string `json:"type,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Message  string `json:"message,omitempty"`
}

// User builds the session identity from the response. Without a username there
// is no identity; a missing role defaults to STUDENT.
func (r AuthResponse) User() *SessionUser {
	if r.Username == "" {
		return nil
	}
	role := r.Role
	if role == "" {
		role = RoleStudent
	}
	return &SessionUser{Username: r.Username, Email: r.Email, Role: role}
}
