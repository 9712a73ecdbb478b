package models

import "time"

// Session represents an authenticated admin session. The issued token is
// returned to the caller once and never stored; TokenHash is the SHA-256
// digest used as the row key.
type Session struct {
	TokenHash    string    `json:"-"` // Never expose in JSON
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"` // captured at login, may go stale
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`
}

// Valid reports whether the session is honored at the given instant:
// not revoked and not past its absolute expiry.
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the response after successful login
type LoginResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
