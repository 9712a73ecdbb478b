package models

import "time"

// AuditEvent represents a record of an authentication action
type AuditEvent struct {
	ID        string    `json:"id"` // uuid
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// Common audit actions
const (
	ActionLogin        = "auth.login"
	ActionLoginFailed  = "auth.login_failed"
	ActionLogout       = "auth.logout"
	ActionSessionSweep = "auth.session_sweep"
	ActionUserDisabled = "user.set_disabled"
)

// AuditFilter narrows audit event listings
type AuditFilter struct {
	Action    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}
