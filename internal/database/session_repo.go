package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"admindeck-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepo persists sessions in the sessions table. Tokens are hashed
// before they touch the database; the session_id column holds the digest.
//
// All validity checks compare against the repo's clock so every caller in
// the process shares one "now" reference.
type SessionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(d *Database) *SessionRepo {
	return &SessionRepo{db: d.db, now: time.Now}
}

// Insert creates a new session row for the given plain token.
// A duplicate token is a constraint violation and surfaces as an error.
func (r *SessionRepo) Insert(token string, s *models.Session) error {
	s.TokenHash = hashToken(token)
	_, err := r.db.Exec(`
		INSERT INTO sessions (session_id, user_id, admin_username, ip_address, user_agent, expires_at, is_active, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.TokenHash, s.UserID, s.Username, s.IPAddress, s.UserAgent, s.ExpiresAt, s.IsActive, s.LastActivity, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindValid retrieves the session for the given plain token if it is still
// honored: active and not past its expiry at lookup time. Revoked or expired
// rows report ErrSessionNotFound; any other failure is a storage error.
func (r *SessionRepo) FindValid(token string) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRow(`
		SELECT session_id, user_id, admin_username, ip_address, user_agent, expires_at, is_active, last_activity, created_at
		FROM sessions WHERE session_id = ? AND is_active = 1 AND expires_at > ?
	`, hashToken(token), r.now()).Scan(
		&s.TokenHash, &s.UserID, &s.Username, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.IsActive, &s.LastActivity, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return s, nil
}

// TouchActivity updates last_activity for the session if it still matches the
// validity criteria. A row that no longer matches is a no-op, not an error:
// the touch is advisory and last-writer-wins.
func (r *SessionRepo) TouchActivity(token string) error {
	now := r.now()
	_, err := r.db.Exec(`
		UPDATE sessions SET last_activity = ? WHERE session_id = ? AND is_active = 1 AND expires_at > ?
	`, now, hashToken(token), now)
	if err != nil {
		return fmt.Errorf("touch session activity: %w", err)
	}
	return nil
}

// Revoke marks the session inactive. The row is retained until the next
// sweep. Revoking an already-revoked or unknown token is not an error.
func (r *SessionRepo) Revoke(token string) error {
	_, err := r.db.Exec("UPDATE sessions SET is_active = 0 WHERE session_id = ?", hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeExpired hard-deletes every session past its expiry, active flag
// notwithstanding, and returns the number of rows removed.
func (r *SessionRepo) PurgeExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", r.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// hashToken creates a SHA-256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
