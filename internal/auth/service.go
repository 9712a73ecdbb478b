package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"admindeck-backend/internal/database"
	"admindeck-backend/internal/logging"
	"admindeck-backend/internal/models"
)

// DefaultSessionTTL is the fixed lifetime of an issued session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionStore is the persistence contract for session records.
//
// FindValid reports database.ErrSessionNotFound for missing, revoked and
// expired rows alike; any other error is a storage failure and must not be
// read as "invalid session". TouchActivity and Revoke are idempotent.
// PurgeExpired returns the number of rows actually removed.
type SessionStore interface {
	Insert(token string, s *models.Session) error
	FindValid(token string) (*models.Session, error)
	TouchActivity(token string) error
	Revoke(token string) error
	PurgeExpired() (int64, error)
}

// Service orchestrates credential validation and the session lifecycle:
// issue, resolve, liveness-check, revoke, sweep.
type Service struct {
	store SessionStore
	dir   Directory
	log   logging.Logger
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a session manager on top of the given store and user
// directory. A non-positive ttl falls back to DefaultSessionTTL.
func NewService(store SessionStore, dir Directory, log logging.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = logging.Discard{}
	}
	return &Service{store: store, dir: dir, log: log, ttl: ttl, now: time.Now}
}

// ValidateCredentials checks a username/password pair against the directory.
// A disabled account surfaces as ErrAccountDisabled; every other validator
// failure, credential mismatch included, collapses to (nil, nil) so the
// caller cannot tell which part of the pair was wrong.
func (s *Service) ValidateCredentials(username, password string) (*models.User, error) {
	user, err := s.dir.VerifyPassword(username, password)
	if err != nil {
		if errors.Is(err, ErrAccountDisabled) {
			return nil, err
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			s.log.Error("credential validation for %q: %v", username, err)
		}
		return nil, nil
	}
	return user, nil
}

// CreateSession issues a fresh session for an already-authenticated user and
// returns the plain token. The token leaves this method exactly once; the
// caller owns its transport (cookie, header).
func (s *Service) CreateSession(userID int64, username, ipAddress, userAgent string) (string, *models.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		UserID:       userID,
		Username:     username,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
		IsActive:     true,
	}

	if err := s.store.Insert(token, session); err != nil {
		return "", nil, err
	}
	return token, session, nil
}

// Login validates credentials and, on success, issues a session. This is the
// composition handlers call: ValidateCredentials followed by CreateSession.
func (s *Service) Login(req models.LoginRequest, ipAddress, userAgent string) (*models.LoginResponse, error) {
	user, err := s.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	token, session, err := s.CreateSession(user.ID, user.Username, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// GetUserFromSession resolves a session token to the full directory record of
// its user. Missing, revoked or expired sessions yield (nil, nil), as does a
// user that no longer resolves (deleted or disabled since login). Storage
// failures propagate.
func (s *Service) GetUserFromSession(token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.store.FindValid(token)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	user, err := s.dir.FindUserByID(session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Disabled {
		return nil, nil
	}
	return user, nil
}

// ValidateSession reports whether the token names a currently valid session
// and, on a positive match, refreshes its activity timestamp. The touch is
// best-effort: its failure is logged, never surfaced, and never turns a
// valid session into an invalid one.
func (s *Service) ValidateSession(token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	_, err := s.store.FindValid(token)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.store.TouchActivity(token); err != nil {
		s.log.Error("session activity touch: %v", err)
	}
	return true, nil
}

// DestroySession revokes the session. Revocation is idempotent: unknown and
// already-revoked tokens still report success. False means the input was
// empty, not that the session was missing.
func (s *Service) DestroySession(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if err := s.store.Revoke(token); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupExpiredSessions removes every session past its expiry, revoked or
// not, and returns the number of records removed.
func (s *Service) CleanupExpiredSessions() (int64, error) {
	return s.store.PurgeExpired()
}

// newSessionToken generates a 256-bit random token, hex-encoded.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
