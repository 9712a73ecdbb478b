package auth

import (
	"errors"
	"fmt"

	"admindeck-backend/internal/database"
	"admindeck-backend/internal/models"
)

var (
	// ErrInvalidCredentials means the username/password pair did not match.
	// Callers usually collapse this to a generic rejection.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled means the credentials matched a disabled account.
	// Unlike a credential mismatch this must stay distinguishable all the
	// way up, so the UI can say "contact an administrator" rather than
	// "try again".
	ErrAccountDisabled = errors.New("user account is disabled")
)

// Directory is the user-directory collaborator: the one place that knows how
// credentials are stored and verified. The session layer depends only on
// this contract.
//
// VerifyPassword returns the matching user, ErrInvalidCredentials, or
// ErrAccountDisabled; any other error is a directory/storage failure.
// FindUserByID returns (nil, nil) when no user has that id.
type Directory interface {
	VerifyPassword(username, password string) (*models.User, error)
	FindUserByID(id int64) (*models.User, error)
}

// LocalDirectory verifies credentials against the local users table.
type LocalDirectory struct {
	users *database.UserRepo
}

// NewLocalDirectory creates a directory backed by the local user repository.
func NewLocalDirectory(users *database.UserRepo) *LocalDirectory {
	return &LocalDirectory{users: users}
}

// VerifyPassword checks the password against the stored bcrypt hash.
func (d *LocalDirectory) VerifyPassword(username, password string) (*models.User, error) {
	user, err := d.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

// FindUserByID resolves a user id to the full directory record.
func (d *LocalDirectory) FindUserByID(id int64) (*models.User, error) {
	user, err := d.users.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return user, nil
}
