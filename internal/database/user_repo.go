package database

import (
	"database/sql"
	"errors"
	"time"

	"admindeck-backend/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepo handles user directory database operations
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(d *Database) *UserRepo {
	return &UserRepo{db: d.db}
}

// Create creates a new user
func (r *UserRepo) Create(user *models.User) error {
	result, err := r.db.Exec(`
		INSERT INTO users (username, display_name, email, password_hash, role, disabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.Username, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.Disabled)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(id int64) (*models.User, error) {
	return r.getOne("SELECT id, username, display_name, email, password_hash, role, disabled, created_at, updated_at, last_login FROM users WHERE id = ?", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepo) GetByUsername(username string) (*models.User, error) {
	return r.getOne("SELECT id, username, display_name, email, password_hash, role, disabled, created_at, updated_at, last_login FROM users WHERE username = ?", username)
}

func (r *UserRepo) getOne(query string, arg any) (*models.User, error) {
	user := &models.User{}
	var email, passwordHash sql.NullString
	var lastLogin sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Username, &user.DisplayName, &email, &passwordHash,
		&user.Role, &user.Disabled, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if email.Valid {
		user.Email = email.String
	}
	if passwordHash.Valid {
		user.PasswordHash = passwordHash.String
	}
	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	}

	return user, nil
}

// Count returns the total number of users
func (r *UserRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// UpdateLastLogin records a successful login time
func (r *UserRepo) UpdateLastLogin(id int64) error {
	_, err := r.db.Exec("UPDATE users SET last_login = ? WHERE id = ?", time.Now(), id)
	return err
}

// SetDisabled enables or disables an account
func (r *UserRepo) SetDisabled(id int64, disabled bool) error {
	result, err := r.db.Exec("UPDATE users SET disabled = ?, updated_at = ? WHERE id = ?", disabled, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
