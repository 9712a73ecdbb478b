package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"admindeck-backend/internal/models"
)

// AuditRepo records the authentication trail: logins, failures, logouts,
// revocations and sweeps.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(d *Database) *AuditRepo {
	return &AuditRepo{db: d.db}
}

// Record writes an audit event with the current timestamp and a fresh id.
func (r *AuditRepo) Record(userID int64, username, action, detail, ipAddress string) error {
	event := &models.AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		UserID:    userID,
		Username:  username,
		Action:    action,
		Detail:    detail,
		IPAddress: ipAddress,
	}
	return r.Create(event)
}

// Create writes a fully populated audit event.
func (r *AuditRepo) Create(event *models.AuditEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_events (id, timestamp, user_id, username, action, detail, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.Timestamp, event.UserID, event.Username, event.Action, event.Detail, event.IPAddress)
	return err
}

// List retrieves audit events, newest first, with optional filters
func (r *AuditRepo) List(filter models.AuditFilter) ([]*models.AuditEvent, error) {
	query := "SELECT id, timestamp, user_id, username, action, detail, ip_address FROM audit_events WHERE 1=1"
	args := []any{}

	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, filter.Action)
	}
	if !filter.StartTime.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event := &models.AuditEvent{}
		var userID sql.NullInt64
		var username, detail, ipAddress sql.NullString

		err := rows.Scan(&event.ID, &event.Timestamp, &userID, &username, &event.Action, &detail, &ipAddress)
		if err != nil {
			return nil, err
		}

		if userID.Valid {
			event.UserID = userID.Int64
		}
		if username.Valid {
			event.Username = username.String
		}
		if detail.Valid {
			event.Detail = detail.String
		}
		if ipAddress.Valid {
			event.IPAddress = ipAddress.String
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// DeleteOlderThan deletes audit events older than the given time
func (r *AuditRepo) DeleteOlderThan(t time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM audit_events WHERE timestamp < ?", t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
