package database

import (
	"fmt"

	"github.com/distrifarma/rutero-backend/internal/models"
)

// LoginAuditRepository persists the authentication attempt trail
type LoginAuditRepository struct {
	db DB
}

// NewLoginAuditRepository creates a new login audit repository
func NewLoginAuditRepository(db DB) *LoginAuditRepository {
	return &LoginAuditRepository{
		db: db,
	}
}

// RecordAttempt stores one login attempt
func (r *LoginAuditRepository) RecordAttempt(audit *models.LoginAudit) error {
	query := `
		INSERT INTO login_audit (email, user_id, success, ip_address, browser, os, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(
		query,
		audit.Email,
		audit.UserID,
		audit.Success,
		audit.IPAddress,
		audit.Browser,
		audit.OS,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

// RecentFailures counts failed attempts for an email within the trail
// (reporting aid for administrators reviewing lockouts)
func (r *LoginAuditRepository) RecentFailures(email string, limit int) ([]models.LoginAudit, error) {
	var attempts []models.LoginAudit
	query := `
		SELECT * FROM login_audit
		WHERE email = $1 AND success = false
		ORDER BY created_at DESC
		LIMIT $2
	`

	if err := r.db.Select(&attempts, query, email, limit); err != nil {
		return nil, fmt.Errorf("failed to list login failures: %w", err)
	}

	return attempts, nil
}
