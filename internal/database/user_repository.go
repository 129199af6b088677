package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(name, email, passwordHash, role string, supervisorID uuid.NullUUID) (*models.User, error) {
	validRoles := map[string]bool{
		models.RoleAdministrador:    true,
		models.RoleSupervisor:       true,
		models.RoleUsuario:          true,
		models.RoleTelemercaderista: true,
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		SupervisorID: supervisorID,
		Permissions:  pq.StringArray{},
		Status:       models.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO users (
			id, name, email, password_hash, role, supervisor_id,
			permissions, status, failed_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
	`

	_, err := r.db.Exec(
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.SupervisorID,
		pq.Array(user.Permissions),
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by id
func (r *UserRepository) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(&user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email. Returns nil without error when no
// user exists, so callers can distinguish "unknown account" from a failure.
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.Get(&user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// ListUsers returns all users ordered by name
func (r *UserRepository) ListUsers() ([]models.User, error) {
	var users []models.User
	query := `SELECT * FROM users ORDER BY name`

	if err := r.db.Select(&users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// ListSellersBySupervisor returns the sellers assigned to a supervisor
func (r *UserRepository) ListSellersBySupervisor(supervisorID uuid.UUID) ([]models.User, error) {
	var users []models.User
	query := `SELECT * FROM users WHERE supervisor_id = $1 ORDER BY name`

	if err := r.db.Select(&users, query, supervisorID); err != nil {
		return nil, fmt.Errorf("failed to list sellers for supervisor: %w", err)
	}

	return users, nil
}

// UpdateUser updates mutable profile fields
func (r *UserRepository) UpdateUser(user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, role = $4, supervisor_id = $5,
		    permissions = $6, status = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.SupervisorID,
		pq.Array(user.Permissions),
		user.Status,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}

	return nil
}

// SetPassword replaces the stored password hash (admin privileged operation)
func (r *UserRepository) SetPassword(id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(query, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}

	return nil
}

// IncrementFailedAttempts bumps the failed-login counter and deactivates the
// account once the counter reaches the limit. Returns the new counter value.
func (r *UserRepository) IncrementFailedAttempts(id uuid.UUID, maxFailed int) (int, error) {
	query := `
		UPDATE users
		SET failed_attempts = failed_attempts + 1,
		    status = CASE WHEN failed_attempts + 1 >= $2 THEN 'inactivo' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_attempts
	`

	var attempts int
	if err := r.db.Get(&attempts, query, id, maxFailed); err != nil {
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}

	return attempts, nil
}

// ResetFailedAttempts clears the counter after a successful login
func (r *UserRepository) ResetFailedAttempts(id uuid.UUID) error {
	query := `UPDATE users SET failed_attempts = 0, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}

	return nil
}

// UnlockUser resets the counter and reactivates the account (admin only)
func (r *UserRepository) UnlockUser(id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_attempts = 0, status = 'activo', updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to unlock user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}

	return nil
}

// UpdateLastLogin stamps the last successful login time
func (r *UserRepository) UpdateLastLogin(id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
