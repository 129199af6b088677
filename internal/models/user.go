package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// NullFloat wraps sql.NullFloat64 to provide proper JSON marshaling
type NullFloat struct {
	sql.NullFloat64
}

// MarshalJSON implements json.Marshaler
func (nf NullFloat) MarshalJSON() ([]byte, error) {
	if nf.Valid {
		return json.Marshal(nf.Float64)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nf *NullFloat) UnmarshalJSON(data []byte) error {
	var f *float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f != nil {
		nf.Valid = true
		nf.Float64 = *f
	} else {
		nf.Valid = false
	}
	return nil
}

// User roles
const (
	RoleAdministrador    = "Administrador"
	RoleSupervisor       = "Supervisor"
	RoleUsuario          = "Usuario" // field seller
	RoleTelemercaderista = "Telemercaderista"
)

// User account statuses
const (
	UserStatusActive   = "activo"
	UserStatusInactive = "inactivo"
)

// User represents an application user (seller, supervisor, admin or telemarketer)
type User struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Email          string         `json:"email" db:"email"`
	PasswordHash   string         `json:"-" db:"password_hash"`
	Role           string         `json:"role" db:"role"`
	SupervisorID   uuid.NullUUID  `json:"supervisor_id,omitempty" db:"supervisor_id"`
	Permissions    pq.StringArray `json:"permissions" db:"permissions"`
	Status         string         `json:"status" db:"status"`
	FailedAttempts int            `json:"failed_attempts" db:"failed_attempts"`
	LastLoginAt    NullTime       `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// HasPermission checks the role plus per-user permission overrides
func (u *User) HasPermission(perm string) bool {
	if u.Role == RoleAdministrador {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// LoginAudit records one authentication attempt
type LoginAudit struct {
	ID        int64         `json:"id" db:"id"`
	Email     string        `json:"email" db:"email"`
	UserID    uuid.NullUUID `json:"user_id,omitempty" db:"user_id"`
	Success   bool          `json:"success" db:"success"`
	IPAddress NullString    `json:"ip_address,omitempty" db:"ip_address"`
	Browser   NullString    `json:"browser,omitempty" db:"browser"`
	OS        NullString    `json:"os,omitempty" db:"os"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
