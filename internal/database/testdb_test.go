package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// newTestDB wraps a sqlmock connection in the sqlx-backed PostgresDB so
// repositories run against it unchanged.
func newTestDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresDB{sqlx.NewDb(db, "sqlmock")}, mock
}

func userColumns() []string {
	return []string{
		"id", "name", "email", "password_hash", "role", "supervisor_id",
		"permissions", "status", "failed_attempts", "last_login_at",
		"created_at", "updated_at",
	}
}

func routeColumns() []string {
	return []string{
		"id", "name", "route_date", "creator_id", "supervisor_id", "status",
		"origin", "observation", "version", "created_at", "updated_at",
	}
}

func routeClientColumns() []string {
	return []string{
		"id", "route_id", "ruc", "client_name", "assigned_date", "position",
		"status", "visit_status", "origin", "check_in_at", "check_in_lat",
		"check_in_lng", "check_out_at", "check_out_lat", "check_out_lng",
		"visit_type", "visit_note", "sale_value", "collection_value",
		"returns_value", "promotions_value", "removal_observation",
		"check_in_op_id", "check_out_op_id", "created_at", "updated_at",
	}
}
