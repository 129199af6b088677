package services

import (
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// newTestDB wraps a sqlmock connection in the sqlx-backed PostgresDB so the
// real repositories run against it unchanged.
func newTestDB(t *testing.T) (*database.PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func userColumns() []string {
	return []string{
		"id", "name", "email", "password_hash", "role", "supervisor_id",
		"permissions", "status", "failed_attempts", "last_login_at",
		"created_at", "updated_at",
	}
}

func userRowValues(u *models.User) []driver.Value {
	return []driver.Value{
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, nil,
		[]byte(`{}`), u.Status, u.FailedAttempts, nil,
		time.Now(), time.Now(),
	}
}

func routeColumns() []string {
	return []string{
		"id", "name", "route_date", "creator_id", "supervisor_id", "status",
		"origin", "observation", "version", "created_at", "updated_at",
	}
}

func routeRowValues(r *models.Route) []driver.Value {
	return []driver.Value{
		r.ID, r.Name, r.RouteDate, r.CreatorID, r.SupervisorID, r.Status,
		r.Origin, nil, r.Version, time.Now(), time.Now(),
	}
}

func entryColumns() []string {
	return []string{
		"id", "route_id", "ruc", "client_name", "assigned_date", "position",
		"status", "visit_status", "origin", "check_in_at", "check_in_lat",
		"check_in_lng", "check_out_at", "check_out_lat", "check_out_lng",
		"visit_type", "visit_note", "sale_value", "collection_value",
		"returns_value", "promotions_value", "removal_observation",
		"check_in_op_id", "check_out_op_id", "created_at", "updated_at",
	}
}

func entryRowValues(e *models.RouteClient) []driver.Value {
	var checkInAt, checkOutAt, visitType, removalObs, checkInOpID, checkOutOpID driver.Value
	if e.CheckInAt.Valid {
		checkInAt = e.CheckInAt.Time
	}
	if e.CheckOutAt.Valid {
		checkOutAt = e.CheckOutAt.Time
	}
	if e.VisitType.Valid {
		visitType = e.VisitType.String
	}
	if e.RemovalObservation.Valid {
		removalObs = e.RemovalObservation.String
	}
	if e.CheckInOpID.Valid {
		checkInOpID = e.CheckInOpID.UUID.String()
	}
	if e.CheckOutOpID.Valid {
		checkOutOpID = e.CheckOutOpID.UUID.String()
	}

	return []driver.Value{
		e.ID, e.RouteID, e.RUC, e.ClientName, e.AssignedDate, e.Position,
		e.Status, e.VisitStatus, e.Origin, checkInAt, nil,
		nil, checkOutAt, nil, nil,
		visitType, nil, "0", "0",
		"0", "0", removalObs,
		checkInOpID, checkOutOpID, time.Now(), time.Now(),
	}
}
