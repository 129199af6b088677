package handlers

import (
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/gin-gonic/gin"
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

// asUser injects an authenticated user context the way AuthMiddleware does,
// so handlers can be exercised without minting tokens.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   user.Role,
		})
		c.Next()
	}
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

func loginAuditColumns() []string {
	return []string{
		"id", "email", "user_id", "success", "ip_address", "browser", "os",
		"created_at",
	}
}

func clientColumns() []string {
	return []string{
		"id", "ruc", "legal_name", "commercial_name", "province", "canton",
		"address", "latitude", "longitude", "seller_name", "phone", "tier",
		"last_purchase_at", "repurchase_interval_days", "status",
		"created_at", "updated_at",
	}
}
