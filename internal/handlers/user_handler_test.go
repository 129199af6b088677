package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newUserHandlerRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newTestDB(t)
	handler := NewUserHandler(
		database.NewUserRepository(db),
		database.NewLoginAuditRepository(db),
		nil,
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users/:id/login-failures", handler.LoginFailures)
	return router, mock
}

func TestLoginFailures(t *testing.T) {
	user := &models.User{
		ID:     uuid.New(),
		Name:   "Maria Lopez",
		Email:  "maria@distrifarma.ec",
		Role:   models.RoleUsuario,
		Status: models.UserStatusActive,
	}

	t.Run("Resolves User By Path ID", func(t *testing.T) {
		router, mock := newUserHandlerRouter(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(user.ID).
			WillReturnRows(sqlmock.NewRows(userColumns()).AddRow(userRowValues(user)...))
		mock.ExpectQuery(`SELECT (.+) FROM login_audit`).
			WithArgs(user.Email, 20).
			WillReturnRows(sqlmock.NewRows(loginAuditColumns()).
				AddRow(1, user.Email, nil, false, nil, nil, nil, time.Now()).
				AddRow(2, user.Email, nil, false, nil, nil, nil, time.Now()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/users/"+user.ID.String()+"/login-failures", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":2`)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid ID", func(t *testing.T) {
		router, _ := newUserHandlerRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/users/not-a-uuid/login-failures", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown User", func(t *testing.T) {
		router, mock := newUserHandlerRouter(t)
		unknown := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(unknown).
			WillReturnRows(sqlmock.NewRows(userColumns()))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/users/"+unknown.String()+"/login-failures", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
