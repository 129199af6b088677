package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListRoutes_SweepFailureDoesNotBlockListing(t *testing.T) {
	db, mock := newTestDB(t)
	logger := testLogger()
	routeRepo := database.NewRouteRepository(db)
	notifRepo := database.NewNotificationRepository(db)
	routeService := services.NewRouteService(routeRepo, notifRepo, logger)
	expiration := services.NewExpirationService(routeRepo, notifRepo, logger, 7)
	handler := NewRouteHandler(routeService, nil, expiration, logger)

	seller := &models.User{
		ID:    uuid.New(),
		Name:  "Maria Lopez",
		Email: "maria@distrifarma.ec",
		Role:  models.RoleUsuario,
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/routes", asUser(seller), handler.ListRoutes)

	// The owner sweep's route load fails; listing then re-queries and succeeds
	mock.ExpectQuery(`SELECT (.+) FROM routes WHERE creator_id`).
		WithArgs(seller.ID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(`SELECT (.+) FROM routes WHERE creator_id`).
		WithArgs(seller.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "route_date", "creator_id", "supervisor_id", "status",
			"origin", "observation", "version", "created_at", "updated_at",
		}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/routes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	assert.NoError(t, mock.ExpectationsWereMet())
}
