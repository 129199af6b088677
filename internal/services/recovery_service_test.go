package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/pkg/prediction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictor struct {
	predictions []prediction.PredictedClient
	err         error
	sellerName  string
	week        int
}

func (f *fakePredictor) Predict(ctx context.Context, sellerName string, week int) ([]prediction.PredictedClient, error) {
	f.sellerName = sellerName
	f.week = week
	return f.predictions, f.err
}

func newRecoveryService(t *testing.T, predictor Predictor) (*RecoveryService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newTestDB(t)
	routeRepo := database.NewRouteRepository(db)
	userRepo := database.NewUserRepository(db)
	return NewRecoveryService(routeRepo, userRepo, predictor, testLogger()), mock
}

func predictedRoute(creatorID uuid.UUID) *models.Route {
	return &models.Route{
		ID:           uuid.New(),
		Name:         "Ruta sugerida semana 35",
		RouteDate:    time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC), // ISO week 35
		CreatorID:    creatorID,
		SupervisorID: uuid.New(),
		Status:       models.RouteStatusPlanned,
		Origin:       models.RouteOriginPredicted,
		Version:      1,
	}
}

func expectRouteByID(mock sqlmock.Sqlmock, route *models.Route, entries ...*models.RouteClient) {
	mock.ExpectQuery(`SELECT (.+) FROM routes WHERE id`).
		WithArgs(route.ID).
		WillReturnRows(sqlmock.NewRows(routeColumns()).AddRow(routeRowValues(route)...))

	rows := sqlmock.NewRows(entryColumns())
	for _, entry := range entries {
		rows.AddRow(entryRowValues(entry)...)
	}
	mock.ExpectQuery(`SELECT (.+) FROM route_clients WHERE route_id`).
		WithArgs(route.ID).
		WillReturnRows(rows)
}

func TestRecover_RebuildsClientList(t *testing.T) {
	creator := &models.User{
		ID:     uuid.New(),
		Name:   "Maria Lopez",
		Email:  "maria@distrifarma.ec",
		Role:   models.RoleUsuario,
		Status: models.UserStatusActive,
	}
	predictor := &fakePredictor{
		predictions: []prediction.PredictedClient{
			{RUC: "1790012345001", Name: "Farmacia Central", Sale: decimal.NewFromInt(120)},
			{RUC: "0990054321001", Name: "Botica del Valle", Sale: decimal.NewFromInt(80)},
			{RUC: "0690011223001", Name: "Farmacia Andina", Sale: decimal.NewFromInt(60)},
			{RUC: "1190033445001", Name: "Salud Total", Sale: decimal.NewFromInt(45)},
		},
	}
	service, mock := newRecoveryService(t, predictor)
	route := predictedRoute(creator.ID)

	expectRouteByID(mock, route)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(creator.ID).
		WillReturnRows(sqlmock.NewRows(userColumns()).AddRow(userRowValues(creator)...))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM route_clients WHERE route_id = \$1 AND status <> 'Eliminado'`).
		WithArgs(route.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for range predictor.predictions {
		mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`UPDATE routes`).
		WithArgs(route.ID, route.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rebuilt := predictedRoute(creator.ID)
	rebuilt.ID = route.ID
	rebuilt.Version = 2
	expectRouteByID(mock, rebuilt, &models.RouteClient{
		ID: uuid.New(), RouteID: route.ID, RUC: "1790012345001",
		ClientName: "Farmacia Central", AssignedDate: route.RouteDate,
		Status: models.RouteClientActive, VisitStatus: models.VisitStatusPending,
		Origin: models.RouteOriginPredicted,
	})

	got, err := service.Recover(context.Background(), creator, route.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", predictor.sellerName)
	assert.Equal(t, 35, predictor.week)
	assert.Equal(t, 2, got.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecover_RemovedEntriesKeepAuditRows(t *testing.T) {
	creator := &models.User{
		ID:     uuid.New(),
		Name:   "Maria Lopez",
		Email:  "maria@distrifarma.ec",
		Role:   models.RoleUsuario,
		Status: models.UserStatusActive,
	}
	predictor := &fakePredictor{
		predictions: []prediction.PredictedClient{
			{RUC: "0990054321001", Name: "Botica del Valle", Sale: decimal.NewFromInt(80)},
		},
	}
	service, mock := newRecoveryService(t, predictor)
	route := predictedRoute(creator.ID)

	// Every entry was removed, so the route is eligible, but the removed
	// row and its observation must survive the rebuild.
	removed := &models.RouteClient{
		ID: uuid.New(), RouteID: route.ID, RUC: "1790012345001",
		ClientName: "Farmacia Central", AssignedDate: route.RouteDate,
		Status: models.RouteClientRemoved, VisitStatus: models.VisitStatusPending,
		Origin: models.RouteOriginPredicted,
		RemovalObservation: models.NullString{NullString: sql.NullString{
			String: "Cliente cerrado por inventario", Valid: true,
		}},
	}
	expectRouteByID(mock, route, removed)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(creator.ID).
		WillReturnRows(sqlmock.NewRows(userColumns()).AddRow(userRowValues(creator)...))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM route_clients WHERE route_id = \$1 AND status <> 'Eliminado'`).
		WithArgs(route.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE routes`).
		WithArgs(route.ID, route.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rebuilt := predictedRoute(creator.ID)
	rebuilt.ID = route.ID
	rebuilt.Version = 2
	expectRouteByID(mock, rebuilt, removed, &models.RouteClient{
		ID: uuid.New(), RouteID: route.ID, RUC: "0990054321001",
		ClientName: "Botica del Valle", AssignedDate: route.RouteDate,
		Status: models.RouteClientActive, VisitStatus: models.VisitStatusPending,
		Origin: models.RouteOriginPredicted,
	})

	got, err := service.Recover(context.Background(), creator, route.ID)
	require.NoError(t, err)
	require.Len(t, got.Clients, 2)
	assert.Equal(t, models.RouteClientRemoved, got.Clients[0].Status)
	assert.Equal(t, "Cliente cerrado por inventario", got.Clients[0].RemovalObservation.String)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecover_ManualRouteNotEligible(t *testing.T) {
	creator := &models.User{ID: uuid.New(), Role: models.RoleUsuario}
	service, mock := newRecoveryService(t, &fakePredictor{})

	route := predictedRoute(creator.ID)
	route.Origin = models.RouteOriginManual

	expectRouteByID(mock, route)

	_, err := service.Recover(context.Background(), creator, route.ID)
	assert.ErrorIs(t, err, ErrNotRecoverable)
}

func TestRecover_ActiveClientsNotEligible(t *testing.T) {
	creator := &models.User{ID: uuid.New(), Role: models.RoleUsuario}
	service, mock := newRecoveryService(t, &fakePredictor{})

	route := predictedRoute(creator.ID)
	expectRouteByID(mock, route, &models.RouteClient{
		ID: uuid.New(), RouteID: route.ID, RUC: "1790012345001",
		ClientName: "Farmacia Central", AssignedDate: route.RouteDate,
		Status: models.RouteClientActive, VisitStatus: models.VisitStatusPending,
		Origin: models.RouteOriginPredicted,
	})

	_, err := service.Recover(context.Background(), creator, route.ID)
	assert.ErrorIs(t, err, ErrNotRecoverable)
}

func TestRecover_EmptyForecastLeavesRouteUntouched(t *testing.T) {
	creator := &models.User{
		ID:     uuid.New(),
		Name:   "Maria Lopez",
		Role:   models.RoleUsuario,
		Status: models.UserStatusActive,
	}
	service, mock := newRecoveryService(t, &fakePredictor{})

	route := predictedRoute(creator.ID)
	expectRouteByID(mock, route)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(creator.ID).
		WillReturnRows(sqlmock.NewRows(userColumns()).AddRow(userRowValues(creator)...))

	_, err := service.Recover(context.Background(), creator, route.ID)
	assert.ErrorIs(t, err, ErrNoPredictions)

	// No ReplaceEntries transaction was expected or run
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecover_NotPermittedForOtherSeller(t *testing.T) {
	creator := uuid.New()
	other := &models.User{ID: uuid.New(), Role: models.RoleUsuario}
	service, mock := newRecoveryService(t, &fakePredictor{})

	route := predictedRoute(creator)
	expectRouteByID(mock, route)

	_, err := service.Recover(context.Background(), other, route.ID)
	assert.ErrorIs(t, err, ErrNotPermitted)
}
