package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoute(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	t.Run("Success With Entries", func(t *testing.T) {
		route := &models.Route{
			Name:         "Ruta Quito Norte S35",
			RouteDate:    time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC),
			CreatorID:    uuid.New(),
			SupervisorID: uuid.New(),
			Status:       models.RouteStatusPlanned,
			Origin:       models.RouteOriginManual,
			Clients: []models.RouteClient{
				{RUC: "1790012345001", ClientName: "Farmacia Central", AssignedDate: time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC)},
				{RUC: "0990054321001", ClientName: "Botica del Valle", AssignedDate: time.Date(2024, 8, 27, 0, 0, 0, 0, time.UTC)},
			},
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO routes`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateRoute(route)
		require.NoError(t, err)
		assert.Equal(t, 1, route.Version)
		assert.NotEqual(t, uuid.Nil, route.ID)
		assert.Equal(t, route.ID, route.Clients[0].RouteID)
		assert.Equal(t, models.RouteClientActive, route.Clients[0].Status)
		assert.Equal(t, models.VisitStatusPending, route.Clients[1].VisitStatus)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateRouteFields(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	route := &models.Route{
		ID:           uuid.New(),
		Name:         "Ruta Quito Norte S35",
		RouteDate:    time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC),
		SupervisorID: uuid.New(),
		Version:      3,
	}

	t.Run("Success Bumps Version", func(t *testing.T) {
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(route.ID, 3, route.Name, route.RouteDate, route.SupervisorID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateRouteFields(route)
		require.NoError(t, err)
		assert.Equal(t, 4, route.Version)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Version Conflicts", func(t *testing.T) {
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(route.ID, 4, route.Name, route.RouteDate, route.SupervisorID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateRouteFields(route)
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.Equal(t, 4, route.Version)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionStatus(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	routeID := uuid.New()

	t.Run("Success With Observation", func(t *testing.T) {
		obs := "Cliente clave fuera de la zona asignada"

		mock.ExpectExec(`UPDATE routes`).
			WithArgs(routeID, 1, models.RouteStatusRejected, &obs).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.TransitionStatus(routeID, 1, models.RouteStatusRejected, &obs)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Version Conflicts", func(t *testing.T) {
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(routeID, 1, models.RouteStatusInProgress, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.TransitionStatus(routeID, 1, models.RouteStatusInProgress, nil)
		assert.ErrorIs(t, err, ErrVersionConflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveEntry(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	routeID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE route_clients`).
			WithArgs(routeID, "1790012345001", "Local cerrado por remodelacion").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RemoveEntry(routeID, "1790012345001", "Local cerrado por remodelacion")
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Removed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE route_clients`).
			WithArgs(routeID, "1790012345001", "Local cerrado").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RemoveEntry(routeID, "1790012345001", "Local cerrado")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "active route client not found")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckOutEntry(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	entry := &models.RouteClient{
		ID:      uuid.New(),
		RouteID: uuid.New(),
	}

	t.Run("Last Pending Visit Completes Route", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM route_clients`).
			WithArgs(entry.RouteID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(entry.RouteID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		completed, err := repo.CheckOutEntry(entry, 2)
		require.NoError(t, err)
		assert.True(t, completed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pending Visits Remain", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM route_clients`).
			WithArgs(entry.RouteID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectCommit()

		completed, err := repo.CheckOutEntry(entry, 2)
		require.NoError(t, err)
		assert.False(t, completed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Route Version Conflicts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM route_clients`).
			WithArgs(entry.RouteID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(entry.RouteID, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		completed, err := repo.CheckOutEntry(entry, 1)
		assert.ErrorIs(t, err, ErrVersionConflict)
		assert.False(t, completed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceEntries(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewRouteRepository(db)

	routeID := uuid.New()
	entries := []models.RouteClient{
		{RUC: "1790012345001", ClientName: "Farmacia Central", AssignedDate: time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC), Origin: models.RouteOriginPredicted},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM route_clients WHERE route_id = \$1 AND status <> 'Eliminado'`).
			WithArgs(routeID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(routeID, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ReplaceEntries(routeID, 1, entries)
		require.NoError(t, err)
		assert.Equal(t, routeID, entries[0].RouteID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// Removed entries carry the removal observation and must survive a
	// rebuild. The delete only touches rows that are still active.
	t.Run("Removed Rows Are Retained", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM route_clients WHERE route_id = \$1 AND status <> 'Eliminado'`).
			WithArgs(routeID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO route_clients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE routes`).
			WithArgs(routeID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ReplaceEntries(routeID, 2, entries)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
