package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
)

// ErrVersionConflict is returned when a compare-and-swap route update loses a
// race against a concurrent writer. Callers should re-fetch and retry.
var ErrVersionConflict = errors.New("route was modified by another user")

// RouteRepository handles route and route-client database operations
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{
		db: db,
	}
}

// CreateRoute inserts a route together with its client entries in one
// transaction.
func (r *RouteRepository) CreateRoute(route *models.Route) error {
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	route.Version = 1
	route.CreatedAt = time.Now()
	route.UpdatedAt = route.CreatedAt

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO routes (
			id, name, route_date, creator_id, supervisor_id, status, origin,
			observation, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(
		query,
		route.ID,
		route.Name,
		route.RouteDate,
		route.CreatorID,
		route.SupervisorID,
		route.Status,
		route.Origin,
		route.Observation,
		route.Version,
		route.CreatedAt,
		route.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}

	for i := range route.Clients {
		entry := &route.Clients[i]
		entry.RouteID = route.ID
		if err := insertEntry(tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit route creation: %w", err)
	}

	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertEntry(e execer, entry *models.RouteClient) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = models.RouteClientActive
	}
	if entry.VisitStatus == "" {
		entry.VisitStatus = models.VisitStatusPending
	}
	if entry.Origin == "" {
		entry.Origin = models.RouteOriginManual
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt

	query := `
		INSERT INTO route_clients (
			id, route_id, ruc, client_name, assigned_date, position, status,
			visit_status, origin, sale_value, collection_value, returns_value,
			promotions_value, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := e.Exec(
		query,
		entry.ID,
		entry.RouteID,
		entry.RUC,
		entry.ClientName,
		entry.AssignedDate,
		entry.Position,
		entry.Status,
		entry.VisitStatus,
		entry.Origin,
		entry.SaleValue,
		entry.CollectionValue,
		entry.ReturnsValue,
		entry.PromotionsValue,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route client %s: %w", entry.RUC, err)
	}

	return nil
}

// GetRouteByID retrieves a route with its client entries
func (r *RouteRepository) GetRouteByID(id uuid.UUID) (*models.Route, error) {
	var route models.Route
	query := `SELECT * FROM routes WHERE id = $1`

	err := r.db.Get(&route, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	entries, err := r.ListEntries(id)
	if err != nil {
		return nil, err
	}
	route.Clients = entries

	return &route, nil
}

// ListEntries returns the client entries of a route in planned order,
// removed entries included (audit history is never dropped).
func (r *RouteRepository) ListEntries(routeID uuid.UUID) ([]models.RouteClient, error) {
	var entries []models.RouteClient
	query := `SELECT * FROM route_clients WHERE route_id = $1 ORDER BY assigned_date, position`

	if err := r.db.Select(&entries, query, routeID); err != nil {
		return nil, fmt.Errorf("failed to list route clients: %w", err)
	}

	return entries, nil
}

// ListRoutesByCreator returns routes owned by a seller, newest first
func (r *RouteRepository) ListRoutesByCreator(creatorID uuid.UUID) ([]models.Route, error) {
	var routes []models.Route
	query := `SELECT * FROM routes WHERE creator_id = $1 ORDER BY route_date DESC`

	if err := r.db.Select(&routes, query, creatorID); err != nil {
		return nil, fmt.Errorf("failed to list routes by creator: %w", err)
	}

	return routes, nil
}

// ListRoutesForSupervisor returns routes the supervisor reviews or owns
func (r *RouteRepository) ListRoutesForSupervisor(supervisorID uuid.UUID) ([]models.Route, error) {
	var routes []models.Route
	query := `SELECT * FROM routes WHERE supervisor_id = $1 OR creator_id = $1 ORDER BY route_date DESC`

	if err := r.db.Select(&routes, query, supervisorID); err != nil {
		return nil, fmt.Errorf("failed to list routes for supervisor: %w", err)
	}

	return routes, nil
}

// ListAllRoutes returns every route, newest first (admin view)
func (r *RouteRepository) ListAllRoutes() ([]models.Route, error) {
	var routes []models.Route
	query := `SELECT * FROM routes ORDER BY route_date DESC`

	if err := r.db.Select(&routes, query); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	return routes, nil
}

// ListRoutesByStatus returns routes in the given status
func (r *RouteRepository) ListRoutesByStatus(status string) ([]models.Route, error) {
	var routes []models.Route
	query := `SELECT * FROM routes WHERE status = $1 ORDER BY route_date`

	if err := r.db.Select(&routes, query, status); err != nil {
		return nil, fmt.Errorf("failed to list routes by status: %w", err)
	}

	return routes, nil
}

// CountInProgressByCreator counts a seller's routes in En Progreso
func (r *RouteRepository) CountInProgressByCreator(creatorID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM routes WHERE creator_id = $1 AND status = 'En Progreso'`

	if err := r.db.Get(&count, query, creatorID); err != nil {
		return 0, fmt.Errorf("failed to count in-progress routes: %w", err)
	}

	return count, nil
}

// UpdateRouteFields updates mutable route fields with a compare-and-swap on
// the version column. Returns ErrVersionConflict on a lost race.
func (r *RouteRepository) UpdateRouteFields(route *models.Route) error {
	query := `
		UPDATE routes
		SET name = $3, route_date = $4, supervisor_id = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(query, route.ID, route.Version, route.Name, route.RouteDate, route.SupervisorID)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	route.Version++
	return nil
}

// TransitionStatus moves a route to a new status with a compare-and-swap on
// the version column. The observation replaces the stored one when non-nil
// (rejections require it; approval clears it by passing nil).
func (r *RouteRepository) TransitionStatus(id uuid.UUID, version int, newStatus string, observation *string) error {
	query := `
		UPDATE routes
		SET status = $3,
		    observation = COALESCE($4, observation),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.Exec(query, id, version, newStatus, observation)
	if err != nil {
		return fmt.Errorf("failed to transition route status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	return nil
}

// AddEntry appends one client entry to a route
func (r *RouteRepository) AddEntry(entry *models.RouteClient) error {
	return insertEntry(r.db, entry)
}

// GetEntry retrieves one entry of a route by client RUC
func (r *RouteRepository) GetEntry(routeID uuid.UUID, ruc string) (*models.RouteClient, error) {
	var entry models.RouteClient
	query := `SELECT * FROM route_clients WHERE route_id = $1 AND ruc = $2`

	err := r.db.Get(&entry, query, routeID, ruc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get route client: %w", err)
	}

	return &entry, nil
}

// RemoveEntry soft-deletes an entry: the row is kept, status flips to
// Eliminado and the mandatory observation is recorded.
func (r *RouteRepository) RemoveEntry(routeID uuid.UUID, ruc, observation string) error {
	query := `
		UPDATE route_clients
		SET status = 'Eliminado', removal_observation = $3, updated_at = NOW()
		WHERE route_id = $1 AND ruc = $2 AND status = 'Activo'
	`

	result, err := r.db.Exec(query, routeID, ruc, observation)
	if err != nil {
		return fmt.Errorf("failed to remove route client: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("active route client not found: %s", ruc)
	}

	return nil
}

// UpdateEntryCheckIn records the check-in timestamp, coordinates and op id
func (r *RouteRepository) UpdateEntryCheckIn(entry *models.RouteClient) error {
	query := `
		UPDATE route_clients
		SET check_in_at = $2, check_in_lat = $3, check_in_lng = $4,
		    check_in_op_id = $5, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(query, entry.ID, entry.CheckInAt, entry.CheckInLat, entry.CheckInLng, entry.CheckInOpID)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}

	return nil
}

// UpdateEntryVisit records the visit type, note and captured monetary values
func (r *RouteRepository) UpdateEntryVisit(entry *models.RouteClient) error {
	query := `
		UPDATE route_clients
		SET visit_type = $2, visit_note = $3, sale_value = $4,
		    collection_value = $5, returns_value = $6, promotions_value = $7,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(
		query,
		entry.ID,
		entry.VisitType,
		entry.VisitNote,
		entry.SaleValue,
		entry.CollectionValue,
		entry.ReturnsValue,
		entry.PromotionsValue,
	)
	if err != nil {
		return fmt.Errorf("failed to record visit capture: %w", err)
	}

	return nil
}

// CheckOutEntry completes a visit and, when it was the last pending active
// entry of the whole route, transitions the route to Completada in the same
// transaction. Returns whether the route was completed.
func (r *RouteRepository) CheckOutEntry(entry *models.RouteClient, routeVersion int) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE route_clients
		SET check_out_at = $2, check_out_lat = $3, check_out_lng = $4,
		    check_out_op_id = $5, visit_status = 'Completado', updated_at = NOW()
		WHERE id = $1
	`

	_, err = tx.Exec(query, entry.ID, entry.CheckOutAt, entry.CheckOutLat, entry.CheckOutLng, entry.CheckOutOpID)
	if err != nil {
		return false, fmt.Errorf("failed to record check-out: %w", err)
	}

	var pending int
	err = tx.Get(&pending, `
		SELECT COUNT(*) FROM route_clients
		WHERE route_id = $1 AND status = 'Activo' AND visit_status = 'Pendiente'
	`, entry.RouteID)
	if err != nil {
		return false, fmt.Errorf("failed to count pending visits: %w", err)
	}

	completed := pending == 0
	if completed {
		result, err := tx.Exec(`
			UPDATE routes
			SET status = 'Completada', version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $2
		`, entry.RouteID, routeVersion)
		if err != nil {
			return false, fmt.Errorf("failed to complete route: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return false, ErrVersionConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit check-out: %w", err)
	}

	return completed, nil
}

// ReplaceEntries swaps the active client list of a route in one transaction
// (recovery procedure: the rebuilt list replaces the current active entries).
// Removed rows keep their removal observations and stay in place.
func (r *RouteRepository) ReplaceEntries(routeID uuid.UUID, version int, entries []models.RouteClient) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM route_clients WHERE route_id = $1 AND status <> 'Eliminado'`, routeID); err != nil {
		return fmt.Errorf("failed to clear active route clients: %w", err)
	}

	for i := range entries {
		entries[i].RouteID = routeID
		if err := insertEntry(tx, &entries[i]); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`
		UPDATE routes SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, routeID, version)
	if err != nil {
		return fmt.Errorf("failed to bump route version: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entry replacement: %w", err)
	}

	return nil
}
