package services

import (
	"errors"
	"fmt"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Workflow errors surfaced to handlers
var (
	// ErrRouteNotFound indicates the route does not exist
	ErrRouteNotFound = errors.New("route not found")

	// ErrNotPermitted indicates the user may not perform the action on this route
	ErrNotPermitted = errors.New("not permitted for this route")

	// ErrInvalidTransition indicates an illegal status change
	ErrInvalidTransition = errors.New("invalid route status transition")

	// ErrObservationRequired indicates a rejection or removal without observation
	ErrObservationRequired = errors.New("an observation is required")

	// ErrActiveRouteExists indicates the seller already has a route in progress
	ErrActiveRouteExists = errors.New("seller already has a route in progress")
)

// RouteService enforces the route lifecycle state machine and its permission
// contract on top of the repositories.
type RouteService struct {
	routeRepo *database.RouteRepository
	notifRepo *database.NotificationRepository
	logger    *logrus.Logger
}

// NewRouteService creates a new route service
func NewRouteService(
	routeRepo *database.RouteRepository,
	notifRepo *database.NotificationRepository,
	logger *logrus.Logger,
) *RouteService {
	return &RouteService{
		routeRepo: routeRepo,
		notifRepo: notifRepo,
		logger:    logger,
	}
}

// CreateRoute saves a new route as Planificada, or Pendiente de Aprobación
// when submitted for review immediately.
func (s *RouteService) CreateRoute(route *models.Route, submit bool) error {
	route.Status = models.RouteStatusPlanned
	if submit {
		route.Status = models.RouteStatusPending
	}
	if route.Origin == "" {
		route.Origin = models.RouteOriginManual
	}

	if err := s.routeRepo.CreateRoute(route); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id": route.ID,
		"status":   route.Status,
		"clients":  len(route.Clients),
	}).Info("Route created")

	return nil
}

// UpdateFields applies field edits under the edit permission contract and the
// optimistic-concurrency version stamp carried by the caller.
func (s *RouteService) UpdateFields(user *models.User, route *models.Route) error {
	current, err := s.routeRepo.GetRouteByID(route.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrRouteNotFound
	}
	if !current.EditableBy(user) {
		return ErrNotPermitted
	}

	return s.routeRepo.UpdateRouteFields(route)
}

// Submit moves an editable route into review
func (s *RouteService) Submit(user *models.User, routeID uuid.UUID) error {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.EditableBy(user) {
		return ErrNotPermitted
	}
	if !models.CanTransition(route.Status, models.RouteStatusPending) {
		return ErrInvalidTransition
	}

	return s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusPending, nil)
}

// Approve accepts a pending route back into the active/planned state.
// Permitted only to the assigned supervisor or an Administrator.
func (s *RouteService) Approve(user *models.User, routeID uuid.UUID) error {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.ReviewableBy(user) {
		return ErrNotPermitted
	}

	if err := s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusPlanned, nil); err != nil {
		return err
	}

	s.notifyOwner(route, models.NotificationRouteApproved, "Ruta aprobada",
		fmt.Sprintf("La ruta %q fue aprobada por %s", route.Name, user.Name))

	return nil
}

// Reject declines a pending route with a mandatory supervisor observation;
// the route returns to an editable state for correction and resubmission.
func (s *RouteService) Reject(user *models.User, routeID uuid.UUID, observation string) error {
	if observation == "" {
		return ErrObservationRequired
	}

	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.ReviewableBy(user) {
		return ErrNotPermitted
	}

	if err := s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusRejected, &observation); err != nil {
		return err
	}

	s.notifyOwner(route, models.NotificationRouteRejected, "Ruta rechazada",
		fmt.Sprintf("La ruta %q fue rechazada: %s", route.Name, observation))

	return nil
}

// StartDay puts a route in progress when the owning seller starts the work
// day. At most one route per seller may be En Progreso at a time.
func (s *RouteService) StartDay(user *models.User, routeID uuid.UUID) error {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if route.CreatorID != user.ID {
		return ErrNotPermitted
	}
	if !models.CanTransition(route.Status, models.RouteStatusInProgress) {
		return ErrInvalidTransition
	}

	active, err := s.routeRepo.CountInProgressByCreator(user.ID)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrActiveRouteExists
	}

	return s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusInProgress, nil)
}

// ForceClose closes any non-terminal route to Completada. Administrator only.
func (s *RouteService) ForceClose(user *models.User, routeID uuid.UUID) error {
	if user.Role != models.RoleAdministrador {
		return ErrNotPermitted
	}

	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if route.IsTerminal() {
		return ErrInvalidTransition
	}

	if err := s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusCompleted, nil); err != nil {
		return err
	}

	s.notifyOwner(route, models.NotificationRouteClosed, "Ruta cerrada",
		fmt.Sprintf("La ruta %q fue cerrada por un administrador", route.Name))

	return nil
}

// Reopen returns a terminal route to En Progreso. Administrator only.
func (s *RouteService) Reopen(user *models.User, routeID uuid.UUID) error {
	if user.Role != models.RoleAdministrador {
		return ErrNotPermitted
	}

	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.IsTerminal() {
		return ErrInvalidTransition
	}

	return s.routeRepo.TransitionStatus(routeID, route.Version, models.RouteStatusInProgress, nil)
}

// AddClient appends a visit entry to an editable route
func (s *RouteService) AddClient(user *models.User, routeID uuid.UUID, entry *models.RouteClient) error {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.EditableBy(user) {
		return ErrNotPermitted
	}

	entry.RouteID = routeID
	entry.Position = len(route.Clients)
	return s.routeRepo.AddEntry(entry)
}

// RemoveClient soft-deletes a visit entry; the observation is mandatory and
// the row is retained for audit history.
func (s *RouteService) RemoveClient(user *models.User, routeID uuid.UUID, ruc, observation string) error {
	if observation == "" {
		return ErrObservationRequired
	}

	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return ErrRouteNotFound
	}
	if !route.EditableBy(user) {
		return ErrNotPermitted
	}

	return s.routeRepo.RemoveEntry(routeID, ruc, observation)
}

// ListForUser returns the routes the user may see, role-scoped
func (s *RouteService) ListForUser(user *models.User) ([]models.Route, error) {
	switch user.Role {
	case models.RoleAdministrador:
		return s.routeRepo.ListAllRoutes()
	case models.RoleSupervisor:
		return s.routeRepo.ListRoutesForSupervisor(user.ID)
	default:
		return s.routeRepo.ListRoutesByCreator(user.ID)
	}
}

// GetForUser returns one route with entries, enforcing visibility
func (s *RouteService) GetForUser(user *models.User, routeID uuid.UUID) (*models.Route, error) {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}
	if !route.VisibleTo(user) {
		return nil, ErrNotPermitted
	}
	return route, nil
}

func (s *RouteService) notifyOwner(route *models.Route, kind, title, message string) {
	n := &models.Notification{
		UserID:  route.CreatorID,
		Kind:    kind,
		Title:   title,
		Message: message,
		RouteID: uuid.NullUUID{UUID: route.ID, Valid: true},
	}
	if err := s.notifRepo.CreateNotification(n); err != nil {
		// Notification delivery is best-effort; the transition already landed
		s.logger.WithError(err).WithField("route_id", route.ID).Warn("Failed to create notification")
	}
}
