package services

import (
	"fmt"
	"time"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExpirationService force-closes in-progress routes whose grace window from
// the base date has elapsed. It runs on a server-side schedule (see
// CronService) instead of the old opportunistic page-load trigger, and is
// idempotent: terminal routes are never touched.
type ExpirationService struct {
	routeRepo  *database.RouteRepository
	notifRepo  *database.NotificationRepository
	logger     *logrus.Logger
	windowDays int
	now        func() time.Time
}

// NewExpirationService creates a new expiration service
func NewExpirationService(
	routeRepo *database.RouteRepository,
	notifRepo *database.NotificationRepository,
	logger *logrus.Logger,
	windowDays int,
) *ExpirationService {
	return &ExpirationService{
		routeRepo:  routeRepo,
		notifRepo:  notifRepo,
		logger:     logger,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Checked    int `json:"checked"`
	Completed  int `json:"completed"`
	Incomplete int `json:"incomplete"`
}

// Run executes one sweep over every En Progreso route. A route whose window
// elapsed closes to Completada when all active entries finished their visit,
// Incompleta otherwise.
func (s *ExpirationService) Run() (*SweepResult, error) {
	routes, err := s.routeRepo.ListRoutesByStatus(models.RouteStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to load in-progress routes: %w", err)
	}

	now := s.now()
	result := &SweepResult{Checked: len(routes)}

	for i := range routes {
		route := &routes[i]
		if !route.IsExpired(now, s.windowDays) {
			continue
		}

		entries, err := s.routeRepo.ListEntries(route.ID)
		if err != nil {
			s.logger.WithError(err).WithField("route_id", route.ID).Error("Sweep: failed to load entries")
			continue
		}

		final := models.RouteStatusIncomplete
		if models.AllActiveCompleted(entries) {
			final = models.RouteStatusCompleted
		}

		if err := s.routeRepo.TransitionStatus(route.ID, route.Version, final, nil); err != nil {
			// A concurrent writer won the race; the next run re-evaluates
			s.logger.WithError(err).WithField("route_id", route.ID).Warn("Sweep: transition failed")
			continue
		}

		if final == models.RouteStatusCompleted {
			result.Completed++
		} else {
			result.Incomplete++
		}

		s.logger.WithFields(logrus.Fields{
			"route_id":   route.ID,
			"final":      final,
			"expired_at": route.ExpiresAt(s.windowDays),
		}).Info("Sweep: route force-closed")

		s.notify(route, final)
	}

	return result, nil
}

// SweepOwner runs the sweep for one seller's routes only. Kept for the
// route-list endpoint so stale routes close on sight as they did before the
// scheduled job existed.
func (s *ExpirationService) SweepOwner(creatorID uuid.UUID) error {
	routes, err := s.routeRepo.ListRoutesByCreator(creatorID)
	if err != nil {
		return err
	}

	now := s.now()
	for i := range routes {
		route := &routes[i]
		if route.Status != models.RouteStatusInProgress || !route.IsExpired(now, s.windowDays) {
			continue
		}

		entries, err := s.routeRepo.ListEntries(route.ID)
		if err != nil {
			return err
		}

		final := models.RouteStatusIncomplete
		if models.AllActiveCompleted(entries) {
			final = models.RouteStatusCompleted
		}

		if err := s.routeRepo.TransitionStatus(route.ID, route.Version, final, nil); err != nil {
			return err
		}
		s.notify(route, final)
	}

	return nil
}

func (s *ExpirationService) notify(route *models.Route, final string) {
	n := &models.Notification{
		UserID:  route.CreatorID,
		Kind:    models.NotificationRouteClosed,
		Title:   "Ruta cerrada por vencimiento",
		Message: fmt.Sprintf("La ruta %q venció y fue cerrada como %s", route.Name, final),
		RouteID: uuid.NullUUID{UUID: route.ID, Valid: true},
	}
	if err := s.notifRepo.CreateNotification(n); err != nil {
		s.logger.WithError(err).WithField("route_id", route.ID).Warn("Sweep: failed to create notification")
	}
}
