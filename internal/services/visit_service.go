package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Visit workflow errors
var (
	// ErrEntryNotFound indicates the client is not on the route
	ErrEntryNotFound = errors.New("client not found on route")

	// ErrRouteNotInProgress indicates visits require an En Progreso route
	ErrRouteNotInProgress = errors.New("route is not in progress")

	// ErrNotToday indicates the entry is not on today's slate
	ErrNotToday = errors.New("client is not scheduled for today")

	// ErrOpenVisit indicates another client of the route has an open check-in
	ErrOpenVisit = errors.New("another client has an open check-in")

	// ErrAlreadyCheckedIn indicates a duplicate check-in with a different operation id
	ErrAlreadyCheckedIn = errors.New("client already checked in")

	// ErrNoCheckIn indicates a check-out without a prior check-in
	ErrNoCheckIn = errors.New("check-in is required before check-out")

	// ErrVisitTypeRequired indicates a check-out without a visit type
	ErrVisitTypeRequired = errors.New("visit type is required before check-out")

	// ErrPhoneNoteRequired indicates a phone visit without its mandatory note
	ErrPhoneNoteRequired = errors.New("a note is required for phone visits")

	// ErrVisitCompleted indicates the visit is already closed
	ErrVisitCompleted = errors.New("visit is already completed")
)

// GeoPoint is an optional device location captured with a check-in/out.
// Geolocation is best-effort on the device; absence never blocks the action.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VisitCapture carries the visit-type and monetary fields recorded during a visit
type VisitCapture struct {
	VisitType       string          `json:"visit_type"`
	Note            string          `json:"note"`
	SaleValue       decimal.Decimal `json:"sale_value"`
	CollectionValue decimal.Decimal `json:"collection_value"`
	ReturnsValue    decimal.Decimal `json:"returns_value"`
	PromotionsValue decimal.Decimal `json:"promotions_value"`
}

// VisitService runs the daily check-in/check-out workflow over the active route
type VisitService struct {
	routeRepo *database.RouteRepository
	logger    *logrus.Logger
	now       func() time.Time
}

// NewVisitService creates a new visit service
func NewVisitService(routeRepo *database.RouteRepository, logger *logrus.Logger) *VisitService {
	return &VisitService{
		routeRepo: routeRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// TodaySlate returns the route entries eligible for action today: active
// entries whose assignment date equals the current calendar day.
func (s *VisitService) TodaySlate(user *models.User, routeID uuid.UUID) ([]models.RouteClient, error) {
	route, err := s.loadOwnedRoute(user, routeID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	slate := make([]models.RouteClient, 0)
	for _, entry := range route.Clients {
		if entry.IsActive() && entry.AssignedOn(today) {
			slate = append(slate, entry)
		}
	}

	return slate, nil
}

// CheckIn records the visit start: wall-clock timestamp plus best-effort
// device location. Only one entry of the route may hold an open check-in at a
// time. The operation id makes retries idempotent: replaying the op id that
// performed the check-in succeeds without overwriting the timestamp.
func (s *VisitService) CheckIn(user *models.User, routeID uuid.UUID, ruc string, opID uuid.UUID, loc *GeoPoint) (*models.RouteClient, error) {
	route, err := s.loadOwnedRoute(user, routeID)
	if err != nil {
		return nil, err
	}

	entry, err := s.findEntry(route, ruc)
	if err != nil {
		return nil, err
	}
	if !entry.AssignedOn(s.now()) {
		return nil, ErrNotToday
	}
	if entry.VisitStatus == models.VisitStatusCompleted {
		return nil, ErrVisitCompleted
	}

	if entry.CheckInAt.Valid {
		if entry.CheckInOpID.Valid && entry.CheckInOpID.UUID == opID {
			return entry, nil // retry of the same operation
		}
		return nil, ErrAlreadyCheckedIn
	}

	for _, other := range route.Clients {
		if other.ID != entry.ID && other.IsActive() && other.HasOpenCheckIn() {
			return nil, ErrOpenVisit
		}
	}

	entry.CheckInAt = models.NullTime{NullTime: sql.NullTime{Time: s.now().Truncate(time.Second), Valid: true}}
	entry.CheckInOpID = uuid.NullUUID{UUID: opID, Valid: true}
	if loc != nil {
		entry.CheckInLat = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: loc.Lat, Valid: true}}
		entry.CheckInLng = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: loc.Lng, Valid: true}}
	}

	if err := s.routeRepo.UpdateEntryCheckIn(entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id": routeID,
		"ruc":      ruc,
		"has_geo":  loc != nil,
	}).Info("Visit check-in recorded")

	return entry, nil
}

// Capture records the visit type, note and monetary values for an entry with
// an open check-in. Phone visits require a non-empty note.
func (s *VisitService) Capture(user *models.User, routeID uuid.UUID, ruc string, capture VisitCapture) (*models.RouteClient, error) {
	if capture.VisitType != models.VisitTypeInPerson && capture.VisitType != models.VisitTypePhone {
		return nil, ErrVisitTypeRequired
	}
	if capture.VisitType == models.VisitTypePhone && capture.Note == "" {
		return nil, ErrPhoneNoteRequired
	}

	route, err := s.loadOwnedRoute(user, routeID)
	if err != nil {
		return nil, err
	}

	entry, err := s.findEntry(route, ruc)
	if err != nil {
		return nil, err
	}
	if !entry.CheckInAt.Valid {
		return nil, ErrNoCheckIn
	}
	if entry.VisitStatus == models.VisitStatusCompleted {
		return nil, ErrVisitCompleted
	}

	entry.VisitType = models.NullString{NullString: sql.NullString{String: capture.VisitType, Valid: true}}
	if capture.Note != "" {
		entry.VisitNote = models.NullString{NullString: sql.NullString{String: capture.Note, Valid: true}}
	}
	entry.SaleValue = capture.SaleValue
	entry.CollectionValue = capture.CollectionValue
	entry.ReturnsValue = capture.ReturnsValue
	entry.PromotionsValue = capture.PromotionsValue

	if err := s.routeRepo.UpdateEntryVisit(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// CheckOut closes the visit. Requires a prior check-in and a recorded visit
// type. When the last pending active entry of the route completes, the route
// transitions to Completada in the same transaction. Returns the entry and
// whether the route completed.
func (s *VisitService) CheckOut(user *models.User, routeID uuid.UUID, ruc string, opID uuid.UUID, loc *GeoPoint) (*models.RouteClient, bool, error) {
	route, err := s.loadOwnedRoute(user, routeID)
	if err != nil {
		return nil, false, err
	}

	entry, err := s.findEntry(route, ruc)
	if err != nil {
		return nil, false, err
	}

	if entry.CheckOutAt.Valid {
		if entry.CheckOutOpID.Valid && entry.CheckOutOpID.UUID == opID {
			return entry, route.Status == models.RouteStatusCompleted, nil
		}
		return nil, false, ErrVisitCompleted
	}
	if !entry.CheckInAt.Valid {
		return nil, false, ErrNoCheckIn
	}
	if !entry.VisitType.Valid {
		return nil, false, ErrVisitTypeRequired
	}

	entry.CheckOutAt = models.NullTime{NullTime: sql.NullTime{Time: s.now().Truncate(time.Second), Valid: true}}
	entry.CheckOutOpID = uuid.NullUUID{UUID: opID, Valid: true}
	if loc != nil {
		entry.CheckOutLat = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: loc.Lat, Valid: true}}
		entry.CheckOutLng = models.NullFloat{NullFloat64: sql.NullFloat64{Float64: loc.Lng, Valid: true}}
	}
	entry.VisitStatus = models.VisitStatusCompleted

	completed, err := s.routeRepo.CheckOutEntry(entry, route.Version)
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id":        routeID,
		"ruc":             ruc,
		"route_completed": completed,
	}).Info("Visit check-out recorded")

	return entry, completed, nil
}

func (s *VisitService) loadOwnedRoute(user *models.User, routeID uuid.UUID) (*models.Route, error) {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}
	if route.CreatorID != user.ID && user.Role != models.RoleAdministrador {
		return nil, ErrNotPermitted
	}
	if route.Status != models.RouteStatusInProgress {
		return nil, ErrRouteNotInProgress
	}
	return route, nil
}

func (s *VisitService) findEntry(route *models.Route, ruc string) (*models.RouteClient, error) {
	for i := range route.Clients {
		entry := &route.Clients[i]
		if entry.RUC == ruc && entry.IsActive() {
			return entry, nil
		}
	}
	return nil, ErrEntryNotFound
}
