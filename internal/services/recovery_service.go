package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/pkg/prediction"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recovery errors
var (
	// ErrNotRecoverable indicates the route is not a predicted route or still
	// has active clients
	ErrNotRecoverable = errors.New("route is not eligible for recovery")

	// ErrNoPredictions indicates the upstream returned an empty forecast;
	// the route is left unchanged
	ErrNoPredictions = errors.New("prediction service returned no clients")
)

// Predictor is the slice of the prediction client the recovery needs
type Predictor interface {
	Predict(ctx context.Context, sellerName string, week int) ([]prediction.PredictedClient, error)
}

// RecoveryService rebuilds a predicted route's client list from the original
// prediction source after data loss. Eligibility is decided by the route's
// origin tag, not by sniffing its display name.
type RecoveryService struct {
	routeRepo *database.RouteRepository
	userRepo  *database.UserRepository
	predictor Predictor
	logger    *logrus.Logger
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	routeRepo *database.RouteRepository,
	userRepo *database.UserRepository,
	predictor Predictor,
	logger *logrus.Logger,
) *RecoveryService {
	return &RecoveryService{
		routeRepo: routeRepo,
		userRepo:  userRepo,
		predictor: predictor,
		logger:    logger,
	}
}

// Recover re-invokes the prediction service with the route's seller and week
// and rebuilds the active client list; removed entries keep their audit rows.
// The route is left untouched when the upstream returns nothing.
func (s *RecoveryService) Recover(ctx context.Context, user *models.User, routeID uuid.UUID) (*models.Route, error) {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, ErrRouteNotFound
	}
	if !route.EditableBy(user) {
		return nil, ErrNotPermitted
	}

	if route.Origin != models.RouteOriginPredicted {
		return nil, ErrNotRecoverable
	}
	for _, entry := range route.Clients {
		if entry.IsActive() {
			return nil, ErrNotRecoverable
		}
	}

	creator, err := s.userRepo.GetUserByID(route.CreatorID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, fmt.Errorf("route creator not found: %s", route.CreatorID)
	}

	_, week := route.RouteDate.ISOWeek()
	predictions, err := s.predictor.Predict(ctx, creator.Name, week)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, ErrNoPredictions
	}

	entries := make([]models.RouteClient, 0, len(predictions))
	for i, p := range predictions {
		entries = append(entries, models.RouteClient{
			RouteID:         route.ID,
			RUC:             p.RUC,
			ClientName:      p.Name,
			AssignedDate:    route.RouteDate,
			Position:        i,
			Status:          models.RouteClientActive,
			VisitStatus:     models.VisitStatusPending,
			Origin:          models.RouteOriginPredicted,
			SaleValue:       p.Sale,
			CollectionValue: p.Collection,
			PromotionsValue: p.Promotion,
		})
	}

	if err := s.routeRepo.ReplaceEntries(route.ID, route.Version, entries); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id": route.ID,
		"seller":   creator.Name,
		"week":     week,
		"clients":  len(entries),
	}).Info("Route client list recovered from prediction source")

	return s.routeRepo.GetRouteByID(routeID)
}
