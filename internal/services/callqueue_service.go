package services

import (
	"sort"
	"time"

	"github.com/distrifarma/rutero-backend/internal/config"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/models"
)

// CallQueueItem is one scored client in the telemarketing call queue
type CallQueueItem struct {
	Client      models.Client `json:"client"`
	OverdueDays int           `json:"overdue_days"`
	Score       float64       `json:"score"`
}

// CallQueueService computes the CRM call-priority queue:
// score = overdue days x weight + tier bonus + about-to-repurchase bonus,
// sorted descending.
type CallQueueService struct {
	clientRepo *database.ClientRepository
	weights    config.CallQueueConfig
	now        func() time.Time
}

// NewCallQueueService creates a new call queue service
func NewCallQueueService(clientRepo *database.ClientRepository, weights config.CallQueueConfig) *CallQueueService {
	return &CallQueueService{
		clientRepo: clientRepo,
		weights:    weights,
		now:        time.Now,
	}
}

// Build loads the active client registry and returns it scored and sorted
func (s *CallQueueService) Build() ([]CallQueueItem, error) {
	clients, err := s.clientRepo.ListClients(true)
	if err != nil {
		return nil, err
	}

	return s.Score(clients), nil
}

// Score computes the queue over an in-memory client list
func (s *CallQueueService) Score(clients []models.Client) []CallQueueItem {
	now := s.now()
	items := make([]CallQueueItem, 0, len(clients))

	for _, client := range clients {
		overdue := s.overdueDays(&client, now)
		score := float64(overdue) * s.weights.OverdueWeight
		score += s.tierBonus(client.Tier)
		if s.aboutToRepurchase(&client, now) {
			score += s.weights.RepurchaseBonus
		}

		items = append(items, CallQueueItem{
			Client:      client,
			OverdueDays: overdue,
			Score:       score,
		})
	}

	// Stable sort keeps registry order for equal scores
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	return items
}

// overdueDays counts the days past the client's expected repurchase date.
// Clients with no purchase history or no interval are never overdue.
func (s *CallQueueService) overdueDays(client *models.Client, now time.Time) int {
	if !client.LastPurchaseAt.Valid || client.RepurchaseIntervalDays <= 0 {
		return 0
	}

	expected := client.LastPurchaseAt.Time.AddDate(0, 0, client.RepurchaseIntervalDays)
	if !now.After(expected) {
		return 0
	}

	return int(now.Sub(expected).Hours() / 24)
}

// aboutToRepurchase reports whether now falls within 20% of the repurchase
// interval around the expected repurchase date
func (s *CallQueueService) aboutToRepurchase(client *models.Client, now time.Time) bool {
	if !client.LastPurchaseAt.Valid || client.RepurchaseIntervalDays <= 0 {
		return false
	}

	expected := client.LastPurchaseAt.Time.AddDate(0, 0, client.RepurchaseIntervalDays)
	margin := time.Duration(float64(client.RepurchaseIntervalDays)*0.2*24) * time.Hour
	return now.After(expected.Add(-margin)) && now.Before(expected.Add(margin))
}

func (s *CallQueueService) tierBonus(tier string) float64 {
	switch tier {
	case models.TierA:
		return s.weights.TierABonus
	case models.TierB:
		return s.weights.TierBBonus
	default:
		return s.weights.TierCBonus
	}
}
