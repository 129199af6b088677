package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerSummary aggregates visit execution for one seller over a date range
type SellerSummary struct {
	VisitsPlanned   int             `json:"visits_planned" db:"visits_planned"`
	VisitsCompleted int             `json:"visits_completed" db:"visits_completed"`
	VisitsInPerson  int             `json:"visits_in_person" db:"visits_in_person"`
	VisitsByPhone   int             `json:"visits_by_phone" db:"visits_by_phone"`
	TotalSales      decimal.Decimal `json:"total_sales" db:"total_sales"`
	TotalCollection decimal.Decimal `json:"total_collection" db:"total_collection"`
	TotalReturns    decimal.Decimal `json:"total_returns" db:"total_returns"`
	TotalPromotions decimal.Decimal `json:"total_promotions" db:"total_promotions"`
}

// CompliancePct is the completed/planned ratio as a percentage
func (s *SellerSummary) CompliancePct() float64 {
	if s.VisitsPlanned == 0 {
		return 0
	}
	return float64(s.VisitsCompleted) / float64(s.VisitsPlanned) * 100
}

// ReportRepository runs aggregate queries for the KPI dashboard
type ReportRepository struct {
	db DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db DB) *ReportRepository {
	return &ReportRepository{
		db: db,
	}
}

// SellerSummary aggregates one seller's execution between two dates
// (inclusive). Removed entries never count toward planned visits.
func (r *ReportRepository) SellerSummary(sellerID uuid.UUID, from, to time.Time) (*SellerSummary, error) {
	var summary SellerSummary
	query := `
		SELECT
			COUNT(*) AS visits_planned,
			COUNT(*) FILTER (WHERE rc.visit_status = 'Completado') AS visits_completed,
			COUNT(*) FILTER (WHERE rc.visit_type = 'presencial') AS visits_in_person,
			COUNT(*) FILTER (WHERE rc.visit_type = 'telefonica') AS visits_by_phone,
			COALESCE(SUM(rc.sale_value), 0) AS total_sales,
			COALESCE(SUM(rc.collection_value), 0) AS total_collection,
			COALESCE(SUM(rc.returns_value), 0) AS total_returns,
			COALESCE(SUM(rc.promotions_value), 0) AS total_promotions
		FROM route_clients rc
		JOIN routes r ON r.id = rc.route_id
		WHERE r.creator_id = $1
		  AND rc.status = 'Activo'
		  AND rc.assigned_date BETWEEN $2 AND $3
	`

	if err := r.db.Get(&summary, query, sellerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate seller summary: %w", err)
	}

	return &summary, nil
}
