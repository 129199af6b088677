package handlers

import (
	"net/http"
	"time"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler serves management KPI summaries
type ReportHandler struct {
	reportRepo *database.ReportRepository
	userRepo   *database.UserRepository
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportRepo *database.ReportRepository, userRepo *database.UserRepository) *ReportHandler {
	return &ReportHandler{reportRepo: reportRepo, userRepo: userRepo}
}

// SellerSummary returns visit compliance and monetary totals for one seller
// over a date range. Sellers may only query themselves.
// GET /api/v1/reports/sellers/:id?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ReportHandler) SellerSummary(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seller id"})
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	if userCtx.Role == models.RoleUsuario && userCtx.UserID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be YYYY-MM-DD"})
		return
	}

	summary, err := h.reportRepo.SellerSummary(sellerID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seller_id":      sellerID,
		"from":           from.Format("2006-01-02"),
		"to":             to.Format("2006-01-02"),
		"summary":        summary,
		"compliance_pct": summary.CompliancePct(),
	})
}

// TeamSummary returns per-seller summaries for a supervisor's team
// GET /api/v1/reports/teams/:id?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ReportHandler) TeamSummary(c *gin.Context) {
	supervisorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supervisor id"})
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	if userCtx.Role == models.RoleSupervisor && userCtx.UserID != supervisorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to must be YYYY-MM-DD"})
		return
	}

	sellers, err := h.userRepo.ListSellersBySupervisor(supervisorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list team"})
		return
	}

	type sellerReport struct {
		SellerID      uuid.UUID               `json:"seller_id"`
		SellerName    string                  `json:"seller_name"`
		Summary       *database.SellerSummary `json:"summary"`
		CompliancePct float64                 `json:"compliance_pct"`
	}

	reports := make([]sellerReport, 0, len(sellers))
	for _, seller := range sellers {
		summary, err := h.reportRepo.SellerSummary(seller.ID, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
			return
		}
		reports = append(reports, sellerReport{
			SellerID:      seller.ID,
			SellerName:    seller.Name,
			Summary:       summary,
			CompliancePct: summary.CompliancePct(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"supervisor_id": supervisorID,
		"from":          from.Format("2006-01-02"),
		"to":            to.Format("2006-01-02"),
		"sellers":       reports,
	})
}

// parseDateRange parses the from/to query dates. An empty range defaults to
// the current calendar month.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" && toStr == "" {
		now := time.Now()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0).Add(-time.Second), nil
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to.AddDate(0, 0, 1).Add(-time.Second), nil
}
