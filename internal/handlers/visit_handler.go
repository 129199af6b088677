package handlers

import (
	"errors"
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VisitHandler handles the daily field-visit workflow
type VisitHandler struct {
	visitService *services.VisitService
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(visitService *services.VisitService) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

// TodaySlate returns today's pending and completed visits for a route
// GET /api/v1/routes/:id/today
func (h *VisitHandler) TodaySlate(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	entries, err := h.visitService.TodaySlate(actingUser(c), routeID)
	if err != nil {
		h.renderVisitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clients": entries,
		"count":   len(entries),
	})
}

// CheckRequest carries the idempotency stamp and optional device location
// for a check-in or check-out. Clients generate op_id once per tap so a
// retried request is recognized as the same operation.
type CheckRequest struct {
	OpID     string             `json:"op_id" binding:"required"`
	Location *services.GeoPoint `json:"location"`
}

// CheckIn opens a visit for one of today's clients
// POST /api/v1/routes/:id/clients/:ruc/check-in
func (h *VisitHandler) CheckIn(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "op_id is required"})
		return
	}
	opID, err := uuid.Parse(req.OpID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "op_id must be a UUID"})
		return
	}

	entry, err := h.visitService.CheckIn(actingUser(c), routeID, c.Param("ruc"), opID, req.Location)
	if err != nil {
		h.renderVisitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": entry})
}

// CaptureVisit records the visit type, note and monetary values
// PUT /api/v1/routes/:id/clients/:ruc/visit
func (h *VisitHandler) CaptureVisit(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var capture services.VisitCapture
	if err := c.ShouldBindJSON(&capture); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visit payload"})
		return
	}

	entry, err := h.visitService.Capture(actingUser(c), routeID, c.Param("ruc"), capture)
	if err != nil {
		h.renderVisitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": entry})
}

// CheckOut closes a visit. When it was the route's last pending visit,
// the route closes as Completada in the same operation.
// POST /api/v1/routes/:id/clients/:ruc/check-out
func (h *VisitHandler) CheckOut(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "op_id is required"})
		return
	}
	opID, err := uuid.Parse(req.OpID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "op_id must be a UUID"})
		return
	}

	entry, routeCompleted, err := h.visitService.CheckOut(actingUser(c), routeID, c.Param("ruc"), opID, req.Location)
	if err != nil {
		h.renderVisitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":          entry,
		"route_completed": routeCompleted,
	})
}

// renderVisitError maps visit workflow errors onto HTTP responses
func (h *VisitHandler) renderVisitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	case errors.Is(err, services.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found on route"})
	case errors.Is(err, services.ErrNotPermitted):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted for this route"})
	case errors.Is(err, services.ErrRouteNotInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Route is not in progress"})
	case errors.Is(err, services.ErrNotToday):
		c.JSON(http.StatusConflict, gin.H{"error": "Client is not scheduled for today"})
	case errors.Is(err, services.ErrOpenVisit):
		c.JSON(http.StatusConflict, gin.H{"error": "Close the open visit before starting another"})
	case errors.Is(err, services.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": "Client is already checked in"})
	case errors.Is(err, services.ErrNoCheckIn):
		c.JSON(http.StatusConflict, gin.H{"error": "Check in before checking out"})
	case errors.Is(err, services.ErrVisitTypeRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Record the visit type before checking out"})
	case errors.Is(err, services.ErrPhoneNoteRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone visits require a note"})
	case errors.Is(err, services.ErrVisitCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "Visit is already completed"})
	case errors.Is(err, database.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Route was modified by another user; reload and retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}
