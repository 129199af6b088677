package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RouteHandler handles route plan operations
type RouteHandler struct {
	routeService    *services.RouteService
	recoveryService *services.RecoveryService
	expiration      *services.ExpirationService
	logger          *logrus.Logger
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(
	routeService *services.RouteService,
	recoveryService *services.RecoveryService,
	expiration *services.ExpirationService,
	logger *logrus.Logger,
) *RouteHandler {
	return &RouteHandler{
		routeService:    routeService,
		recoveryService: recoveryService,
		expiration:      expiration,
		logger:          logger,
	}
}

// RouteClientRequest is one planned visit in a route payload
type RouteClientRequest struct {
	RUC          string `json:"ruc" binding:"required"`
	ClientName   string `json:"client_name" binding:"required"`
	AssignedDate string `json:"assigned_date" binding:"required"` // YYYY-MM-DD
}

// CreateRouteRequest is the route creation payload
type CreateRouteRequest struct {
	Name         string               `json:"name" binding:"required"`
	RouteDate    string               `json:"route_date" binding:"required"` // YYYY-MM-DD
	SupervisorID string               `json:"supervisor_id" binding:"required"`
	Origin       string               `json:"origin"`
	Submit       bool                 `json:"submit"`
	Clients      []RouteClientRequest `json:"clients"`
}

// CreateRoute saves a new route, directly or submitted for review
// POST /api/v1/routes
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, route_date and supervisor_id are required"})
		return
	}

	routeDate, err := time.Parse("2006-01-02", req.RouteDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route_date must be YYYY-MM-DD"})
		return
	}

	supervisorID, err := uuid.Parse(req.SupervisorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supervisor id"})
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	route := &models.Route{
		Name:         req.Name,
		RouteDate:    routeDate,
		CreatorID:    userCtx.UserID,
		SupervisorID: supervisorID,
		Origin:       req.Origin,
	}

	for i, rc := range req.Clients {
		assigned, err := time.Parse("2006-01-02", rc.AssignedDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assigned_date must be YYYY-MM-DD"})
			return
		}
		route.Clients = append(route.Clients, models.RouteClient{
			RUC:          rc.RUC,
			ClientName:   rc.ClientName,
			AssignedDate: assigned,
			Position:     i,
		})
	}

	if err := h.routeService.CreateRoute(route, req.Submit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create route"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"route": route})
}

// ListRoutes returns the routes visible to the caller. Listing also sweeps
// the caller's own stale in-progress routes, preserving the original
// close-on-sight behavior alongside the scheduled job.
// GET /api/v1/routes
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	user := actingUser(c)

	if user.Role == models.RoleUsuario {
		if err := h.expiration.SweepOwner(user.ID); err != nil {
			// Listing still proceeds on a failed sweep
			h.logger.WithError(err).WithField("user_id", user.ID).Warn("Owner sweep failed during route listing")
		}
	}

	routes, err := h.routeService.ListForUser(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list routes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"routes": routes,
		"count":  len(routes),
	})
}

// GetRoute returns one route with its client entries
// GET /api/v1/routes/:id
func (h *RouteHandler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	route, err := h.routeService.GetForUser(actingUser(c), routeID)
	if err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": route})
}

// UpdateRouteRequest is the route field-edit payload; version carries the
// optimistic-concurrency stamp the client read.
type UpdateRouteRequest struct {
	Name         string `json:"name" binding:"required"`
	RouteDate    string `json:"route_date" binding:"required"`
	SupervisorID string `json:"supervisor_id" binding:"required"`
	Version      int    `json:"version" binding:"required"`
}

// UpdateRoute edits route fields under the edit permission contract
// PUT /api/v1/routes/:id
func (h *RouteHandler) UpdateRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, route_date, supervisor_id and version are required"})
		return
	}

	routeDate, err := time.Parse("2006-01-02", req.RouteDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route_date must be YYYY-MM-DD"})
		return
	}
	supervisorID, err := uuid.Parse(req.SupervisorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supervisor id"})
		return
	}

	route := &models.Route{
		ID:           routeID,
		Name:         req.Name,
		RouteDate:    routeDate,
		SupervisorID: supervisorID,
		Version:      req.Version,
	}

	if err := h.routeService.UpdateFields(actingUser(c), route); err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": route})
}

// Submit sends a route into review
// POST /api/v1/routes/:id/submit
func (h *RouteHandler) Submit(c *gin.Context) {
	h.transition(c, h.routeService.Submit)
}

// Approve accepts a pending route
// POST /api/v1/routes/:id/approve
func (h *RouteHandler) Approve(c *gin.Context) {
	h.transition(c, h.routeService.Approve)
}

// RejectRequest carries the mandatory rejection observation
type RejectRequest struct {
	Observation string `json:"observation" binding:"required"`
}

// Reject declines a pending route with an observation
// POST /api/v1/routes/:id/reject
func (h *RouteHandler) Reject(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observation is required"})
		return
	}

	if err := h.routeService.Reject(actingUser(c), routeID, req.Observation); err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.RouteStatusRejected})
}

// StartDay puts the route in progress for today's work
// POST /api/v1/routes/:id/start
func (h *RouteHandler) StartDay(c *gin.Context) {
	h.transition(c, h.routeService.StartDay)
}

// ForceClose closes any non-terminal route (administrator override)
// POST /api/v1/routes/:id/force-close
func (h *RouteHandler) ForceClose(c *gin.Context) {
	h.transition(c, h.routeService.ForceClose)
}

// Reopen returns a terminal route to En Progreso (administrator override)
// POST /api/v1/routes/:id/reopen
func (h *RouteHandler) Reopen(c *gin.Context) {
	h.transition(c, h.routeService.Reopen)
}

// AddClient appends a visit entry to the route
// POST /api/v1/routes/:id/clients
func (h *RouteHandler) AddClient(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req RouteClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ruc, client_name and assigned_date are required"})
		return
	}

	assigned, err := time.Parse("2006-01-02", req.AssignedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assigned_date must be YYYY-MM-DD"})
		return
	}

	entry := &models.RouteClient{
		RUC:          req.RUC,
		ClientName:   req.ClientName,
		AssignedDate: assigned,
	}

	if err := h.routeService.AddClient(actingUser(c), routeID, entry); err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"client": entry})
}

// RemoveClientRequest carries the mandatory removal observation
type RemoveClientRequest struct {
	Observation string `json:"observation" binding:"required"`
}

// RemoveClient soft-deletes a visit entry, keeping it for audit history
// POST /api/v1/routes/:id/clients/:ruc/remove
func (h *RouteHandler) RemoveClient(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req RemoveClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observation is required"})
		return
	}

	if err := h.routeService.RemoveClient(actingUser(c), routeID, c.Param("ruc"), req.Observation); err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// Recover rebuilds a predicted route's empty client list from the original
// prediction source
// POST /api/v1/routes/:id/recover
func (h *RouteHandler) Recover(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	route, err := h.recoveryService.Recover(c.Request.Context(), actingUser(c), routeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotRecoverable):
			c.JSON(http.StatusConflict, gin.H{"error": "Route is not eligible for recovery"})
		case errors.Is(err, services.ErrNoPredictions):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Prediction service returned no clients; route unchanged"})
		default:
			h.renderWorkflowError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": route})
}

// transition runs one of the single-argument lifecycle actions
func (h *RouteHandler) transition(c *gin.Context, action func(*models.User, uuid.UUID) error) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	if err := action(actingUser(c), routeID); err != nil {
		h.renderWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// renderWorkflowError maps service errors onto HTTP responses
func (h *RouteHandler) renderWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	case errors.Is(err, services.ErrNotPermitted):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted for this route"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Route status does not allow this action"})
	case errors.Is(err, services.ErrObservationRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "An observation is required"})
	case errors.Is(err, services.ErrActiveRouteExists):
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a route in progress"})
	case errors.Is(err, database.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Route was modified by another user; reload and retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}
