package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/distrifarma/rutero-backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserHandler handles user administration operations
type UserHandler struct {
	userRepo    *database.UserRepository
	auditRepo   *database.LoginAuditRepository
	authService *services.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userRepo *database.UserRepository,
	auditRepo *database.LoginAuditRepository,
	authService *services.AuthService,
) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		authService: authService,
	}
}

// CreateUserRequest is the admin user creation payload
type CreateUserRequest struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password"`
	Role         string   `json:"role" binding:"required"`
	SupervisorID string   `json:"supervisor_id"`
	Permissions  []string `json:"permissions"`
}

// CreateUser creates a new user. When no password is supplied a random
// temporary one is generated and returned once in the response.
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and role are required"})
		return
	}

	password := req.Password
	tempPassword := ""
	if password == "" {
		secret, err := utils.GenerateSecret(9)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate temporary password"})
			return
		}
		password = secret
		tempPassword = secret
	}

	hash, err := h.authService.HashPassword(password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	var supervisorID uuid.NullUUID
	if req.SupervisorID != "" {
		id, err := uuid.Parse(req.SupervisorID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supervisor id"})
			return
		}
		supervisorID = uuid.NullUUID{UUID: id, Valid: true}
	}

	user, err := h.userRepo.CreateUser(req.Name, req.Email, hash, req.Role, supervisorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if len(req.Permissions) > 0 {
		user.Permissions = pq.StringArray(req.Permissions)
		if err := h.userRepo.UpdateUser(user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set permissions"})
			return
		}
	}

	resp := gin.H{"user": user}
	if tempPassword != "" {
		resp["temporary_password"] = tempPassword
	}
	c.JSON(http.StatusCreated, resp)
}

// ListUsers returns all users
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetProfile returns the authenticated user's own record
// GET /api/v1/users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	user, err := h.userRepo.GetUserByID(userCtx.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUserRequest is the admin user update payload
type UpdateUserRequest struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Role         string   `json:"role" binding:"required"`
	SupervisorID string   `json:"supervisor_id"`
	Permissions  []string `json:"permissions"`
	Status       string   `json:"status" binding:"required"`
}

// UpdateUser updates a user record
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email, role and status are required"})
		return
	}

	user, err := h.userRepo.GetUserByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Name = req.Name
	user.Email = req.Email
	user.Role = req.Role
	user.Status = req.Status
	user.Permissions = pq.StringArray(req.Permissions)
	user.SupervisorID = uuid.NullUUID{}
	if req.SupervisorID != "" {
		supID, err := uuid.Parse(req.SupervisorID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supervisor id"})
			return
		}
		user.SupervisorID = uuid.NullUUID{UUID: supID, Valid: true}
	}

	if err := h.userRepo.UpdateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SetPasswordRequest is the privileged password-set payload
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// SetPassword replaces a user's password (admin privileged endpoint)
// POST /api/v1/users/:id/password
func (h *UserHandler) SetPassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password of at least 8 characters is required"})
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := h.userRepo.SetPassword(id, hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// UnlockUser resets the failed-login counter and reactivates the account
// POST /api/v1/users/:id/unlock
func (h *UserHandler) UnlockUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	if err := h.userRepo.UnlockUser(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlock user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unlocked": true})
}

// LoginFailures returns the user's recent failed attempts, a lockout review
// aid for administrators
// GET /api/v1/users/:id/login-failures
func (h *UserHandler) LoginFailures(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	user, err := h.userRepo.GetUserByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	failures, err := h.auditRepo.RecentFailures(user.Email, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list login failures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"failures": failures,
		"count":    len(failures),
	})
}

// actingUser rebuilds the permission-check view of the authenticated user
// from the JWT claims
func actingUser(c *gin.Context) *models.User {
	userCtx, _ := middleware.GetUserContext(c)
	return &models.User{
		ID:    userCtx.UserID,
		Name:  userCtx.Name,
		Email: userCtx.Email,
		Role:  userCtx.Role,
	}
}
