package handlers

import (
	"net/http"

	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/distrifarma/rutero-backend/internal/utils"
	"github.com/distrifarma/rutero-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication operations
type AuthHandler struct {
	authService *services.AuthService
	jwtService  *jwt.Service
	userRepo    *database.UserRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *services.AuthService,
	jwtService *jwt.Service,
	userRepo *database.UserRepository,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtService:  jwtService,
		userRepo:    userRepo,
	}
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and returns a token pair
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	device := utils.ParseUserAgent(c.Request.UserAgent())
	user, err := h.authService.Login(req.Email, req.Password, services.LoginContext{
		IP:      utils.GetRealIP(c),
		Browser: device.Browser,
		OS:      device.OS,
	})
	if err != nil {
		switch err {
		case services.ErrAccountLocked:
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive. Contact an administrator."})
		case services.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// RefreshRequest is the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken exchanges a refresh token for a new token pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	user, err := h.userRepo.GetUserByID(claims.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
		return
	}
	if !user.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// AccountStatus reports whether an account exists and whether it is locked
// GET /api/v1/auth/account-status?email=...
func (h *AuthHandler) AccountStatus(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	user, err := h.userRepo.GetUserByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exists":          true,
		"active":          user.IsActive(),
		"failed_attempts": user.FailedAttempts,
	})
}

// FailedAttemptRequest is the failed-attempt counter mutation payload
type FailedAttemptRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// FailedAttempt bumps the failed-login counter for an email
// POST /api/v1/auth/failed-attempt
func (h *AuthHandler) FailedAttempt(c *gin.Context) {
	var req FailedAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	device := utils.ParseUserAgent(c.Request.UserAgent())
	err := h.authService.RecordFailedAttempt(req.Email, services.LoginContext{
		IP:      utils.GetRealIP(c),
		Browser: device.Browser,
		OS:      device.OS,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record attempt"})
		return
	}

	// Same answer whether or not the account exists
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}
