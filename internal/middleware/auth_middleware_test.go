package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "maria@distrifarma.ec", "Maria Lopez", models.RoleUsuario)
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		require.True(t, exists)
		c.JSON(http.StatusOK, gin.H{
			"user_id": userCtx.UserID,
			"email":   userCtx.Email,
			"role":    userCtx.Role,
		})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "maria@distrifarma.ec")
	assert.Contains(t, w.Body.String(), models.RoleUsuario)
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Missing Bearer", "some-token"},
		{"Wrong prefix", "Basic some-token"},
		{"Empty Bearer", "Bearer "},
		{"No token", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	for _, token := range []string{"invalid.token.here", "randomstringnotavalidtoken"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := w.Body.String()
		hasValidError := strings.Contains(body, "INVALID_TOKEN") || strings.Contains(body, "TOKEN_EXPIRED")
		assert.True(t, hasValidError, "expected INVALID_TOKEN or TOKEN_EXPIRED, got: %s", body)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		1*time.Millisecond,
		24*time.Hour,
	)
	router := setupTestRouter()

	token, err := jwtService.GenerateAccessToken(uuid.New(), "maria@distrifarma.ec", "Maria Lopez", models.RoleUsuario)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()

	protect := func(router *gin.Engine, path string, roles ...string) {
		router.GET(path, AuthMiddleware(jwtService), RequireRole(roles...), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})
	}

	tokenFor := func(t *testing.T, role string) string {
		t.Helper()
		token, err := jwtService.GenerateAccessToken(uuid.New(), "user@distrifarma.ec", "Test User", role)
		require.NoError(t, err)
		return token
	}

	t.Run("User Has Required Role", func(t *testing.T) {
		router := setupTestRouter()
		protect(router, "/supervisors-only", models.RoleSupervisor)

		req := httptest.NewRequest("GET", "/supervisors-only", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleSupervisor))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Wrong Role Is Forbidden", func(t *testing.T) {
		router := setupTestRouter()
		protect(router, "/admins-only", models.RoleAdministrador)

		req := httptest.NewRequest("GET", "/admins-only", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleUsuario))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_ROLE")
	})

	t.Run("Any Of Multiple Roles", func(t *testing.T) {
		router := setupTestRouter()
		protect(router, "/call-queue", models.RoleAdministrador, models.RoleSupervisor, models.RoleTelemercaderista)

		req := httptest.NewRequest("GET", "/call-queue", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleTelemercaderista))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("No User Context", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/no-auth", RequireRole(models.RoleAdministrador), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		req := httptest.NewRequest("GET", "/no-auth", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
	})
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Context Exists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := UserContext{
			UserID: uuid.New(),
			Email:  "maria@distrifarma.ec",
			Name:   "Maria Lopez",
			Role:   models.RoleUsuario,
		}
		c.Set(UserContextKey, expected)

		userCtx, exists := GetUserContext(c)
		assert.True(t, exists)
		assert.Equal(t, expected, userCtx)
	})

	t.Run("Context Not Found", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		userCtx, exists := GetUserContext(c)
		assert.False(t, exists)
		assert.Equal(t, UserContext{}, userCtx)
	})

	t.Run("Context Wrong Type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(UserContextKey, "wrong type")
		userCtx, exists := GetUserContext(c)
		assert.False(t, exists)
		assert.Equal(t, UserContext{}, userCtx)
	})
}
