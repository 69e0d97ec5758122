package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inmova/backend/internal/infrastructure/auth"
	"github.com/inmova/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJWTTest(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret: "middleware-test-secret",
		Issuer: "inmova",
	})

	engine := gin.New()
	engine.Use(JWTAuthMiddleware(jwtService))
	engine.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    GetJWTUserID(c),
			"company_id": GetJWTCompanyID(c),
			"role":       GetJWTRole(c),
		})
	})
	return engine, jwtService
}

func TestJWTAuthMiddleware(t *testing.T) {
	t.Run("valid token sets identity in context", func(t *testing.T) {
		engine, jwtService := setupJWTTest(t)
		userID := uuid.New()
		companyID := uuid.New()

		token, err := jwtService.Generate(userID, companyID, "admin", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Contains(t, w.Body.String(), companyID.String())
		assert.Contains(t, w.Body.String(), "admin")
	})

	t.Run("missing header answers 401", func(t *testing.T) {
		engine, _ := setupJWTTest(t)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header answers 401", func(t *testing.T) {
		engine, _ := setupJWTTest(t)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token answers 401 with expired code", func(t *testing.T) {
		engine, jwtService := setupJWTTest(t)

		token, err := jwtService.Generate(uuid.New(), uuid.New(), "admin", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_EXPIRED")
	})
}
