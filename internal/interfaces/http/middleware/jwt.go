package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inmova/backend/internal/infrastructure/auth"
	"github.com/inmova/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey    = "jwt_claims"
	JWTUserIDKey    = "jwt_user_id"
	JWTCompanyIDKey = "jwt_company_id"
	JWTRoleKey      = "jwt_role"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// JWTAuthMiddleware validates the session token issued by the platform's
// auth service and stores its claims in the request context. Webhook routes
// are signature-gated instead and must not pass through this middleware.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, "Missing token")
			return
		}

		claims, err := jwtService.Validate(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					dto.NewErrorResponse(dto.ErrCodeTokenExpired, "Token has expired"))
				return
			}
			abortUnauthorized(c, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTCompanyIDKey, claims.CompanyID)
		c.Set(JWTRoleKey, claims.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}

// GetJWTUserID returns the authenticated user id, or "" when unauthenticated
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTCompanyID returns the authenticated company id, or "" when unauthenticated
func GetJWTCompanyID(c *gin.Context) string {
	return c.GetString(JWTCompanyIDKey)
}

// GetJWTRole returns the authenticated user's role, or "" when unauthenticated
func GetJWTRole(c *gin.Context) string {
	return c.GetString(JWTRoleKey)
}

// GetJWTClaims returns the full validated claims, or nil when unauthenticated
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
