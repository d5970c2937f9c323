package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/pkg/logger"
	"go.uber.org/zap"
)

const (
	// ClaimsKey holds the verified token claims as map[string]interface{}.
	ClaimsKey = "claims"
	// TokenKey holds the raw access token of an authenticated request.
	TokenKey = "token"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Revocations reports access tokens revoked before their expiry.
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// bearer returns the token from the Authorization header, falling back to
// the "token" cookie.
func bearer(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	tok, _ := c.Cookie("token")
	return tok
}

func verify(c *gin.Context, ver Verifier, revoked Revocations, token string) (map[string]interface{}, int, string) {
	t, err := ver.Verify(c.Request.Context(), token)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}
	if revoked != nil {
		black, err := revoked.Contains(c.Request.Context(), token)
		if err != nil {
			logger.L().Error("token revocation check failed", zap.Error(err))
			return nil, http.StatusInternalServerError, "Authentication failed"
		}
		if black {
			return nil, http.StatusUnauthorized, "Token has been revoked"
		}
	}
	var claims map[string]interface{}
	if err := t.Claims(&claims); err != nil {
		return nil, http.StatusUnauthorized, "Authentication failed"
	}
	return claims, 0, ""
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using
// the provided verifier. revoked may be nil.
func AuthMiddleware(ver Verifier, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		claims, status, msg := verify(c, ver, revoked, token)
		if claims == nil {
			abort(c, status, msg)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid token is present and never rejects.
func OptionalAuth(ver Verifier, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" {
			if claims, _, _ := verify(c, ver, revoked, token); claims != nil {
				c.Set(ClaimsKey, claims)
				c.Set(TokenKey, token)
			}
		}
		c.Next()
	}
}

// Authorize admits callers whose role claim is one of roles. It must run
// after AuthMiddleware.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ClaimsKey)
		claims, _ := v.(map[string]interface{})
		if !ok || claims == nil {
			abort(c, http.StatusUnauthorized, "Access denied. No user found")
			return
		}
		role, _ := claims["role"].(string)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		id, _ := claims["id"].(string)
		logger.L().Warn("unauthorized access attempt",
			zap.String("user_id", id), zap.String("role", role), zap.Strings("required", roles), zap.String("path", c.FullPath()))
		abort(c, http.StatusForbidden, "Access denied. You are not authorized to perform this action.")
	}
}
