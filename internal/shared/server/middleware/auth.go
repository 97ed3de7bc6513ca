package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docviewer-backend/internal/shared/auth"
	"docviewer-backend/internal/shared/server/respond"
	"docviewer-backend/internal/users"
)

const (
	userIDKey = "userId"
	userKey   = "user"

	authRequiredMessage = "Authentication required"
)

// UserLoader resolves the user behind a verified session token.
type UserLoader interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// TokenVerifier checks a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth verifies the bearer session token and loads the user fresh from the
// store, so role and impersonation mode changes apply on the next request.
// Paths in public bypass the check.
func Auth(verifier TokenVerifier, loader UserLoader, public ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range public {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, authRequiredMessage)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, authRequiredMessage)
			return
		}

		user, err := loader.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				respond.Error(c, http.StatusUnauthorized, authRequiredMessage)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "Failed to load session")
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(c *gin.Context) (users.User, bool) {
	if c == nil {
		return users.User{}, false
	}
	val, ok := c.Get(userKey)
	if !ok {
		return users.User{}, false
	}
	user, ok := val.(users.User)
	if !ok || user.ID == "" {
		return users.User{}, false
	}
	return user, true
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
