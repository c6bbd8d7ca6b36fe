package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/pawshome-go/config"
	identity "github.com/phillip/pawshome-go/identity"
)

// AuthMiddleware resolves the bearer token into the caller's identity and
// stores it on the context as user_id, email, name, picture and role.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := identity.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		id, err := cfg.Verifier.Verify(ctx, token)
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidToken) {
				logger(cfg).Warn("token verification failed", "error", err, "request_id", c.GetString(RequestIDKey))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", id.Subject)
		c.Set("email", id.Email)
		c.Set("name", id.Name)
		c.Set("picture", id.Picture)
		c.Set("role", id.Role)
		c.Next()
	}
}

func logger(cfg *config.Config) *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}
