package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	config "github.com/phillip/pawshome-go/config"
	models "github.com/phillip/pawshome-go/models"
)

// RequireAdmin lets the request through when the token carries the admin
// role claim or the caller's user document says admin. Must run after
// AuthMiddleware.
func RequireAdmin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") == models.RoleAdmin {
			c.Next()
			return
		}

		user, err := findUser(cfg, c.GetString("user_id"))
		if err != nil {
			logger(cfg).Error("admin check failed", "error", err, "request_id", c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not verify role"})
			return
		}
		if user == nil || user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("role", models.RoleAdmin)
		c.Next()
	}
}

// RejectBanned stops banned users from mutating anything. Callers without a
// user document yet are let through.
func RejectBanned(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := findUser(cfg, c.GetString("user_id"))
		if err != nil {
			logger(cfg).Error("ban check failed", "error", err, "request_id", c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not verify account"})
			return
		}
		if user != nil && user.Banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is banned"})
			return
		}
		c.Next()
	}
}

// findUser returns nil, nil when no document exists for uid.
func findUser(cfg *config.Config, uid string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	var user models.User
	err := cfg.Collection(models.UserCollection).FindOne(ctx, bson.M{"uid": uid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
