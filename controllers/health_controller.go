package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	config "github.com/phillip/pawshome-go/config"
)

func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "PawsHome server is running")
	}
}

// Health reports whether the document store answers a ping.
func Health(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(cfg)
		defer cancel()

		if err := cfg.MongoClient.Ping(ctx, readpref.Primary()); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("health check failed", "error", err)
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "reachable"})
	}
}
