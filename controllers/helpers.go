package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/phillip/pawshome-go/config"
	models "github.com/phillip/pawshome-go/models"
	utils "github.com/phillip/pawshome-go/utils"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func requestContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.RequestTimeout)
}

// callerID returns the authenticated subject, answering 401 when absent.
func callerID(c *gin.Context) (string, bool) {
	uid := c.GetString("user_id")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return uid, true
}

// canManage reports whether the caller owns a resource or is an admin,
// either by token claim or by the role stored on their profile.
func canManage(ctx context.Context, cfg *config.Config, c *gin.Context, owner string) (bool, error) {
	if c.GetString("user_id") == owner || c.GetString("role") == models.RoleAdmin {
		return true, nil
	}
	user, err := lookupUser(ctx, cfg, c.GetString("user_id"))
	if err != nil {
		return false, err
	}
	return user != nil && user.Role == models.RoleAdmin, nil
}

// notModified sets ETag and Last-Modified and answers 304 when the client
// already holds this version of doc.
func notModified(c *gin.Context, doc interface{}, updatedAt time.Time) bool {
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))

	etag, err := utils.GenerateETag(doc)
	if err != nil {
		return false
	}
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	c.Header("ETag", etag)
	return false
}

func storeFailure(cfg *config.Config, c *gin.Context, msg string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Error(msg, "error", err, "request_id", c.GetString("request_id"))
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// listPage fetches one page and the total match count in a single
// aggregate round trip.
func listPage[T any](ctx context.Context, col *mongo.Collection, filter bson.M, page utils.Page) (utils.PageResult[T], error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$facet", Value: bson.M{
			"data":  bson.A{bson.M{"$skip": page.Skip()}, bson.M{"$limit": page.Limit}},
			"total": bson.A{bson.M{"$count": "n"}},
		}}},
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return utils.PageResult[T]{}, err
	}

	var facets []struct {
		Data  []T `bson:"data"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return utils.PageResult[T]{}, err
	}

	var (
		items []T
		total int64
	)
	if len(facets) > 0 {
		items = facets[0].Data
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].N
		}
	}
	return utils.NewPageResult(items, total, page), nil
}

// findAll returns every match newest first, never nil.
func findAll[T any](ctx context.Context, col *mongo.Collection, filter bson.M) ([]T, error) {
	cursor, err := col.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// lookupUser returns nil, nil when the subject never registered.
func lookupUser(ctx context.Context, cfg *config.Config, uid string) (*models.User, error) {
	var user models.User
	err := cfg.Collection(models.UserCollection).FindOne(ctx, bson.M{"uid": uid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
