package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/phillip/pawshome-go/config"
	models "github.com/phillip/pawshome-go/models"
	utils "github.com/phillip/pawshome-go/utils"
)

// Register creates the caller's profile on first sign-in. Later calls leave
// an existing profile untouched.
func Register(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		var input struct {
			Name     string `json:"name"`
			PhotoURL string `json:"photoURL" binding:"omitempty,url"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				utils.BindError(c, err)
				return
			}
		}

		name := strings.TrimSpace(input.Name)
		if name == "" {
			name = c.GetString("name")
		}
		photo := input.PhotoURL
		if photo == "" {
			photo = c.GetString("picture")
		}

		now := time.Now().UTC()
		col := cfg.Collection(models.UserCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := col.UpdateOne(ctx,
			bson.M{"uid": uid},
			bson.M{"$setOnInsert": bson.M{
				"uid":       uid,
				"email":     c.GetString("email"),
				"name":      name,
				"photoURL":  photo,
				"role":      models.RoleUser,
				"banned":    false,
				"createdAt": now,
				"updatedAt": now,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			storeFailure(cfg, c, "could not register user", err)
			return
		}

		var user models.User
		if err := col.FindOne(ctx, bson.M{"uid": uid}).Decode(&user); err != nil {
			storeFailure(cfg, c, "could not load user", err)
			return
		}

		status := http.StatusOK
		if res.UpsertedCount > 0 {
			status = http.StatusCreated
		}
		c.JSON(status, user)
	}
}

// Me echoes the identity resolved from the bearer token.
func Me(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      uid,
			"email":   c.GetString("email"),
			"name":    c.GetString("name"),
			"picture": c.GetString("picture"),
			"role":    c.GetString("role"),
		})
	}
}

// ---------------- PROFILE ----------------
func GetProfile(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		user, err := lookupUser(ctx, cfg, uid)
		if err != nil {
			storeFailure(cfg, c, "could not load profile", err)
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found, register first"})
			return
		}

		if notModified(c, user, user.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateProfile(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		var input struct {
			Name     *string `json:"name" binding:"omitempty,min=1"`
			PhotoURL *string `json:"photoURL" binding:"omitempty,url"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}

		set := bson.M{}
		if input.Name != nil {
			set["name"] = strings.TrimSpace(*input.Name)
		}
		if input.PhotoURL != nil {
			set["photoURL"] = *input.PhotoURL
		}
		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		set["updatedAt"] = time.Now().UTC()

		col := cfg.Collection(models.UserCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := col.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": set})
		if err != nil {
			storeFailure(cfg, c, "could not update profile", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found, register first"})
			return
		}

		var updated models.User
		if err := col.FindOne(ctx, bson.M{"uid": uid}).Decode(&updated); err != nil {
			storeFailure(cfg, c, "failed to retrieve updated profile", err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// ---------------- ADMIN ----------------
func ListUsers(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)

		filter := bson.M{}
		if q := strings.TrimSpace(c.Query("search")); q != "" {
			re := utils.SearchRegex(q)
			filter["$or"] = bson.A{bson.M{"email": re}, bson.M{"name": re}}
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.User](ctx, cfg.Collection(models.UserCollection), filter, page)
		if err != nil {
			storeFailure(cfg, c, "could not fetch users", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func MakeAdmin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "user")
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := cfg.Collection(models.UserCollection).UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"role": models.RoleAdmin, "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			storeFailure(cfg, c, "could not update user", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": oid.Hex(), "role": models.RoleAdmin})
	}
}

// ToggleBan flips a user's banned flag. Admins cannot ban themselves.
func ToggleBan(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "user")
		if !ok {
			return
		}

		col := cfg.Collection(models.UserCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		var user models.User
		err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			storeFailure(cfg, c, "could not fetch user", err)
			return
		}
		if user.UID == c.GetString("user_id") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot ban yourself"})
			return
		}

		banned := !user.Banned
		res, err := col.UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"banned": banned, "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			storeFailure(cfg, c, "could not update user", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": oid.Hex(), "banned": banned})
	}
}
