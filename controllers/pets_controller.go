package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	config "github.com/phillip/pawshome-go/config"
	models "github.com/phillip/pawshome-go/models"
	utils "github.com/phillip/pawshome-go/utils"
)

// ---------------- LIST ----------------

// ListPets pages through pets still waiting for a home.
func ListPets(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)

		// --- Build filter ---
		filter := bson.M{"adopted": false}
		if q := strings.TrimSpace(c.Query("search")); q != "" {
			filter["petName"] = utils.SearchRegex(q)
		}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["petCategory"] = category
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Pet](ctx, cfg.Collection(models.PetCollection), filter, page)
		if err != nil {
			storeFailure(cfg, c, "could not fetch pets", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func ListAllPets(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Pet](ctx, cfg.Collection(models.PetCollection), bson.M{}, utils.ParsePage(c))
		if err != nil {
			storeFailure(cfg, c, "could not fetch pets", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func MyPets(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Pet](ctx, cfg.Collection(models.PetCollection), bson.M{"owner": uid}, utils.ParsePage(c))
		if err != nil {
			storeFailure(cfg, c, "could not fetch pets", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ---------------- GET ----------------
func GetPet(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "pet")
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		var pet models.Pet
		err := cfg.Collection(models.PetCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&pet)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
			return
		}
		if err != nil {
			storeFailure(cfg, c, "could not fetch pet", err)
			return
		}

		if notModified(c, pet, pet.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, pet)
	}
}

// ---------------- CREATE ----------------
func CreatePet(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		var input struct {
			PetName          string `json:"petName" binding:"required"`
			PetImage         string `json:"petImage" binding:"omitempty,url"`
			PetAge           int    `json:"petAge" binding:"gte=0"`
			PetCategory      string `json:"petCategory"`
			PetLocation      string `json:"petLocation"`
			ShortDescription string `json:"shortDescription"`
			LongDescription  string `json:"longDescription"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}

		now := time.Now().UTC()
		pet := models.Pet{
			Owner:            uid,
			OwnerEmail:       c.GetString("email"),
			PetName:          strings.TrimSpace(input.PetName),
			PetImage:         input.PetImage,
			PetAge:           input.PetAge,
			PetCategory:      strings.TrimSpace(input.PetCategory),
			PetLocation:      input.PetLocation,
			ShortDescription: input.ShortDescription,
			LongDescription:  input.LongDescription,
			Adopted:          false,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := cfg.Collection(models.PetCollection).InsertOne(ctx, pet)
		if err != nil {
			storeFailure(cfg, c, "could not create pet", err)
			return
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			pet.ID = oid
		}

		c.JSON(http.StatusCreated, pet)
	}
}

// ---------------- UPDATE ----------------
func UpdatePet(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "pet")
		if !ok {
			return
		}

		var input struct {
			PetName          *string `json:"petName" binding:"omitempty,min=1"`
			PetImage         *string `json:"petImage" binding:"omitempty,url"`
			PetAge           *int    `json:"petAge" binding:"omitempty,gte=0"`
			PetCategory      *string `json:"petCategory"`
			PetLocation      *string `json:"petLocation"`
			ShortDescription *string `json:"shortDescription"`
			LongDescription  *string `json:"longDescription"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}

		set := bson.M{}
		if input.PetName != nil {
			set["petName"] = strings.TrimSpace(*input.PetName)
		}
		if input.PetImage != nil {
			set["petImage"] = *input.PetImage
		}
		if input.PetAge != nil {
			set["petAge"] = *input.PetAge
		}
		if input.PetCategory != nil {
			set["petCategory"] = strings.TrimSpace(*input.PetCategory)
		}
		if input.PetLocation != nil {
			set["petLocation"] = *input.PetLocation
		}
		if input.ShortDescription != nil {
			set["shortDescription"] = *input.ShortDescription
		}
		if input.LongDescription != nil {
			set["longDescription"] = *input.LongDescription
		}
		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		set["updatedAt"] = time.Now().UTC()

		if _, ok := loadManagedPet(cfg, c, oid); !ok {
			return
		}

		col := cfg.Collection(models.PetCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
		if err != nil {
			storeFailure(cfg, c, "could not update pet", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
			return
		}

		var updated models.Pet
		if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&updated); err != nil {
			storeFailure(cfg, c, "failed to retrieve updated pet", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "pet updated successfully",
			"pet":     updated,
		})
	}
}

func ToggleAdopted(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "pet")
		if !ok {
			return
		}

		existing, ok := loadManagedPet(cfg, c, oid)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		adopted := !existing.Adopted
		res, err := cfg.Collection(models.PetCollection).UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"adopted": adopted, "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			storeFailure(cfg, c, "could not update pet", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": oid.Hex(), "adopted": adopted})
	}
}

// ---------------- DELETE ----------------
func DeletePet(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "pet")
		if !ok {
			return
		}

		if _, ok := loadManagedPet(cfg, c, oid); !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := cfg.Collection(models.PetCollection).DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			storeFailure(cfg, c, "failed to delete pet", err)
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "pet deleted successfully",
			"id":      oid.Hex(),
		})
	}
}

func loadManagedPet(cfg *config.Config, c *gin.Context, oid primitive.ObjectID) (*models.Pet, bool) {
	if c.GetString("user_id") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	ctx, cancel := requestContext(cfg)
	defer cancel()

	var existing models.Pet
	err := cfg.Collection(models.PetCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
		return nil, false
	}
	if err != nil {
		storeFailure(cfg, c, "could not fetch pet", err)
		return nil, false
	}

	allowed, err := canManage(ctx, cfg, c, existing.Owner)
	if err != nil {
		storeFailure(cfg, c, "could not verify access", err)
		return nil, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return nil, false
	}
	return &existing, true
}
