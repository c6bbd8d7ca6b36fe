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

// ---------------- CREATE ----------------

// CreateAdoptionRequest files a pending request for someone else's pet.
// The pet owner is taken from the pet document, never from the body.
func CreateAdoptionRequest(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		var input struct {
			PetID   string `json:"petId" binding:"required"`
			Phone   string `json:"phone" binding:"required"`
			Address string `json:"address" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}
		petID, err := primitive.ObjectIDFromHex(input.PetID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pet id"})
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		var pet models.Pet
		err = cfg.Collection(models.PetCollection).FindOne(ctx, bson.M{"_id": petID}).Decode(&pet)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pet not found"})
			return
		}
		if err != nil {
			storeFailure(cfg, c, "could not fetch pet", err)
			return
		}
		if pet.Owner == uid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot adopt your own pet"})
			return
		}
		if pet.Adopted {
			c.JSON(http.StatusConflict, gin.H{"error": "pet is already adopted"})
			return
		}

		now := time.Now().UTC()
		request := models.AdoptionRequest{
			PetID:        pet.ID,
			PetName:      pet.PetName,
			PetImage:     pet.PetImage,
			PetOwner:     pet.Owner,
			Adopter:      uid,
			AdopterName:  c.GetString("name"),
			AdopterEmail: c.GetString("email"),
			Phone:        strings.TrimSpace(input.Phone),
			Address:      strings.TrimSpace(input.Address),
			Status:       models.AdoptionPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := cfg.Collection(models.AdoptionCollection).InsertOne(ctx, request)
		if err != nil {
			storeFailure(cfg, c, "could not create adoption request", err)
			return
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			request.ID = oid
		}

		c.JSON(http.StatusCreated, request)
	}
}

// ---------------- LIST ----------------
func MyAdoptionRequests(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		requests, err := findAll[models.AdoptionRequest](ctx, cfg.Collection(models.AdoptionCollection), bson.M{"adopter": uid})
		if err != nil {
			storeFailure(cfg, c, "could not fetch adoption requests", err)
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

func RequestsForMyPets(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		filter := bson.M{"petOwner": uid}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		requests, err := findAll[models.AdoptionRequest](ctx, cfg.Collection(models.AdoptionCollection), filter)
		if err != nil {
			storeFailure(cfg, c, "could not fetch adoption requests", err)
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

// ---------------- DECIDE ----------------
func AcceptAdoptionRequest(cfg *config.Config) gin.HandlerFunc {
	return decideAdoption(cfg, models.AdoptionAccepted)
}

func RejectAdoptionRequest(cfg *config.Config) gin.HandlerFunc {
	return decideAdoption(cfg, models.AdoptionRejected)
}

// decideAdoption moves a pending request to status. Only the pet owner may
// decide. Accepting also marks the pet adopted; that second write is best
// effort and not rolled back with the first.
func decideAdoption(cfg *config.Config, status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}
		oid, ok := utils.ParamObjectID(c, "id", "adoption request")
		if !ok {
			return
		}

		col := cfg.Collection(models.AdoptionCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		var request models.AdoptionRequest
		err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&request)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "adoption request not found"})
			return
		}
		if err != nil {
			storeFailure(cfg, c, "could not fetch adoption request", err)
			return
		}
		if request.PetOwner != uid {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the pet owner can decide this request"})
			return
		}

		now := time.Now().UTC()
		res, err := col.UpdateOne(ctx,
			bson.M{"_id": oid, "status": models.AdoptionPending},
			bson.M{"$set": bson.M{"status": status, "updatedAt": now}},
		)
		if err != nil {
			storeFailure(cfg, c, "could not update adoption request", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "adoption request was already decided"})
			return
		}

		if status == models.AdoptionAccepted {
			_, err := cfg.Collection(models.PetCollection).UpdateOne(ctx,
				bson.M{"_id": request.PetID},
				bson.M{"$set": bson.M{"adopted": true, "updatedAt": now}},
			)
			if err != nil && cfg.Logger != nil {
				cfg.Logger.Error("mark pet adopted failed", "error", err, "pet_id", request.PetID.Hex(), "request_id", c.GetString("request_id"))
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "adoption request " + status,
			"id":      oid.Hex(),
			"status":  status,
		})
	}
}
