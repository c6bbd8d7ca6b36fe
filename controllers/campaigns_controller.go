package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	config "github.com/phillip/pawshome-go/config"
	ledger "github.com/phillip/pawshome-go/ledger"
	models "github.com/phillip/pawshome-go/models"
	utils "github.com/phillip/pawshome-go/utils"
)

// ---------------- LIST ----------------
func ListCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)

		// --- Build filter ---
		filter := bson.M{"isPaused": false}
		if q := strings.TrimSpace(c.Query("search")); q != "" {
			filter["petName"] = utils.SearchRegex(q)
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Campaign](ctx, cfg.Collection(models.CampaignCollection), filter, page)
		if err != nil {
			storeFailure(cfg, c, "could not fetch campaigns", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func ListAllCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)

		filter := bson.M{}
		if q := strings.TrimSpace(c.Query("search")); q != "" {
			filter["petName"] = utils.SearchRegex(q)
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Campaign](ctx, cfg.Collection(models.CampaignCollection), filter, page)
		if err != nil {
			storeFailure(cfg, c, "could not fetch campaigns", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func MyCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := listPage[models.Campaign](ctx, cfg.Collection(models.CampaignCollection), bson.M{"creator": uid}, utils.ParsePage(c))
		if err != nil {
			storeFailure(cfg, c, "could not fetch campaigns", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// MyContributions lists the campaigns the caller gave to, each trimmed to
// the caller's own contributions.
func MyContributions(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		campaigns, err := ledger.New(cfg.Collection(models.CampaignCollection)).ContributionsBy(ctx, uid)
		if err != nil {
			storeFailure(cfg, c, "could not fetch contributions", err)
			return
		}
		if campaigns == nil {
			campaigns = []models.Campaign{}
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// ---------------- GET ----------------
func GetCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		var campaign models.Campaign
		err := cfg.Collection(models.CampaignCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&campaign)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		if err != nil {
			storeFailure(cfg, c, "could not fetch campaign", err)
			return
		}

		if notModified(c, campaign, campaign.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func RecommendedCampaigns(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		limit := int64(ledger.DefaultRecommendedLimit)
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		campaigns, err := ledger.New(cfg.Collection(models.CampaignCollection)).ListRecommended(ctx, oid, limit)
		if err != nil {
			storeFailure(cfg, c, "could not fetch recommended campaigns", err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

// ---------------- CREATE ----------------
func CreateCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}

		var input struct {
			PetName          string     `json:"petName" binding:"required"`
			PetImage         string     `json:"petImage" binding:"omitempty,url"`
			ShortDescription string     `json:"shortDescription"`
			LongDescription  string     `json:"longDescription"`
			LastDate         *time.Time `json:"lastDate"`
			TargetAmount     float64    `json:"targetAmount" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}

		now := time.Now().UTC()
		campaign := models.Campaign{
			Creator:          uid,
			CreatorEmail:     c.GetString("email"),
			PetName:          strings.TrimSpace(input.PetName),
			PetImage:         input.PetImage,
			ShortDescription: input.ShortDescription,
			LongDescription:  input.LongDescription,
			LastDate:         input.LastDate,
			TargetAmount:     input.TargetAmount,
			CurrentAmount:    0,
			IsPaused:         false,
			// an empty array, not null, so $push works on the first donation
			Contributions: []models.Contribution{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := cfg.Collection(models.CampaignCollection).InsertOne(ctx, campaign)
		if err != nil {
			storeFailure(cfg, c, "could not create campaign", err)
			return
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			campaign.ID = oid
		}

		c.JSON(http.StatusCreated, campaign)
	}
}

// ---------------- UPDATE ----------------

// UpdateCampaign edits descriptive fields and the target. The running total
// and contribution list are not reachable from here.
func UpdateCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		var input struct {
			PetName          *string    `json:"petName" binding:"omitempty,min=1"`
			PetImage         *string    `json:"petImage" binding:"omitempty,url"`
			ShortDescription *string    `json:"shortDescription"`
			LongDescription  *string    `json:"longDescription"`
			LastDate         *time.Time `json:"lastDate"`
			TargetAmount     *float64   `json:"targetAmount" binding:"omitempty,gt=0"`
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
		if input.ShortDescription != nil {
			set["shortDescription"] = *input.ShortDescription
		}
		if input.LongDescription != nil {
			set["longDescription"] = *input.LongDescription
		}
		if input.LastDate != nil {
			set["lastDate"] = *input.LastDate
		}
		if input.TargetAmount != nil {
			set["targetAmount"] = *input.TargetAmount
		}
		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		set["updatedAt"] = time.Now().UTC()

		existing, ok := loadManagedCampaign(cfg, c, oid)
		if !ok {
			return
		}

		col := cfg.Collection(models.CampaignCollection)
		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := col.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": set})
		if err != nil {
			storeFailure(cfg, c, "could not update campaign", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}

		var updated models.Campaign
		if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&updated); err != nil {
			storeFailure(cfg, c, "failed to retrieve updated campaign", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "campaign updated successfully",
			"campaign": updated,
		})
	}
}

// TogglePause flips isPaused. Paused campaigns drop out of public listings
// and recommendations.
func TogglePause(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		existing, ok := loadManagedCampaign(cfg, c, oid)
		if !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		paused := !existing.IsPaused
		res, err := cfg.Collection(models.CampaignCollection).UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"isPaused": paused, "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			storeFailure(cfg, c, "could not update campaign", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": oid.Hex(), "isPaused": paused})
	}
}

// ---------------- DELETE ----------------
func DeleteCampaign(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		if _, ok := loadManagedCampaign(cfg, c, oid); !ok {
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		res, err := cfg.Collection(models.CampaignCollection).DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			storeFailure(cfg, c, "failed to delete campaign", err)
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "campaign deleted successfully",
			"id":      oid.Hex(),
		})
	}
}

// ---------------- LEDGER ----------------

// Donate records a contribution from the caller. The donor name and photo
// are copied from the caller's profile, or from the token when the caller
// never registered.
func Donate(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		var input struct {
			Amount float64 `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BindError(c, err)
			return
		}
		if err := ledger.ValidateAmount(input.Amount); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		donor := ledger.Donor{Subject: uid, Name: c.GetString("name"), Photo: c.GetString("picture")}
		profile, err := lookupUser(ctx, cfg, uid)
		if err != nil {
			storeFailure(cfg, c, "could not load donor profile", err)
			return
		}
		if profile != nil {
			if profile.Name != "" {
				donor.Name = profile.Name
			}
			if profile.PhotoURL != "" {
				donor.Photo = profile.PhotoURL
			}
		}

		contribution, out, err := ledger.New(cfg.Collection(models.CampaignCollection)).RecordContribution(ctx, oid, donor, input.Amount)
		switch {
		case errors.Is(err, ledger.ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrAmountTooLarge), errors.Is(err, ledger.ErrInvalidDonor):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			storeFailure(cfg, c, "could not record donation", err)
			return
		}

		cfg.Metrics.ContributionRecorded(contribution.Amount)
		c.JSON(http.StatusCreated, gin.H{
			"message":       "donation recorded",
			"contribution":  contribution,
			"matchedCount":  out.Matched,
			"modifiedCount": out.Modified,
		})
	}
}

// RequestRefund flags one of the caller's contributions. Without a
// contributionId the caller's first contribution to the campaign is flagged.
func RequestRefund(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := callerID(c)
		if !ok {
			return
		}
		oid, ok := utils.ParamObjectID(c, "id", "campaign")
		if !ok {
			return
		}

		var input struct {
			Donor          string `json:"donor"`
			ContributionID string `json:"contributionId"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				utils.BindError(c, err)
				return
			}
		}

		donor := strings.TrimSpace(input.Donor)
		if donor == "" {
			donor = uid
		}
		if donor != uid {
			c.JSON(http.StatusForbidden, gin.H{"error": "refunds can only be requested for your own contributions"})
			return
		}

		var contributionID *primitive.ObjectID
		if input.ContributionID != "" {
			parsed, err := primitive.ObjectIDFromHex(input.ContributionID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
				return
			}
			contributionID = &parsed
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()

		out, err := ledger.New(cfg.Collection(models.CampaignCollection)).RequestRefund(ctx, oid, donor, contributionID)
		switch {
		case errors.Is(err, ledger.ErrContributionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching contribution on this campaign"})
			return
		case errors.Is(err, ledger.ErrInvalidDonor):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			storeFailure(cfg, c, "could not request refund", err)
			return
		}

		if out.Modified > 0 {
			cfg.Metrics.RefundRequested()
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       "refund requested",
			"matchedCount":  out.Matched,
			"modifiedCount": out.Modified,
		})
	}
}

// loadManagedCampaign fetches a campaign the caller may change, answering
// 404 or 403 otherwise.
func loadManagedCampaign(cfg *config.Config, c *gin.Context, oid primitive.ObjectID) (*models.Campaign, bool) {
	requester := c.GetString("user_id")
	if requester == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	ctx, cancel := requestContext(cfg)
	defer cancel()

	var existing models.Campaign
	err := cfg.Collection(models.CampaignCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return nil, false
	}
	if err != nil {
		storeFailure(cfg, c, "could not fetch campaign", err)
		return nil, false
	}

	allowed, err := canManage(ctx, cfg, c, existing.Creator)
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
