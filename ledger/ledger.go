// Package ledger owns the money-bearing fields of a campaign document:
// the running total and the embedded contribution list.
//
// Every mutation is a single updateOne against the campaign document.
// The running total and the list are never read back and rewritten from
// application code; MongoDB applies $push and $inc to the same document
// atomically, so concurrent donations to one campaign cannot lose updates.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/pawshome-go/models"
)

const (
	DefaultRecommendedLimit = 3
	MaxRecommendedLimit     = 20

	// MaxContributionAmount bounds a single pledge so the running total
	// stays finite.
	MaxContributionAmount = 1_000_000_000
)

var (
	ErrInvalidAmount        = errors.New("amount must be a positive number")
	ErrAmountTooLarge       = fmt.Errorf("amount must not exceed %d", MaxContributionAmount)
	ErrInvalidDonor         = errors.New("donor is required")
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrContributionNotFound = errors.New("contribution not found")
)

// Donor identifies who is giving, plus the profile snapshot copied onto the
// contribution. The snapshot is never refreshed afterwards.
type Donor struct {
	Subject string
	Name    string
	Photo   string
}

// Outcome reports what the store did with a mutation.
type Outcome struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

type Ledger struct {
	col *mongo.Collection
	now func() time.Time
}

// New returns a Ledger over the campaigns collection.
func New(col *mongo.Collection) *Ledger {
	return &Ledger{col: col, now: time.Now}
}

// RecordContribution appends a contribution and bumps currentAmount by the
// same amount in one document update.
func (l *Ledger) RecordContribution(ctx context.Context, campaignID primitive.ObjectID, donor Donor, amount float64) (*models.Contribution, Outcome, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, Outcome{}, err
	}
	if strings.TrimSpace(donor.Subject) == "" {
		return nil, Outcome{}, ErrInvalidDonor
	}

	// mongo keeps millisecond precision
	now := l.now().UTC().Truncate(time.Millisecond)
	contribution := models.Contribution{
		ID:         primitive.NewObjectID(),
		Donor:      donor.Subject,
		DonorName:  donor.Name,
		DonorPhoto: donor.Photo,
		Amount:     amount,
		DonatedAt:  now,
	}

	res, err := l.col.UpdateOne(ctx, bson.M{"_id": campaignID}, ContributionUpdate(contribution, now))
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("record contribution: %w", err)
	}

	out := Outcome{Matched: res.MatchedCount, Modified: res.ModifiedCount}
	if res.MatchedCount == 0 {
		return nil, out, ErrCampaignNotFound
	}
	return &contribution, out, nil
}

// RequestRefund flags a donor's contribution as refund-requested. Without a
// contribution id the first entry by that donor is flagged. Flagging an
// entry that is already flagged is a successful no-op.
func (l *Ledger) RequestRefund(ctx context.Context, campaignID primitive.ObjectID, donor string, contributionID *primitive.ObjectID) (Outcome, error) {
	if strings.TrimSpace(donor) == "" {
		return Outcome{}, ErrInvalidDonor
	}

	res, err := l.col.UpdateOne(ctx, RefundFilter(campaignID, donor, contributionID), RefundUpdate())
	if err != nil {
		return Outcome{}, fmt.Errorf("request refund: %w", err)
	}

	out := Outcome{Matched: res.MatchedCount, Modified: res.ModifiedCount}
	if res.MatchedCount == 0 {
		return out, ErrContributionNotFound
	}
	return out, nil
}

// ListRecommended returns up to limit active campaigns other than exclude.
// Order is whatever the store yields; it is not a ranking.
func (l *Ledger) ListRecommended(ctx context.Context, exclude primitive.ObjectID, limit int64) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = DefaultRecommendedLimit
	}
	if limit > MaxRecommendedLimit {
		limit = MaxRecommendedLimit
	}

	filter := bson.M{"_id": bson.M{"$ne": exclude}, "isPaused": false}
	cursor, err := l.col.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recommended: %w", err)
	}

	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, fmt.Errorf("decode recommended: %w", err)
	}
	return campaigns, nil
}

// ContributionsBy returns every campaign the donor gave to, each carrying
// only that donor's contributions.
func (l *Ledger) ContributionsBy(ctx context.Context, donor string) ([]models.Campaign, error) {
	if strings.TrimSpace(donor) == "" {
		return nil, ErrInvalidDonor
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := l.col.Find(ctx, bson.M{"contributions.donor": donor}, opts)
	if err != nil {
		return nil, fmt.Errorf("find contributions: %w", err)
	}

	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, fmt.Errorf("decode contributions: %w", err)
	}
	return ProjectContributions(campaigns, donor), nil
}

// ValidateAmount rejects zero, negative, NaN and infinite amounts, and
// anything above MaxContributionAmount.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxContributionAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// ContributionUpdate is the single update document that appends c and adds
// its amount to the running total.
func ContributionUpdate(c models.Contribution, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"contributions": c},
		"$inc":  bson.M{"currentAmount": c.Amount},
		"$set":  bson.M{"updatedAt": now},
	}
}

// RefundFilter selects the campaign and the contribution the positional
// operator in RefundUpdate will point at.
func RefundFilter(campaignID primitive.ObjectID, donor string, contributionID *primitive.ObjectID) bson.M {
	if contributionID != nil {
		return bson.M{
			"_id": campaignID,
			"contributions": bson.M{
				"$elemMatch": bson.M{"id": *contributionID, "donor": donor},
			},
		}
	}
	return bson.M{"_id": campaignID, "contributions.donor": donor}
}

// RefundUpdate leaves updatedAt alone so that a repeated request reports
// zero modified documents. ETags hash the whole document, so the flag
// change still invalidates cached copies.
func RefundUpdate() bson.M {
	return bson.M{"$set": bson.M{"contributions.$.refundRequested": true}}
}
