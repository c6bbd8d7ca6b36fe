package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CampaignCollection = "campaigns"

// Campaign is a fundraising effort for a pet. CurrentAmount always equals
// the sum of Contributions[*].Amount; both are only changed together by the
// ledger package.
type Campaign struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Creator          string             `bson:"creator" json:"creator"`
	CreatorEmail     string             `bson:"creatorEmail,omitempty" json:"creatorEmail,omitempty"`
	PetName          string             `bson:"petName" json:"petName"`
	PetImage         string             `bson:"petImage,omitempty" json:"petImage,omitempty"`
	ShortDescription string             `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	LongDescription  string             `bson:"longDescription,omitempty" json:"longDescription,omitempty"`
	LastDate         *time.Time         `bson:"lastDate,omitempty" json:"lastDate,omitempty"`
	TargetAmount     float64            `bson:"targetAmount" json:"targetAmount"`
	CurrentAmount    float64            `bson:"currentAmount" json:"currentAmount"`
	IsPaused         bool               `bson:"isPaused" json:"isPaused"`
	Contributions    []Contribution     `bson:"contributions" json:"contributions"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Contribution is embedded in a Campaign and never stored on its own.
// DonorName and DonorPhoto are a snapshot taken when the pledge was made.
type Contribution struct {
	ID              primitive.ObjectID `bson:"id" json:"id"`
	Donor           string             `bson:"donor" json:"donor"`
	DonorName       string             `bson:"donorName,omitempty" json:"donorName,omitempty"`
	DonorPhoto      string             `bson:"donorPhoto,omitempty" json:"donorPhoto,omitempty"`
	Amount          float64            `bson:"amount" json:"amount"`
	DonatedAt       time.Time          `bson:"donatedAt" json:"donatedAt"`
	RefundRequested bool               `bson:"refundRequested" json:"refundRequested"`
}
