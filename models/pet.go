package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const PetCollection = "pets"

type Pet struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner            string             `bson:"owner" json:"owner"`
	OwnerEmail       string             `bson:"ownerEmail,omitempty" json:"ownerEmail,omitempty"`
	PetName          string             `bson:"petName" json:"petName"`
	PetImage         string             `bson:"petImage,omitempty" json:"petImage,omitempty"`
	PetAge           int                `bson:"petAge,omitempty" json:"petAge,omitempty"`
	PetCategory      string             `bson:"petCategory,omitempty" json:"petCategory,omitempty"`
	PetLocation      string             `bson:"petLocation,omitempty" json:"petLocation,omitempty"`
	ShortDescription string             `bson:"shortDescription,omitempty" json:"shortDescription,omitempty"`
	LongDescription  string             `bson:"longDescription,omitempty" json:"longDescription,omitempty"`
	Adopted          bool               `bson:"adopted" json:"adopted"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
