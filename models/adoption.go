package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const AdoptionCollection = "adoptions"

const (
	AdoptionPending  = "pending"
	AdoptionAccepted = "accepted"
	AdoptionRejected = "rejected"
)

type AdoptionRequest struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PetID        primitive.ObjectID `bson:"petId" json:"petId"`
	PetName      string             `bson:"petName,omitempty" json:"petName,omitempty"`
	PetImage     string             `bson:"petImage,omitempty" json:"petImage,omitempty"`
	PetOwner     string             `bson:"petOwner" json:"petOwner"`
	Adopter      string             `bson:"adopter" json:"adopter"`
	AdopterName  string             `bson:"adopterName,omitempty" json:"adopterName,omitempty"`
	AdopterEmail string             `bson:"adopterEmail,omitempty" json:"adopterEmail,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string             `bson:"address,omitempty" json:"address,omitempty"`
	Status       string             `bson:"status" json:"status"` // pending, accepted, rejected
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
