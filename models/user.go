package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserCollection = "users"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the profile kept alongside the identity provider's account.
// UID is the provider's subject id.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID       string             `bson:"uid" json:"uid"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	PhotoURL  string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Role      string             `bson:"role" json:"role"`
	Banned    bool               `bson:"banned" json:"banned"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
