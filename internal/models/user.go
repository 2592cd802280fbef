package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an identity record. Listings is the denormalized back-reference
// collection of owned listings, kept consistent with listing.creator inside
// a transaction (see services.ListingService).
type User struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name     string               `bson:"name" json:"name"`
	Email    string               `bson:"email" json:"email"`
	Password string               `bson:"password,omitempty" json:"-"`
	Image    string               `bson:"image" json:"image"`
	Listings []primitive.ObjectID `bson:"listings" json:"-"`
}

// UserSummary is the public user shape embedded in auth responses and
// listing details.
type UserSummary struct {
	ID    primitive.ObjectID `bson:"id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Image string             `bson:"image" json:"image"`
}

// RatedUser is a user summary with a computed like-average, produced by the
// top-users aggregation.
type RatedUser struct {
	ID     primitive.ObjectID `bson:"id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Image  string             `bson:"image" json:"image"`
	Rating float64            `bson:"rating" json:"rating"`
}
