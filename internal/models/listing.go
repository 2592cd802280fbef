package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category distinguishes the two listing kinds the app serves. They share
// one schema; places additionally carry an address and map coordinates.
type Category string

const (
	CategoryPlace  Category = "place"
	CategoryRocket Category = "rocket"
)

// Location is a lat/lng pair resolved from a place address.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Listing is a shareable content item owned by a user. The like count is
// never persisted; it is recomputed from Likes on every read.
type Listing struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Category    Category             `bson:"category" json:"-"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Image       string               `bson:"image" json:"image"`
	Address     string               `bson:"address,omitempty" json:"address,omitempty"`
	Location    *Location            `bson:"location,omitempty" json:"location,omitempty"`
	Creator     primitive.ObjectID   `bson:"creator" json:"creator"`
	Likes       []primitive.ObjectID `bson:"likes" json:"-"`
	Shared      bool                 `bson:"shared" json:"shared"`
	CreatedAt   time.Time            `bson:"createdAt" json:"date"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"-"`
}

// LikeCount is the computed rating of a single listing.
func (l *Listing) LikeCount() int {
	return len(l.Likes)
}

// ListingSummary is the projected feed shape: favorite and likes are
// computed inside the aggregation, never stored.
type ListingSummary struct {
	ID          primitive.ObjectID `bson:"id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Image       string             `bson:"image" json:"image"`
	Shared      bool               `bson:"shared" json:"shared"`
	CreatedAt   time.Time          `bson:"createdAt" json:"date"`
	Favorite    bool               `bson:"favorite" json:"favorite"`
	Likes       int                `bson:"likes" json:"likes"`
}

// ListingDetail is the single-listing read shape with its creator joined in.
type ListingDetail struct {
	ID          primitive.ObjectID `bson:"id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image" json:"image"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	Location    *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Shared      bool               `bson:"shared" json:"shared"`
	CreatedAt   time.Time          `bson:"createdAt" json:"date"`
	Likes       int                `bson:"likes" json:"likes"`
	Creator     UserSummary        `bson:"creator" json:"creator"`
}

// UserRating aggregates the like average over a user's listings. Rating is
// nil when the user owns no listings.
type UserRating struct {
	TotalListings int      `bson:"totalListings" json:"totalListings"`
	Rating        *float64 `bson:"rating" json:"rating"`
}
