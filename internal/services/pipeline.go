package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladyslav-onipko/space-server/internal/db"
	"github.com/vladyslav-onipko/space-server/internal/models"
)

// Per-endpoint page sizes and the top-listings cap.
const (
	FeedPageSize    = 6
	ProfilePageSize = 3
	TopListingsMax  = 3
)

// Page is a 1-indexed pagination request.
type Page struct {
	Current int
	Size    int
}

func NewPage(current, size int) Page {
	if current < 1 {
		current = 1
	}
	return Page{Current: current, Size: size}
}

func (p Page) Skip() int {
	return (p.Current - 1) * p.Size
}

// TotalPages is ceil(total/size), but never less than one so an empty result
// still renders page 1 of 1.
func TotalPages(total int64, size int) int {
	if total <= 0 {
		return 1
	}
	pages := int(total) / size
	if int(total)%size != 0 {
		pages++
	}
	return pages
}

func HasNextPage(p Page, total int64) bool {
	return p.Current < TotalPages(total, p.Size)
}

// ProfileFilter selects which slice of a user's own listings the profile
// feed shows.
type ProfileFilter string

const (
	ProfileAll       ProfileFilter = "all"
	ProfileFavorites ProfileFilter = "favorites"
	ProfileShared    ProfileFilter = "shared"
)

// FeedQuery describes one public feed read. Viewer, when set, drives the
// computed favorite flag.
type FeedQuery struct {
	Category models.Category
	Creator  *primitive.ObjectID
	Search   string
	Viewer   *primitive.ObjectID
}

// Predicate is the $match document shared by the page query and the total
// count, so both always agree.
func (q FeedQuery) Predicate() bson.D {
	match := bson.D{
		{Key: "category", Value: q.Category},
		{Key: "shared", Value: true},
	}
	if q.Creator != nil {
		match = append(match, bson.E{Key: "creator", Value: *q.Creator})
	}
	if q.Search != "" {
		match = append(match, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q.Search}}})
	}
	return match
}

// summaryProject computes the denormalized read-time fields: likes as the
// cardinality of the likes set and favorite as viewer membership in it.
func summaryProject(viewer *primitive.ObjectID) bson.D {
	favorite := interface{}(false)
	if viewer != nil {
		favorite = bson.D{{Key: "$in", Value: bson.A{*viewer, "$likes"}}}
	}
	return bson.D{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 0},
		{Key: "id", Value: "$_id"},
		{Key: "title", Value: 1},
		{Key: "image", Value: 1},
		{Key: "description", Value: 1},
		{Key: "shared", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "favorite", Value: favorite},
		{Key: "likes", Value: bson.D{{Key: "$size", Value: "$likes"}}},
	}}}
}

// newestFirstSort orders by creation time with the id as a deterministic
// tiebreak.
func newestFirstSort() bson.D {
	return bson.D{{Key: "$sort", Value: bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "id", Value: -1},
	}}}
}

func paginateStages(p Page) []bson.D {
	return []bson.D{
		{{Key: "$skip", Value: p.Skip()}},
		{{Key: "$limit", Value: p.Size}},
	}
}

// FeedPipeline composes match, projection, sort and pagination into the
// public feed query.
func FeedPipeline(q FeedQuery, p Page) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: q.Predicate()}},
		summaryProject(q.Viewer),
		newestFirstSort(),
	}
	pipeline = append(pipeline, paginateStages(p)...)
	return pipeline
}

// TopListingsPipeline ranks shared listings by like count, excluding
// listings nobody has liked yet. Ties break on id so the order is stable
// across reads. A nil creator ranks across all users.
func TopListingsPipeline(category models.Category, creator *primitive.ObjectID, limit int) mongo.Pipeline {
	match := bson.D{
		{Key: "category", Value: category},
		{Key: "shared", Value: true},
	}
	if creator != nil {
		match = append(match, bson.E{Key: "creator", Value: *creator})
	}
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		summaryProject(nil),
		bson.D{{Key: "$match", Value: bson.D{{Key: "likes", Value: bson.D{{Key: "$gt", Value: 0}}}}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "likes", Value: -1},
			{Key: "id", Value: 1},
		}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
}

// ProfilePredicate is the $match for one profile filter over a user's own
// listings, optionally narrowed by text search.
func ProfilePredicate(category models.Category, owner primitive.ObjectID, filter ProfileFilter, search string) bson.D {
	match := bson.D{
		{Key: "category", Value: category},
		{Key: "creator", Value: owner},
	}
	switch filter {
	case ProfileFavorites:
		match = append(match, bson.E{Key: "likes", Value: owner})
	case ProfileShared:
		match = append(match, bson.E{Key: "shared", Value: true})
	}
	if search != "" {
		match = append(match, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: search}}})
	}
	return match
}

// ProfilePipeline pages through the owner's listings; the owner is also the
// viewer, so favorite reflects their own likes.
func ProfilePipeline(category models.Category, owner primitive.ObjectID, filter ProfileFilter, search string, p Page) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: ProfilePredicate(category, owner, filter, search)}},
		summaryProject(&owner),
		newestFirstSort(),
	}
	pipeline = append(pipeline, paginateStages(p)...)
	return pipeline
}

// UserRatingPipeline computes {totalListings, rating} for one owner. The
// division is guarded so a user without listings yields a null rating
// instead of an error.
func UserRatingPipeline(category models.Category, owner primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "category", Value: category},
			{Key: "creator", Value: owner},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalLikes", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$likes"}}}}},
			{Key: "totalListings", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "totalListings", Value: 1},
			{Key: "rating", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{"$totalListings", 0}}},
				bson.D{{Key: "$round", Value: bson.A{
					bson.D{{Key: "$divide", Value: bson.A{"$totalLikes", "$totalListings"}}},
					1,
				}}},
				nil,
			}}}},
		}}},
	}
}

// TopUsersPipeline ranks every user owning at least one listing by their
// like average, drops zero ratings and joins the user record in. An empty
// category ranks across both listing kinds.
func TopUsersPipeline(category models.Category, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if category != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "category", Value: category}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$creator"},
			{Key: "totalLikes", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$size", Value: "$likes"}}}}},
			{Key: "totalListings", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "rating", Value: bson.D{{Key: "$round", Value: bson.A{
				bson.D{{Key: "$divide", Value: bson.A{"$totalLikes", "$totalListings"}}},
				1,
			}}}},
		}}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "rating", Value: bson.D{{Key: "$gt", Value: 0}}}}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "rating", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	)
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.UsersCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		bson.D{{Key: "$unwind", Value: "$user"}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "id", Value: "$_id"},
			{Key: "name", Value: "$user.name"},
			{Key: "image", Value: "$user.image"},
			{Key: "rating", Value: 1},
		}}},
	)
	return pipeline
}

// DetailPipeline loads one listing with its creator summary joined in and
// the like count computed. The category match keeps a rocket id from
// resolving under the places routes and vice versa.
func DetailPipeline(category models.Category, id primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "category", Value: category},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: db.UsersCollection},
			{Key: "localField", Value: "creator"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "creator"},
		}}},
		bson.D{{Key: "$unwind", Value: "$creator"}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "id", Value: "$_id"},
			{Key: "title", Value: 1},
			{Key: "description", Value: 1},
			{Key: "image", Value: 1},
			{Key: "address", Value: 1},
			{Key: "location", Value: 1},
			{Key: "shared", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "likes", Value: bson.D{{Key: "$size", Value: "$likes"}}},
			{Key: "creator", Value: bson.D{
				{Key: "id", Value: "$creator._id"},
				{Key: "name", Value: "$creator.name"},
				{Key: "image", Value: "$creator.image"},
			}},
		}}},
	}
}
