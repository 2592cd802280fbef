package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vladyslav-onipko/space-server/internal/db"
	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/models"
)

// FeedService is the read side of the listing store: paginated feeds, top
// rankings and rating aggregates. Nothing here is cached; every call
// re-queries the store.
type FeedService struct {
	listings *mongo.Collection
	logger   *zap.Logger
}

func NewFeedService(database *mongo.Database, logger *zap.Logger) *FeedService {
	return &FeedService{
		listings: database.Collection(db.ListingsCollection),
		logger:   logger,
	}
}

// Feed is one page of listing summaries, newest first.
type Feed struct {
	Listings    []models.ListingSummary
	TotalCount  int64
	CurrentPage int
	TotalPages  int
	HasNextPage bool
}

// List runs the feed query and its matching count against the same
// predicate, so the page and the totals can never disagree.
func (s *FeedService) List(ctx context.Context, q FeedQuery, page int) (*Feed, error) {
	p := NewPage(page, FeedPageSize)

	total, err := s.listings.CountDocuments(ctx, q.Predicate())
	if err != nil {
		s.logger.Error("failed to count feed listings", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listings")
	}

	cursor, err := s.listings.Aggregate(ctx, FeedPipeline(q, p))
	if err != nil {
		s.logger.Error("failed to load feed listings", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listings")
	}

	listings := []models.ListingSummary{}
	if err := cursor.All(ctx, &listings); err != nil {
		s.logger.Error("failed to decode feed listings", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listings")
	}

	return &Feed{
		Listings:    listings,
		TotalCount:  total,
		CurrentPage: p.Current,
		TotalPages:  TotalPages(total, p.Size),
		HasNextPage: HasNextPage(p, total),
	}, nil
}

// TopListings ranks shared listings by like count, dropping unliked ones.
// With a creator set it ranks only that user's listings.
func (s *FeedService) TopListings(ctx context.Context, category models.Category, creator *primitive.ObjectID, limit int) ([]models.ListingSummary, error) {
	if limit <= 0 {
		limit = TopListingsMax
	}

	cursor, err := s.listings.Aggregate(ctx, TopListingsPipeline(category, creator, limit))
	if err != nil {
		s.logger.Error("failed to load top listings", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listings")
	}

	listings := []models.ListingSummary{}
	if err := cursor.All(ctx, &listings); err != nil {
		s.logger.Error("failed to decode top listings", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listings")
	}
	return listings, nil
}

// UserRating aggregates the like average over one user's listings. A user
// without listings gets a nil rating, never a division error.
func (s *FeedService) UserRating(ctx context.Context, category models.Category, owner primitive.ObjectID) (*models.UserRating, error) {
	cursor, err := s.listings.Aggregate(ctx, UserRatingPipeline(category, owner))
	if err != nil {
		s.logger.Error("failed to compute user rating", zap.Error(err))
		return nil, httperr.Internal("")
	}

	ratings := []models.UserRating{}
	if err := cursor.All(ctx, &ratings); err != nil {
		s.logger.Error("failed to decode user rating", zap.Error(err))
		return nil, httperr.Internal("")
	}
	if len(ratings) == 0 {
		return &models.UserRating{}, nil
	}
	return &ratings[0], nil
}
