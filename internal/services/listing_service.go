package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/vladyslav-onipko/space-server/internal/db"
	"github.com/vladyslav-onipko/space-server/internal/geocode"
	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/models"
	"github.com/vladyslav-onipko/space-server/internal/storage"
	"github.com/vladyslav-onipko/space-server/internal/validation"
)

// ListingService owns the write side of listings: create, edit, delete and
// like toggling, with ownership enforcement and the dual-write consistency
// between a listing and its owner's back-reference collection.
type ListingService struct {
	listings *mongo.Collection
	users    *mongo.Collection
	database *mongo.Database
	images   *storage.ImageStore
	geocoder geocode.Geocoder
	feed     *FeedService
	logger   *zap.Logger
}

func NewListingService(database *mongo.Database, images *storage.ImageStore, geocoder geocode.Geocoder, feed *FeedService, logger *zap.Logger) *ListingService {
	return &ListingService{
		listings: database.Collection(db.ListingsCollection),
		users:    database.Collection(db.UsersCollection),
		database: database,
		images:   images,
		geocoder: geocoder,
		feed:     feed,
		logger:   logger,
	}
}

// CreateInput carries the create form fields. Address matters only for
// place listings.
type CreateInput struct {
	Title       string `validate:"required,min=3"`
	Description string `validate:"required,min=3,max=200"`
	Address     string
	Creator     string `validate:"required"`
	Shared      bool
}

// Create persists a listing and pushes it into the owner's back-reference
// collection in one transaction.
func (s *ListingService) Create(ctx context.Context, category models.Category, in CreateInput, image *multipart.FileHeader, actingUserID primitive.ObjectID) (*models.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if category == models.CategoryPlace && in.Address == "" {
		return nil, httperr.Validation("Please check the entered data",
			httperr.FieldError{Field: "address", Message: "Address must not be empty"})
	}
	if err := storage.CheckImage(image); err != nil {
		return nil, err
	}

	creatorID, err := primitive.ObjectIDFromHex(in.Creator)
	if err != nil {
		return nil, httperr.NotFound("Could not find a user with provided id")
	}

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": creatorID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, httperr.NotFound("Could not find a user with provided id")
		}
		s.logger.Error("failed to load creator", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not create listing")
	}

	if user.ID != actingUserID {
		return nil, httperr.Forbidden("You are not allowed to create this listing")
	}

	var location *models.Location
	if category == models.CategoryPlace {
		loc, err := s.geocoder.Resolve(ctx, in.Address)
		if err != nil {
			return nil, httperr.Validation("Could not resolve the provided address",
				httperr.FieldError{Field: "address", Message: "Enter the correct address"})
		}
		location = &loc
	}

	imageURL, err := s.images.Upload(ctx, image, folderFor(category))
	if err != nil {
		var apiErr *httperr.Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		s.logger.Error("failed to upload listing image", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not create listing")
	}

	now := time.Now().UTC()
	listing := models.Listing{
		ID:          primitive.NewObjectID(),
		Category:    category,
		Title:       in.Title,
		Description: in.Description,
		Image:       imageURL,
		Address:     in.Address,
		Location:    location,
		Creator:     user.ID,
		Likes:       []primitive.ObjectID{},
		Shared:      in.Shared,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = db.WithTransaction(ctx, s.database, func(sc mongo.SessionContext) error {
		if _, err := s.listings.InsertOne(sc, listing); err != nil {
			return err
		}
		_, err := s.users.UpdateOne(sc,
			bson.M{"_id": user.ID},
			bson.M{"$push": bson.M{"listings": listing.ID}})
		return err
	})
	if err != nil {
		s.images.Remove(imageURL)
		s.logger.Error("create transaction failed", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not create listing")
	}

	return &listing, nil
}

// EditRequest is the tagged edit union, decided once at the handler
// boundary: either a share toggle or a full content replacement.
type EditRequest interface {
	isEditRequest()
}

// ShareToggle flips only the shared flag.
type ShareToggle struct {
	Shared bool
}

func (ShareToggle) isEditRequest() {}

// ContentEdit replaces title, description and image.
type ContentEdit struct {
	Title       string `validate:"required,min=3"`
	Description string `validate:"required,min=3,max=200"`
	Image       *multipart.FileHeader
}

func (ContentEdit) isEditRequest() {}

// Edit applies one of the two edit modes. Only the creator may edit.
// Single-document writes, so no transaction is involved.
func (s *ListingService) Edit(ctx context.Context, id primitive.ObjectID, actingUserID primitive.ObjectID, req EditRequest) (*models.Listing, error) {
	listing, err := s.loadOwned(ctx, id, actingUserID, "Sorry, something went wrong, could not update listing")
	if err != nil {
		return nil, err
	}

	switch edit := req.(type) {
	case ShareToggle:
		listing.Shared = edit.Shared
		err = s.applyUpdate(ctx, id, bson.M{"shared": edit.Shared})

	case ContentEdit:
		edit.Title = strings.TrimSpace(edit.Title)
		edit.Description = strings.TrimSpace(edit.Description)

		if verr := validation.Struct(edit); verr != nil {
			return nil, verr
		}
		if verr := storage.CheckImage(edit.Image); verr != nil {
			return nil, verr
		}

		imageURL, uploadErr := s.images.Upload(ctx, edit.Image, folderFor(listing.Category))
		if uploadErr != nil {
			var apiErr *httperr.Error
			if errors.As(uploadErr, &apiErr) {
				return nil, apiErr
			}
			s.logger.Error("failed to upload listing image", zap.Error(uploadErr))
			return nil, httperr.Internal("Sorry, something went wrong, could not update listing")
		}

		oldImage := listing.Image
		listing.Title = edit.Title
		listing.Description = edit.Description
		listing.Image = imageURL

		err = s.applyUpdate(ctx, id, bson.M{
			"title":       edit.Title,
			"description": edit.Description,
			"image":       imageURL,
		})
		if err == nil {
			s.images.Remove(oldImage)
		} else {
			s.images.Remove(imageURL)
		}

	default:
		return nil, httperr.BadRequest("Unsupported edit request")
	}

	if err != nil {
		s.logger.Error("failed to update listing", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not update listing")
	}
	return listing, nil
}

// Delete removes the listing and its back-reference in one transaction,
// then releases the image.
func (s *ListingService) Delete(ctx context.Context, id primitive.ObjectID, actingUserID primitive.ObjectID) error {
	listing, err := s.loadOwned(ctx, id, actingUserID, "Sorry, something went wrong, could not delete the listing")
	if err != nil {
		return err
	}

	err = db.WithTransaction(ctx, s.database, func(sc mongo.SessionContext) error {
		if _, err := s.listings.DeleteOne(sc, bson.M{"_id": id}); err != nil {
			return err
		}
		_, err := s.users.UpdateOne(sc,
			bson.M{"_id": listing.Creator},
			bson.M{"$pull": bson.M{"listings": id}})
		return err
	})
	if err != nil {
		s.logger.Error("delete transaction failed", zap.Error(err))
		return httperr.Internal("Sorry, something went wrong, could not delete the listing")
	}

	s.images.Remove(listing.Image)
	return nil
}

// ToggleLike adds the user to the listing's likes set, or removes them when
// already present. Both paths are single atomic set updates, so two
// concurrent toggles from different users both land.
func (s *ListingService) ToggleLike(ctx context.Context, id primitive.ObjectID, likerID primitive.ObjectID) (bool, error) {
	count, err := s.users.CountDocuments(ctx, bson.M{"_id": likerID})
	if err != nil {
		s.logger.Error("failed to load liker", zap.Error(err))
		return false, httperr.Internal("Sorry, something went wrong, could not like listing")
	}
	if count == 0 {
		return false, httperr.NotFound("Sorry, user is not registered")
	}

	res, err := s.listings.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"likes": likerID}})
	if err != nil {
		s.logger.Error("failed to add like", zap.Error(err))
		return false, httperr.Internal("Sorry, something went wrong, could not like listing")
	}
	if res.MatchedCount == 0 {
		return false, httperr.NotFound("Could not find a listing with provided id")
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	// Already in the set: the toggle removes it.
	_, err = s.listings.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"likes": likerID}})
	if err != nil {
		s.logger.Error("failed to remove like", zap.Error(err))
		return false, httperr.Internal("Sorry, something went wrong, could not like listing")
	}
	return false, nil
}

// Detail is the single-listing read: the listing with its creator joined,
// the creator's top listings and their rating aggregate.
type Detail struct {
	Listing            models.ListingDetail
	TopUserListings    []models.ListingSummary
	UserListingsAmount int
	UserRating         *float64
}

func (s *ListingService) Get(ctx context.Context, category models.Category, id primitive.ObjectID) (*Detail, error) {
	cursor, err := s.listings.Aggregate(ctx, DetailPipeline(category, id))
	if err != nil {
		s.logger.Error("failed to load listing", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listing")
	}

	details := []models.ListingDetail{}
	if err := cursor.All(ctx, &details); err != nil {
		s.logger.Error("failed to decode listing", zap.Error(err))
		return nil, httperr.Internal("Sorry, something went wrong, could not load listing")
	}
	if len(details) == 0 {
		return nil, httperr.NotFound("Could not find a listing with provided id")
	}
	detail := details[0]

	creator := detail.Creator.ID
	top, err := s.feed.TopListings(ctx, category, &creator, TopListingsMax)
	if err != nil {
		return nil, err
	}

	rating, err := s.feed.UserRating(ctx, category, creator)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Listing:            detail,
		TopUserListings:    top,
		UserListingsAmount: rating.TotalListings,
		UserRating:         rating.Rating,
	}, nil
}

func (s *ListingService) loadOwned(ctx context.Context, id primitive.ObjectID, actingUserID primitive.ObjectID, failureMessage string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, httperr.NotFound("Could not find a listing with provided id")
		}
		s.logger.Error("failed to load listing", zap.Error(err))
		return nil, httperr.Internal(failureMessage)
	}

	count, err := s.users.CountDocuments(ctx, bson.M{"_id": listing.Creator})
	if err != nil {
		s.logger.Error("failed to load listing owner", zap.Error(err))
		return nil, httperr.Internal(failureMessage)
	}
	if count == 0 {
		return nil, httperr.NotFound("Could not find the user created the listing")
	}

	if listing.Creator != actingUserID {
		return nil, httperr.Forbidden("You are not allowed to change this listing")
	}
	return &listing, nil
}

func (s *ListingService) applyUpdate(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	_, err := s.listings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func folderFor(category models.Category) string {
	return string(category) + "s"
}
