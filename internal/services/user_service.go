package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladyslav-onipko/space-server/internal/db"
	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/models"
	"github.com/vladyslav-onipko/space-server/internal/storage"
	"github.com/vladyslav-onipko/space-server/internal/utils"
	"github.com/vladyslav-onipko/space-server/internal/validation"
)

const bcryptCost = 12

// usersFolder namespaces profile images in the object store.
const usersFolder = "users"

// UserService owns user records: signup, signin, profile reads and updates,
// and the rating leaderboard.
type UserService struct {
	users    *mongo.Collection
	listings *mongo.Collection
	database *mongo.Database
	images   *storage.ImageStore
	tokens   *TokenIssuer
	logger   *zap.Logger
}

func NewUserService(database *mongo.Database, images *storage.ImageStore, tokens *TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		users:    database.Collection(db.UsersCollection),
		listings: database.Collection(db.ListingsCollection),
		database: database,
		images:   images,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterInput carries the signup form fields; the image arrives as a
// multipart file alongside.
type RegisterInput struct {
	Name     string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// Session is what both signup and signin hand back to the client.
type Session struct {
	Token           string
	TokenExpiration int64
	User            models.UserSummary
}

// Register creates a user with a bcrypt-hashed password and issues a session
// token. A duplicate email fails with a field-level conflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput, image *multipart.FileHeader) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := storage.CheckImage(image); err != nil {
		return nil, err
	}

	count, err := s.users.CountDocuments(ctx, bson.M{"email": in.Email})
	if err != nil {
		s.logger.Error("failed to check existing email", zap.Error(err))
		return nil, httperr.Internal("")
	}
	if count > 0 {
		return nil, httperr.Conflict("User with provided email already exists, please login instead",
			httperr.FieldError{Field: "email", Message: "Please use another email"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, httperr.Internal("")
	}

	imageURL, err := s.images.Upload(ctx, image, usersFolder)
	if err != nil {
		var apiErr *httperr.Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		s.logger.Error("failed to upload profile image", zap.Error(err))
		return nil, httperr.Internal("")
	}

	user := models.User{
		ID:       primitive.NewObjectID(),
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hashed),
		Image:    imageURL,
		Listings: []primitive.ObjectID{},
	}

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		s.images.Remove(imageURL)
		if mongo.IsDuplicateKeyError(err) {
			return nil, httperr.Conflict("User with provided email already exists, please login instead",
				httperr.FieldError{Field: "email", Message: "Please use another email"})
		}
		s.logger.Error("failed to insert user", zap.Error(err))
		return nil, httperr.Internal("")
	}

	return s.session(user)
}

// Login authenticates by email and password. Both failure modes surface as
// 401 so credentials cannot be probed apart.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, httperr.Unauthorized("Couldn't find a user with provided email",
				httperr.FieldError{Field: "email", Message: "Please use your existing email"})
		}
		s.logger.Error("failed to load user by email", zap.Error(err))
		return nil, httperr.Internal("")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, httperr.Unauthorized("Incorrect password",
			httperr.FieldError{Field: "password", Message: "Please enter the correct password"})
	}

	return s.session(user)
}

func (s *UserService) session(user models.User) (*Session, error) {
	token, expiration, err := s.tokens.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return nil, httperr.Internal("")
	}
	return &Session{
		Token:           token,
		TokenExpiration: expiration,
		User:            models.UserSummary{ID: user.ID, Name: user.Name, Image: user.Image},
	}, nil
}

// UpdateProfileInput carries the profile form fields.
type UpdateProfileInput struct {
	Name string `validate:"required,min=3"`
}

// UpdateProfile replaces the user's name and image. Only the user themselves
// may do it. The previous image is released after the new one is stored.
func (s *UserService) UpdateProfile(ctx context.Context, userID, actingUserID primitive.ObjectID, in UpdateProfileInput, image *multipart.FileHeader) (*models.UserSummary, error) {
	in.Name = strings.TrimSpace(in.Name)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := storage.CheckImage(image); err != nil {
		return nil, err
	}

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, httperr.NotFound("Could not find a user with provided id")
		}
		s.logger.Error("failed to load user", zap.Error(err))
		return nil, httperr.Internal("")
	}

	if user.ID != actingUserID {
		return nil, httperr.Forbidden("You are not allowed to edit this profile")
	}

	imageURL, err := s.images.Upload(ctx, image, usersFolder)
	if err != nil {
		var apiErr *httperr.Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		s.logger.Error("failed to upload profile image", zap.Error(err))
		return nil, httperr.Internal("")
	}

	update := bson.M{"$set": bson.M{"name": in.Name, "image": imageURL}}
	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		s.images.Remove(imageURL)
		s.logger.Error("failed to update profile", zap.Error(err))
		return nil, httperr.Internal("")
	}

	s.images.Remove(user.Image)

	return &models.UserSummary{ID: user.ID, Name: in.Name, Image: imageURL}, nil
}

// TopUsers ranks users owning at least one listing by their like average,
// descending. A non-positive max leaves the list unbounded.
func (s *UserService) TopUsers(ctx context.Context, category models.Category, max int) ([]models.RatedUser, error) {
	cursor, err := s.listings.Aggregate(ctx, TopUsersPipeline(category, max))
	if err != nil {
		s.logger.Error("failed to rank users", zap.Error(err))
		return nil, httperr.Internal("")
	}

	users := []models.RatedUser{}
	if err := cursor.All(ctx, &users); err != nil {
		s.logger.Error("failed to decode ranked users", zap.Error(err))
		return nil, httperr.Internal("")
	}
	return users, nil
}

// ProfileFeed is one paginated page of a user's own listings plus the
// per-filter totals the profile tabs show.
type ProfileFeed struct {
	Listings        []models.ListingSummary
	CurrentPage     int
	TotalPages      int
	HasNextPage     bool
	Amount          int64
	AmountFavorites int64
	AmountShared    int64
	CurrentAmount   int64
}

// Profile lists the user's own listings filtered by all/favorites/shared,
// optionally narrowed by title search. Only the owner may read it.
func (s *UserService) Profile(ctx context.Context, userID, actingUserID primitive.ObjectID, category models.Category, filter ProfileFilter, search string, page int) (*ProfileFeed, error) {
	if userID != actingUserID {
		return nil, httperr.Forbidden("You are not allowed to view this profile")
	}

	count, err := s.users.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		s.logger.Error("failed to load profile owner", zap.Error(err))
		return nil, httperr.Internal("")
	}
	if count == 0 {
		return nil, httperr.NotFound("Could not find a user with provided id")
	}

	switch filter {
	case ProfileAll, ProfileFavorites, ProfileShared:
	default:
		filter = ProfileAll
	}

	p := NewPage(page, ProfilePageSize)

	// Tab counters ignore the search term so they stay stable while typing.
	var amount, amountFavorites, amountShared, currentAmount int64
	err = utils.Parallel(
		func() (err error) {
			amount, err = s.countListings(ctx, ProfilePredicate(category, userID, ProfileAll, ""))
			return err
		},
		func() (err error) {
			amountFavorites, err = s.countListings(ctx, ProfilePredicate(category, userID, ProfileFavorites, ""))
			return err
		},
		func() (err error) {
			amountShared, err = s.countListings(ctx, ProfilePredicate(category, userID, ProfileShared, ""))
			return err
		},
		func() (err error) {
			currentAmount, err = s.countListings(ctx, ProfilePredicate(category, userID, filter, search))
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	cursor, err := s.listings.Aggregate(ctx, ProfilePipeline(category, userID, filter, search, p))
	if err != nil {
		s.logger.Error("failed to load profile listings", zap.Error(err))
		return nil, httperr.Internal("")
	}

	listings := []models.ListingSummary{}
	if err := cursor.All(ctx, &listings); err != nil {
		s.logger.Error("failed to decode profile listings", zap.Error(err))
		return nil, httperr.Internal("")
	}

	return &ProfileFeed{
		Listings:        listings,
		CurrentPage:     p.Current,
		TotalPages:      TotalPages(currentAmount, p.Size),
		HasNextPage:     HasNextPage(p, currentAmount),
		Amount:          amount,
		AmountFavorites: amountFavorites,
		AmountShared:    amountShared,
		CurrentAmount:   currentAmount,
	}, nil
}

func (s *UserService) countListings(ctx context.Context, predicate bson.D) (int64, error) {
	count, err := s.listings.CountDocuments(ctx, predicate)
	if err != nil {
		s.logger.Error("failed to count listings", zap.Error(err))
		return 0, httperr.Internal("")
	}
	return count, nil
}
