package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/middleware"
	"github.com/vladyslav-onipko/space-server/internal/models"
	"github.com/vladyslav-onipko/space-server/internal/services"
)

// UserHandler serves the user profile and the rating leaderboard.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List returns users ranked by their like average, best first. Optional
// ?max= caps the list.
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.users.TopUsers(c.Context(), "", c.QueryInt("max"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"users": users})
}

// Profile pages through the acting user's own listings with the
// all/favorites/shared filter and optional title search.
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	actingUserID, err := actingUser(c)
	if err != nil {
		return err
	}

	feed, err := h.users.Profile(
		c.Context(),
		userID,
		actingUserID,
		categoryQuery(c),
		services.ProfileFilter(c.Query("filter", string(services.ProfileAll))),
		c.Query("search"),
		c.QueryInt("page", 1),
	)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"listings":        feed.Listings,
		"currentPage":     feed.CurrentPage,
		"totalPages":      feed.TotalPages,
		"hasNextPage":     feed.HasNextPage,
		"amount":          feed.Amount,
		"amountFavorites": feed.AmountFavorites,
		"amountShared":    feed.AmountShared,
		"currentAmount":   feed.CurrentAmount,
	})
}

// Update replaces the acting user's name and profile image.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	userID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	actingUserID, err := actingUser(c)
	if err != nil {
		return err
	}

	image, _ := c.FormFile("image")

	user, err := h.users.UpdateProfile(c.Context(), userID, actingUserID,
		services.UpdateProfileInput{Name: c.FormValue("name")}, image)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Profile successfully updated",
		"user":    user,
	})
}

func actingUser(c *fiber.Ctx) (primitive.ObjectID, error) {
	hex, ok := c.Locals(middleware.UserIDKey).(string)
	if !ok || hex == "" {
		return primitive.NilObjectID, httperr.Unauthorized("Authentication failed")
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, httperr.Unauthorized("Authentication failed")
	}
	return id, nil
}

func objectIDParam(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, httperr.NotFound("Could not load the content you wanna see")
	}
	return id, nil
}

func categoryQuery(c *fiber.Ctx) models.Category {
	if c.Query("category") == string(models.CategoryRocket) {
		return models.CategoryRocket
	}
	return models.CategoryPlace
}
