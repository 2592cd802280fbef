package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/models"
	"github.com/vladyslav-onipko/space-server/internal/services"
)

// ListingHandler serves one listing category; the same handler backs both
// /api/places and /api/rockets.
type ListingHandler struct {
	category models.Category
	listings *services.ListingService
	feed     *services.FeedService
}

func NewListingHandler(category models.Category, listings *services.ListingService, feed *services.FeedService) *ListingHandler {
	return &ListingHandler{category: category, listings: listings, feed: feed}
}

// Create persists a new listing from a multipart form.
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	actingUserID, err := actingUser(c)
	if err != nil {
		return err
	}

	image, _ := c.FormFile("image")

	listing, err := h.listings.Create(c.Context(), h.category, services.CreateInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Address:     c.FormValue("address"),
		Creator:     c.FormValue("creator"),
		Shared:      c.FormValue("shared") == "true",
	}, image, actingUserID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("%s successfully created", titleFor(h.category)),
		"listing": listingPayload(listing),
	})
}

// List serves the public feed. ?page= and ?search= page and narrow it,
// ?creator= restricts it to one user's shared listings, ?user= names the
// viewer whose favorites get flagged, and ?top= switches to the like-ranked
// mode.
func (h *ListingHandler) List(c *fiber.Ctx) error {
	creator, err := optionalObjectIDQuery(c, "creator")
	if err != nil {
		return err
	}

	if top := c.QueryInt("top"); top > 0 {
		listings, err := h.feed.TopListings(c.Context(), h.category, creator, top)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"listings": listings})
	}

	viewer, err := optionalObjectIDQuery(c, "user")
	if err != nil {
		return err
	}

	feed, err := h.feed.List(c.Context(), services.FeedQuery{
		Category: h.category,
		Creator:  creator,
		Search:   c.Query("search"),
		Viewer:   viewer,
	}, c.QueryInt("page", 1))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"listings":      feed.Listings,
		"totalListings": feed.TotalCount,
		"currentPage":   feed.CurrentPage,
		"totalPages":    feed.TotalPages,
		"hasNextPage":   feed.HasNextPage,
	})
}

// Get loads one listing with its creator, the creator's top listings and
// their rating.
func (h *ListingHandler) Get(c *fiber.Ctx) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	detail, err := h.listings.Get(c.Context(), h.category, id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"listing":            detail.Listing,
		"topUserListings":    detail.TopUserListings,
		"userListingsAmount": detail.UserListingsAmount,
		"userRating":         detail.UserRating,
	})
}

// Edit applies either a share toggle (?shared=) or a full content edit
// (multipart form). The mode is decided here, once, at the boundary.
func (h *ListingHandler) Edit(c *fiber.Ctx) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	actingUserID, err := actingUser(c)
	if err != nil {
		return err
	}

	var req services.EditRequest
	message := fmt.Sprintf("%s successfully updated", titleFor(h.category))

	// Presence of ?shared= selects the toggle mode, whatever its value.
	if hasQueryParam(c, "shared") {
		value := c.Query("shared") == "true"
		req = services.ShareToggle{Shared: value}
		if value {
			message = fmt.Sprintf("You have successfully shared the %s", h.category)
		} else {
			message = fmt.Sprintf("You have successfully unshared the %s", h.category)
		}
	} else {
		image, _ := c.FormFile("image")
		req = services.ContentEdit{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			Image:       image,
		}
	}

	listing, err := h.listings.Edit(c.Context(), id, actingUserID, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"listing": listingPayload(listing),
	})
}

// Delete removes the listing and its back-reference; owner only.
func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	actingUserID, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.listings.Delete(c.Context(), id, actingUserID); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("%s successfully deleted", titleFor(h.category)),
	})
}

// ToggleLike flips the ?userId= user's membership in the listing's likes
// set.
func (h *ListingHandler) ToggleLike(c *fiber.Ctx) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	likerID, err := primitive.ObjectIDFromHex(c.Query("userId"))
	if err != nil {
		return httperr.NotFound("Sorry, user is not registered")
	}

	if _, err := h.listings.ToggleLike(c.Context(), id, likerID); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("%s successfully updated", titleFor(h.category)),
	})
}

func listingPayload(l *models.Listing) fiber.Map {
	payload := fiber.Map{
		"id":          l.ID,
		"title":       l.Title,
		"description": l.Description,
		"image":       l.Image,
		"shared":      l.Shared,
		"date":        l.CreatedAt,
		"creator":     l.Creator,
		"likes":       l.LikeCount(),
	}
	if l.Address != "" {
		payload["address"] = l.Address
	}
	if l.Location != nil {
		payload["location"] = l.Location
	}
	return payload
}

func hasQueryParam(c *fiber.Ctx, name string) bool {
	return c.Context().QueryArgs().Has(name)
}

func optionalObjectIDQuery(c *fiber.Ctx, name string) (*primitive.ObjectID, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return nil, httperr.BadRequest(fmt.Sprintf("Invalid %s id", name))
	}
	return &id, nil
}

func titleFor(category models.Category) string {
	if category == models.CategoryRocket {
		return "Rocket"
	}
	return "Place"
}
