package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/vladyslav-onipko/space-server/internal/services"
)

// AuthHandler serves signup and signin.
type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Signup registers a user from a multipart form (name, email, password,
// image).
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	image, _ := c.FormFile("image")

	session, err := h.users.Register(c.Context(), services.RegisterInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	}, image)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         fmt.Sprintf("Hello %s, now you are part of the space", session.User.Name),
		"token":           session.Token,
		"tokenExpiration": session.TokenExpiration,
		"user":            session.User,
	})
}

// Signin authenticates by email and password, from either a JSON body or
// form fields.
func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		body.Email = c.FormValue("email")
		body.Password = c.FormValue("password")
	}

	session, err := h.users.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":         fmt.Sprintf("Hello %s, glad to see you again", session.User.Name),
		"token":           session.Token,
		"tokenExpiration": session.TokenExpiration,
		"user":            session.User,
	})
}
