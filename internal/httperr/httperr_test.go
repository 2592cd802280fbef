package httperr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: Handler})
}

func doRequest(t *testing.T, app *fiber.App, path string) (int, Error) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope Error
	require.NoError(t, json.Unmarshal(body, &envelope))
	return resp.StatusCode, envelope
}

func TestHandlerShapesValidationEnvelope(t *testing.T) {
	app := newTestApp()
	app.Get("/fail", func(c *fiber.Ctx) error {
		return Validation("Please check the entered data",
			FieldError{Field: "email", Message: "Email entered incorrectly"})
	})

	status, envelope := doRequest(t, app, "/fail")

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "Please check the entered data", envelope.Message)
	assert.Equal(t, fiber.StatusUnprocessableEntity, envelope.Status)
	require.Len(t, envelope.Errors, 1)
	assert.Equal(t, "email", envelope.Errors[0].Field)
}

func TestHandlerHidesUnknownErrors(t *testing.T) {
	app := newTestApp()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("raw store failure: connection refused")
	})

	status, envelope := doRequest(t, app, "/boom")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, envelope.Message, "connection refused")
	assert.NotNil(t, envelope.Errors)
	assert.Empty(t, envelope.Errors)
}

func TestHandlerMapsFiberErrors(t *testing.T) {
	app := newTestApp()
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	status, envelope := doRequest(t, app, "/teapot")

	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, "short and stout", envelope.Message)
}

func TestNotFoundRoute(t *testing.T) {
	app := newTestApp()
	app.Use(NotFoundRoute)

	status, envelope := doRequest(t, app, "/no/such/route")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, fiber.StatusNotFound, envelope.Status)
	assert.NotEmpty(t, envelope.Message)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, fiber.StatusUnprocessableEntity, Conflict("dup").Status)
	assert.Equal(t, fiber.StatusNotFound, NotFound("gone").Status)
	assert.Equal(t, fiber.StatusUnauthorized, Unauthorized("nope").Status)
	assert.Equal(t, fiber.StatusForbidden, Forbidden("no way").Status)
	assert.Equal(t, fiber.StatusBadRequest, BadRequest("bad").Status)
	assert.Equal(t, fiber.StatusInternalServerError, Internal("").Status)

	// The generic message never leaks internals.
	assert.Equal(t, genericMessage, Internal("").Message)
}
