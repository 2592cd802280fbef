// Package httperr defines the error type every handler and service in the
// API speaks. All failures funnel through the fiber ErrorHandler so the
// client always receives the same envelope: {message, status, errors}.
package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

const genericMessage = "Sorry, an unknown error occurred, we are already fixing it!"

// FieldError points a validation failure at a concrete input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single error currency of the API. Status mirrors the HTTP
// status the terminal handler responds with.
type Error struct {
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(message string, status int, fields ...FieldError) *Error {
	if message == "" {
		message = genericMessage
	}
	errs := make([]FieldError, 0, len(fields))
	errs = append(errs, fields...)
	return &Error{Message: message, Status: status, Errors: errs}
}

func Validation(message string, fields ...FieldError) *Error {
	return newError(message, fiber.StatusUnprocessableEntity, fields...)
}

func Conflict(message string, fields ...FieldError) *Error {
	return newError(message, fiber.StatusUnprocessableEntity, fields...)
}

func BadRequest(message string) *Error {
	return newError(message, fiber.StatusBadRequest)
}

func NotFound(message string) *Error {
	return newError(message, fiber.StatusNotFound)
}

func Unauthorized(message string, fields ...FieldError) *Error {
	return newError(message, fiber.StatusUnauthorized, fields...)
}

func Forbidden(message string) *Error {
	return newError(message, fiber.StatusForbidden)
}

// Internal hides the underlying cause from the client. The cause is logged
// where the error is raised, never serialized.
func Internal(message string) *Error {
	if message == "" {
		message = genericMessage
	}
	return newError(message, fiber.StatusInternalServerError)
}

// Handler is the fiber terminal error handler shaping the uniform envelope.
func Handler(c *fiber.Ctx, err error) error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			apiErr = newError(fiberErr.Message, fiberErr.Code)
		} else {
			apiErr = Internal("")
		}
	}
	return c.Status(apiErr.Status).JSON(apiErr)
}

// NotFoundRoute terminates the router chain for unmatched paths.
func NotFoundRoute(c *fiber.Ctx) error {
	return NotFound("Could not load the content you wanna see")
}
