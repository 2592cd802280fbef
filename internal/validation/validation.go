// Package validation wraps go-playground/validator and translates failures
// into the field-level entries the error envelope carries.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladyslav-onipko/space-server/internal/httperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v and returns a 422 httperr.Error listing every failed
// field, or nil when the input is clean.
func Struct(v interface{}) *httperr.Error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return httperr.Internal("")
	}

	fields := make([]httperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, httperr.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: message(fe),
		})
	}
	return httperr.Validation("Please check the entered data", fields...)
}

func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	case "email":
		return "Email entered incorrectly"
	case "min":
		return fmt.Sprintf("%s must contain at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain less than %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
