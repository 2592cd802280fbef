package validation

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Name     string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestStructPasses(t *testing.T) {
	err := Struct(signupForm{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	assert.Nil(t, err)
}

func TestStructCollectsAllFailures(t *testing.T) {
	err := Struct(signupForm{Name: "A", Email: "not-an-email", Password: ""})
	require.NotNil(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, err.Status)
	require.Len(t, err.Errors, 3)

	fields := map[string]string{}
	for _, fe := range err.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "name must contain at least 3 characters", fields["name"])
	assert.Equal(t, "Email entered incorrectly", fields["email"])
	assert.Equal(t, "password must not be empty", fields["password"])
}

func TestStructMaxLength(t *testing.T) {
	type form struct {
		Description string `validate:"required,min=3,max=10"`
	}

	err := Struct(form{Description: "far too long for the limit"})
	require.NotNil(t, err)
	require.Len(t, err.Errors, 1)
	assert.Equal(t, "description", err.Errors[0].Field)
	assert.Equal(t, "description must contain less than 10 characters", err.Errors[0].Message)
}
