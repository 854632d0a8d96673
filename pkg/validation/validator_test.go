package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"first_name" validate:"required,personname"`
	Password string  `json:"password" validate:"required,strongpwd"`
	Gender   *string `json:"gender" validate:"omitempty,gender"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestAliases(t *testing.T) {
	v := newValidate()
	gender, phone := "FEMALE", "+6281234567890"
	ok := signup{Email: "a@example.com", Name: "Alice", Password: "Sup3r-secret!", Gender: &gender, Phone: &phone}
	require.NoError(t, v.Struct(ok))

	bad, badPhone := "ROBOT", "0812"
	err := v.Struct(signup{Email: "nope", Name: "", Password: "password", Gender: &bad, Phone: &badPhone})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "is required", details["first_name"])
	assert.Equal(t, "must be at least 8 characters with uppercase, lowercase, number and special character", details["password"])
	assert.Equal(t, "must be one of: MALE, FEMALE, OTHER", details["gender"])
	assert.Equal(t, "must be a valid phone number", details["phone"])
}

func TestToDetailsNil(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
}
