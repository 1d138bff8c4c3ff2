package binder

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formatterFixture struct {
	Email   string   `validate:"omitempty,email"`
	Copies  int      `validate:"omitempty,min=1,max=50"`
	Ratio   float64  `validate:"omitempty,gt=0"`
	Title   string   `validate:"omitempty,min=3,max=1"`
	Tags    []string `validate:"omitempty,min=2,max=1"`
	Role    string   `validate:"omitempty,oneof=member librarian"`
	Name    string   `validate:"required"`
	Numeric string   `validate:"omitempty,numeric"`
}

func firstFieldError(t *testing.T, v interface{}) validator.FieldError {
	t.Helper()
	err := validator.New().Struct(v)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	return verrs[0]
}

func TestFormatValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fixture formatterFixture
		msg     string
	}{
		{"required", formatterFixture{}, `"Name" is required`},
		{"email", formatterFixture{Name: "n", Email: "nope"}, `"Email" is not a valid email`},
		{"number above max", formatterFixture{Name: "n", Copies: 51}, `"Copies" must be less than or equal to 50`},
		{"float gt", formatterFixture{Name: "n", Ratio: -1}, `"Ratio" must be greater than 0`},
		{"string below min", formatterFixture{Name: "n", Title: "ab"}, `"Title" length must be greater than or equal to 3 characters`},
		{"string above max", formatterFixture{Name: "n", Title: "abcd"}, `"Title" length must be less than or equal to 1 character`},
		{"slice below min", formatterFixture{Name: "n", Tags: []string{"a"}}, `"Tags" length must be greater than or equal to 2 elements`},
		{"oneof", formatterFixture{Name: "n", Role: "root"}, `"Role" must be one of the following: "member", "librarian"`},
		{"fallback", formatterFixture{Name: "n", Numeric: "x"}, `"Numeric" is invalid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.msg, formatValidationError(firstFieldError(t, tt.fixture)))
		})
	}
}
