package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ptoForm struct {
	StartDate string `validate:"required,isodate,notafter=EndDate"`
	EndDate   string `validate:"required,isodate"`
}

func TestDateOrderIsEnforced(t *testing.T) {
	err := Struct(ptoForm{StartDate: "2025-06-10", EndDate: "2025-06-05"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "Start date must be on or before end date", Message(err))

	assert.NoError(t, Struct(ptoForm{StartDate: "2025-06-05", EndDate: "2025-06-05"}))
}

func TestMalformedDateReportsFormat(t *testing.T) {
	err := Struct(ptoForm{StartDate: "06/10/2025", EndDate: "2025-06-12"})
	require.Error(t, err)
	assert.Equal(t, "Start date must be a date (YYYY-MM-DD)", Message(err))
}

type codeForm struct {
	Code string `validate:"len=6,digits"`
}

func TestCodeRules(t *testing.T) {
	assert.NoError(t, Struct(codeForm{Code: "123456"}))
	assert.Equal(t, "Code must be 6 characters", Message(Struct(codeForm{Code: "123"})))
	assert.Equal(t, "Code must contain only digits", Message(Struct(codeForm{Code: "12a456"})))
}

type tagForm struct {
	Name     string `validate:"notblank"`
	ColorHex string `validate:"required,hexcolor"`
	Role     string `validate:"omitempty,oneof=administrator co_lead view sme"`
}

func TestBuiltinsAreDescribed(t *testing.T) {
	assert.Equal(t, "Name is required", Message(Struct(tagForm{Name: "  ", ColorHex: "#fff"})))
	assert.Equal(t, "Color hex must be a hex color like #1E88E5", Message(Struct(tagForm{Name: "Ops", ColorHex: "blue"})))
	assert.Equal(t, "Role must be one of: administrator, co_lead, view, sme", Message(Struct(tagForm{Name: "Ops", ColorHex: "#fff", Role: "owner"})))
}

func TestUniqueNameIgnoresCase(t *testing.T) {
	err := UniqueName("Team tag", "  operations ", []string{"Engineering", "Operations"})
	require.Error(t, err)
	assert.Equal(t, `Team tag "operations" already exists`, Message(err))
	assert.NoError(t, UniqueName("Team tag", "Finance", []string{"Engineering"}))
	assert.Error(t, UniqueName("Team tag", " ", nil))
}

func TestMessageOfPlainError(t *testing.T) {
	assert.False(t, IsValidation(errors.New("x")))
	assert.Equal(t, "x", Message(errors.New("x")))
}
