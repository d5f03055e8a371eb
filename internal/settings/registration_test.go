package settings

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
)

func form(token, email string) RegistrationForm {
	return RegistrationForm{Token: token, FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "analytical"}
}

func TestRegistrationURL(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewRegistrationPanel(f.deps)
	assert.Equal(t, "https://plan.example.com/register/abc", p.URL("abc"))
	assert.Equal(t, "", RegistrationURL("https://x", ""))
	assert.Equal(t, "https://x/register/t", RegistrationURL("https://x/", "t"))
}

func TestGenerateThenRotateRejectsOldToken(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewRegistrationPanel(f.deps)

	token, err := p.Token(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	first, err := p.Generate(f.ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	token, err = p.Token(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, first, token, "generate invalidates the cached token")

	rotated, err := p.Rotate(f.ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated)
	assert.Equal(t, rotated, f.srv.RegistrationToken())

	_, err = p.Register(f.ctx, form(first, "ada@example.com"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
	assert.Equal(t, "Invalid or expired registration token", f.lastToast(t).Description)

	u, err := p.Register(f.ctx, form(rotated, "ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdministrator, u.Role, "the first registrant administers the organization")

	second, err := p.Register(f.ctx, form(rotated, "grace@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleView, second.Role)
}


func TestRotateNeedsConfirmation(t *testing.T) {
	f := newFixture(t, adminCaps)
	f.srv.SetRegistrationToken("keep-me")
	f.deps.Confirm = NeverConfirm
	_, err := NewRegistrationPanel(f.deps).Rotate(f.ctx)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Equal(t, "keep-me", f.srv.RegistrationToken())
}

func TestRegisterValidatesForm(t *testing.T) {
	f := newFixture(t, adminCaps)
	p := NewRegistrationPanel(f.deps)
	bad := form("t", "not-an-email")
	_, err := p.Register(f.ctx, bad)
	require.Error(t, err)
	short := form("t", "ada@example.com")
	short.Password = "123"
	_, err = p.Register(f.ctx, short)
	require.Error(t, err)
	assert.Empty(t, f.srv.Requests())
}
