package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
)

func TestFromUser(t *testing.T) {
	admin := FromUser(domain.CurrentUser{Role: domain.RoleAdministrator})
	assert.Equal(t, Capabilities{CanManageUsers: true, CanEditTactics: true}, admin)

	coLead := FromUser(domain.CurrentUser{Role: domain.RoleCoLead})
	assert.False(t, coLead.CanManageUsers)
	assert.True(t, coLead.CanEditTactics)

	for _, role := range []domain.Role{domain.RoleView, domain.RoleSME} {
		caps := FromUser(domain.CurrentUser{Role: role, IsSuperAdmin: true})
		assert.False(t, caps.CanManageUsers, role)
		assert.False(t, caps.CanEditTactics, role)
		assert.True(t, caps.IsSuperAdmin, "super admin flag comes from the server")
	}
}

type stubGetter struct {
	path string
	user domain.CurrentUser
	err  error
}

func (s *stubGetter) Get(_ context.Context, path string, out any, _ ...apiclient.RequestOption) error {
	s.path = path
	if s.err != nil {
		return s.err
	}
	*(out.(*domain.CurrentUser)) = s.user
	return nil
}

func TestLoad(t *testing.T) {
	g := &stubGetter{user: domain.CurrentUser{ID: "u1", Role: domain.RoleCoLead}}
	me, caps, err := Load(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/me", g.path)
	assert.Equal(t, "u1", me.ID)
	assert.True(t, caps.CanEditTactics)

	_, _, err = Load(context.Background(), &stubGetter{err: errors.New("401")})
	assert.Error(t, err)
}
