package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/capability"
)

func TestAdminModeHiddenWithoutCapability(t *testing.T) {
	s := New(capability.Capabilities{CanEditTactics: true})
	assert.Equal(t, []Mode{ModeUser}, s.Modes())
	assert.ErrorIs(t, s.SetMode(ModeAdmin), ErrForbidden)
	assert.Equal(t, ModeUser, s.Mode())
	assert.ErrorIs(t, s.SetTab(TabUsers), ErrForbidden)
}

func TestSwitchingModeResetsTab(t *testing.T) {
	s := New(capability.Capabilities{CanManageUsers: true})
	require.NoError(t, s.SetTab(TabTemplates))
	require.NoError(t, s.SetMode(ModeAdmin))
	assert.Equal(t, TabUsers, s.Tab())
	require.NoError(t, s.SetTab(TabHolidays))
	require.NoError(t, s.SetMode(ModeUser))
	assert.Equal(t, TabSecurity, s.Tab())
}

func TestOrganizationsOnlyForSuperAdmin(t *testing.T) {
	admin := New(capability.Capabilities{CanManageUsers: true})
	require.NoError(t, admin.SetMode(ModeAdmin))
	assert.NotContains(t, admin.Tabs(), TabOrganizations)

	super := New(capability.Capabilities{CanManageUsers: true, IsSuperAdmin: true})
	require.NoError(t, super.SetMode(ModeAdmin))
	assert.Equal(t, TabOrganizations, super.Tabs()[len(super.Tabs())-1])
}

func TestTabCycling(t *testing.T) {
	s := New(capability.Capabilities{})
	assert.Equal(t, TabTimeOff, s.NextTab())
	assert.Equal(t, TabTemplates, s.NextTab())
	assert.Equal(t, TabSecurity, s.NextTab())
	assert.Equal(t, TabTemplates, s.PrevTab())
	assert.Equal(t, "Time Off", TabTimeOff.Label())
	assert.Equal(t, "Administration", ModeAdmin.Label())
}
