package settings

import (
	"context"
	"testing"

	"github.com/kingrea/strata/internal/apitest"
	"github.com/kingrea/strata/internal/capability"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/toast"
)

var adminCaps = capability.Capabilities{CanManageUsers: true, CanEditTactics: true}

type fixture struct {
	srv    *apitest.Server
	deps   Deps
	toasts *toast.Recorder
	ctx    context.Context
}

func newFixture(t *testing.T, caps capability.Capabilities) *fixture {
	t.Helper()
	srv := apitest.New(t)
	rec := &toast.Recorder{}
	return &fixture{
		srv:    srv,
		toasts: rec,
		ctx:    context.Background(),
		deps: Deps{
			API:     srv.NewClient(t),
			Cache:   query.New(),
			Toasts:  rec,
			Confirm: AlwaysConfirm,
			Caps:    caps,
			Me:      domain.CurrentUser{ID: "me", Role: domain.RoleAdministrator},
		},
	}
}

func (f *fixture) lastToast(t *testing.T) toast.Toast {
	t.Helper()
	last, ok := f.toasts.Last()
	if !ok {
		t.Fatalf("expected a toast")
	}
	return last
}
