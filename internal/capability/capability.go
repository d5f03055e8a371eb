// Package capability turns the session user's role into the predicates the
// console gates on. Panels receive a Capabilities value; nothing reads the
// role directly.
package capability

import (
	"context"
	"fmt"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
)

// Capabilities is what the current user may do.
type Capabilities struct {
	CanManageUsers bool
	IsSuperAdmin   bool
	CanEditTactics bool
}

// FromUser derives capabilities from the role the server reported.
func FromUser(u domain.CurrentUser) Capabilities {
	return Capabilities{
		CanManageUsers: u.Role == domain.RoleAdministrator,
		CanEditTactics: u.Role == domain.RoleAdministrator || u.Role == domain.RoleCoLead,
		IsSuperAdmin:   u.IsSuperAdmin,
	}
}

// Getter is the slice of the API client Load needs.
type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.RequestOption) error
}

// Load fetches the session user and its capabilities.
func Load(ctx context.Context, client Getter) (domain.CurrentUser, Capabilities, error) {
	var me domain.CurrentUser
	if err := client.Get(ctx, apiclient.Path("auth", "me"), &me); err != nil {
		return domain.CurrentUser{}, Capabilities{}, fmt.Errorf("capability: load session user: %w", err)
	}
	return me, FromUser(me), nil
}
