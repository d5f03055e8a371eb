// internal/domain/domain.go
//
// Entity types mirrored from the planning API. The server owns every record;
// the console only keeps derived copies in the query cache.

package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a user's organization role.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleCoLead        Role = "co_lead"
	RoleView          Role = "view"
	RoleSME           Role = "sme"
)

// Roles lists the selectable roles in display order.
var Roles = []Role{RoleAdministrator, RoleCoLead, RoleView, RoleSME}

var titleCaser = cases.Title(language.English)

// Label returns the human label shown in role selects.
func (r Role) Label() string {
	switch r {
	case RoleCoLead:
		return "Co-Lead"
	case RoleSME:
		return "SME"
	}
	return titleCaser.String(strings.ReplaceAll(string(r), "_", " "))
}

// CanLogin reports whether users with this role have an account login.
// SMEs are tracked for capacity only.
func (r Role) CanLogin() bool {
	return r != RoleSME
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is an organization member.
type User struct {
	ID                   string          `json:"id"`
	FirstName            string          `json:"firstName"`
	LastName             string          `json:"lastName"`
	Email                string          `json:"email"`
	Role                 Role            `json:"role"`
	FTE                  float64         `json:"fte"`
	Salary               decimal.Decimal `json:"salary"`
	ServiceDeliveryHours float64         `json:"serviceDeliveryHours"`
	Timezone             string          `json:"timezone,omitempty"`
}

// DisplayName joins the name parts, falling back to the email address.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// CurrentUser is the authenticated session's identity as reported by the API.
type CurrentUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

// Strategy is a top-level organizational objective (a "priority" in UI copy).
type Strategy struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ColorCode    string `json:"colorCode"`
	DisplayOrder int    `json:"displayOrder"`
	Status       string `json:"status"`
	Description  string `json:"description"`
}

// StrategyAssignment joins a user to a strategy.
type StrategyAssignment struct {
	UserID     string `json:"userId"`
	StrategyID string `json:"strategyId"`
}

// TeamTag groups users for capacity reporting.
type TeamTag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ColorHex string `json:"colorHex"`
}

// UserTeamTag is one tag assigned to a user.
type UserTeamTag struct {
	TeamTagID string `json:"teamTagId"`
	IsPrimary bool   `json:"isPrimary"`
}

// PtoEntry is a user's paid-time-off range. Dates are YYYY-MM-DD.
type PtoEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Notes     string `json:"notes,omitempty"`
}

// Holiday is an organization-wide day off.
type Holiday struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExecutiveGoal is a reporting tag attachable to strategies.
type ExecutiveGoal struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TemplateType categorizes template catalog entries.
type TemplateType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultTemplateTypes are the built-in category names every catalog has.
var DefaultTemplateTypes = []string{"Strategy", "Project", "Communication"}

// Workstream is a track of execution under a strategy.
type Workstream struct {
	ID         string `json:"id"`
	StrategyID string `json:"strategyId"`
	Name       string `json:"name"`
	Lead       string `json:"lead,omitempty"`
	Status     string `json:"status,omitempty"`
	SortOrder  int    `json:"sortOrder"`
}

// Phase is a sequenced stage of a strategy's program.
type Phase struct {
	ID           string `json:"id"`
	StrategyID   string `json:"strategyId"`
	Name         string `json:"name"`
	Sequence     int    `json:"sequence"`
	PlannedStart string `json:"plannedStart,omitempty"`
	PlannedEnd   string `json:"plannedEnd,omitempty"`
}

// Organization is the multi-tenant root.
type Organization struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	RegistrationToken string `json:"registrationToken,omitempty"`
}

// TwoFactorStatus reports the session user's 2FA enrollment. Email arrives
// already masked.
type TwoFactorStatus struct {
	Enabled bool   `json:"enabled"`
	Email   string `json:"email,omitempty"`
}

// CommunicationTemplate is an editable message template.
type CommunicationTemplate struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	TemplateTypeID string `json:"templateTypeId,omitempty"`
}
