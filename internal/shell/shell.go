// internal/shell/shell.go
//
// Shell is the settings console's navigation state: which mode (personal or
// administration) is active and which tab within it. Visibility is decided
// entirely by the injected capabilities; a forbidden mode is never offered.

package shell

import (
	"errors"

	"github.com/kingrea/strata/internal/capability"
)

// ErrForbidden is returned when the caller lacks the capability for a mode or tab.
var ErrForbidden = errors.New("shell: forbidden")

// Mode is a top-level section group.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAdmin Mode = "admin"
)

// Label returns the mode button text.
func (m Mode) Label() string {
	if m == ModeAdmin {
		return "Administration"
	}
	return "My Settings"
}

// Tab identifies one section.
type Tab string

const (
	TabSecurity       Tab = "security"
	TabTimeOff        Tab = "time-off"
	TabTemplates      Tab = "templates"
	TabUsers          Tab = "users"
	TabStrategies     Tab = "strategies"
	TabWorkstreams    Tab = "workstreams"
	TabHolidays       Tab = "holidays"
	TabTeamTags       Tab = "team-tags"
	TabExecutiveGoals Tab = "executive-goals"
	TabTemplateTypes  Tab = "template-types"
	TabCommTemplates  Tab = "communication-templates"
	TabRegistration   Tab = "registration"
	TabExport         Tab = "export"
	TabOrganizations  Tab = "organizations"
)

var tabLabels = map[Tab]string{
	TabSecurity:       "Security",
	TabTimeOff:        "Time Off",
	TabTemplates:      "Templates",
	TabUsers:          "Users",
	TabStrategies:     "Strategies",
	TabWorkstreams:    "Workstreams & Phases",
	TabHolidays:       "Holidays",
	TabTeamTags:       "Team Tags",
	TabExecutiveGoals: "Executive Goals",
	TabTemplateTypes:  "Template Categories",
	TabCommTemplates:  "Communication Templates",
	TabRegistration:   "Registration",
	TabExport:         "Data Export",
	TabOrganizations:  "Organizations",
}

// Label returns the tab pill text.
func (t Tab) Label() string {
	if l, ok := tabLabels[t]; ok {
		return l
	}
	return string(t)
}

var (
	userTabs  = []Tab{TabSecurity, TabTimeOff, TabTemplates}
	adminTabs = []Tab{
		TabUsers, TabStrategies, TabWorkstreams, TabHolidays, TabTeamTags,
		TabExecutiveGoals, TabTemplateTypes, TabCommTemplates, TabRegistration,
		TabExport,
	}
)

// Shell holds the active mode and tab. The zero value is not usable; call New.
type Shell struct {
	caps capability.Capabilities
	mode Mode
	tab  Tab
}

// New starts in user mode on its first tab.
func New(caps capability.Capabilities) *Shell {
	s := &Shell{caps: caps, mode: ModeUser}
	s.tab = s.Tabs()[0]
	return s
}

// Capabilities returns the injected capabilities.
func (s *Shell) Capabilities() capability.Capabilities {
	return s.caps
}

// Modes lists the modes offered to the current user. Admin is absent, not
// disabled, without the manage-users capability.
func (s *Shell) Modes() []Mode {
	if s.caps.CanManageUsers {
		return []Mode{ModeUser, ModeAdmin}
	}
	return []Mode{ModeUser}
}

// Mode returns the active mode.
func (s *Shell) Mode() Mode { return s.mode }

// Tab returns the active tab.
func (s *Shell) Tab() Tab { return s.tab }

// SetMode switches modes and resets to the mode's first tab.
func (s *Shell) SetMode(m Mode) error {
	switch m {
	case ModeUser:
	case ModeAdmin:
		if !s.caps.CanManageUsers {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}
	s.mode = m
	s.tab = s.Tabs()[0]
	return nil
}

// Tabs lists the active mode's tabs in order.
func (s *Shell) Tabs() []Tab {
	return s.tabsFor(s.mode)
}

func (s *Shell) tabsFor(m Mode) []Tab {
	if m != ModeAdmin {
		return append([]Tab(nil), userTabs...)
	}
	tabs := append([]Tab(nil), adminTabs...)
	if s.caps.IsSuperAdmin {
		tabs = append(tabs, TabOrganizations)
	}
	return tabs
}

// SetTab activates t, which must belong to the active mode.
func (s *Shell) SetTab(t Tab) error {
	for _, candidate := range s.Tabs() {
		if candidate == t {
			s.tab = t
			return nil
		}
	}
	return ErrForbidden
}

// NextTab advances cyclically.
func (s *Shell) NextTab() Tab {
	return s.step(1)
}

// PrevTab steps back cyclically.
func (s *Shell) PrevTab() Tab {
	return s.step(-1)
}

func (s *Shell) step(delta int) Tab {
	tabs := s.Tabs()
	idx := 0
	for i, t := range tabs {
		if t == s.tab {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(tabs)) % len(tabs)
	s.tab = tabs[idx]
	return s.tab
}
