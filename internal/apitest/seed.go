package apitest

import (
	"github.com/kingrea/strata/internal/domain"
)

// SetCurrentUser sets the identity /api/auth/me reports.
func (s *Server) SetCurrentUser(u domain.CurrentUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.me = u
}

// AddUser stores u, assigning an id when empty.
func (s *Server) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.insert(u)
}

// User returns the stored user.
func (s *Server) User(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.get(id)
}

// Users returns every stored user.
func (s *Server) Users() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.snapshot()
}

// AddStrategy stores v.
func (s *Server) AddStrategy(v domain.Strategy) domain.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.DisplayOrder == 0 {
		v.DisplayOrder = len(s.strategies.rows) + 1
	}
	return s.strategies.insert(v)
}

// Strategies returns strategies in display order.
func (s *Server) Strategies() []domain.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedBy(s.strategies.rows, func(a, b domain.Strategy) bool { return a.DisplayOrder < b.DisplayOrder })
}

// Assign adds a join row. Duplicate rows are kept, as the real join table allows.
func (s *Server) Assign(userID, strategyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, domain.StrategyAssignment{UserID: userID, StrategyID: strategyID})
}

// Assignments returns the join rows for a user.
func (s *Server) Assignments(userID string) []domain.StrategyAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StrategyAssignment
	for _, a := range s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// AddTeamTag stores v.
func (s *Server) AddTeamTag(v domain.TeamTag) domain.TeamTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teamTags.insert(v)
}

// SetUserTeamTags replaces a user's tag assignments.
func (s *Server) SetUserTeamTags(userID string, tags []domain.UserTeamTag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userTags[userID] = append([]domain.UserTeamTag(nil), tags...)
}

// UserTeamTags returns a user's tag assignments.
func (s *Server) UserTeamTags(userID string) []domain.UserTeamTag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UserTeamTag(nil), s.userTags[userID]...)
}

// AddHoliday stores v.
func (s *Server) AddHoliday(v domain.Holiday) domain.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holidays.insert(v)
}

// Holidays returns every stored holiday.
func (s *Server) Holidays() []domain.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holidays.snapshot()
}

// AddPto stores v.
func (s *Server) AddPto(v domain.PtoEntry) domain.PtoEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pto.insert(v)
}

// AddExecutiveGoal stores v.
func (s *Server) AddExecutiveGoal(v domain.ExecutiveGoal) domain.ExecutiveGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals.insert(v)
}

// AddTemplateType stores v.
func (s *Server) AddTemplateType(v domain.TemplateType) domain.TemplateType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateTypes.insert(v)
}

// Workstreams returns the strategy's workstreams.
func (s *Server) Workstreams(strategyID string) []domain.Workstream {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Workstream
	for _, w := range s.workstreams.rows {
		if w.StrategyID == strategyID {
			out = append(out, w)
		}
	}
	return out
}

// Phases returns the strategy's phases.
func (s *Server) Phases(strategyID string) []domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Phase
	for _, p := range s.phases.rows {
		if p.StrategyID == strategyID {
			out = append(out, p)
		}
	}
	return out
}

// AddOrganization stores v.
func (s *Server) AddOrganization(v domain.Organization) domain.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.organizations.insert(v)
}

// Organizations returns every stored organization.
func (s *Server) Organizations() []domain.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.organizations.snapshot()
}

// AddCommunicationTemplate stores v.
func (s *Server) AddCommunicationTemplate(v domain.CommunicationTemplate) domain.CommunicationTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commTemplates.insert(v)
}

// CommunicationTemplate returns the stored template.
func (s *Server) CommunicationTemplate(id string) (domain.CommunicationTemplate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commTemplates.get(id)
}

// SetRecords sets the raw JSON array served for projects or actions.
func (s *Server) SetRecords(entity, rawJSON string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[entity] = rawJSON
}

// SetRegistrationToken sets the active registration token.
func (s *Server) SetRegistrationToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registration = token
}

// RegistrationToken returns the active registration token.
func (s *Server) RegistrationToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registration
}

// SetTwoFactor sets the enrollment state.
func (s *Server) SetTwoFactor(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.twoFactorOn = enabled
	s.twoFactorPending = false
}

// TwoFactorEnabled reports the enrollment state.
func (s *Server) TwoFactorEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.twoFactorOn
}
