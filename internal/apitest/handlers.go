package apitest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingrea/strata/internal/domain"
)

// Default program structure created by seed-program.
var (
	DefaultWorkstreams = []string{"Program Management", "Change Management", "Communications"}
	DefaultPhases      = []string{"Discovery", "Planning", "Execution", "Closeout"}
)

func (s *Server) listAssignments(c *gin.Context) {
	userID := c.Param("id")
	s.mu.Lock()
	out := []domain.StrategyAssignment{}
	for _, a := range s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createAssignment(c *gin.Context) {
	var body struct {
		StrategyID string `json:"strategyId"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies.get(body.StrategyID); !ok {
		abortMessage(c, http.StatusBadRequest, "Unknown strategy")
		return
	}
	a := domain.StrategyAssignment{UserID: c.Param("id"), StrategyID: body.StrategyID}
	s.assignments = append(s.assignments, a)
	c.JSON(http.StatusCreated, a)
}

func (s *Server) deleteAssignment(c *gin.Context) {
	userID, strategyID := c.Param("id"), c.Param("strategyId")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.assignments[:0]
	removed := 0
	for _, a := range s.assignments {
		if a.UserID == userID && a.StrategyID == strategyID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.assignments = kept
	if removed == 0 {
		abortMessage(c, http.StatusNotFound, "Assignment not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listUserTags(c *gin.Context) {
	s.mu.Lock()
	out := append([]domain.UserTeamTag{}, s.userTags[c.Param("id")]...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) replaceUserTags(c *gin.Context) {
	var body struct {
		TeamTagIDs       []string `json:"teamTagIds"`
		PrimaryTeamTagID string   `json:"primaryTeamTagId"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]domain.UserTeamTag, 0, len(body.TeamTagIDs))
	for _, id := range body.TeamTagIDs {
		if _, ok := s.teamTags.get(id); !ok {
			abortMessage(c, http.StatusBadRequest, "Unknown team tag")
			return
		}
		tags = append(tags, domain.UserTeamTag{TeamTagID: id, IsPrimary: id == body.PrimaryTeamTagID})
	}
	s.userTags[c.Param("id")] = tags
	c.JSON(http.StatusOK, tags)
}

func (s *Server) updateCapacity(c *gin.Context) {
	var body struct {
		FTE                  *float64         `json:"fte"`
		Salary               *decimal.Decimal `json:"salary"`
		ServiceDeliveryHours *float64         `json:"serviceDeliveryHours"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.users.index(c.Param("id"))
	if i < 0 {
		abortMessage(c, http.StatusNotFound, "User not found")
		return
	}
	u := &s.users.rows[i]
	if body.FTE != nil {
		u.FTE = *body.FTE
	}
	if body.Salary != nil {
		u.Salary = *body.Salary
	}
	if body.ServiceDeliveryHours != nil {
		u.ServiceDeliveryHours = *body.ServiceDeliveryHours
	}
	c.JSON(http.StatusOK, *u)
}

func (s *Server) listStrategies(c *gin.Context) {
	s.mu.Lock()
	out := sortedBy(s.strategies.rows, func(a, b domain.Strategy) bool { return a.DisplayOrder < b.DisplayOrder })
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) reorderStrategies(c *gin.Context) {
	var body struct {
		StrategyOrders []struct {
			ID           string `json:"id"`
			DisplayOrder int    `json:"displayOrder"`
		} `json:"strategyOrders"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range body.StrategyOrders {
		i := s.strategies.index(o.ID)
		if i < 0 {
			abortMessage(c, http.StatusBadRequest, "Unknown strategy")
			return
		}
		s.strategies.rows[i].DisplayOrder = o.DisplayOrder
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func requireStrategy[T any](s *Server, strategyOf func(*T) string) prepareFunc[T] {
	return func(_ *gin.Context, row *T) string {
		if _, ok := s.strategies.get(strategyOf(row)); !ok {
			return "Unknown strategy"
		}
		return ""
	}
}

func (s *Server) listWorkstreams(c *gin.Context) {
	strategyID := c.Query("strategyId")
	s.mu.Lock()
	out := []domain.Workstream{}
	for _, w := range sortedBy(s.workstreams.rows, func(a, b domain.Workstream) bool { return a.SortOrder < b.SortOrder }) {
		if w.StrategyID == strategyID {
			out = append(out, w)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) listPhases(c *gin.Context) {
	strategyID := c.Query("strategyId")
	s.mu.Lock()
	out := []domain.Phase{}
	for _, p := range sortedBy(s.phases.rows, func(a, b domain.Phase) bool { return a.Sequence < b.Sequence }) {
		if p.StrategyID == strategyID {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

// seedProgram creates the default workstreams and phases a strategy lacks.
// Running it again creates nothing.
func (s *Server) seedProgram(c *gin.Context) {
	var body struct {
		StrategyID string `json:"strategyId"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies.get(body.StrategyID); !ok {
		abortMessage(c, http.StatusBadRequest, "Unknown strategy")
		return
	}
	have := map[string]bool{}
	for _, w := range s.workstreams.rows {
		if w.StrategyID == body.StrategyID {
			have["w:"+strings.ToLower(w.Name)] = true
		}
	}
	for _, p := range s.phases.rows {
		if p.StrategyID == body.StrategyID {
			have["p:"+strings.ToLower(p.Name)] = true
		}
	}
	createdW, createdP := 0, 0
	for i, name := range DefaultWorkstreams {
		if have["w:"+strings.ToLower(name)] {
			continue
		}
		s.workstreams.insert(domain.Workstream{StrategyID: body.StrategyID, Name: name, SortOrder: i + 1})
		createdW++
	}
	for i, name := range DefaultPhases {
		if have["p:"+strings.ToLower(name)] {
			continue
		}
		s.phases.insert(domain.Phase{StrategyID: body.StrategyID, Name: name, Sequence: i + 1})
		createdP++
	}
	c.JSON(http.StatusOK, gin.H{"workstreamsCreated": createdW, "phasesCreated": createdP})
}

func (s *Server) getRegistrationToken(c *gin.Context) {
	s.mu.Lock()
	token := s.registration
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) generateRegistrationToken(c *gin.Context) {
	s.mu.Lock()
	if s.registration == "" {
		s.registration = uuid.NewString()
	}
	token := s.registration
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) rotateRegistrationToken(c *gin.Context) {
	s.mu.Lock()
	s.registration = uuid.NewString()
	token := s.registration
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) register(c *gin.Context) {
	var body struct {
		Token     string `json:"token"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Token == "" || body.Token != s.registration {
		abortMessage(c, http.StatusBadRequest, "Invalid or expired registration token")
		return
	}
	for _, u := range s.users.rows {
		if strings.EqualFold(u.Email, body.Email) {
			abortMessage(c, http.StatusConflict, "An account with that email already exists")
			return
		}
	}
	role := domain.RoleView
	if len(s.users.rows) == 0 {
		role = domain.RoleAdministrator
	}
	u := s.users.insert(domain.User{FirstName: body.FirstName, LastName: body.LastName, Email: body.Email, Role: role, FTE: 1})
	c.JSON(http.StatusCreated, u)
}

func (s *Server) rotateOrganizationToken(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.organizations.index(c.Param("id"))
	if i < 0 {
		abortMessage(c, http.StatusNotFound, "Organization not found")
		return
	}
	s.organizations.rows[i].RegistrationToken = uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"token": s.organizations.rows[i].RegistrationToken})
}

func (s *Server) twoFactorStatus(c *gin.Context) {
	s.mu.Lock()
	status := domain.TwoFactorStatus{Enabled: s.twoFactorOn, Email: s.maskedEmail}
	s.mu.Unlock()
	c.JSON(http.StatusOK, status)
}

func (s *Server) twoFactorSetup(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.twoFactorOn {
		abortMessage(c, http.StatusConflict, "Two-factor authentication is already enabled")
		return
	}
	s.twoFactorPending = true
	c.JSON(http.StatusOK, gin.H{"success": true, "email": s.maskedEmail})
}

func (s *Server) twoFactorVerify(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.twoFactorPending {
		abortMessage(c, http.StatusBadRequest, "No setup in progress")
		return
	}
	if body.Code != TwoFactorCode {
		abortMessage(c, http.StatusBadRequest, "Invalid verification code")
		return
	}
	s.twoFactorPending = false
	s.twoFactorOn = true
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) twoFactorDisable(c *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if !decodeBody(c, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Password != Password {
		abortMessage(c, http.StatusUnauthorized, "Incorrect password")
		return
	}
	s.twoFactorOn = false
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) rawRecords(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		raw, ok := s.records[entity]
		s.mu.Unlock()
		if !ok {
			raw = "[]"
		}
		c.Data(http.StatusOK, "application/json", []byte(raw))
	}
}
