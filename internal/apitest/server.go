// Package apitest runs an in-memory planning API for tests. It speaks the
// same routes and JSON shapes as the real service, records every request it
// receives, and lets tests seed state or inject failures.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/domain"
)

const (
	// SessionCookie is the cookie name the fake expects for an authenticated session.
	SessionCookie = "session"
	// TwoFactorCode is the only code verify-setup accepts.
	TwoFactorCode = "123456"
	// Password is the session user's password for disabling 2FA.
	Password = "correct-horse-battery"
)

// Request is one recorded call.
type Request struct {
	ID     string
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

type failure struct {
	status  int
	message string
}

// Server is the fake API. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	failures map[string]failure

	me               domain.CurrentUser
	users            table[domain.User]
	strategies       table[domain.Strategy]
	assignments      []domain.StrategyAssignment
	teamTags         table[domain.TeamTag]
	userTags         map[string][]domain.UserTeamTag
	pto              table[domain.PtoEntry]
	holidays         table[domain.Holiday]
	goals            table[domain.ExecutiveGoal]
	templateTypes    table[domain.TemplateType]
	workstreams      table[domain.Workstream]
	phases           table[domain.Phase]
	organizations    table[domain.Organization]
	commTemplates    table[domain.CommunicationTemplate]
	records          map[string]string
	registration     string
	twoFactorOn      bool
	twoFactorPending bool
	maskedEmail      string
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{
		failures:      map[string]failure{},
		users:         newTable(func(u *domain.User) *string { return &u.ID }),
		strategies:    newTable(func(v *domain.Strategy) *string { return &v.ID }),
		teamTags:      newTable(func(v *domain.TeamTag) *string { return &v.ID }),
		userTags:      map[string][]domain.UserTeamTag{},
		pto:           newTable(func(v *domain.PtoEntry) *string { return &v.ID }),
		holidays:      newTable(func(v *domain.Holiday) *string { return &v.ID }),
		goals:         newTable(func(v *domain.ExecutiveGoal) *string { return &v.ID }),
		templateTypes: newTable(func(v *domain.TemplateType) *string { return &v.ID }),
		workstreams:   newTable(func(v *domain.Workstream) *string { return &v.ID }),
		phases:        newTable(func(v *domain.Phase) *string { return &v.ID }),
		organizations: newTable(func(v *domain.Organization) *string { return &v.ID }),
		commTemplates: newTable(func(v *domain.CommunicationTemplate) *string { return &v.ID }),
		records:       map[string]string{},
		maskedEmail:   "a***@example.com",
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// NewClient returns an API client pointed at the server with a session cookie.
func (s *Server) NewClient(t testing.TB) *apiclient.Client {
	t.Helper()
	client, err := apiclient.New(s.URL,
		apiclient.WithSessionCookie(SessionCookie, "test-session"),
		apiclient.WithOrigin("https://plan.example.com"),
	)
	if err != nil {
		t.Fatalf("apitest: new client: %v", err)
	}
	return client
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.csrfCookie, s.injectFailures)

	api := r.Group("/api")
	api.GET("/auth/me", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.me)
	})
	api.POST("/auth/register", s.register)

	api.GET("/users", list(s, &s.users, nil))
	api.PATCH("/users/:id", patch(s, &s.users))
	api.DELETE("/users/:id", remove(s, &s.users))
	api.GET("/users/:id/strategy-assignments", s.listAssignments)
	api.POST("/users/:id/strategy-assignments", s.createAssignment)
	api.DELETE("/users/:id/strategy-assignments/:strategyId", s.deleteAssignment)
	api.GET("/users/:id/team-tags", s.listUserTags)
	api.PUT("/users/:id/team-tags", s.replaceUserTags)
	api.PATCH("/users/:id/capacity", s.updateCapacity)

	api.GET("/strategies", s.listStrategies)
	api.POST("/strategies", create(s, &s.strategies, func(_ *gin.Context, v *domain.Strategy) string {
		if v.DisplayOrder == 0 {
			v.DisplayOrder = len(s.strategies.rows) + 1
		}
		return ""
	}))
	api.POST("/strategies/reorder", s.reorderStrategies)
	api.PATCH("/strategies/:id", patch(s, &s.strategies))
	api.DELETE("/strategies/:id", remove(s, &s.strategies))

	api.GET("/pto", list(s, &s.pto, func(c *gin.Context, v domain.PtoEntry) bool {
		return v.UserID == c.Query("userId")
	}))
	api.POST("/pto", create(s, &s.pto, func(_ *gin.Context, v *domain.PtoEntry) string {
		if v.UserID == "" {
			return "userId is required"
		}
		if v.EndDate < v.StartDate {
			return "End date must be on or after start date"
		}
		return ""
	}))
	api.PATCH("/pto/:id", patch(s, &s.pto))
	api.DELETE("/pto/:id", remove(s, &s.pto))

	crud(api, "/holidays", s, &s.holidays)
	crud(api, "/team-tags", s, &s.teamTags)
	crud(api, "/executive-goals", s, &s.goals)
	crud(api, "/template-types", s, &s.templateTypes)

	api.GET("/workstreams", s.listWorkstreams)
	api.POST("/workstreams", create(s, &s.workstreams, requireStrategy(s, func(v *domain.Workstream) string { return v.StrategyID })))
	api.POST("/workstreams/seed-program", s.seedProgram)
	api.PATCH("/workstreams/:id", patch(s, &s.workstreams))
	api.DELETE("/workstreams/:id", remove(s, &s.workstreams))
	api.GET("/phases", s.listPhases)
	api.POST("/phases", create(s, &s.phases, requireStrategy(s, func(v *domain.Phase) string { return v.StrategyID })))
	api.PATCH("/phases/:id", patch(s, &s.phases))
	api.DELETE("/phases/:id", remove(s, &s.phases))

	api.GET("/admin/registration-token", s.getRegistrationToken)
	api.POST("/admin/registration-token", s.generateRegistrationToken)
	api.POST("/admin/registration-token/rotate", s.rotateRegistrationToken)

	api.GET("/super-admin/organizations", list(s, &s.organizations, nil))
	api.POST("/super-admin/organizations", create(s, &s.organizations, func(_ *gin.Context, v *domain.Organization) string {
		if strings.TrimSpace(v.Name) == "" {
			return "Name is required"
		}
		v.RegistrationToken = uuid.NewString()
		return ""
	}))
	api.DELETE("/super-admin/organizations/:id", remove(s, &s.organizations))
	api.POST("/super-admin/organizations/:id/rotate-token", s.rotateOrganizationToken)

	api.GET("/auth/2fa/status", s.twoFactorStatus)
	api.POST("/auth/2fa/setup", s.requireCSRF, s.twoFactorSetup)
	api.POST("/auth/2fa/verify-setup", s.requireCSRF, s.twoFactorVerify)
	api.POST("/auth/2fa/disable", s.requireCSRF, s.twoFactorDisable)

	api.GET("/communication-templates", list(s, &s.commTemplates, nil))
	api.PATCH("/communication-templates/:id", patch(s, &s.commTemplates))

	api.GET("/projects", s.rawRecords("projects"))
	api.GET("/actions", s.rawRecords("actions"))
	return r
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		ID:     c.GetHeader(apiclient.RequestIDHeader),
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Body:   string(body),
		Header: c.Request.Header.Clone(),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) csrfCookie(c *gin.Context) {
	if _, err := c.Cookie(apiclient.CSRFCookie); err != nil {
		c.SetCookie(apiclient.CSRFCookie, uuid.NewString(), 0, "/", "", false, false)
	}
	c.Next()
}

func (s *Server) requireCSRF(c *gin.Context) {
	cookie, err := c.Cookie(apiclient.CSRFCookie)
	if err != nil || cookie == "" || c.GetHeader(apiclient.CSRFHeader) != cookie {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid CSRF token"})
		return
	}
	c.Next()
}

func (s *Server) injectFailures(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	s.mu.Lock()
	f, ok := s.failures[key]
	if ok {
		delete(s.failures, key)
	}
	s.mu.Unlock()
	if ok {
		body := gin.H{}
		if f.message != "" {
			body["message"] = f.message
		}
		c.AbortWithStatusJSON(f.status, body)
		return
	}
	c.Next()
}

// FailNext makes the next request to method+path answer status with message.
// An empty message sends an envelope without one.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many recorded requests match method and path. An empty
// method matches any.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if (method == "" || r.Method == method) && r.Path == path {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func abortMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func sortedBy[T any](rows []T, less func(a, b T) bool) []T {
	out := append([]T{}, rows...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func decodeBody(c *gin.Context, v any) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
