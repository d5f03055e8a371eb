package apitest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// table is an ordered in-memory collection keyed by an id field.
type table[T any] struct {
	rows []T
	idOf func(*T) *string
}

func newTable[T any](idOf func(*T) *string) table[T] {
	return table[T]{idOf: idOf}
}

func (t *table[T]) index(id string) int {
	for i := range t.rows {
		if *t.idOf(&t.rows[i]) == id {
			return i
		}
	}
	return -1
}

func (t *table[T]) insert(row T) T {
	if p := t.idOf(&row); *p == "" {
		*p = uuid.NewString()
	}
	t.rows = append(t.rows, row)
	return row
}

func (t *table[T]) get(id string) (T, bool) {
	if i := t.index(id); i >= 0 {
		return t.rows[i], true
	}
	var zero T
	return zero, false
}

func (t *table[T]) snapshot() []T {
	return append([]T{}, t.rows...)
}

// prepareFunc adjusts or rejects a row before insert. It runs under s.mu and
// returns a non-empty message to reject.
type prepareFunc[T any] func(c *gin.Context, row *T) string

func crud[T any](g *gin.RouterGroup, path string, s *Server, t *table[T]) {
	g.GET(path, list(s, t, nil))
	g.POST(path, create(s, t, nil))
	g.PATCH(path+"/:id", patch(s, t))
	g.DELETE(path+"/:id", remove(s, t))
}

func list[T any](s *Server, t *table[T], keep func(*gin.Context, T) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		out := make([]T, 0, len(t.rows))
		for _, row := range t.rows {
			if keep == nil || keep(c, row) {
				out = append(out, row)
			}
		}
		s.mu.Unlock()
		c.JSON(http.StatusOK, out)
	}
}

func create[T any](s *Server, t *table[T], prepare prepareFunc[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var row T
		if !decodeBody(c, &row) {
			return
		}
		*t.idOf(&row) = ""
		s.mu.Lock()
		if prepare != nil {
			if msg := prepare(c, &row); msg != "" {
				s.mu.Unlock()
				abortMessage(c, http.StatusBadRequest, msg)
				return
			}
		}
		row = t.insert(row)
		s.mu.Unlock()
		c.JSON(http.StatusCreated, row)
	}
}

// patch overlays the request JSON on the stored row, so only fields present
// in the body change.
func patch[T any](s *Server, t *table[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		id := c.Param("id")
		s.mu.Lock()
		defer s.mu.Unlock()
		i := t.index(id)
		if i < 0 {
			abortMessage(c, http.StatusNotFound, "Not found")
			return
		}
		row := t.rows[i]
		if err := json.Unmarshal(raw, &row); err != nil {
			abortMessage(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		*t.idOf(&row) = id
		t.rows[i] = row
		c.JSON(http.StatusOK, row)
	}
}

func remove[T any](s *Server, t *table[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := t.index(c.Param("id"))
		if i < 0 {
			abortMessage(c, http.StatusNotFound, "Not found")
			return
		}
		t.rows = append(t.rows[:i], t.rows[i+1:]...)
		c.Status(http.StatusNoContent)
	}
}
