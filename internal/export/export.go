// Package export downloads planning data as CSV files.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/toast"
)

// Entity is an exportable collection.
type Entity string

const (
	Strategies Entity = "strategies"
	Projects   Entity = "projects"
	Actions    Entity = "actions"
)

// Entities lists the collections ExportAll runs, in order.
var Entities = []Entity{Strategies, Projects, Actions}

// DefaultHeaders is written when a collection is empty.
var DefaultHeaders = map[Entity][]string{
	Strategies: {"id", "title", "description", "status", "colorCode", "displayOrder"},
	Projects:   {"id", "title", "description", "status", "strategyId", "startDate", "dueDate"},
	Actions:    {"id", "title", "description", "status", "projectId", "assigneeId", "dueDate"},
}

// Label is the capitalized name used in toasts.
func (e Entity) Label() string {
	switch e {
	case Strategies:
		return "Strategies"
	case Projects:
		return "Projects"
	case Actions:
		return "Actions"
	}
	return string(e)
}

// ParseEntity validates a collection name.
func ParseEntity(name string) (Entity, error) {
	for _, e := range Entities {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("export: unknown entity %q", name)
}

// Getter is the part of the API client the exporter needs.
type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.RequestOption) error
}

// Exporter writes CSV exports into Dir.
type Exporter struct {
	API     Getter
	Dir     string
	Stagger time.Duration
	Toasts  toast.Sink
	Logger  logrus.FieldLogger
	Now     func() time.Time

	mu      sync.Mutex
	running map[Entity]bool
}

// ErrRunning is returned when an export of the same entity is in progress.
var ErrRunning = errors.New("export: already running")

// FileName is "<entity>-export-YYYY-MM-DD.csv" for the given day.
func FileName(e Entity, day time.Time) string {
	return fmt.Sprintf("%s-export-%s.csv", e, day.Format("2006-01-02"))
}

func (x *Exporter) sink() toast.Sink {
	if x.Toasts == nil {
		return toast.Discard
	}
	return x.Toasts
}

func (x *Exporter) logger() logrus.FieldLogger {
	if x.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		return l
	}
	return x.Logger
}

func (x *Exporter) now() time.Time {
	if x.Now == nil {
		return time.Now()
	}
	return x.Now()
}

func (x *Exporter) begin(e Entity) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.running == nil {
		x.running = map[Entity]bool{}
	}
	if x.running[e] {
		return false
	}
	x.running[e] = true
	return true
}

func (x *Exporter) end(e Entity) {
	x.mu.Lock()
	delete(x.running, e)
	x.mu.Unlock()
}

// IsRunning reports whether e is being exported.
func (x *Exporter) IsRunning(e Entity) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.running[e]
}

// Export fetches one collection and writes it to a CSV file, returning the
// file path. Exactly one toast reports the outcome.
func (x *Exporter) Export(ctx context.Context, e Entity) (string, error) {
	if !x.begin(e) {
		return "", ErrRunning
	}
	defer x.end(e)
	log := x.logger().WithField("entity", e)

	path, err := x.export(ctx, e)
	if err != nil {
		log.WithError(err).Warn("export failed")
		x.sink().Show(toast.Failure("Export failed", apiclient.Message(err, fmt.Sprintf("Failed to export %s", e))))
		return "", err
	}
	log.WithField("path", path).Info("export written")
	x.sink().Show(toast.Success("Export complete", fmt.Sprintf("%s exported to %s", e.Label(), filepath.Base(path))))
	return path, nil
}

func (x *Exporter) export(ctx context.Context, e Entity) (string, error) {
	var raw json.RawMessage
	if err := x.API.Get(ctx, apiclient.Path(string(e)), &raw); err != nil {
		return "", fmt.Errorf("export: fetch %s: %w", e, err)
	}
	headers, rows := Flatten(raw)
	if len(rows) == 0 {
		headers = DefaultHeaders[e]
	}
	dir := x.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, FileName(e, x.now()))
	if err := os.WriteFile(path, []byte(Encode(headers, rows)), 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}

// Result is one entity's outcome from ExportAll.
type Result struct {
	Entity Entity
	Path   string
	Err    error
}

// ExportAll runs every entity's export independently, starting each one
// Stagger after the previous. A failure does not stop the others.
func (x *Exporter) ExportAll(ctx context.Context) []Result {
	results := make([]Result, len(Entities))
	var g errgroup.Group
	for i, e := range Entities {
		delay := time.Duration(i) * x.Stagger
		g.Go(func() error {
			results[i].Entity = e
			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					results[i].Err = ctx.Err()
					x.logger().WithField("entity", e).WithError(ctx.Err()).Warn("export cancelled")
					x.sink().Show(toast.Failure("Export failed", fmt.Sprintf("%s export cancelled", e.Label())))
					return nil
				case <-timer.C:
				}
			}
			results[i].Path, results[i].Err = x.Export(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
