// internal/toast/toast.go
//
// Toasts are the one user-visible outcome of every mutation: exactly one per
// success, failure or rejected submission.

package toast

import (
	"strings"
	"sync"
)

// Variant selects the toast styling.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a short notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

// Success builds a default-variant toast.
func Success(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive toast.
func Failure(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDestructive}
}

// String renders the toast on one line.
func (t Toast) String() string {
	title := strings.TrimSpace(t.Title)
	desc := strings.TrimSpace(t.Description)
	switch {
	case desc == "":
		return title
	case title == "":
		return desc
	}
	return title + ": " + desc
}

// Sink receives toasts.
type Sink interface {
	Show(Toast)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Toast)

// Show calls f.
func (f SinkFunc) Show(t Toast) { f(t) }

// Discard drops every toast.
var Discard Sink = SinkFunc(func(Toast) {})

// Fanout delivers each toast to every non-nil sink.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(t Toast) {
		for _, s := range sinks {
			if s != nil {
				s.Show(t)
			}
		}
	})
}

// Recorder keeps every toast in memory. Tests use it to assert outcomes.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Show records t.
func (r *Recorder) Show(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// All returns a copy of the recorded toasts.
func (r *Recorder) All() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Len returns the number of recorded toasts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
}
