package toast

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Journal persists toasts to a plain-text activity log so outcomes can be
// reviewed after the console closes.
type Journal struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// NewJournal creates a journal that appends to path.
func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("toast: ensure journal dir: %w", err)
	}
	return &Journal{path: path, clock: time.Now}, nil
}

// Path returns the file backing this journal.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Show appends one line for t.
func (j *Journal) Show(t Toast) {
	if j == nil {
		return
	}
	level := "OK"
	if t.Variant == VariantDestructive {
		level = "FAIL"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("%s %-4s %s\n",
		j.clock().UTC().Format(time.RFC3339),
		level,
		strings.ReplaceAll(t.String(), "\n", " "),
	)
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries.
func (j *Journal) Tail(maxLines int) []string {
	if j == nil || maxLines <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	return lines
}
