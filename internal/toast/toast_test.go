package toast

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestJournalTailReturnsRecentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	journal, err := NewJournal(path)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	for i := 0; i < 5; i++ {
		journal.Show(Success("Saved", "entry-"+string(rune('0'+i))))
	}
	journal.Show(Failure("Error", "boom"))
	lines := journal.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-3", "entry-4", "boom"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
	if !strings.Contains(lines[2], "FAIL") {
		t.Fatalf("destructive toast not marked: %q", lines[2])
	}
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	var a, b Recorder
	sink := Fanout(&a, nil, &b)
	sink.Show(Success("Created", "Holiday added"))
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected both recorders to receive the toast")
	}
	last, _ := b.Last()
	if last.String() != "Created: Holiday added" {
		t.Fatalf("unexpected toast text %q", last.String())
	}
}
