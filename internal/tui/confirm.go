package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmRequestMsg asks the app to show a y/n prompt. The answer goes back
// on reply exactly once.
type confirmRequestMsg struct {
	prompt string
	reply  chan bool
}

// modalConfirmer implements settings.Confirmer by round-tripping through the
// program's message loop. It blocks the calling command, never Update.
type modalConfirmer struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (m *modalConfirmer) attach(send func(tea.Msg)) {
	m.mu.Lock()
	m.send = send
	m.mu.Unlock()
}

func (m *modalConfirmer) Confirm(ctx context.Context, prompt string) bool {
	m.mu.Lock()
	send := m.send
	m.mu.Unlock()
	if send == nil {
		return false
	}
	reply := make(chan bool, 1)
	send(confirmRequestMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}
