package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// field describes one input of an action form.
type field struct {
	key         string
	label       string
	value       string
	placeholder string
	secret      bool
	limit       int
}

// form collects the values for one action. Enter on the last input submits.
type form struct {
	title  string
	keys   []string
	labels []string
	inputs []textinput.Model
	focus  int
}

type formResult int

const (
	formEditing formResult = iota
	formSubmitted
	formCancelled
)

func newForm(title string, fields []field) *form {
	f := &form{title: title}
	for i, fd := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fd.placeholder
		in.SetValue(fd.value)
		in.CursorEnd()
		if fd.limit > 0 {
			in.CharLimit = fd.limit
		}
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		if i == 0 {
			in.Focus()
		}
		f.keys = append(f.keys, fd.key)
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, in)
	}
	return f
}

func (f *form) values() map[string]string {
	out := make(map[string]string, len(f.keys))
	for i, k := range f.keys {
		out[k] = f.inputs[i].Value()
	}
	return out
}

func (f *form) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) update(msg tea.Msg) (formResult, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return formCancelled, nil
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return formEditing, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return formEditing, nil
		case "enter":
			if f.focus >= len(f.inputs)-1 {
				return formSubmitted, nil
			}
			f.setFocus(f.focus + 1)
			return formEditing, nil
		}
	}
	if len(f.inputs) == 0 {
		return formEditing, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return formEditing, cmd
}

func (f *form) view(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Render(f.title)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	focused := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	lines := []string{title, ""}
	for i, in := range f.inputs {
		marker := "  "
		style := label
		if i == f.focus {
			marker = "› "
			style = focused
		}
		lines = append(lines, marker+style.Render(f.labels[i]+":")+" "+in.View())
	}
	lines = append(lines, "", label.Render("enter next/submit · tab move · esc cancel"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5B8DEF")).
		Padding(0, 1).
		Width(max(30, width-4)).
		Render(strings.Join(lines, "\n"))
}
