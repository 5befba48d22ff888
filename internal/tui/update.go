package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/hf-pick/internal/selector"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(x)
	}

	return m, nil
}

// handleKey processes key bindings and returns updated model and command.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) { // nolint:ireturn
	if m.done || m.quitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil
	}

	for _, k := range m.translate(msg) {
		if idx, done := m.state.Apply(k); done {
			m.chosen, m.done = idx, true
			return m, tea.Quit
		}
	}
	return m, nil
}

// translate maps a terminal key to selector keys. Digits typed quickly or
// pasted arrive as one message and expand to one key per digit.
func (m Model) translate(msg tea.KeyMsg) []selector.Key {
	if msg.Type == tea.KeyRunes && !msg.Alt && isDigits(msg.Runes) {
		keys := make([]selector.Key, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			keys = append(keys, selector.Digit(r))
		}
		return keys
	}
	switch {
	case key.Matches(msg, m.keys.Enter):
		return []selector.Key{selector.Enter}
	case key.Matches(msg, m.keys.Backspace):
		return []selector.Key{selector.Backspace}
	case key.Matches(msg, m.keys.Select):
		return []selector.Key{selector.Select}
	case key.Matches(msg, m.keys.Up):
		return []selector.Key{selector.Up}
	case key.Matches(msg, m.keys.Down):
		return []selector.Key{selector.Down}
	}
	return nil
}

func isDigits(rs []rune) bool {
	if len(rs) == 0 {
		return false
	}
	for _, r := range rs {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
