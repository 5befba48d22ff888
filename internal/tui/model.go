package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/hf-pick/internal/selector"
)

// Model is the root Bubble Tea model. It owns no selection logic; every key
// is translated and handed to the selector state machine.
type Model struct {
	state  *selector.State
	keys   keyMap
	chosen int
	done   bool

	quitting    bool
	helpVisible bool
	width       int
	height      int
}

// NewModel wraps a selector state.
func NewModel(state *selector.State) Model { // nolint:ireturn
	return Model{
		state: state,
		keys:  newKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Chosen returns the selected index once the selector has finished.
func (m Model) Chosen() (int, bool) {
	return m.chosen, m.done
}

// Quitting reports whether the user interrupted the selector.
func (m Model) Quitting() bool {
	return m.quitting
}
