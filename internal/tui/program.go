package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/hf-pick/internal/selector"
)

// Run shows the selector full screen and blocks until the user picks an index.
// It returns ErrQuit when the user interrupts instead.
func Run(items selector.CandidateList, pageSize int, opts ...tea.ProgramOption) (int, error) {
	state, err := selector.New(items, pageSize)
	if err != nil {
		return 0, err
	}

	p := tea.NewProgram(NewModel(state), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(prevOut)

	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("selector: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return 0, fmt.Errorf("selector: unexpected model %T", final)
	}
	if idx, done := m.Chosen(); done {
		return idx, nil
	}
	return 0, ErrQuit
}
