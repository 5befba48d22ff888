package tui

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/hf-pick/internal/selector"
)

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("org/model-%03d", i)
	}
	return out
}

func newTestModel(t *testing.T, n, pageSize int) Model {
	t.Helper()
	st, err := selector.New(selector.NewCandidateList(labels(n)), pageSize)
	require.NoError(t, err)
	return NewModel(st)
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
	upKey    = tea.KeyMsg{Type: tea.KeyUp}
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	bsKey    = tea.KeyMsg{Type: tea.KeyBackspace}
)

func TestUpdate_DigitsThenEnterChooses(t *testing.T) {
	m := newTestModel(t, 120, 50)

	m, cmd := press(t, m, runes("1"), runes("0"), runes("7"), enterKey)
	idx, done := m.Chosen()
	require.True(t, done)
	assert.Equal(t, 107, idx)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestUpdate_PastedDigitsExpand(t *testing.T) {
	m := newTestModel(t, 120, 50)

	m, _ = press(t, m, runes("42"), enterKey)
	idx, done := m.Chosen()
	require.True(t, done)
	assert.Equal(t, 42, idx)
}

func TestUpdate_InvalidIndexShowsError(t *testing.T) {
	m := newTestModel(t, 10, 5)

	m, cmd := press(t, m, runes("99"), enterKey)
	_, done := m.Chosen()
	assert.False(t, done)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "invalid index 99, expected 0-9")
	assert.Contains(t, m.View(), "Input: \n")
}

func TestUpdate_EmptyEnterTurnsPage(t *testing.T) {
	m := newTestModel(t, 120, 50)

	m, _ = press(t, m, enterKey)
	assert.Contains(t, m.View(), "Models (page 2/3)")
	assert.Contains(t, m.View(), "  50: org/model-050")
	m, _ = press(t, m, enterKey, enterKey)
	assert.Contains(t, m.View(), "Models (page 1/3)")
}

func TestUpdate_ArrowsAndVimKeys(t *testing.T) {
	m := newTestModel(t, 5, 2)

	m, _ = press(t, m, downKey, runes("j"), runes("j"))
	assert.Contains(t, m.View(), "> 3: org/model-003")
	assert.Contains(t, m.View(), "Models (page 2/3)")

	m, _ = press(t, m, upKey, runes("k"), runes("k"), runes("k"))
	assert.Contains(t, m.View(), "> 0: org/model-000")

	m, _ = press(t, m, downKey, spaceKey)
	idx, done := m.Chosen()
	require.True(t, done)
	assert.Equal(t, 1, idx)
}

func TestUpdate_Backspace(t *testing.T) {
	m := newTestModel(t, 50, 50)

	m, _ = press(t, m, runes("3"), runes("4"), bsKey)
	assert.Contains(t, m.View(), "Input: 3\n")
	m, _ = press(t, m, enterKey)
	idx, done := m.Chosen()
	require.True(t, done)
	assert.Equal(t, 3, idx)
}

func TestUpdate_CtrlCQuits(t *testing.T) {
	m := newTestModel(t, 3, 50)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.Quitting())
	_, done := m.Chosen()
	assert.False(t, done)
	require.NotNil(t, cmd)
	assert.Equal(t, "Shutting down...\n", m.View())
}

func TestUpdate_IgnoresOtherKeys(t *testing.T) {
	m := newTestModel(t, 3, 50)

	m, cmd := press(t, m, runes("x"), runes("q"), tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.False(t, m.Quitting())
	assert.Contains(t, m.View(), "Input: \n")
}

func TestUpdate_HelpToggle(t *testing.T) {
	m := newTestModel(t, 3, 50)

	m, _ = press(t, m, runes("?"))
	assert.Contains(t, m.View(), "ctrl+c: quit without choosing")
	m, _ = press(t, m, runes("?"))
	assert.NotContains(t, m.View(), "ctrl+c: quit without choosing")
}

func TestView_WindowKeepsSelectionVisible(t *testing.T) {
	m := newTestModel(t, 50, 50)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: rowOverheadLines + 10})
	m = next.(Model)

	for range 30 {
		m, _ = press(t, m, downKey)
	}
	view := m.View()
	assert.Contains(t, view, "> 30: org/model-030")
	assert.NotContains(t, view, "org/model-000")
	assert.Equal(t, 10, strings.Count(view, "org/model-")-1) // rows plus the Selected line
}

func TestVisibleRows(t *testing.T) {
	rows := make([]selector.Row, 20)
	for i := range rows {
		rows[i] = selector.Row{Candidate: selector.Candidate{Index: i}, Selected: i == 19}
	}
	assert.Len(t, visibleRows(rows, 0), 20)
	got := visibleRows(rows, rowOverheadLines+5)
	require.Len(t, got, 5)
	assert.Equal(t, 19, got[4].Index)
	assert.Len(t, visibleRows(rows, 1), 1)
}

func TestRun_ChoosesFromInput(t *testing.T) {
	in := strings.NewReader("2\r")
	var out bytes.Buffer

	idx, err := Run(selector.NewCandidateList(labels(5)), 50, tea.WithInput(in), tea.WithOutput(&out))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestRun_EmptyList(t *testing.T) {
	_, err := Run(nil, 50)
	require.ErrorIs(t, err, selector.ErrEmptyList)
}
