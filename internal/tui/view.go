package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/hf-pick/internal/selector"
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.done {
		return ""
	}
	return renderFrame(m.state.Frame(), m.keys, m.helpVisible, m.height)
}

func renderFrame(f selector.Frame, keys keyMap, help bool, height int) string {
	var b strings.Builder
	if help {
		b.WriteString(renderHelp())
		b.WriteString("\n\n")
	}
	b.WriteString(renderHeader(f))
	b.WriteString("\n\n")

	marker := lipgloss.NewStyle().Foreground(lipgloss.Color(cyanColor)).Bold(true)
	for _, r := range visibleRows(f.Rows, height) {
		if r.Selected {
			b.WriteString(marker.Render(fmt.Sprintf("> %d: %s", r.Index, r.Label)))
			b.WriteString("  ✅\n")
			continue
		}
		fmt.Fprintf(&b, "  %d: %s\n", r.Index, r.Label)
	}

	b.WriteString("\n")
	b.WriteString(renderFooter(keys))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Input: %s\n", f.Buffer)
	if f.Message != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(redColor)).Render("⚠️ " + f.Message))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(greenColor)).
		Render(fmt.Sprintf("Selected: %d: %s", f.Selected.Index, f.Selected.Label)))
	b.WriteString("\n")
	return b.String()
}

func renderHeader(f selector.Frame) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(cyanColor)).
		Render("HF-PICK")
	page := lipgloss.NewStyle().
		Foreground(lipgloss.Color(grayColor)).
		Render(fmt.Sprintf("Models (page %d/%d)", f.Page+1, f.TotalPages))
	return fmt.Sprintf("%s\n%s", title, page)
}

func renderFooter(keys keyMap) string {
	bindings := []key.Binding{keys.Up, keys.Down, keys.Digit, keys.Enter, keys.Select, keys.Help, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(grayColor)).Render(strings.Join(parts, " • "))
}

func renderHelp() string {
	border := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Foreground(lipgloss.Color(borderColor))
	content := []string{
		"Help",
		"",
		"?: toggle this help",
		"ctrl+c: quit without choosing",
		"↑/↓ or j/k: move the highlight; the page follows",
		"digits then enter: choose that index",
		"enter with no digits: next page",
		"space: choose the highlighted model",
	}
	return border.Render(strings.Join(content, "\n"))
}

// visibleRows trims a page to the terminal height, keeping the selected row
// in view. A page always holds every row when the height is unknown.
func visibleRows(rows []selector.Row, height int) []selector.Row {
	if height <= 0 {
		return rows
	}
	fit := height - rowOverheadLines
	if fit < 1 {
		fit = 1
	}
	if len(rows) <= fit {
		return rows
	}
	sel := 0
	for i, r := range rows {
		if r.Selected {
			sel = i
			break
		}
	}
	start := sel - fit/2
	if start < 0 {
		start = 0
	}
	if start+fit > len(rows) {
		start = len(rows) - fit
	}
	return rows[start : start+fit]
}
