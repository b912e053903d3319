// Package ui styles the text output of the CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorOK    = lipgloss.Color("#2CD7C7")
	ColorWarn  = lipgloss.Color("#F4D03F")
	ColorFail  = lipgloss.Color("#E74C3C")
	ColorMuted = lipgloss.Color("#6C7A89")
)

// Styles used by the text formatter. lipgloss drops the colors when the
// output is not a terminal, so piped output stays plain.
var (
	Title = lipgloss.NewStyle().Bold(true)
	Muted = lipgloss.NewStyle().Foreground(ColorMuted)
	OK    = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	Warn  = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	Fail  = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
)

// Status renders a run or process status word in its color.
func Status(status string) string {
	switch status {
	case "completed", "ok":
		return OK.Render(status)
	case "failed", "error":
		return Fail.Render(status)
	case "cancelled", "running", "warn", "dry run":
		return Warn.Render(status)
	}
	return status
}

// Table lays out rows in left-aligned columns separated by two spaces.
func Table(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, 0)
	for _, row := range rows {
		for i, cell := range row {
			w := lipgloss.Width(cell)
			if i >= len(widths) {
				widths = append(widths, w)
			} else if w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			style := lipgloss.NewStyle()
			if i < len(row)-1 {
				style = style.Width(widths[i] + 2)
			}
			cells = append(cells, style.Render(cell))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
