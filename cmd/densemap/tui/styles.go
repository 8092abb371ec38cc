// Package tui provides the interactive terminal viewer for a density
// session. It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles,
// and paints the live grid with the same color ramp the PNG exporter
// uses.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI. The grid itself uses the export ramp; the
// chrome around it stays in the same family.
var (
	primaryColor = lipgloss.Color("#FF6363")
	accentColor  = lipgloss.Color("#8E1616")

	successColor = lipgloss.Color("#28A745")
	dangerColor  = lipgloss.Color("#DC3545")

	mutedColor  = lipgloss.Color("#666666")
	borderColor = lipgloss.Color("#333333")
)

// Box styles for containers.
var (
	// outerBoxStyle is the main container style.
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	// dividerStyle creates horizontal dividers.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Text styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	successTextStyle = lipgloss.NewStyle().
				Foreground(successColor)
)

// renderDivider renders a horizontal divider of the given width.
func renderDivider(width int) string {
	if width < 1 {
		return ""
	}
	line := make([]rune, width)
	for i := range line {
		line[i] = '─'
	}
	return dividerStyle.Render(string(line))
}
