// Package tui renders characters in the terminal: an interactive browser
// built on bubbletea and a static table for one-shot listings.
package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Portal green and lab-coat grey.
var (
	Primary     = lipgloss.Color("#97CE4C")
	Secondary   = lipgloss.Color("#44281D")
	Muted       = lipgloss.Color("#8A8F98")
	Border      = lipgloss.Color("#3A4150")
	Destructive = lipgloss.Color("#E53935")
)

// Styles holds the styled components.
type Styles struct {
	Title    lipgloss.Style
	Active   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	InputBox lipgloss.Style
	Focused  lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1),
		Active: lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Underline(true),
		Muted:    lipgloss.NewStyle().Foreground(Muted),
		Error:    lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		InputBox: box,
		Focused:  box.BorderForeground(Primary),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(Primary).Padding(0, 1),
		Cell:     lipgloss.NewStyle().Padding(0, 1),
	}
}

// tableStyles adapts the bubbles table defaults to the palette.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Border).
		BorderBottom(true).
		Bold(true).
		Foreground(Primary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#101F38")).
		Background(Primary).
		Bold(false)
	return s
}
