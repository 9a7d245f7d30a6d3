// Package ui implements the interactive terminal interface for otherlife
// using bubbletea.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#8BC34A") // lime green
	colorAccent  = lipgloss.Color("#FFC107") // amber
	colorMuted   = lipgloss.Color("#6b7787")
	colorError   = lipgloss.Color("#e53935")
	colorScene   = lipgloss.Color("#4db6ac")
	colorVoice   = lipgloss.Color("#2196F3")
	colorBorder  = lipgloss.Color("#2a3850")
)

// Styles holds the lipgloss styles used across the interface.
type Styles struct {
	Title     lipgloss.Style
	Status    lipgloss.Style
	Traits    lipgloss.Style
	Abilities lipgloss.Style
	Scene     lipgloss.Style
	Voice     lipgloss.Style
	Aside     lipgloss.Style
	Narrative lipgloss.Style
	UserInput lipgloss.Style
	Option    lipgloss.Style
	OptionKey lipgloss.Style
	Error     lipgloss.Style
	Spinner   lipgloss.Style
	Prompt    lipgloss.Style
	Help      lipgloss.Style
	Panel     lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Status:    lipgloss.NewStyle().Foreground(colorMuted),
		Traits:    lipgloss.NewStyle().Foreground(colorAccent),
		Abilities: lipgloss.NewStyle().Foreground(colorPrimary),
		Scene:     lipgloss.NewStyle().Foreground(colorScene).Bold(true),
		Voice:     lipgloss.NewStyle().Foreground(colorVoice),
		Aside:     lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Narrative: lipgloss.NewStyle(),
		UserInput: lipgloss.NewStyle().Foreground(colorAccent),
		Option:    lipgloss.NewStyle(),
		OptionKey: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Error:     lipgloss.NewStyle().Foreground(colorError),
		Spinner:   lipgloss.NewStyle().Foreground(colorPrimary),
		Prompt:    lipgloss.NewStyle().Foreground(colorPrimary),
		Help:      lipgloss.NewStyle().Foreground(colorMuted),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
	}
}
