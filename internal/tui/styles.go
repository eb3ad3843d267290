package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/subnetconsole/agentops/session"
)

var (
	ColorHealthy   = lipgloss.Color("#22c55e")
	ColorUnhealthy = lipgloss.Color("#ef4444")
	ColorPending   = lipgloss.Color("#eab308")
	ColorMuted     = lipgloss.Color("#6b7280")

	TitleStyle = lipgloss.NewStyle().Bold(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorUnhealthy)
	HintStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

var PanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorMuted).
	Padding(1, 2)

// StatusStyle returns the style used to render s.
func StatusStyle(s session.Status) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch s {
	case session.StatusHealthy:
		return style.Foreground(ColorHealthy)
	case session.StatusUnhealthy:
		return style.Foreground(ColorUnhealthy)
	case session.StatusNeedsAPIKey:
		return style.Foreground(ColorPending)
	default:
		return style.Foreground(ColorMuted)
	}
}

// RenderStatus renders s with its marker.
func RenderStatus(s session.Status) string {
	return StatusStyle(s).Render("● " + s.String())
}
