package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/offsync/internal/queue"
)

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	spinnerStyle   = lipgloss.NewStyle().Foreground(primaryColor)
	onlineStyle    = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	offlineStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// statusStyle picks a style for a mutation status.
func statusStyle(s queue.Status) lipgloss.Style {
	switch s {
	case queue.StatusSyncing:
		return lipgloss.NewStyle().Foreground(warningColor)
	case queue.StatusFailed:
		return lipgloss.NewStyle().Foreground(errorColor)
	case queue.StatusConflicted:
		return lipgloss.NewStyle().Foreground(warningColor)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}
