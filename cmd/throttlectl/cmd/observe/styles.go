package observe

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#5A9CF7")
	successColor   = lipgloss.Color("#73F59F")
	errorColor     = lipgloss.Color("#FF6B6B")
	warningColor   = lipgloss.Color("#FFE066")
	mutedColor     = lipgloss.Color("#626262")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(secondaryColor).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	headerRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	throttledRowStyle = lipgloss.NewStyle().
				Foreground(errorColor)

	warmRowStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	idleRowStyle = lipgloss.NewStyle().
			Foreground(successColor)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// delayStyle picks a row color by how close a tenant's delay is to the
// throttle ceiling: idle at zero, warming as it climbs, red once throttled.
func delayStyle(delayUS, ceilingUS uint32) lipgloss.Style {
	switch {
	case delayUS == 0:
		return idleRowStyle
	case ceilingUS > 0 && delayUS >= ceilingUS:
		return throttledRowStyle
	default:
		return warmRowStyle
	}
}
