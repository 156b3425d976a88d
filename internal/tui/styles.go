package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#E05D44")
	colorAccent    = lipgloss.Color("#FF8C69")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	// Day headings in the task list
	dayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight)

	timerRunningStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSuccess)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)
)
