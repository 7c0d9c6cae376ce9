package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	channelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	usernameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	ownStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	typingStyle     = lipgloss.NewStyle().Faint(true).Italic(true)
	emoteStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("213"))
	timeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	modalStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
	modalTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	composeStyle    = lipgloss.NewStyle().BorderTop(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238"))
)
