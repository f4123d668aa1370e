package styles

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("62")
	muted  = lipgloss.Color("241")
	user   = lipgloss.Color("39")
	agent  = lipgloss.Color("214")
	danger = lipgloss.Color("203")
)

func HeaderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(accent).
		Padding(0, 1).
		Width(width)
}

func InputStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(max(width-4, 10))
}

// DisabledInputStyle is used while a reply is pending.
func DisabledInputStyle(width int) lipgloss.Style {
	return InputStyle(width).BorderForeground(muted)
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(muted).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(agent).Bold(true)
}

func SystemStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Padding(0, 2)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(danger).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(danger).
		Padding(0, 1).
		MarginLeft(2)
}

func UserStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(user).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(user).
		Padding(0, 1).
		Width(max(width-4, 10)).
		Align(lipgloss.Right)
}

func AgentStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(agent).
		Padding(0, 1).
		MarginLeft(2)
}

func LabelStyle(sender string) lipgloss.Style {
	color := agent
	if sender == "You" {
		color = user
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// CardStyle frames a product recommendation.
func CardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(agent).
		Padding(0, 1).
		MarginLeft(2)
}

func CardTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(agent)
}

func CardLinkStyle() lipgloss.Style {
	return lipgloss.NewStyle().Underline(true).Foreground(user)
}
