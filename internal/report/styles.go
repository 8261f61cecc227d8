// Package report renders engine results as static terminal cards.
package report

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	textColor      = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	metricLabelStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Width(18)

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(textColor)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	goodStyle    = lipgloss.NewStyle().Foreground(secondaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
)

func metric(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		metricLabelStyle.Render(label),
		metricValueStyle.Render(value),
	)
}

func card(title string, lines ...string) string {
	body := append([]string{cardTitleStyle.Render(title)}, lines...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

// severity colours a value by how worrying it is: 0 fine, 1 caution, 2 bad
func severity(level int, s string) string {
	switch level {
	case 0:
		return goodStyle.Render(s)
	case 1:
		return warningStyle.Render(s)
	default:
		return errorStyle.Render(s)
	}
}

func bullets(items []string, style lipgloss.Style) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, style.Render("• "+it))
	}
	return out
}
