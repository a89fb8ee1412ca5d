package modal

import "github.com/charmbracelet/lipgloss"

var (
	colorAlert  = lipgloss.Color("#FF5555")
	colorWarn   = lipgloss.Color("214")
	colorAccent = lipgloss.Color("205")
	colorMuted  = lipgloss.Color("240")
	colorText   = lipgloss.Color("252")

	textStyle = lipgloss.NewStyle().Foreground(colorText)
	hintStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	keyStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

func titleStyle(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

// box draws content in a rounded border centred in a width x height area.
// A positive maxWidth caps the box width, shrinking it on narrow terminals.
func box(width, height, maxWidth int, border lipgloss.Color, content string) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2)
	if maxWidth > 0 {
		style = style.Width(min(maxWidth, width-4) - 4)
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, style.Render(content))
}
