package ui

import "github.com/charmbracelet/lipgloss"

var (
	PrimaryColor  = lipgloss.Color("205")
	AccentColor   = lipgloss.Color("86")
	MutedColor    = lipgloss.Color("240")
	TextColor     = lipgloss.Color("252")
	SuccessColor  = lipgloss.Color("42")
	WarningColor  = lipgloss.Color("214")
	ErrorColor    = lipgloss.Color("#FF5555")
	UpvoteColor   = lipgloss.Color("208")
	DownvoteColor = lipgloss.Color("63")
)

var (
	BaseStyle = lipgloss.NewStyle().Foreground(TextColor)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)

	MutedTextStyle = lipgloss.NewStyle().Foreground(MutedColor)

	FeedPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 1)

	ProfilePaneStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(AccentColor).
				Padding(0, 1)

	SelectedPostStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(PrimaryColor).
				PaddingLeft(1)

	UnselectedPostStyle = lipgloss.NewStyle().PaddingLeft(2)

	PostAuthorStyle    = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
	PostOwnAuthorStyle = lipgloss.NewStyle().Bold(true).Foreground(SuccessColor)
	PostContentStyle   = lipgloss.NewStyle().Foreground(TextColor)
	ScoreStyle         = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)

	ToastInfoStyle    = lipgloss.NewStyle().Foreground(SuccessColor)
	ToastWarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ToastErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
)

// Styles groups the styles handed to bubbles components
var Styles = struct {
	Spinner lipgloss.Style
}{
	Spinner: lipgloss.NewStyle().Foreground(PrimaryColor),
}
