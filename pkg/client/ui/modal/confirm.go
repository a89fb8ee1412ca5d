package modal

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogoutConfirmedMsg is sent when the user confirms logging out
type LogoutConfirmedMsg struct{}

// LogoutConfirmModal asks before ending the session
type LogoutConfirmModal struct {
	username string
}

// NewLogoutConfirmModal creates a confirmation modal for username
func NewLogoutConfirmModal(username string) *LogoutConfirmModal {
	return &LogoutConfirmModal{username: username}
}

// Type returns the modal type
func (m *LogoutConfirmModal) Type() ModalType {
	return ModalLogoutConfirm
}

// HandleKey processes keyboard input
func (m *LogoutConfirmModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return true, nil, func() tea.Msg { return LogoutConfirmedMsg{} }
	case "n", "N", "esc":
		return true, nil, nil
	}
	return true, m, nil
}

// Render returns the modal content
func (m *LogoutConfirmModal) Render(width, height int) string {
	content := titleStyle(colorWarn).Render("Log out?") + "\n\n" +
		"You are signed in as " + lipgloss.NewStyle().Bold(true).Render(m.username) + ".\n\n" +
		keyStyle.Render("[Y] Log out  [N] Cancel")
	return box(width, height, 0, colorWarn, content)
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *LogoutConfirmModal) IsBlockingInput() bool {
	return true
}
