package modal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionFailedRetryMsg is sent when user wants to retry connection
type ConnectionFailedRetryMsg struct{}

// ConnectionFailedLogoutMsg is sent when user gives up on the session
type ConnectionFailedLogoutMsg struct{}

const (
	optionRetry = iota
	optionLogout
	optionQuit
	optionCount
)

// ConnectionFailedModal is shown once reconnection attempts are exhausted.
// The feed stays browsable underneath it.
type ConnectionFailedModal struct {
	serverAddr string
	message    string
	cursor     int
}

// NewConnectionFailedModal creates a new connection failed modal
func NewConnectionFailedModal(serverAddr, message string) *ConnectionFailedModal {
	return &ConnectionFailedModal{
		serverAddr: serverAddr,
		message:    message,
	}
}

// Type returns the modal type
func (m *ConnectionFailedModal) Type() ModalType {
	return ModalConnectionFailed
}

// HandleKey moves between options with the arrow keys only; j/k and the
// other feed keys fall through so the posts underneath stay navigable.
func (m *ConnectionFailedModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "up":
		m.cursor = max(m.cursor-1, 0)
		return true, m, nil

	case "down":
		m.cursor = min(m.cursor+1, optionCount-1)
		return true, m, nil

	case "r", "R":
		return true, nil, retryCmd

	case "L":
		return true, nil, logoutCmd

	case "esc":
		// Dismiss and keep browsing cached posts
		return true, nil, nil

	case "q":
		return true, nil, tea.Quit

	case "enter":
		return true, nil, [optionCount]tea.Cmd{retryCmd, logoutCmd, tea.Quit}[m.cursor]
	}

	// Everything else falls through to the feed
	return false, m, nil
}

func retryCmd() tea.Msg  { return ConnectionFailedRetryMsg{} }
func logoutCmd() tea.Msg { return ConnectionFailedLogoutMsg{} }

var connectionOptions = [optionCount]struct{ label, key string }{
	optionRetry:  {"Retry connection", "[R]"},
	optionLogout: {"Log out", "[L]"},
	optionQuit:   {"Quit", "[Q]"},
}

// Render shows the server, the failure and the selectable options
func (m *ConnectionFailedModal) Render(width, height int) string {
	alert := lipgloss.Color("#FF6B6B")
	var b strings.Builder
	b.WriteString(titleStyle(alert).Render("⚠ Connection Lost") + "\n\n")
	b.WriteString(hintStyle.Render("Server: "+m.serverAddr) + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(alert).Render(m.message) + "\n\n")

	for i, opt := range connectionOptions {
		line := textStyle.Render("  " + opt.label)
		if i == m.cursor {
			line = titleStyle(alert).Render("→ " + opt.label)
		}
		b.WriteString(line + " " + keyStyle.Render(opt.key) + "\n")
	}
	b.WriteString("\n" + keyStyle.Render("[↑/↓] Navigate  [Enter] Select  [Esc] Dismiss"))

	return box(width, height, 56, alert, b.String())
}

// IsBlockingInput is false so cached posts stay browsable while offline
func (m *ConnectionFailedModal) IsBlockingInput() bool {
	return false
}
