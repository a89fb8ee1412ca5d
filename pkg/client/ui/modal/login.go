package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// LoginSubmitMsg is sent when the user submits credentials
type LoginSubmitMsg struct {
	Username string
	Password string
	Register bool
}

const (
	fieldUsername = iota
	fieldPassword
)

// LoginModal collects credentials for login or registration
type LoginModal struct {
	inputs     []textinput.Model
	focus      int
	register   bool
	submitting bool
	errMsg     string
}

// NewLoginModal creates a login modal, prefilled with the last used username
func NewLoginModal(lastUsername string) *LoginModal {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = protocol.MaxUsernameLength
	username.Width = 30
	username.SetValue(lastUsername)

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Width = 30

	m := &LoginModal{inputs: []textinput.Model{username, password}}
	if lastUsername != "" {
		m.setFocus(fieldPassword)
	} else {
		m.setFocus(fieldUsername)
	}
	return m
}

// Type returns the modal type
func (m *LoginModal) Type() ModalType {
	return ModalLogin
}

// Registering reports whether the modal is in registration mode
func (m *LoginModal) Registering() bool {
	return m.register
}

// Username returns the current username field value
func (m *LoginModal) Username() string {
	return m.inputs[fieldUsername].Value()
}

// Reset clears the submitting state and shows why the attempt failed
func (m *LoginModal) Reset(errMsg string) {
	m.submitting = false
	m.errMsg = errMsg
	m.inputs[fieldPassword].SetValue("")
	m.setFocus(fieldPassword)
}

func (m *LoginModal) setFocus(field int) {
	m.focus = field
	for i := range m.inputs {
		if i == field {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

// HandleKey processes keyboard input
func (m *LoginModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	if m.submitting {
		return true, m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.setFocus((m.focus + 1) % len(m.inputs))
		return true, m, nil

	case "shift+tab", "up":
		m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return true, m, nil

	case "ctrl+r":
		m.register = !m.register
		m.errMsg = ""
		return true, m, nil

	case "enter":
		if m.focus == fieldUsername {
			m.setFocus(fieldPassword)
			return true, m, nil
		}
		username := strings.TrimSpace(m.inputs[fieldUsername].Value())
		password := m.inputs[fieldPassword].Value()
		if err := protocol.ValidateCredentials(username, password); err != nil {
			m.errMsg = err.Error()
			return true, m, nil
		}
		m.errMsg = ""
		m.submitting = true
		submit := LoginSubmitMsg{Username: username, Password: password, Register: m.register}
		return true, m, func() tea.Msg { return submit }
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return true, m, cmd
}

// Update forwards cursor blink messages to the focused input
func (m *LoginModal) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// Render returns the modal content
func (m *LoginModal) Render(width, height int) string {
	label := textStyle.Width(10)

	title, action := "Log in to VoteFeed", "log in"
	if m.register {
		title, action = "Create a VoteFeed account", "register"
	}

	var b strings.Builder
	b.WriteString(titleStyle(colorAccent).Render(title) + "\n\n")
	b.WriteString(label.Render("Username") + m.inputs[fieldUsername].View() + "\n")
	b.WriteString(label.Render("Password") + m.inputs[fieldPassword].View() + "\n\n")

	if m.submitting {
		b.WriteString(keyStyle.Render("Signing in...") + "\n\n")
	} else if m.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(colorAlert).Render(m.errMsg) + "\n\n")
	}

	b.WriteString(keyStyle.Render("[Tab] Next field  [Enter] " + action + "  [Ctrl+R] Toggle register"))

	return box(width, height, 0, colorAccent, b.String())
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *LoginModal) IsBlockingInput() bool {
	return true
}
