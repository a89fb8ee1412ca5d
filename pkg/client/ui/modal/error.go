package modal

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModal displays an error notification that must be acknowledged.
// Repeated errors while it is open are folded into a counter instead of
// stacking another modal.
type ErrorModal struct {
	title   string
	message string
	repeats int
}

func NewErrorModal(title, message string) *ErrorModal {
	return &ErrorModal{title: title, message: message}
}

// Type returns the modal type
func (m *ErrorModal) Type() ModalType {
	return ModalError
}

// Message returns the text currently shown
func (m *ErrorModal) Message() string {
	return m.message
}

// Repeat records another occurrence of an error while the modal is open
func (m *ErrorModal) Repeat(message string) {
	if message == m.message {
		m.repeats++
		return
	}
	m.message = message
	m.repeats = 0
}

// HandleKey closes on enter, esc or space and swallows everything else
func (m *ErrorModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	if k := msg.String(); k == "enter" || k == "esc" || k == " " {
		return true, nil, nil
	}
	return true, m, nil
}

// Render returns the modal content
func (m *ErrorModal) Render(width, height int) string {
	body := textStyle.Render(m.message)
	if m.repeats > 0 {
		body += hintStyle.Render(fmt.Sprintf(" (x%d)", m.repeats+1))
	}
	content := titleStyle(colorAlert).Render(m.title) + "\n\n" +
		body + "\n\n" +
		hintStyle.Render("Press Enter or Esc to dismiss")
	return box(width, height, 50, colorAlert, content)
}

func (m *ErrorModal) IsBlockingInput() bool {
	return true
}
