package modal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// ComposeSubmitMsg carries a new post's content
type ComposeSubmitMsg struct {
	Content string
}

// ComposeModal is a multi-line editor for new posts
type ComposeModal struct {
	input  textarea.Model
	errMsg string
}

// NewComposeModal creates an empty compose modal
func NewComposeModal() *ComposeModal {
	input := textarea.New()
	input.Placeholder = "What's on your mind?"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetWidth(60)
	input.SetHeight(6)
	input.Focus()

	return &ComposeModal{input: input}
}

// Type returns the modal type
func (m *ComposeModal) Type() ModalType {
	return ModalCompose
}

// HandleKey processes keyboard input
func (m *ComposeModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return true, nil, nil

	case "ctrl+s", "ctrl+d":
		content := strings.TrimSpace(m.input.Value())
		if err := protocol.ValidateContent(content); err != nil {
			m.errMsg = err.Error()
			return true, m, nil
		}
		return true, nil, func() tea.Msg { return ComposeSubmitMsg{Content: content} }
	}

	m.errMsg = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return true, m, cmd
}

// Update forwards cursor blink messages to the editor
func (m *ComposeModal) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// Render returns the modal content
func (m *ComposeModal) Render(width, height int) string {
	accent := lipgloss.Color("86")

	size := len(m.input.Value())
	counter := keyStyle
	if size > protocol.MaxContentLength {
		counter = counter.Foreground(colorAlert)
	}

	content := titleStyle(accent).Render("New post") + "\n\n" +
		m.input.View() + "\n" +
		counter.Render(fmt.Sprintf("%d/%d bytes", size, protocol.MaxContentLength)) + "\n"
	if m.errMsg != "" {
		content += lipgloss.NewStyle().Foreground(colorAlert).Render(m.errMsg) + "\n"
	}
	content += "\n" + keyStyle.Render("[Ctrl+S] Post  [Esc] Cancel")

	return box(width, height, 0, accent, content)
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *ComposeModal) IsBlockingInput() bool {
	return true
}
