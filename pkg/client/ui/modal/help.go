package modal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// KeyHelp is one row of the help table
type KeyHelp struct {
	Keys        string
	Description string
}

// HelpModal lists the available key bindings
type HelpModal struct {
	bindings []KeyHelp
}

// NewHelpModal creates a help modal for the given bindings
func NewHelpModal(bindings []KeyHelp) *HelpModal {
	return &HelpModal{bindings: bindings}
}

// Type returns the modal type
func (m *HelpModal) Type() ModalType {
	return ModalHelp
}

// HandleKey closes the modal on any key
func (m *HelpModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	return true, nil, nil
}

// Render returns the modal content
func (m *HelpModal) Render(width, height int) string {
	keys := titleStyle(colorAccent).Width(14)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Keyboard shortcuts") + "\n\n")
	for _, kb := range m.bindings {
		b.WriteString(keys.Render(kb.Keys) + textStyle.Render(kb.Description) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("Press any key to close"))

	return box(width, height, 0, colorMuted, b.String())
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *HelpModal) IsBlockingInput() bool {
	return true
}
