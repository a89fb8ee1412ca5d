package modal

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

// ModalType uniquely identifies each modal type
type ModalType int

const (
	ModalNone ModalType = iota // Special value: no modal active
	ModalLogin
	ModalCompose
	ModalConnectionFailed
	ModalError
	ModalHelp
	ModalLogoutConfirm
)

// String returns the string representation of the modal type
func (m ModalType) String() string {
	switch m {
	case ModalNone:
		return "None"
	case ModalLogin:
		return "Login"
	case ModalCompose:
		return "Compose"
	case ModalConnectionFailed:
		return "ConnectionFailed"
	case ModalError:
		return "Error"
	case ModalHelp:
		return "Help"
	case ModalLogoutConfirm:
		return "LogoutConfirm"
	default:
		return "Unknown"
	}
}

// Modal represents a modal dialog
type Modal interface {
	// Type returns the modal type identifier
	Type() ModalType

	// HandleKey processes keyboard input when this modal is active
	// Returns (handled, newModal, cmd)
	// - handled: true if the key was consumed by this modal
	// - newModal: nil to close modal, same modal to stay open, different modal to replace
	// - cmd: bubbletea command to execute
	HandleKey(msg tea.KeyMsg) (handled bool, newModal Modal, cmd tea.Cmd)

	// Render returns the modal content to be overlaid
	Render(width, height int) string

	// IsBlockingInput returns true if this modal blocks all input to underlying views
	// If false, unhandled keys fall through to the main view
	IsBlockingInput() bool
}

// UpdatableModal is an optional interface for modals that need to handle Update messages
type UpdatableModal interface {
	Modal
	// Update processes bubbletea messages (e.g., for animations)
	// Called on every message from the main Update loop
	Update(msg tea.Msg) tea.Cmd
}

// ModalStack holds the open modals; the last one receives input.
// At most one modal of each type is open at a time.
type ModalStack struct {
	stack []Modal
}

// Push opens m on top, closing any modal of the same type first
func (ms *ModalStack) Push(m Modal) {
	ms.RemoveByType(m.Type())
	ms.stack = append(ms.stack, m)
}

// Pop closes and returns the top modal, or nil when none is open
func (ms *ModalStack) Pop() Modal {
	top := ms.Top()
	if top != nil {
		ms.stack = ms.stack[:len(ms.stack)-1]
	}
	return top
}

// Top returns the modal receiving input, or nil
func (ms *ModalStack) Top() Modal {
	if len(ms.stack) == 0 {
		return nil
	}
	return ms.stack[len(ms.stack)-1]
}

// TopType returns the type of the top modal, or ModalNone
func (ms *ModalStack) TopType() ModalType {
	if top := ms.Top(); top != nil {
		return top.Type()
	}
	return ModalNone
}

// RemoveByType closes every modal of type t wherever it sits in the stack
func (ms *ModalStack) RemoveByType(t ModalType) {
	ms.stack = slices.DeleteFunc(slices.Clone(ms.stack), func(m Modal) bool {
		return m.Type() == t
	})
}

// Clear closes all modals
func (ms *ModalStack) Clear() {
	ms.stack = nil
}

// IsEmpty reports whether no modal is open
func (ms *ModalStack) IsEmpty() bool {
	return len(ms.stack) == 0
}

// Size returns the number of open modals
func (ms *ModalStack) Size() int {
	return len(ms.stack)
}

// Has reports whether a modal of the given type is anywhere on the stack
func (ms *ModalStack) Has(t ModalType) bool {
	return slices.ContainsFunc(ms.stack, func(m Modal) bool {
		return m.Type() == t
	})
}

