package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/client/ui/modal"
	"github.com/aeolun/votefeed/pkg/protocol"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeFeed()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case SnapshotMsg:
		next, cmd := m.handleSnapshot(client.Snapshot(msg))
		return next, tea.Batch(cmd, listenForSnapshots(m.snapshots))

	case snapshotsClosedMsg:
		m.logger.Debug().Msg("Snapshot subscription closed")
		return m, tea.Quit

	case NoticeMsg:
		cmd := m.handleNotice(Notice(msg))
		return m, tea.Batch(cmd, listenForNotices(m.notices))

	case ClearToastMsg:
		m.clearToast(msg.ID)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case modal.LoginSubmitMsg:
		if err := m.prefs.SetLastUsername(msg.Username); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to save last username")
		}
		if msg.Register {
			m.actions.Register(msg.Username, msg.Password)
		} else {
			m.actions.Login(msg.Username, msg.Password)
		}
		return m, nil

	case modal.ComposeSubmitMsg:
		m.actions.CreatePost(msg.Content)
		return m, nil

	case modal.ConnectionFailedRetryMsg:
		m.actions.Reconnect()
		return m, nil

	case modal.ConnectionFailedLogoutMsg, modal.LogoutConfirmedMsg:
		m.actions.Logout()
		return m, nil
	}

	// Cursor blink and similar messages go to the active modal
	if um, ok := m.modalStack.Top().(modal.UpdatableModal); ok {
		return m, um.Update(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// ctrl+c always quits immediately
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if activeModal := m.modalStack.Top(); activeModal != nil {
		handled, newModal, cmd := activeModal.HandleKey(msg)

		if newModal == nil {
			m.modalStack.Pop()
		} else if newModal.Type() != activeModal.Type() {
			m.modalStack.Pop()
			m.modalStack.Push(newModal)
		}

		if handled {
			return m, cmd
		}
		if activeModal.IsBlockingInput() {
			return m, nil
		}
	}

	if m.splash {
		return m.dismissSplash()
	}

	return m.handleFeedKeys(key)
}

// dismissSplash leaves the welcome screen and asks for credentials if needed
func (m Model) dismissSplash() (tea.Model, tea.Cmd) {
	m.splash = false
	if err := m.prefs.SetFirstRunComplete(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to record first run")
	}
	if !m.snap.Authenticated && !m.snap.Loading {
		m.showLoginModal()
	}
	return m, nil
}

func (m Model) handleFeedKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.refreshFeed()
		}

	case "down", "j":
		if m.cursor < len(m.snap.Posts)-1 {
			m.cursor++
			m.refreshFeed()
		}

	case "g", "home":
		m.cursor = 0
		m.refreshFeed()

	case "G", "end":
		m.cursor = max(0, len(m.snap.Posts)-1)
		m.refreshFeed()

	case "u":
		return m.vote(protocol.VoteUp)

	case "d":
		return m.vote(protocol.VoteDown)

	case "n":
		if m.snap.Authenticated {
			m.modalStack.Push(modal.NewComposeModal())
		}

	case "r":
		m.actions.Refresh()

	case "R":
		m.actions.Reconnect()

	case "p":
		m.showProfile = !m.showProfile
		m.resizeFeed()

	case "L":
		if m.snap.Authenticated {
			m.modalStack.Push(modal.NewLogoutConfirmModal(m.username()))
		}

	case "?", "h":
		m.showHelpModal()
	}
	return m, nil
}

// vote sends a vote on the selected post, toggling off a repeated vote
func (m Model) vote(want protocol.Vote) (tea.Model, tea.Cmd) {
	post, ok := m.selectedPost()
	if !ok || !m.snap.Authenticated {
		return m, nil
	}
	v := m.nextVote(post.ID, want)
	if v == protocol.VoteNone {
		delete(m.votes, post.ID)
	} else {
		m.votes[post.ID] = v
	}
	m.actions.Vote(post.ID, v)
	m.refreshFeed()
	return m, nil
}

// handleSnapshot reconciles the view with a new snapshot
func (m Model) handleSnapshot(snap client.Snapshot) (tea.Model, tea.Cmd) {
	prev := m.snap
	m.snap = snap

	// Keep the cursor on the same post when the list changes under it
	if selected, ok := postAt(prev.Posts, m.cursor); ok {
		m.cursor = indexOfPost(snap.Posts, selected.ID, m.cursor)
	}
	if m.cursor >= len(snap.Posts) {
		m.cursor = max(0, len(snap.Posts)-1)
	}

	// Forget votes on posts that no longer exist
	for id := range m.votes {
		if !snap.HasPost(id) {
			delete(m.votes, id)
		}
	}

	switch {
	case snap.Authenticated:
		m.modalStack.RemoveByType(modal.ModalLogin)
		if snap.Connection != client.StateClosed {
			m.modalStack.RemoveByType(modal.ModalConnectionFailed)
		}

	case !snap.Loading:
		if prev.Authenticated {
			m.votes = make(map[uint64]protocol.Vote)
			m.modalStack.RemoveByType(modal.ModalCompose)
			m.modalStack.RemoveByType(modal.ModalLogoutConfirm)
			m.modalStack.RemoveByType(modal.ModalConnectionFailed)
		}
		if !m.splash && !m.modalStack.Has(modal.ModalLogin) {
			m.showLoginModal()
		}
	}

	m.refreshFeed()
	return m, nil
}

// handleNotice routes a notification to the right surface. Errors become
// modals, or are shown inline on the login form when it is waiting on a reply.
func (m *Model) handleNotice(n Notice) tea.Cmd {
	if n.Level != client.LevelError {
		return m.addToast(n.Level, n.Message)
	}

	switch top := m.modalStack.Top().(type) {
	case *modal.LoginModal:
		top.Reset(n.Message)
		return nil
	case *modal.ErrorModal:
		top.Repeat(n.Message)
		return nil
	}

	if m.snap.Authenticated && m.snap.Connection == client.StateClosed {
		m.modalStack.Push(modal.NewConnectionFailedModal(m.serverURL, n.Message))
		return nil
	}

	m.modalStack.Push(modal.NewErrorModal("Error", n.Message))
	return nil
}

func postAt(posts []protocol.Post, i int) (protocol.Post, bool) {
	if i < 0 || i >= len(posts) {
		return protocol.Post{}, false
	}
	return posts[i], true
}

// indexOfPost finds id in posts, falling back to def when it is gone
func indexOfPost(posts []protocol.Post, id uint64, def int) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return def
}
