package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/client/ui/modal"
	"github.com/aeolun/votefeed/pkg/protocol"
)

// toastDuration is how long info and warning notices stay in the footer
const toastDuration = 4 * time.Second

// Actions are the user operations the feed view triggers.
// *client.Engine implements it.
type Actions interface {
	Login(username, password string)
	Register(username, password string)
	Logout()
	Refresh()
	CreatePost(content string)
	Vote(postID uint64, vote protocol.Vote)
	Reconnect()
}

// Preferences persists UI state between runs. *client.State implements it.
type Preferences interface {
	LastUsername() string
	SetLastUsername(username string) error
	GetFirstRun() bool
	SetFirstRunComplete() error
}

var (
	_ Actions         = (*client.Engine)(nil)
	_ Preferences     = (*client.State)(nil)
	_ client.Notifier = (*ToastNotifier)(nil)
)

// Notice is a notification routed to the terminal UI
type Notice struct {
	Level   client.Level
	Message string
}

// ToastNotifier is a client.Notifier that hands notifications to the UI.
// Notify never blocks; notices are dropped when the UI falls behind.
type ToastNotifier struct {
	ch chan Notice
}

// NewToastNotifier creates a notifier buffering up to size notices
func NewToastNotifier(size int) *ToastNotifier {
	return &ToastNotifier{ch: make(chan Notice, size)}
}

// Notify queues a notice for the UI
func (n *ToastNotifier) Notify(level client.Level, message string) {
	select {
	case n.ch <- Notice{Level: level, Message: message}:
	default:
	}
}

// Notices returns the channel the UI reads from
func (n *ToastNotifier) Notices() <-chan Notice {
	return n.ch
}

type toast struct {
	id      uint64
	level   client.Level
	message string
}

// Options configures a Model
type Options struct {
	ServerURL string
	Version   string
}

// Model is the bubbletea model for the feed client
type Model struct {
	actions   Actions
	prefs     Preferences
	snapshots <-chan client.Snapshot
	notices   <-chan Notice
	logger    zerolog.Logger

	serverURL string
	version   string

	snap       client.Snapshot
	modalStack modal.ModalStack
	feed       viewport.Model
	spinner    spinner.Model

	width  int
	height int

	// cursor indexes snap.Posts
	cursor int

	// votes remembers what this client sent so a repeated vote toggles back
	// to VoteNone. Reset on logout.
	votes map[uint64]protocol.Vote

	showProfile bool
	splash      bool

	toasts   []toast
	toastSeq uint64
}

// NewModel creates the feed UI. snapshots is normally a StateStore
// subscription, notices a ToastNotifier's channel.
func NewModel(actions Actions, prefs Preferences, snapshots <-chan client.Snapshot, notices <-chan Notice, opts Options, logger zerolog.Logger) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Spinner

	return Model{
		actions:     actions,
		prefs:       prefs,
		snapshots:   snapshots,
		notices:     notices,
		logger:      logger.With().Str("component", "ui").Logger(),
		serverURL:   opts.ServerURL,
		version:     opts.Version,
		snap:        client.Snapshot{Connection: client.StateIdle, Loading: true},
		modalStack:  modal.ModalStack{},
		feed:        viewport.New(80, 20),
		spinner:     s,
		votes:       make(map[uint64]protocol.Vote),
		showProfile: true,
		splash:      prefs.GetFirstRun(),
	}
}

// SnapshotMsg delivers a new state snapshot
type SnapshotMsg client.Snapshot

// NoticeMsg delivers a notification
type NoticeMsg Notice

// snapshotsClosedMsg is sent when the snapshot subscription ends
type snapshotsClosedMsg struct{}

// ClearToastMsg removes a toast after its timeout
type ClearToastMsg struct {
	ID uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForSnapshots(m.snapshots),
		listenForNotices(m.notices),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// listenForSnapshots waits for the next snapshot
func listenForSnapshots(ch <-chan client.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return snapshotsClosedMsg{}
		}
		return SnapshotMsg(snap)
	}
}

// listenForNotices waits for the next notification
func listenForNotices(ch <-chan Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NoticeMsg(n)
	}
}

// toastTimeout returns a command that clears the toast after toastDuration
func toastTimeout(id uint64) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return ClearToastMsg{ID: id}
	})
}

// addToast shows a notice in the footer and returns its timeout command
func (m *Model) addToast(level client.Level, message string) tea.Cmd {
	m.toastSeq++
	m.toasts = append(m.toasts, toast{id: m.toastSeq, level: level, message: message})
	if len(m.toasts) > 3 {
		m.toasts = m.toasts[len(m.toasts)-3:]
	}
	return toastTimeout(m.toastSeq)
}

func (m *Model) clearToast(id uint64) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.id != id {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// selectedPost returns the post under the cursor
func (m Model) selectedPost() (protocol.Post, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Posts) {
		return protocol.Post{}, false
	}
	return m.snap.Posts[m.cursor], true
}

// nextVote returns the vote to send when the user presses want on postID.
// Repeating the current vote clears it.
func (m Model) nextVote(postID uint64, want protocol.Vote) protocol.Vote {
	if m.votes[postID] == want {
		return protocol.VoteNone
	}
	return want
}

// username returns the signed-in user's name, or ""
func (m Model) username() string {
	if m.snap.User == nil {
		return ""
	}
	return m.snap.User.Username
}

func (m *Model) showLoginModal() {
	m.modalStack.Push(modal.NewLoginModal(m.prefs.LastUsername()))
}

func (m *Model) showHelpModal() {
	m.modalStack.Push(modal.NewHelpModal(keyBindings))
}

var keyBindings = []modal.KeyHelp{
	{Keys: "↑/k ↓/j", Description: "Move between posts"},
	{Keys: "g / G", Description: "Jump to top / bottom"},
	{Keys: "u", Description: "Upvote (again to clear)"},
	{Keys: "d", Description: "Downvote (again to clear)"},
	{Keys: "n", Description: "New post"},
	{Keys: "r", Description: "Refresh feed"},
	{Keys: "R", Description: "Reconnect"},
	{Keys: "p", Description: "Toggle profile pane"},
	{Keys: "L", Description: "Log out"},
	{Keys: "?", Description: "This help"},
	{Keys: "q", Description: "Quit"},
}
