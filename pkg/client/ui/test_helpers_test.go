package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/protocol"
)

type voteCall struct {
	PostID uint64
	Vote   protocol.Vote
}

// fakeActions records the operations the UI triggers
type fakeActions struct {
	logins     []string
	registers  []string
	logouts    int
	refreshes  int
	posts      []string
	votes      []voteCall
	reconnects int
}

func (a *fakeActions) Login(username, password string)    { a.logins = append(a.logins, username) }
func (a *fakeActions) Register(username, password string) { a.registers = append(a.registers, username) }
func (a *fakeActions) Logout()                            { a.logouts++ }
func (a *fakeActions) Refresh()                           { a.refreshes++ }
func (a *fakeActions) CreatePost(content string)          { a.posts = append(a.posts, content) }
func (a *fakeActions) Reconnect()                         { a.reconnects++ }
func (a *fakeActions) Vote(postID uint64, vote protocol.Vote) {
	a.votes = append(a.votes, voteCall{PostID: postID, Vote: vote})
}

// memPrefs is an in-memory Preferences
type memPrefs struct {
	lastUsername string
	firstRun     bool
}

func (p *memPrefs) LastUsername() string { return p.lastUsername }
func (p *memPrefs) SetLastUsername(username string) error {
	p.lastUsername = username
	return nil
}
func (p *memPrefs) GetFirstRun() bool { return p.firstRun }
func (p *memPrefs) SetFirstRunComplete() error {
	p.firstRun = false
	return nil
}

// NewTestModel creates a sized Model with fake dependencies
func NewTestModel() (Model, *fakeActions, *memPrefs) {
	actions := &fakeActions{}
	prefs := &memPrefs{}
	m := NewModel(actions, prefs, make(chan client.Snapshot), nil, Options{ServerURL: "http://localhost:8080", Version: "0.0.0-test"}, testModelLogger())
	m.width = 100
	m.height = 30
	m.resizeFeed()
	return m, actions, prefs
}

// update runs one message through the model
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return model, cmd
}

func keyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

var testUser = protocol.User{ID: 7, Username: "alice", Karma: 1500, Streak: 3}

func CreateTestPost(id uint64, author string, content string) protocol.Post {
	return protocol.Post{
		ID:        id,
		AuthorID:  id + 100,
		Author:    author,
		Content:   content,
		Score:     int64(id),
		CreatedAt: 1700000000000,
	}
}

// signedIn returns a snapshot of a ready session holding posts
func signedIn(posts ...protocol.Post) SnapshotMsg {
	user := testUser
	return SnapshotMsg(client.Snapshot{
		Version:       1,
		Connection:    client.StateReady,
		Authenticated: true,
		User:          &user,
		Posts:         posts,
	})
}

// signedOut returns a snapshot of a settled logged-out client
func signedOut() SnapshotMsg {
	return SnapshotMsg(client.Snapshot{Version: 1, Connection: client.StateIdle})
}

func testModelLogger() zerolog.Logger {
	return zerolog.Nop()
}
