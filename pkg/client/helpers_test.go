package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aeolun/votefeed/pkg/protocol"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// encode builds a server frame
func encode(t *testing.T, msgType protocol.MessageType, msg protocol.ProtocolMessage) []byte {
	t.Helper()
	data, err := protocol.EncodeMessage(msgType, msg)
	require.NoError(t, err)
	return data
}

// frameOf builds a server frame outside a *testing.T (property tests)
func frameOf(msgType protocol.MessageType, msg protocol.ProtocolMessage) []byte {
	data, err := protocol.EncodeMessage(msgType, msg)
	if err != nil {
		panic(err)
	}
	return data
}

func loginOK(t *testing.T, token string, user protocol.User) []byte {
	return encode(t, protocol.TypeLogin, &protocol.LoginResponseMessage{Success: true, Token: token, User: user})
}

func loginRejected(t *testing.T, reason string) []byte {
	return encode(t, protocol.TypeLogin, &protocol.LoginResponseMessage{Error: reason})
}

func postsOK(t *testing.T, token string, posts ...protocol.Post) []byte {
	return encode(t, protocol.TypeFetchPosts, &protocol.FetchPostsResponseMessage{Success: true, Token: token, Posts: posts})
}

func chatOK(t *testing.T) []byte {
	return encode(t, protocol.TypeConnectToChat, &protocol.AckMessage{Success: true})
}

// requestTypes decodes the tags of sent frames
func requestTypes(frames [][]byte) []protocol.MessageType {
	types := make([]protocol.MessageType, len(frames))
	for i, f := range frames {
		types[i] = protocol.Codec{}.RequestType(f)
	}
	return types
}

type notification struct {
	Level   Level
	Message string
}

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu   sync.Mutex
	list []notification
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notification{level, message})
}

func (n *recordingNotifier) All() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return nil
	}
	out := make([]notification, len(n.list))
	copy(out, n.list)
	return out
}

func (n *recordingNotifier) Messages() []string {
	var msgs []string
	for _, item := range n.All() {
		msgs = append(msgs, item.Message)
	}
	return msgs
}

// fakeConnector counts the dispatcher's connection calls
type fakeConnector struct {
	establish    int
	closeSession int
	markReady    int
}

func (f *fakeConnector) Establish()    { f.establish++ }
func (f *fakeConnector) CloseSession() { f.closeSession++ }
func (f *fakeConnector) MarkReady()    { f.markReady++ }

// recordingSender captures frames sent by the session manager
type recordingSender struct {
	frames [][]byte
	err    error
}

func (s *recordingSender) Send(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, data)
	return nil
}

// startLoop runs a Loop until the test ends
func startLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(64)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return loop
}

// onLoop runs fn on the loop and waits for it to finish
func onLoop(t *testing.T, loop *Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, loop.Post(func() {
		defer close(done)
		fn()
	}))
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("loop did not run closure")
	}
}
