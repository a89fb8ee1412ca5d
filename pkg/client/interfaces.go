package client

import (
	"context"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// Codec defines the wire encoding used by the session layer.
// protocol.Codec implements it; tests may substitute their own.
type Codec interface {
	ResponseType(data []byte) protocol.MessageType

	// Requests
	WriteLoginCredentials(username, password string) ([]byte, error)
	WriteLoginToken(token string) ([]byte, error)
	WriteRegistration(username, password string) ([]byte, error)
	WriteLogout(token string) ([]byte, error)
	WriteFetchPosts(token string) ([]byte, error)
	WriteConnectToChat(token string) ([]byte, error)
	WriteCreatePost(token, content string) ([]byte, error)
	WriteUserVote(token string, postID uint64, vote protocol.Vote) ([]byte, error)

	// Responses and broadcasts
	ReadLogin(data []byte) (*protocol.LoginResult, error)
	ReadLogout(data []byte) error
	ReadFetchPosts(data []byte) (*protocol.PostsResult, error)
	ReadCreatePost(data []byte) (*protocol.PostResult, error)
	ReadUserVote(data []byte) (string, error)
	ReadInvalidPosts(data []byte) ([]uint64, error)
	ReadNewPost(data []byte) (*protocol.Post, error)
	ReadUpdateUsers(data []byte) ([]protocol.User, error)
	ReadConnectToChat(data []byte) error
	ReadError(data []byte) (*protocol.ErrorMessage, error)
}

// CredentialStore persists the rotating session token across restarts.
// State implements it on top of the client database; MemoryCredentials keeps
// the token for the life of the process only.
type CredentialStore interface {
	// Token returns the stored token, if any
	Token() (string, bool)
	SetToken(token string) error
	RemoveToken() error
}

// Notifier receives user-facing notifications
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(level Level, message string)

// Notify calls f(level, message)
func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// Conn is one live bidirectional message connection.
// WriteMessage is only called from the engine loop; Close may be called
// while a reader is blocked in ReadMessage.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// Dialer opens persistent connections
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Exchanger performs the one-shot request/response exchange used for login,
// registration and token refresh before a persistent connection exists.
type Exchanger interface {
	Exchange(ctx context.Context, body []byte) ([]byte, error)
}

// Connector is the part of ConnectionManager the dispatcher drives
type Connector interface {
	Establish()
	CloseSession()
	MarkReady()
}

// Sender delivers encoded frames on the live connection
type Sender interface {
	Send(data []byte) error
}
