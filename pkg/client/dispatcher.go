package client

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// Notification texts shown for failed responses
const (
	msgLoginFailed     = "An error occurred when attempting to login"
	msgLogoutFailed    = "An error occurred when attempting to logout"
	msgFetchFailed     = "An error occurred when attempting to fetch posts"
	msgCreateFailed    = "An error occurred when attempting to create a post"
	msgVoteFailed      = "An error occurred when attempting to vote on a post"
	msgChatFailed      = "An error occurred when attempting to connect to chat"
	msgUnableToConnect = "Unable to connect to server"
	msgDisconnected    = "Disconnected by server"
)

// MessageDispatcher routes each inbound frame to its reconciliation rule.
// It runs on the loop goroutine and never returns an error: failures become
// notifications or log lines.
type MessageDispatcher struct {
	codec    Codec
	creds    CredentialStore
	store    *StateStore
	conn     Connector
	notifier Notifier
	logger   zerolog.Logger
	metrics  *Metrics
}

// NewMessageDispatcher wires a dispatcher to its collaborators
func NewMessageDispatcher(codec Codec, creds CredentialStore, store *StateStore, conn Connector, notifier Notifier, logger zerolog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		codec:    codec,
		creds:    creds,
		store:    store,
		conn:     conn,
		notifier: notifier,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// SetMetrics attaches metrics to the dispatcher
func (d *MessageDispatcher) SetMetrics(metrics *Metrics) {
	d.metrics = metrics
}

// Dispatch applies one frame
func (d *MessageDispatcher) Dispatch(data []byte) {
	msgType := d.codec.ResponseType(data)
	d.metrics.RecordFrameReceived(msgType.String())
	d.logger.Debug().Str("type", msgType.String()).Int("bytes", len(data)).Msg("← RECV")

	switch msgType {
	case protocol.TypeLogin:
		d.handleLogin(data)
	case protocol.TypeLogout:
		d.handleLogout(data)
	case protocol.TypeFetchPosts:
		d.handleFetchPosts(data)
	case protocol.TypeCreatePost:
		d.handleCreatePost(data)
	case protocol.TypeUserVote:
		d.handleUserVote(data)
	case protocol.TypeInvalidPosts:
		d.handleInvalidPosts(data)
	case protocol.TypeNewPost:
		d.handleNewPost(data)
	case protocol.TypeUpdateUsers:
		d.handleUpdateUsers(data)
	case protocol.TypeConnectToChat:
		d.handleConnectToChat(data)
	case protocol.TypeError:
		d.handleError(data)
	default:
		d.logger.Debug().Int("bytes", len(data)).Msg("Ignoring unrecognized frame")
	}
}

func (d *MessageDispatcher) handleLogin(data []byte) {
	result, err := d.codec.ReadLogin(data)
	if err != nil {
		d.failed(protocol.TypeLogin, err)
		if d.store.Snapshot().Authenticated {
			return
		}
		d.removeToken()
		d.store.Update(func(s Snapshot) Snapshot {
			s.Loading = false
			return s
		})
		d.notify(LevelError, msgLoginFailed)
		return
	}

	d.rotate(result.Token)
	user := result.User
	d.store.Update(func(s Snapshot) Snapshot {
		s.User = &user
		s.Authenticated = true
		s.Loading = true
		return s
	})
	d.logger.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("Logged in")
	d.conn.Establish()
}

func (d *MessageDispatcher) handleLogout(data []byte) {
	if err := d.codec.ReadLogout(data); err != nil {
		d.failed(protocol.TypeLogout, err)
		d.notify(LevelError, msgLogoutFailed)
		return
	}

	d.conn.CloseSession()
	d.store.Update(func(s Snapshot) Snapshot {
		s.Authenticated = false
		s.User = nil
		s.Posts = nil
		s.Loading = false
		return s
	})
	d.removeToken()
	d.logger.Info().Msg("Logged out")
}

func (d *MessageDispatcher) handleFetchPosts(data []byte) {
	result, err := d.codec.ReadFetchPosts(data)
	if err != nil {
		d.failed(protocol.TypeFetchPosts, err)
		d.notify(LevelWarning, msgFetchFailed)
		return
	}

	d.rotate(result.Token)
	posts := uniquePosts(result.Posts)
	d.store.Update(func(s Snapshot) Snapshot {
		s.Posts = posts
		return s
	})
}

func (d *MessageDispatcher) handleCreatePost(data []byte) {
	result, err := d.codec.ReadCreatePost(data)
	if err != nil {
		d.failed(protocol.TypeCreatePost, err)
		d.notify(LevelWarning, msgCreateFailed)
		return
	}

	d.rotate(result.Token)
	d.store.Update(func(s Snapshot) Snapshot {
		s.Posts = withPost(s.Posts, result.Post)
		return s
	})
}

func (d *MessageDispatcher) handleUserVote(data []byte) {
	token, err := d.codec.ReadUserVote(data)
	if err != nil {
		d.failed(protocol.TypeUserVote, err)
		d.notify(LevelError, msgVoteFailed)
		return
	}
	d.rotate(token)
}

func (d *MessageDispatcher) handleInvalidPosts(data []byte) {
	ids, err := d.codec.ReadInvalidPosts(data)
	if err != nil {
		d.failed(protocol.TypeInvalidPosts, err)
		return
	}
	d.store.Update(func(s Snapshot) Snapshot {
		s.Posts = withoutPosts(s.Posts, ids)
		return s
	})
}

func (d *MessageDispatcher) handleNewPost(data []byte) {
	post, err := d.codec.ReadNewPost(data)
	if err != nil {
		d.failed(protocol.TypeNewPost, err)
		return
	}
	d.store.Update(func(s Snapshot) Snapshot {
		s.Posts = withPost(s.Posts, *post)
		return s
	})
}

func (d *MessageDispatcher) handleUpdateUsers(data []byte) {
	users, err := d.codec.ReadUpdateUsers(data)
	if err != nil {
		d.failed(protocol.TypeUpdateUsers, err)
		return
	}

	var delta int64
	d.store.Update(func(s Snapshot) Snapshot {
		if s.User == nil {
			return s
		}
		for _, u := range users {
			if u.ID != s.User.ID {
				continue
			}
			delta = u.Karma - s.User.Karma
			updated := u
			s.User = &updated
			break
		}
		return s
	})

	switch {
	case delta > 0:
		d.notify(LevelInfo, fmt.Sprintf("Gained %d karma!", delta))
	case delta < 0:
		d.notify(LevelInfo, fmt.Sprintf("Lost %d karma", -delta))
	}
}

func (d *MessageDispatcher) handleConnectToChat(data []byte) {
	if err := d.codec.ReadConnectToChat(data); err != nil {
		d.failed(protocol.TypeConnectToChat, err)
		d.notify(LevelWarning, msgChatFailed)
	}
	d.conn.MarkReady()
	d.store.Update(func(s Snapshot) Snapshot {
		s.Loading = false
		return s
	})
}

func (d *MessageDispatcher) handleError(data []byte) {
	msg, err := d.codec.ReadError(data)
	if err != nil {
		d.failed(protocol.TypeError, err)
		return
	}
	d.logger.Warn().Uint16("code", msg.ErrorCode).Str("message", msg.Message).Msg("Server error")
}

// rotate replaces the stored token with the one from a successful response
func (d *MessageDispatcher) rotate(token string) {
	if err := d.creds.SetToken(token); err != nil {
		d.logger.Error().Err(err).Msg("Failed to store session token")
		return
	}
	d.metrics.RecordTokenRotation()
}

func (d *MessageDispatcher) removeToken() {
	if err := d.creds.RemoveToken(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to remove session token")
	}
}

// failed logs a frame that could not be applied
func (d *MessageDispatcher) failed(msgType protocol.MessageType, err error) {
	d.metrics.RecordDecodeFailure(msgType.String())
	var rejected *protocol.RejectedError
	if errors.As(err, &rejected) {
		d.logger.Info().Str("type", msgType.String()).Str("reason", rejected.Reason).Msg("Request rejected")
		return
	}
	d.logger.Warn().Err(err).Str("type", msgType.String()).Msg("Failed to decode frame")
}

func (d *MessageDispatcher) notify(level Level, message string) {
	d.metrics.RecordNotification(level)
	if d.notifier != nil {
		d.notifier.Notify(level, message)
	}
}
