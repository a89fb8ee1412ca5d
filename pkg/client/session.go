package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aeolun/votefeed/pkg/protocol"
)

var (
	ErrNoToken   = errors.New("no session token stored")
	ErrThrottled = errors.New("too many actions, slow down")
)

const msgThrottled = "You're doing that too fast"

// SessionManager issues the requests that make up a session: bootstrap and
// login over the one-shot exchange, then handshake, feed actions and logout
// over the persistent connection. Responses are handled by the dispatcher.
//
// Methods run on the loop goroutine. Errors they return are informational;
// every user-visible outcome is already reflected in the store or notifier.
type SessionManager struct {
	codec      Codec
	creds      CredentialStore
	exchanger  Exchanger
	sender     Sender
	store      *StateStore
	dispatcher *MessageDispatcher
	notifier   Notifier
	post       func(func()) bool
	limiter    *rate.Limiter
	logger     zerolog.Logger
	metrics    *Metrics
}

// SessionDeps bundles the collaborators of a SessionManager
type SessionDeps struct {
	Codec      Codec
	Creds      CredentialStore
	Exchanger  Exchanger
	Sender     Sender
	Store      *StateStore
	Dispatcher *MessageDispatcher
	Notifier   Notifier

	// Post schedules a closure on the loop goroutine
	Post func(func()) bool
}

// NewSessionManager creates a session manager
func NewSessionManager(deps SessionDeps, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		codec:      deps.Codec,
		creds:      deps.Creds,
		exchanger:  deps.Exchanger,
		sender:     deps.Sender,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		post:       deps.Post,
		logger:     logger.With().Str("component", "session").Logger(),
	}
}

// SetLimiter throttles post creation and voting. nil disables throttling.
func (s *SessionManager) SetLimiter(limiter *rate.Limiter) {
	s.limiter = limiter
}

// SetMetrics attaches metrics to the session manager
func (s *SessionManager) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// Bootstrap resumes a stored session. With a token it exchanges it for a
// fresh one; without, it settles into the logged-out state.
func (s *SessionManager) Bootstrap(ctx context.Context) error {
	token, ok := s.creds.Token()
	if !ok {
		s.store.Update(func(snap Snapshot) Snapshot {
			snap.Loading = false
			snap.Authenticated = false
			return snap
		})
		s.logger.Debug().Msg("No stored session")
		return nil
	}

	data, err := s.codec.WriteLoginToken(token)
	if err != nil {
		// An unusable stored token is as good as none
		s.logger.Warn().Err(err).Msg("Discarding stored token")
		if rmErr := s.creds.RemoveToken(); rmErr != nil {
			s.logger.Error().Err(rmErr).Msg("Failed to remove session token")
		}
		s.store.Update(func(snap Snapshot) Snapshot {
			snap.Loading = false
			return snap
		})
		return err
	}

	s.store.Update(func(snap Snapshot) Snapshot {
		snap.Loading = true
		return snap
	})
	s.exchange(ctx, data)
	return nil
}

// LoginWithCredentials logs in with a username and password. Input that
// fails validation sends nothing.
func (s *SessionManager) LoginWithCredentials(ctx context.Context, username, password string) error {
	data, err := s.codec.WriteLoginCredentials(username, password)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Login not sent")
		return err
	}
	s.exchange(ctx, data)
	return nil
}

// Register creates an account and logs in as it. The server answers with
// a Login response.
func (s *SessionManager) Register(ctx context.Context, username, password string) error {
	data, err := s.codec.WriteRegistration(username, password)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Registration not sent")
		return err
	}
	s.exchange(ctx, data)
	return nil
}

// Logout ends the session on the server. Without a stored token nothing happens.
func (s *SessionManager) Logout() error {
	return s.sendWithToken("logout", s.codec.WriteLogout)
}

// FetchPosts requests the full post collection
func (s *SessionManager) FetchPosts() error {
	return s.sendWithToken("fetch posts", s.codec.WriteFetchPosts)
}

// ConnectToChat subscribes the connection to broadcasts
func (s *SessionManager) ConnectToChat() error {
	return s.sendWithToken("connect to chat", s.codec.WriteConnectToChat)
}

// Handshake runs when a connection opens: fetch posts, then subscribe.
// The ConnectToChat response completes the handshake.
func (s *SessionManager) Handshake() error {
	if err := s.FetchPosts(); err != nil {
		return err
	}
	return s.ConnectToChat()
}

// CreatePost publishes content
func (s *SessionManager) CreatePost(content string) error {
	if err := s.throttle(); err != nil {
		return err
	}
	return s.sendWithToken("create post", func(token string) ([]byte, error) {
		return s.codec.WriteCreatePost(token, content)
	})
}

// Vote records the user's vote on a post
func (s *SessionManager) Vote(postID uint64, vote protocol.Vote) error {
	if err := s.throttle(); err != nil {
		return err
	}
	return s.sendWithToken("vote", func(token string) ([]byte, error) {
		return s.codec.WriteUserVote(token, postID, vote)
	})
}

func (s *SessionManager) throttle() error {
	if s.limiter == nil || s.limiter.Allow() {
		return nil
	}
	s.notify(LevelWarning, msgThrottled)
	return ErrThrottled
}

// sendWithToken encodes a token-bearing request and sends it on the live connection
func (s *SessionManager) sendWithToken(what string, encode func(token string) ([]byte, error)) error {
	token, ok := s.creds.Token()
	if !ok {
		s.logger.Debug().Str("request", what).Msg("No session token, not sending")
		return ErrNoToken
	}
	data, err := encode(token)
	if err != nil {
		s.logger.Debug().Err(err).Str("request", what).Msg("Request not sent")
		return err
	}
	if err := s.sender.Send(data); err != nil {
		s.logger.Warn().Err(err).Str("request", what).Msg("Send failed")
		return fmt.Errorf("%s: %w", what, err)
	}
	s.logger.Debug().Str("request", what).Int("bytes", len(data)).Msg("→ SEND")
	return nil
}

// exchange runs the one-shot request in the background and feeds the reply
// to the dispatcher on the loop goroutine
func (s *SessionManager) exchange(ctx context.Context, data []byte) {
	s.metrics.RecordFrameSent(protocol.Codec{}.RequestType(data).String())
	go func() {
		resp, err := s.exchanger.Exchange(ctx, data)
		s.post(func() {
			if err != nil {
				s.exchangeFailed(err)
				return
			}
			s.dispatcher.Dispatch(resp)
		})
	}()
}

// exchangeFailed handles an unreachable server or a non-2xx reply. The
// stored token was never spent, so it is kept.
func (s *SessionManager) exchangeFailed(err error) {
	s.logger.Warn().Err(err).Msg("Login exchange failed")
	if s.store.Snapshot().Authenticated {
		return
	}
	s.store.Update(func(snap Snapshot) Snapshot {
		snap.Loading = false
		return snap
	})
	s.notify(LevelError, msgUnableToConnect)
}

func (s *SessionManager) notify(level Level, message string) {
	s.metrics.RecordNotification(level)
	if s.notifier != nil {
		s.notifier.Notify(level, message)
	}
}
