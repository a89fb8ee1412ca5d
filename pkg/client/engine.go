package client

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// EngineConfig configures an Engine
type EngineConfig struct {
	// ServerURL is the http(s) base; the WebSocket URL is derived from it
	ServerURL string

	Timeout      time.Duration
	MaxAttempts  int
	WriteTimeout time.Duration

	// ActionsPerSecond and ActionsBurst throttle posts and votes; zero disables
	ActionsPerSecond float64
	ActionsBurst     int
}

// EngineDeps are the capabilities an Engine is built from. Nil transport
// fields get the default WebSocket and HTTP implementations.
type EngineDeps struct {
	Creds     CredentialStore
	Notifier  Notifier
	Codec     Codec
	Dialer    Dialer
	Exchanger Exchanger
	Metrics   *Metrics
}

// Engine wires the session components onto one serialized loop. All public
// action methods are safe to call from any goroutine; they queue work and
// return immediately. Results appear in the store.
type Engine struct {
	loop       *Loop
	store      *StateStore
	conn       *ConnectionManager
	session    *SessionManager
	dispatcher *MessageDispatcher
	notifier   Notifier
	metrics    *Metrics
	logger     zerolog.Logger

	// ctx is set by Run before any queued work executes
	ctx context.Context
}

// NewEngine builds an engine. Nothing happens until Run is called.
func NewEngine(cfg EngineConfig, deps EngineDeps, logger zerolog.Logger) (*Engine, error) {
	if deps.Creds == nil {
		return nil, errors.New("engine requires a credential store")
	}
	if deps.Codec == nil {
		deps.Codec = protocol.Codec{}
	}

	wsURL, err := WebSocketURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	if deps.Dialer == nil {
		deps.Dialer = NewWebSocketDialer(cfg.WriteTimeout)
	}
	if deps.Exchanger == nil {
		exchanger, err := NewHTTPExchanger(cfg.ServerURL, 30*time.Second)
		if err != nil {
			return nil, err
		}
		deps.Exchanger = exchanger
	}

	e := &Engine{
		loop:     NewLoop(256),
		store:    NewStateStore(),
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   logger.With().Str("component", "engine").Logger(),
		ctx:      context.Background(),
	}

	e.conn = NewConnectionManager(ConnectionConfig{
		URL:         wsURL,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
	}, deps.Dialer, e.loop.Post, logger)
	e.conn.SetMetrics(deps.Metrics)

	e.dispatcher = NewMessageDispatcher(deps.Codec, deps.Creds, e.store, e.conn, deps.Notifier, logger)
	e.dispatcher.SetMetrics(deps.Metrics)

	e.session = NewSessionManager(SessionDeps{
		Codec:      deps.Codec,
		Creds:      deps.Creds,
		Exchanger:  deps.Exchanger,
		Sender:     e.conn,
		Store:      e.store,
		Dispatcher: e.dispatcher,
		Notifier:   deps.Notifier,
		Post:       e.loop.Post,
	}, logger)
	e.session.SetMetrics(deps.Metrics)
	if cfg.ActionsPerSecond > 0 {
		burst := cfg.ActionsBurst
		if burst <= 0 {
			burst = 1
		}
		e.session.SetLimiter(rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), burst))
	}

	e.conn.SetHooks(ConnectionHooks{
		OnOpen:        e.handleOpen,
		OnMessage:     e.dispatcher.Dispatch,
		OnExhausted:   e.handleExhausted,
		OnClosed:      e.handleClosed,
		OnStateChange: e.handleStateChange,
	})

	return e, nil
}

// Store exposes the state store for observers
func (e *Engine) Store() *StateStore {
	return e.store
}

// Run bootstraps the session and processes events until ctx is cancelled.
// The connection is closed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	e.loop.Post(func() {
		if err := e.session.Bootstrap(ctx); err != nil {
			e.logger.Debug().Err(err).Msg("Bootstrap")
		}
	})

	err := e.loop.Run(ctx)

	// The loop has stopped, so this goroutine owns the components now
	e.conn.Shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Login submits credentials
func (e *Engine) Login(username, password string) {
	e.do("login", func() error { return e.session.LoginWithCredentials(e.ctx, username, password) })
}

// Register creates an account
func (e *Engine) Register(username, password string) {
	e.do("register", func() error { return e.session.Register(e.ctx, username, password) })
}

// Logout ends the session
func (e *Engine) Logout() {
	e.do("logout", e.session.Logout)
}

// Refresh re-fetches the post collection
func (e *Engine) Refresh() {
	e.do("refresh", e.session.FetchPosts)
}

// CreatePost publishes content
func (e *Engine) CreatePost(content string) {
	e.do("create post", func() error { return e.session.CreatePost(content) })
}

// Vote records a vote on a post
func (e *Engine) Vote(postID uint64, vote protocol.Vote) {
	e.do("vote", func() error { return e.session.Vote(postID, vote) })
}

// Reconnect retries the persistent connection after the retry budget is spent
func (e *Engine) Reconnect() {
	e.do("reconnect", func() error {
		if !e.store.Snapshot().Authenticated {
			return ErrNoToken
		}
		e.store.Update(func(s Snapshot) Snapshot {
			s.Loading = true
			return s
		})
		e.conn.Reconnect()
		return nil
	})
}

func (e *Engine) do(action string, fn func() error) {
	ok := e.loop.Post(func() {
		if err := fn(); err != nil {
			e.logger.Debug().Err(err).Str("action", action).Msg("Action not completed")
		}
	})
	if !ok {
		e.logger.Debug().Str("action", action).Msg("Engine stopped, action dropped")
	}
}

func (e *Engine) handleOpen() {
	if err := e.session.Handshake(); err != nil {
		e.logger.Warn().Err(err).Str("conn_id", e.conn.ConnID()).Msg("Handshake not sent")
		if errors.Is(err, ErrNoToken) {
			e.store.Update(func(s Snapshot) Snapshot {
				s.Loading = false
				return s
			})
		}
	}
}

func (e *Engine) handleExhausted() {
	e.connectionLost(msgUnableToConnect)
}

func (e *Engine) handleClosed() {
	e.connectionLost(msgDisconnected)
}

// connectionLost stops any pending load and tells the user; Reconnect is the
// way back
func (e *Engine) connectionLost(message string) {
	e.store.Update(func(s Snapshot) Snapshot {
		s.Loading = false
		return s
	})
	e.metrics.RecordNotification(LevelError)
	if e.notifier != nil {
		e.notifier.Notify(LevelError, message)
	}
}

func (e *Engine) handleStateChange(state ConnectionState) {
	e.store.Update(func(s Snapshot) Snapshot {
		s.Connection = state
		return s
	})
}
