package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// ConnectionState is the lifecycle state of the persistent connection
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateOpen
	StateAuthenticating
	StateReady
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// live reports whether a connection handle exists in this state
func (s ConnectionState) live() bool {
	return s == StateOpen || s == StateAuthenticating || s == StateReady
}

var (
	ErrNotConnected = errors.New("not connected")
)

// ConnectionConfig controls dialing and the reconnection policy
type ConnectionConfig struct {
	URL string

	// Timeout is the wait between reconnection attempts
	Timeout time.Duration

	// MaxAttempts bounds consecutive failed reconnection attempts
	MaxAttempts int
}

// ConnectionHooks are invoked on the loop goroutine
type ConnectionHooks struct {
	// OnOpen runs after the connection enters Authenticating
	OnOpen func()

	// OnMessage receives every inbound frame of the current connection in order
	OnMessage func(data []byte)

	// OnExhausted runs when the reconnection budget is spent
	OnExhausted func()

	// OnClosed runs when the server closes the connection normally; no
	// reconnect follows
	OnClosed func()

	// OnStateChange observes every transition
	OnStateChange func(ConnectionState)
}

// ConnectionManager owns at most one live persistent connection.
//
// All methods must be called on the loop goroutine. Dial and read goroutines
// report back by posting closures, each tagged with the generation it was
// started under; results from a superseded generation are dropped.
type ConnectionManager struct {
	cfg     ConnectionConfig
	dialer  Dialer
	post    func(func()) bool
	hooks   ConnectionHooks
	logger  zerolog.Logger
	metrics *Metrics

	state      ConnectionState
	conn       Conn
	connID     string
	generation uint64
	cancel     context.CancelFunc
}

// NewConnectionManager creates a manager in the Idle state. post schedules
// a closure on the loop goroutine (usually Loop.Post).
func NewConnectionManager(cfg ConnectionConfig, dialer Dialer, post func(func()) bool, logger zerolog.Logger) *ConnectionManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &ConnectionManager{
		cfg:    cfg,
		dialer: dialer,
		post:   post,
		logger: logger.With().Str("component", "connection").Logger(),
		state:  StateIdle,
	}
}

// SetHooks installs the event callbacks
func (m *ConnectionManager) SetHooks(hooks ConnectionHooks) {
	m.hooks = hooks
}

// SetMetrics attaches metrics to the manager
func (m *ConnectionManager) SetMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// State returns the current connection state
func (m *ConnectionManager) State() ConnectionState {
	return m.state
}

// ConnID returns the id of the live connection, or "" when there is none
func (m *ConnectionManager) ConnID() string {
	return m.connID
}

// Establish replaces any existing connection with a fresh one. The old
// connection is closed with a normal closure and its reconnect loop cancelled.
func (m *ConnectionManager) Establish() {
	m.teardown()
	gen := m.nextGeneration()
	m.setState(StateConnecting)
	m.logger.Debug().Str("url", m.cfg.URL).Uint64("generation", gen).Msg("Establishing connection")
	m.startDial(gen, false)
}

// Reconnect is the manual retry offered after the reconnection budget is spent
func (m *ConnectionManager) Reconnect() {
	m.Establish()
}

// Send writes one frame on the live connection
func (m *ConnectionManager) Send(data []byte) error {
	if m.conn == nil || !m.state.live() {
		return ErrNotConnected
	}
	if err := m.conn.WriteMessage(data); err != nil {
		m.logger.Warn().Err(err).Str("conn_id", m.connID).Msg("Write failed")
		return fmt.Errorf("write frame: %w", err)
	}
	m.metrics.RecordFrameSent(protocol.Codec{}.RequestType(data).String())
	return nil
}

// MarkReady completes the handshake
func (m *ConnectionManager) MarkReady() {
	if m.state == StateAuthenticating || m.state == StateOpen {
		m.setState(StateReady)
	}
}

// CloseSession closes the connection without reconnecting and returns to Idle
func (m *ConnectionManager) CloseSession() {
	m.teardown()
	m.nextGeneration()
	m.setState(StateIdle)
}

// Shutdown closes the connection for good
func (m *ConnectionManager) Shutdown() {
	m.teardown()
	m.nextGeneration()
	m.setState(StateClosed)
}

func (m *ConnectionManager) nextGeneration() uint64 {
	m.generation++
	return m.generation
}

// teardown closes the live connection and cancels pending dials
func (m *ConnectionManager) teardown() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(websocket.CloseNormalClosure, ""); err != nil {
			m.logger.Debug().Err(err).Str("conn_id", m.connID).Msg("Close failed")
		}
		m.conn = nil
		m.connID = ""
	}
}

func (m *ConnectionManager) setState(state ConnectionState) {
	if m.state == state {
		return
	}
	m.logger.Debug().Str("from", m.state.String()).Str("to", state.String()).Msg("Connection state")
	m.state = state
	m.metrics.RecordConnectionState(state)
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(state)
	}
}

// startDial launches the dial goroutine for gen. After a dropped connection
// the first dial waits one timeout, as every later retry does.
func (m *ConnectionManager) startDial(gen uint64, afterDrop bool) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.dial(ctx, gen, afterDrop)
}

func (m *ConnectionManager) dial(ctx context.Context, gen uint64, afterDrop bool) {
	retries := uint64(m.cfg.MaxAttempts)
	if afterDrop {
		retries--
		select {
		case <-time.After(m.cfg.Timeout):
		case <-ctx.Done():
			return
		}
	}

	attempt := 0
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(m.cfg.Timeout))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		m.metrics.RecordDialAttempt()
		conn, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err != nil {
			m.logger.Debug().Err(err).Int("attempt", attempt).Msg("Dial failed")
			return retry.RetryableError(err)
		}
		if !m.post(func() { m.opened(gen, conn) }) {
			conn.Close(websocket.CloseNormalClosure, "")
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		m.logger.Warn().Err(err).Int("attempts", attempt).Msg("Giving up on connection")
		m.post(func() { m.exhausted(gen) })
	}
}

func (m *ConnectionManager) opened(gen uint64, conn Conn) {
	if gen != m.generation {
		// A newer Establish superseded this dial
		conn.Close(websocket.CloseNormalClosure, "")
		return
	}
	m.cancel = nil
	m.conn = conn
	m.connID = uuid.NewString()
	m.logger.Info().Str("conn_id", m.connID).Str("url", m.cfg.URL).Msg("Connected")

	go m.read(gen, conn)

	m.setState(StateOpen)
	m.setState(StateAuthenticating)
	if m.hooks.OnOpen != nil {
		m.hooks.OnOpen()
	}
}

// read forwards inbound frames to the loop until the connection fails
func (m *ConnectionManager) read(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.post(func() { m.dropped(gen, err) })
			return
		}
		if !m.post(func() { m.received(gen, data) }) {
			return
		}
	}
}

func (m *ConnectionManager) received(gen uint64, data []byte) {
	if gen != m.generation {
		return
	}
	if m.hooks.OnMessage != nil {
		m.hooks.OnMessage(data)
	}
}

func (m *ConnectionManager) dropped(gen uint64, err error) {
	if gen != m.generation {
		return
	}
	connID := m.connID
	m.conn = nil
	m.connID = ""
	m.setState(StateClosed)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		m.logger.Info().Err(err).Str("conn_id", connID).Msg("Connection closed by server")
		if m.hooks.OnClosed != nil {
			m.hooks.OnClosed()
		}
		return
	}

	m.logger.Warn().Err(err).Str("conn_id", connID).Dur("retry_in", m.cfg.Timeout).Msg("Connection lost, reconnecting")
	next := m.nextGeneration()
	m.startDial(next, true)
}

func (m *ConnectionManager) exhausted(gen uint64) {
	if gen != m.generation {
		return
	}
	m.cancel = nil
	m.setState(StateClosed)
	if m.hooks.OnExhausted != nil {
		m.hooks.OnExhausted()
	}
}
