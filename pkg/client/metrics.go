package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesReceived    *prometheus.CounterVec
	framesSent        *prometheus.CounterVec
	decodeFailures    *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	tokenRotations    prometheus.Counter
	connectionState   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "frames_received_total",
			Help:      "Frames received from the server, by message type",
		}, []string{"type"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "frames_sent_total",
			Help:      "Frames sent to the server, by message type",
		}, []string{"type"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "decode_failures_total",
			Help:      "Frames that failed to decode or carried a server rejection",
		}, []string{"type"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "notifications_total",
			Help:      "User-facing notifications, by level",
		}, []string{"level"}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "dial_attempts_total",
			Help:      "Persistent connection dial attempts",
		}),
		tokenRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "token_rotations_total",
			Help:      "Session tokens replaced by a server response",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "votefeed",
			Subsystem: "client",
			Name:      "connection_state",
			Help:      "Current connection state (0=idle 1=connecting 2=open 3=authenticating 4=ready 5=closed)",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesReceived,
			m.framesSent,
			m.decodeFailures,
			m.notifications,
			m.reconnectAttempts,
			m.tokenRotations,
			m.connectionState,
		)
	}
	return m
}

// RecordFrameReceived counts an inbound frame
func (m *Metrics) RecordFrameReceived(msgType string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(msgType).Inc()
}

// RecordFrameSent counts an outbound frame
func (m *Metrics) RecordFrameSent(msgType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(msgType).Inc()
}

// RecordDecodeFailure counts a frame the dispatcher could not apply
func (m *Metrics) RecordDecodeFailure(msgType string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(msgType).Inc()
}

// RecordNotification counts a user-facing notification
func (m *Metrics) RecordNotification(level Level) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(level.String()).Inc()
}

// RecordDialAttempt counts one dial of the persistent connection
func (m *Metrics) RecordDialAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

// RecordTokenRotation counts a stored token being replaced
func (m *Metrics) RecordTokenRotation() {
	if m == nil {
		return
	}
	m.tokenRotations.Inc()
}

// RecordConnectionState sets the connection state gauge
func (m *Metrics) RecordConnectionState(state ConnectionState) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

// MetricsHandler serves the collectors registered with gatherer
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// ServeMetrics exposes /metrics and /health on addr until ctx is cancelled.
// Local debugging only; never bind it to a public interface.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           MetricsHandler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server listening (/metrics, /health)")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
