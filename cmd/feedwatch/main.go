// Command feedwatch follows a feed from the terminal without a UI. It logs
// every state change and notification, which makes it useful for checking a
// server or watching reconnection behaviour.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "~/.votefeed/config.toml", "Path to config file")
	serverURL := flag.String("server", "", "Server base URL (overrides config)")
	username := flag.String("user", "", "Log in as this user")
	password := flag.String("password", "", "Password for -user (or VOTEFEED_PASSWORD)")
	register := flag.Bool("register", false, "Register -user instead of logging in")
	post := flag.String("post", "", "Publish this content once the feed is live")
	duration := flag.Duration("for", 0, "Stop after this long (0 runs until interrupted)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := client.NewConsoleLogger(*debug)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal().Err(err).Msg("Failed to load .env")
	}

	cfg, err := client.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *password == "" {
		*password = os.Getenv("VOTEFEED_PASSWORD")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var metrics *client.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = client.NewMetrics(reg)
		go func() {
			if err := client.ServeMetrics(ctx, *metricsAddr, reg, logger); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Sessions are not persisted; every run starts logged out
	engine, err := client.NewEngine(cfg.ToEngineConfig(), client.EngineDeps{
		Creds:    client.NewMemoryCredentials(""),
		Notifier: client.LogNotifier{Logger: logger.With().Str("component", "notify").Logger()},
		Metrics:  metrics,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create engine")
	}

	snapshots, unsubscribe := engine.Store().Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	if *username != "" {
		if *register {
			engine.Register(*username, *password)
		} else {
			engine.Login(*username, *password)
		}
	}

	w := watcher{logger: logger, pending: *post}
	for {
		select {
		case snap := <-snapshots:
			w.observe(snap, engine)
		case err := <-done:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error().Err(err).Msg("Engine stopped")
				os.Exit(1)
			}
			logger.Info().Msg("Stopped")
			return
		}
	}
}

// watcher logs the differences between consecutive snapshots
type watcher struct {
	logger  zerolog.Logger
	last    client.Snapshot
	seen    bool
	pending string
}

func (w *watcher) observe(snap client.Snapshot, engine *client.Engine) {
	prev := w.last
	w.last = snap
	first := !w.seen
	w.seen = true

	if first || prev.Connection != snap.Connection || prev.Authenticated != snap.Authenticated || prev.Loading != snap.Loading {
		event := w.logger.Info().
			Str("connection", snap.Connection.String()).
			Bool("authenticated", snap.Authenticated).
			Bool("loading", snap.Loading)
		if snap.User != nil {
			event = event.Str("user", snap.User.Username).
				Int64("karma", snap.User.Karma).
				Uint32("streak", snap.User.Streak)
		}
		event.Msg("Session")
	}

	known := make(map[uint64]bool, len(prev.Posts))
	for _, p := range prev.Posts {
		known[p.ID] = true
	}
	for _, p := range snap.Posts {
		if !known[p.ID] {
			w.logger.Info().
				Uint64("id", p.ID).
				Str("author", p.Author).
				Int64("score", p.Score).
				Time("created", time.UnixMilli(p.CreatedAt)).
				Msg(truncate(p.Content, 80))
		}
	}
	if removed := len(prev.Posts) + countNew(prev.Posts, snap.Posts) - len(snap.Posts); removed > 0 {
		w.logger.Info().Int("count", removed).Msg("Posts removed")
	}

	if w.pending != "" && snap.Connection == client.StateReady && !snap.Loading {
		engine.CreatePost(w.pending)
		w.pending = ""
	}
}

// countNew returns how many posts in next are not in prev
func countNew(prev, next []protocol.Post) int {
	known := make(map[uint64]bool, len(prev))
	for _, p := range prev {
		known[p.ID] = true
	}
	n := 0
	for _, p := range next {
		if !known[p.ID] {
			n++
		}
	}
	return n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s…", string(r[:n]))
}
