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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/client/crypto"
	"github.com/aeolun/votefeed/pkg/client/ui"
)

var Version = "dev"

func main() {
	configPath := flag.String("config", "~/.votefeed/config.toml", "Path to config file")
	serverURL := flag.String("server", "", "Server base URL (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	if err := run(*configPath, *serverURL, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "votefeed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL string, debug bool) error {
	// A .env next to the binary may carry VOTEFEED_* overrides
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := client.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if debug {
		cfg.Client.Debug = true
	}

	// The terminal belongs to the UI, so logs go to a file
	logFile, err := client.OpenLogFile(cfg.Client.LogPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := client.NewLogger(logFile, cfg.Client.Debug)
	logger.Info().Str("version", Version).Str("server", cfg.Server.URL).Msg("Starting")

	statePath, err := client.ExpandPath(cfg.Client.StatePath)
	if err != nil {
		return err
	}
	state, err := client.OpenState(statePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer state.Close()

	sealer, err := crypto.NewKeyStore(state.GetStateDir()).SealerFor(cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("load token key: %w", err)
	}
	state.SetSealer(sealer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := client.NewMetrics(reg)
	if cfg.Client.MetricsAddr != "" {
		go func() {
			if err := client.ServeMetrics(ctx, cfg.Client.MetricsAddr, reg, logger); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	toasts := ui.NewToastNotifier(16)
	notifiers := client.MultiNotifier{client.LogNotifier{Logger: logger}, toasts}
	if cfg.Client.DesktopNotifications {
		notifiers = append(notifiers, client.NewDesktopNotifier("VoteFeed", "", logger))
	}

	engine, err := client.NewEngine(cfg.ToEngineConfig(), client.EngineDeps{
		Creds:    state,
		Notifier: notifiers,
		Metrics:  metrics,
	}, logger)
	if err != nil {
		return err
	}

	snapshots, unsubscribe := engine.Store().Subscribe()
	defer unsubscribe()

	engineCtx, stopEngine := context.WithCancel(ctx)
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(engineCtx) }()

	model := ui.NewModel(engine, state, snapshots, toasts.Notices(), ui.Options{
		ServerURL: cfg.Server.URL,
		Version:   Version,
	}, logger)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, uiErr := p.Run()

	stopEngine()
	if err := <-engineDone; err != nil {
		logger.Error().Err(err).Msg("Engine stopped with error")
	}
	logger.Info().Msg("Exiting")

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return nil
}
