package client

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Level is the severity of a user-facing notification
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// LogNotifier writes notifications to a logger. Used by headless tools and
// as the fallback sink when desktop notifications are disabled.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the message at a level matching its severity
func (n LogNotifier) Notify(level Level, message string) {
	var event *zerolog.Event
	switch level {
	case LevelError:
		event = n.Logger.Error()
	case LevelWarning:
		event = n.Logger.Warn()
	default:
		event = n.Logger.Info()
	}
	event.Str("level_name", level.String()).Msg(message)
}

// DesktopNotifier raises OS notifications through beeep
type DesktopNotifier struct {
	Title    string
	IconPath string
	Logger   zerolog.Logger

	// notify is replaced in tests
	notify func(title, message string, icon any) error
}

// NewDesktopNotifier creates a notifier that shows desktop popups titled title
func NewDesktopNotifier(title, iconPath string, logger zerolog.Logger) *DesktopNotifier {
	return &DesktopNotifier{
		Title:    title,
		IconPath: iconPath,
		Logger:   logger,
		notify:   beeep.Notify,
	}
}

// Notify shows the message. Delivery is best-effort; failures are logged.
func (n *DesktopNotifier) Notify(level Level, message string) {
	title := n.Title
	if level != LevelInfo {
		title = n.Title + " - " + level.String()
	}
	if err := n.notify(title, message, n.IconPath); err != nil {
		n.Logger.Debug().Err(err).Msg("Failed to send desktop notification")
	}
}

// MultiNotifier fans a notification out to several sinks
type MultiNotifier []Notifier

// Notify forwards to every sink in order
func (m MultiNotifier) Notify(level Level, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(level, message)
		}
	}
}
