// Package notify surfaces tracking problems to the user outside the terminal.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier delivers a short user-visible message.
type Notifier interface {
	Notify(title, message string)
}

// Desktop sends notifications through the OS notification center.
type Desktop struct {
	AppName string
}

// NewDesktop returns a Desktop notifier labelled with appName.
func NewDesktop(appName string) *Desktop {
	return &Desktop{AppName: appName}
}

// Notify shows a desktop notification. Delivery failures are logged only;
// a missing notification daemon must never stop tracking.
func (d *Desktop) Notify(title, message string) {
	if d.AppName != "" {
		beeep.AppName = d.AppName
	}
	if err := beeep.Notify(title, message, ""); err != nil {
		slog.Debug("desktop notification failed", "error", err)
	}
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(string, string) {}

// Log writes notifications to a slog.Logger instead of the desktop.
type Log struct {
	Logger *slog.Logger
}

// Notify logs message at Warn level with title as an attribute.
func (l Log) Notify(title, message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(message, "title", title)
}
