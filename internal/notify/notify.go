// Package notify reports pipeline failures caught by an error boundary.
package notify

import (
	"context"
	"log/slog"

	"github.com/gen2brain/beeep"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Notifier receives failures. It matches pipeline.Notifier.
type Notifier interface {
	Notify(ctx context.Context, pipeline string, err error)
}

// Log writes failures to a logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, pipeline string, err error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "Build error", logfields.Pipeline(pipeline), logfields.Error(err))
}

// Desktop shows a desktop notification titled Title with the error message.
type Desktop struct {
	Title string
	// send defaults to beeep.Notify.
	send func(title, message string) error
}

func NewDesktop(title string) *Desktop {
	return &Desktop{Title: title, send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (d *Desktop) Notify(ctx context.Context, pipeline string, err error) {
	if sendErr := d.send(d.Title, pipeline+": "+err.Error()); sendErr != nil {
		slog.DebugContext(ctx, "Desktop notification failed", logfields.Error(sendErr))
	}
}

// Multi fans a failure out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, pipeline string, err error) {
	for _, n := range m {
		n.Notify(ctx, pipeline, err)
	}
}
