package session

import (
	"context"
	"log/slog"

	"github.com/calmroom/voicecore/internal/docstore"
)

// Running is a closeable session from the supervisor's point of view.
type Running interface {
	Close(ctx context.Context) error
}

// StartFunc launches a session. *Session satisfies Running, so wrapping
// session.Start in a closure is the usual production value.
type StartFunc func(ctx context.Context) (Running, error)

// Supervisor watches the device document and keeps at most one session
// running: an active therapy document starts one, anything else stops it.
type Supervisor struct {
	watcher  docstore.Watcher
	deviceID string
	start    StartFunc
	logger   *slog.Logger
}

// NewSupervisor creates a supervisor.
func NewSupervisor(watcher docstore.Watcher, deviceID string, start StartFunc, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		watcher:  watcher,
		deviceID: deviceID,
		start:    start,
		logger:   logger.With("component", "supervisor"),
	}
}

// Run watches until ctx is cancelled or the feed closes. The current session,
// if any, is closed on the way out.
func (sv *Supervisor) Run(ctx context.Context) error {
	docs, err := sv.watcher.Watch(ctx, sv.deviceID)
	if err != nil {
		return err
	}

	var current Running
	defer func() {
		if current != nil {
			if err := current.Close(context.Background()); err != nil {
				sv.logger.Warn("session close failed", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, ok := <-docs:
			if !ok {
				return nil
			}
			switch {
			case doc.SessionActive() && current == nil:
				sv.logger.Info("document became active, starting session",
					"user_session", doc.CurrentUser.SessionID)
				s, err := sv.start(ctx)
				if err != nil {
					sv.logger.Error("session start failed", "error", err)
					continue
				}
				current = s
			case !doc.SessionActive() && current != nil:
				sv.logger.Info("document no longer active, stopping session")
				if err := current.Close(ctx); err != nil {
					sv.logger.Warn("session close failed", "error", err)
				}
				current = nil
			}
		}
	}
}
