// Package session wires one avatar-therapy session together: vendor
// provisioning, the realtime avatar channel, the media room, and the voice
// orchestrator. Everything is session-scoped and injected; Close tears the
// whole session down.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/calmroom/voicecore/internal/config"
	"github.com/calmroom/voicecore/internal/media"
	"github.com/calmroom/voicecore/internal/streamapi"
	"github.com/calmroom/voicecore/pkg/avatar"
	"github.com/calmroom/voicecore/pkg/capture"
	"github.com/calmroom/voicecore/pkg/voice"
)

// MediaRoom is the session's media attachment. Satisfied by media.Room.
type MediaRoom interface {
	ActiveSpeakers() []string
	Close()
}

// Config assembles a session. Cfg and Adapter are required; the remaining
// fields are seams that default to production implementations.
type Config struct {
	Cfg     *config.Config
	Adapter capture.Adapter
	Logger  *slog.Logger

	Client       *streamapi.Client
	NewChannel   func() avatar.Channel
	ConnectMedia func(media.Config, *slog.Logger) (MediaRoom, error)
}

// Session is one running avatar conversation.
type Session struct {
	logger  *slog.Logger
	client  *streamapi.Client
	prov    *streamapi.Provisioned
	channel avatar.Channel
	room    MediaRoom
	orch    *voice.Orchestrator

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Start provisions the vendor session, connects the realtime channel and
// media room, and launches the orchestrator.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Cfg == nil {
		return nil, errors.New("session: config is required")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("session: capture adapter is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	client := cfg.Client
	if client == nil {
		client = streamapi.NewClient(streamapi.Config{
			BaseURL: cfg.Cfg.Vendor.BaseURL,
			APIKey:  cfg.Cfg.Vendor.APIKey,
		}, logger)
	}

	prov, err := client.Provision(ctx, streamapi.ProvisionConfig{
		Quality:         cfg.Cfg.Vendor.Quality,
		AvatarID:        cfg.Cfg.Vendor.AvatarID,
		ParticipantName: "tv-" + uuid.NewString()[:8],
		Version:         cfg.Cfg.Vendor.Version,
		VideoEncoding:   cfg.Cfg.Vendor.VideoEncoding,
		STTLanguage:     cfg.Cfg.Vendor.STTLanguage,
		SilenceResponse: cfg.Cfg.Vendor.SilenceResponse,
		Attempts:        cfg.Cfg.Vendor.ProvisionAttempts,
		RetryDelay:      cfg.Cfg.Vendor.ProvisionRetryDelay(),
	})
	if err != nil {
		return nil, err
	}

	stopProvisioned := func() {
		if stopErr := client.StopSession(context.Background(), prov.Token, prov.SessionID); stopErr != nil {
			logger.Warn("stop session failed during rollback", "error", stopErr)
		}
	}

	var channel avatar.Channel
	if cfg.NewChannel != nil {
		channel = cfg.NewChannel()
	} else {
		channel = streamapi.NewChannel(client, logger)
	}
	creds := avatar.Credentials{SessionID: prov.SessionID, SessionToken: prov.Token}
	if err := channel.Connect(ctx, prov.RealtimeEndpoint, creds); err != nil {
		stopProvisioned()
		return nil, fmt.Errorf("connect avatar channel: %w", err)
	}

	var room MediaRoom
	if prov.URL != "" {
		connect := cfg.ConnectMedia
		if connect == nil {
			connect = func(mc media.Config, l *slog.Logger) (MediaRoom, error) {
				return media.Connect(mc, l)
			}
		}
		room, err = connect(media.Config{URL: prov.URL, Token: prov.AccessToken}, logger)
		if err != nil {
			channel.Close()
			stopProvisioned()
			return nil, fmt.Errorf("attach media room: %w", err)
		}
	}

	modes := voice.NewModeController(cfg.Cfg.Voice.ModeConfig())
	orch, err := voice.New(voice.Config{
		Adapter:      cfg.Adapter,
		Sender:       channel,
		AvatarEvents: channel.Events(),
		Modes:        modes,
		SessionID:    prov.SessionID,
		Logger:       logger,
		Options:      cfg.Cfg.Voice.Options(),
	})
	if err != nil {
		if room != nil {
			room.Close()
		}
		channel.Close()
		stopProvisioned()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger:  logger,
		client:  client,
		prov:    prov,
		channel: channel,
		room:    room,
		orch:    orch,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if runErr := orch.Run(runCtx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("orchestrator exited", "error", runErr)
		}
	}()

	logger.Info("session started", "session_id", prov.SessionID)
	return s, nil
}

// Orchestrator exposes the session's voice state machine to the UI layer.
func (s *Session) Orchestrator() *voice.Orchestrator { return s.orch }

// SessionID returns the vendor session identifier.
func (s *Session) SessionID() string { return s.prov.SessionID }

// ActiveSpeakers returns the media room's advisory speaker hints, if a room
// is attached.
func (s *Session) ActiveSpeakers() []string {
	if s.room == nil {
		return nil
	}
	return s.room.ActiveSpeakers()
}

// Close tears the session down: the orchestrator stops (cancelling its
// timers and capture), the channel and room detach, and the vendor session is
// stopped. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done

		if err := s.channel.Close(); err != nil {
			s.closeErr = errors.Join(s.closeErr, err)
		}
		if s.room != nil {
			s.room.Close()
		}
		if err := s.client.StopSession(ctx, s.prov.Token, s.prov.SessionID); err != nil {
			s.closeErr = errors.Join(s.closeErr, err)
		}
		s.logger.Info("session closed", "session_id", s.prov.SessionID)
	})
	return s.closeErr
}
