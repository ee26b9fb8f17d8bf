package streamapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/calmroom/voicecore/pkg/avatar"
)

// Channel is the realtime avatar event feed plus the task RPC, implementing
// avatar.Channel. The vendor emits two message shapes for speaking state: the
// numeric agent.state form and older named events. Channel normalizes both and
// de-duplicates on speaking-state edges, so the orchestrator sees exactly one
// speaking/finished pair per utterance.
type Channel struct {
	client *Client
	logger *slog.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	token        string
	lastSpeaking bool

	events    chan avatar.Event
	closed    chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel that sends tasks through the given client.
func NewChannel(client *Client, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		client: client,
		logger: logger.With("component", "avatar-channel"),
		events: make(chan avatar.Event, 16),
		closed: make(chan struct{}),
	}
}

// Connect dials the realtime endpoint and starts event delivery.
func (ch *Channel) Connect(ctx context.Context, endpoint string, creds avatar.Credentials) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid realtime endpoint: %w", err)
	}
	q := u.Query()
	if creds.SessionID != "" && q.Get("session_id") == "" {
		q.Set("session_id", creds.SessionID)
	}
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}

	ch.mu.Lock()
	ch.conn = conn
	ch.token = creds.SessionToken
	ch.mu.Unlock()

	ch.logger.Info("realtime channel connected", "session_id", creds.SessionID)
	go ch.readLoop(conn)
	return nil
}

// SendTask forwards user text over the HTTP task RPC.
func (ch *Channel) SendTask(ctx context.Context, sessionID, text string) error {
	ch.mu.Lock()
	token := ch.token
	ch.mu.Unlock()
	return ch.client.SendTask(ctx, token, sessionID, text)
}

// Events returns the normalized event stream. The channel stays open across
// the connection's lifetime.
func (ch *Channel) Events() <-chan avatar.Event { return ch.events }

// Close tears the socket down. Idempotent.
func (ch *Channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closed)
		ch.mu.Lock()
		if ch.conn != nil {
			err = ch.conn.Close()
		}
		ch.mu.Unlock()
	})
	return err
}

// wireEvent covers both vendor message shapes. The numeric form uses type
// "agent.state" with state 0/1; the named form sets type or event to a
// descriptive string.
type wireEvent struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	State   *int   `json:"state"`
	Message string `json:"message"`
}

func (ch *Channel) readLoop(conn *websocket.Conn) {
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-ch.closed:
			default:
				ch.logger.Warn("realtime read failed", "error", err)
				ch.emit(avatar.Event{Type: avatar.EventError, Message: err.Error()})
			}
			return
		}
		ch.translate(ev)
	}
}

func (ch *Channel) translate(ev wireEvent) {
	name := ev.Type
	if name == "" {
		name = ev.Event
	}
	switch name {
	case "agent.state":
		if ev.State == nil {
			ch.logger.Debug("agent.state without state value")
			return
		}
		ch.setSpeaking(*ev.State == 1)
	case "avatar_speaking", "avatar_start_talking":
		ch.setSpeaking(true)
	case "avatar_finished", "avatar_stop_talking":
		ch.setSpeaking(false)
	case "task_completed":
		ch.emit(avatar.Event{Type: avatar.EventTaskCompleted, Message: ev.Message})
	case "error":
		ch.emit(avatar.Event{Type: avatar.EventError, Message: ev.Message})
	default:
		ch.logger.Debug("ignoring realtime event", "name", name)
	}
}

// setSpeaking performs the edge detection that collapses duplicate messages
// into single speaking/finished transitions.
func (ch *Channel) setSpeaking(speaking bool) {
	ch.mu.Lock()
	changed := ch.lastSpeaking != speaking
	ch.lastSpeaking = speaking
	ch.mu.Unlock()

	if !changed {
		return
	}
	if speaking {
		ch.emit(avatar.Event{Type: avatar.EventSpeaking})
	} else {
		ch.emit(avatar.Event{Type: avatar.EventFinished})
	}
}

func (ch *Channel) emit(ev avatar.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch.events <- ev:
	case <-ch.closed:
	}
}
