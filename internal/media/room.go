// Package media attaches the session to its LiveKit room. The TV layer binds
// the avatar's audio/video tracks from here; voicecore itself only observes
// room health and active speakers.
package media

import (
	"fmt"
	"log/slog"
	"sync"

	lksdk "github.com/livekit/server-sdk-go/v2"
)

// Config locates the session's media room. URL and Token come from the
// vendor's session provisioning response.
type Config struct {
	URL   string
	Token string
}

// Room is the attached media room.
type Room struct {
	logger *slog.Logger

	mu       sync.Mutex
	room     *lksdk.Room
	speakers []string
}

// Connect attaches to the room as a subscriber. Active-speaker changes are
// recorded as advisory hints only; the avatar event channel stays the sole
// authority on avatar speaking state.
func Connect(cfg Config, logger *slog.Logger) (*Room, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Room{logger: logger.With("component", "media")}

	callback := &lksdk.RoomCallback{
		OnDisconnected: func() {
			r.logger.Warn("media room disconnected")
		},
		OnParticipantConnected: func(p *lksdk.RemoteParticipant) {
			r.logger.Info("participant joined", "identity", p.Identity())
		},
		OnActiveSpeakersChanged: func(speakers []lksdk.Participant) {
			names := make([]string, 0, len(speakers))
			for _, s := range speakers {
				names = append(names, s.Identity())
			}
			r.mu.Lock()
			r.speakers = names
			r.mu.Unlock()
			r.logger.Debug("active speakers changed", "speakers", names)
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(cfg.URL, cfg.Token, callback)
	if err != nil {
		return nil, fmt.Errorf("connect media room: %w", err)
	}
	r.mu.Lock()
	r.room = room
	r.mu.Unlock()
	r.logger.Info("media room connected", "room", room.Name())
	return r, nil
}

// ActiveSpeakers returns the identities last reported as speaking.
func (r *Room) ActiveSpeakers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.speakers))
	copy(out, r.speakers)
	return out
}

// Close detaches from the room.
func (r *Room) Close() {
	r.mu.Lock()
	room := r.room
	r.room = nil
	r.mu.Unlock()
	if room != nil {
		room.Disconnect()
	}
}
