// Package avatar defines the normalized event channel to the remote avatar
// vendor. The vendor's realtime feed announces the same semantic transition
// through more than one message shape; implementations must collapse those
// into exactly one Speaking/Finished pair per utterance before events reach
// this contract.
package avatar

import (
	"context"
	"time"
)

// EventType identifies a normalized avatar event.
type EventType int

const (
	// EventSpeaking fires once when the avatar starts talking.
	EventSpeaking EventType = iota
	// EventFinished fires once when the avatar stops talking.
	EventFinished
	// EventTaskCompleted fires when the vendor reports a task as done.
	EventTaskCompleted
	// EventError carries a channel-level error. It does not imply anything
	// about the avatar's speaking state.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventSpeaking:
		return "avatar_speaking"
	case EventFinished:
		return "avatar_finished"
	case EventTaskCompleted:
		return "task_completed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single normalized avatar event.
type Event struct {
	Type      EventType
	Message   string // error detail, when Type == EventError
	Timestamp time.Time
}

// Credentials carries what the channel needs to authenticate its socket.
type Credentials struct {
	SessionID    string
	SessionToken string
}

// Channel is the bidirectional side channel to the avatar vendor: lifecycle
// calls outbound, normalized state events inbound.
type Channel interface {
	// Connect opens the realtime feed. Events start flowing asynchronously.
	Connect(ctx context.Context, endpoint string, creds Credentials) error

	// SendTask asks the avatar to speak text. The speaking/finished events
	// that result arrive later on Events.
	SendTask(ctx context.Context, sessionID, text string) error

	// Events returns the normalized event stream.
	Events() <-chan Event

	// Close tears down the feed. Idempotent.
	Close() error
}
