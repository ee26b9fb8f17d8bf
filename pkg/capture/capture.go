// Package capture defines the contract between the voice orchestrator and the
// platform's speech-recognition capability. Implementations wrap a continuous
// or single-shot recognizer and deliver a typed event stream; the orchestrator
// is the only component allowed to start or stop capture.
package capture

import (
	"errors"
	"time"
)

// Capture-level failures that disable voice mode for the session.
var (
	// ErrPermissionDenied indicates microphone or recognition permission was
	// not granted. Not retried automatically.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrUnavailable indicates the platform has no recognition support.
	ErrUnavailable = errors.New("capture: recognition unavailable")
)

// Config enumerates the recognizer options exposed to callers.
type Config struct {
	Language        string
	InterimResults  bool
	Continuous      bool
	MaxAlternatives int
}

// EventType identifies a capture event.
type EventType int

const (
	// EventStart fires when the recognizer accepts the start request.
	EventStart EventType = iota
	// EventAudioStart fires when audio actually begins flowing.
	EventAudioStart
	// EventAudioEnd fires when audio stops flowing.
	EventAudioEnd
	// EventResult carries an interim or final recognition result.
	EventResult
	// EventVolume carries a normalized input level sample.
	EventVolume
	// EventError carries a recognition error; see ErrorKind.
	EventError
	// EventEnd fires exactly once when a capture cycle is fully over.
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventAudioStart:
		return "audiostart"
	case EventAudioEnd:
		return "audioend"
	case EventResult:
		return "result"
	case EventVolume:
		return "volumechange"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ErrorKind classifies recognition errors.
type ErrorKind int

const (
	// ErrorNoSpeech means the recognizer timed out waiting for speech. This
	// is a normal restart cue, never surfaced to the user as a failure.
	ErrorNoSpeech ErrorKind = iota
	// ErrorNetwork is a transient transport failure; retried with backoff.
	ErrorNetwork
	// ErrorPermissionDenied is fatal to voice mode for the session.
	ErrorPermissionDenied
	// ErrorAudioCapture is a transient device failure; retried with backoff.
	ErrorAudioCapture
	// ErrorOther is any unclassified recognizer error; treated as transient.
	ErrorOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNoSpeech:
		return "no-speech"
	case ErrorNetwork:
		return "network"
	case ErrorPermissionDenied:
		return "permission-denied"
	case ErrorAudioCapture:
		return "audio-capture"
	default:
		return "other"
	}
}

// Benign reports whether the error kind is a normal restart cue rather than a
// failure.
func (k ErrorKind) Benign() bool { return k == ErrorNoSpeech }

// Fatal reports whether the error kind permanently disables voice mode.
func (k ErrorKind) Fatal() bool { return k == ErrorPermissionDenied }

// Event is a single capture event. Delivery is single-threaded and ordered
// per adapter instance.
type Event struct {
	Type EventType

	// Result fields, set when Type == EventResult.
	Text       string
	IsFinal    bool
	Confidence *float64 // nil when the recognizer reports no score

	// Level is the input level in [0,1], set when Type == EventVolume.
	Level float64

	// Kind is set when Type == EventError.
	Kind ErrorKind

	Timestamp time.Time
}

// Adapter is a thin wrapper over the platform recognizer. The microphone is a
// singleton resource: exactly one component (the orchestrator) drives it.
type Adapter interface {
	// Start begins capture and asynchronous event delivery. It fails with
	// ErrPermissionDenied or ErrUnavailable for non-retryable platform
	// conditions.
	Start(cfg Config) error

	// Stop requests cessation. Idempotent: an EventEnd is guaranteed to fire
	// eventually, possibly immediately if capture already stopped, and at
	// most once per capture cycle.
	Stop()

	// Events returns the adapter's event stream. The channel stays open for
	// the adapter's lifetime, across capture cycles.
	Events() <-chan Event
}
