// Package voice implements the voice/echo orchestration state machine: the
// logic that decides at every moment whether the microphone may capture, when
// to restart capture after it stops, and how to keep the avatar's own speech
// out of recognition.
package voice

import (
	"fmt"
	"time"
)

// ConversationMode selects how the microphone is driven. Modes change only on
// explicit user command, never by the orchestrator.
type ConversationMode int32

const (
	// ModePushToTalk captures only while the user holds the talk control.
	ModePushToTalk ConversationMode = iota
	// ModeContinuous keeps capture running once explicitly cued.
	ModeContinuous
	// ModeAlwaysOn keeps capture running autonomously whenever echo rules
	// allow it.
	ModeAlwaysOn
)

func (m ConversationMode) String() string {
	switch m {
	case ModePushToTalk:
		return "push-to-talk"
	case ModeContinuous:
		return "continuous"
	case ModeAlwaysOn:
		return "always-on"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// autoRestarts reports whether the mode expects the orchestrator to bring the
// microphone back on its own after it stops.
func (m ConversationMode) autoRestarts() bool {
	return m == ModeContinuous || m == ModeAlwaysOn
}

// MicState is the externally observable microphone state, derived from the
// orchestrator's machine state.
type MicState int32

const (
	MicOff MicState = iota
	MicListening
	MicPausedForAvatar
	MicCooldown
)

func (s MicState) String() string {
	switch s {
	case MicOff:
		return "off"
	case MicListening:
		return "listening"
	case MicPausedForAvatar:
		return "paused-for-avatar"
	case MicCooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("mic(%d)", int32(s))
	}
}

// State is the orchestrator machine state.
type State int32

const (
	StateIdle State = iota
	StateListening
	StatePausedForAvatar
	StateCooldown
	StateRestartScheduled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StatePausedForAvatar:
		return "paused-for-avatar"
	case StateCooldown:
		return "cooldown"
	case StateRestartScheduled:
		return "restart-scheduled"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// mic maps a machine state to its observable microphone state.
func (s State) mic() MicState {
	switch s {
	case StateListening:
		return MicListening
	case StatePausedForAvatar:
		return MicPausedForAvatar
	case StateCooldown:
		return MicCooldown
	default:
		return MicOff
	}
}

// RecognitionResult is one transcript from the capture adapter. Transient:
// consumed immediately, never persisted.
type RecognitionResult struct {
	Text       string
	IsFinal    bool
	Confidence *float64 // nil when the recognizer reports no score
	Timestamp  time.Time
}

// AvatarSpeechWindow tracks when the avatar is or was last talking.
type AvatarSpeechWindow struct {
	IsSpeaking  bool
	StartedAt   time.Time // zero unless IsSpeaking
	LastEndedAt time.Time
}

// CooldownWindow is the post-avatar-speech interval during which microphone
// restart is deliberately delayed so residual audio can dissipate.
type CooldownWindow struct {
	Active    bool
	ExpiresAt time.Time
}

// Cooldown derives the cooldown window at time now for the given duration.
// Recomputed lazily; nothing stores the active flag.
func (w AvatarSpeechWindow) Cooldown(now time.Time, d time.Duration) CooldownWindow {
	if w.LastEndedAt.IsZero() {
		return CooldownWindow{}
	}
	expires := w.LastEndedAt.Add(d)
	return CooldownWindow{Active: now.Before(expires), ExpiresAt: expires}
}

// AlertKind classifies user-facing failures.
type AlertKind int

const (
	// AlertCaptureRetriesExhausted means transient recognition errors used
	// up the retry budget. Dismissible; offers retry or disable.
	AlertCaptureRetriesExhausted AlertKind = iota
	// AlertVoiceUnavailable means permission or platform support is missing.
	// Blocking; voice mode is disabled for the session.
	AlertVoiceUnavailable
)

// Alert is a failure surfaced to the UI layer.
type Alert struct {
	Kind AlertKind
	Err  error
}
