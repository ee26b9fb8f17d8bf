package voice

import (
	"sync"
	"time"
)

// ModeConfig tunes the entry delays applied on mode transitions.
type ModeConfig struct {
	// AlwaysOnSettle is how long to wait after entering always-on before the
	// first listen attempt, so the attempt does not race the transition.
	AlwaysOnSettle time.Duration

	// ContinuousStartDelay is the deferred start scheduled on entering
	// continuous mode. Capture still only begins once listening is enabled
	// by an explicit cue.
	ContinuousStartDelay time.Duration
}

// DefaultModeConfig returns the production entry delays.
func DefaultModeConfig() ModeConfig {
	return ModeConfig{
		AlwaysOnSettle:       200 * time.Millisecond,
		ContinuousStartDelay: 500 * time.Millisecond,
	}
}

// modeDirective tells the orchestrator what a mode transition requires of the
// microphone. The controller decides policy; the orchestrator owns all timers
// and re-validates guards when they fire.
type modeDirective struct {
	stopCapture bool
	startAfter  time.Duration // zero means no start request
}

// ModeController holds the active conversation mode and the listening-enabled
// flag. Mode changes are user-initiated only; the orchestrator reads this
// state on every decision point and never writes it back.
type ModeController struct {
	mu               sync.RWMutex
	cfg              ModeConfig
	mode             ConversationMode
	listeningEnabled bool

	onChange    func(next ConversationMode, d modeDirective)
	onListening func(enabled bool)
}

// NewModeController creates a controller starting in push-to-talk with
// listening disabled.
func NewModeController(cfg ModeConfig) *ModeController {
	def := DefaultModeConfig()
	if cfg.AlwaysOnSettle <= 0 {
		cfg.AlwaysOnSettle = def.AlwaysOnSettle
	}
	if cfg.ContinuousStartDelay <= 0 {
		cfg.ContinuousStartDelay = def.ContinuousStartDelay
	}
	return &ModeController{cfg: cfg, mode: ModePushToTalk}
}

// Mode returns the active conversation mode.
func (c *ModeController) Mode() ConversationMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// ListeningEnabled reports whether the user has listening switched on.
func (c *ModeController) ListeningEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listeningEnabled
}

// SetMode transitions to the given mode, applying entry side effects:
// always-on enables listening and requests a settled start; continuous
// disables listening until an explicit cue and schedules a deferred start;
// push-to-talk forces any active capture to stop immediately.
func (c *ModeController) SetMode(next ConversationMode) {
	c.mu.Lock()
	if next == c.mode {
		c.mu.Unlock()
		return
	}
	c.mode = next

	var d modeDirective
	switch next {
	case ModeAlwaysOn:
		c.listeningEnabled = true
		d.startAfter = c.cfg.AlwaysOnSettle
	case ModeContinuous:
		c.listeningEnabled = false
		d.startAfter = c.cfg.ContinuousStartDelay
	case ModePushToTalk:
		c.listeningEnabled = false
		d.stopCapture = true
	}
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(next, d)
	}
}

// EnableListening is the explicit cue that allows capture in continuous mode.
// No-op in push-to-talk.
func (c *ModeController) EnableListening() {
	c.mu.Lock()
	if c.mode == ModePushToTalk || c.listeningEnabled {
		c.mu.Unlock()
		return
	}
	c.listeningEnabled = true
	cb := c.onListening
	c.mu.Unlock()

	if cb != nil {
		cb(true)
	}
}

// DisableListening switches listening off; the orchestrator stops any active
// capture in response.
func (c *ModeController) DisableListening() {
	c.mu.Lock()
	if !c.listeningEnabled {
		c.mu.Unlock()
		return
	}
	c.listeningEnabled = false
	cb := c.onListening
	c.mu.Unlock()

	if cb != nil {
		cb(false)
	}
}

// disable is the orchestrator-side switch used when voice becomes unavailable
// (permission denied, no platform support). It bypasses callbacks: the
// orchestrator is already reacting.
func (c *ModeController) disable() {
	c.mu.Lock()
	c.listeningEnabled = false
	c.mu.Unlock()
}

// bind registers the orchestrator's handlers. Called once during wiring.
func (c *ModeController) bind(onChange func(ConversationMode, modeDirective), onListening func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = onChange
	c.onListening = onListening
}
