package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calmroom/voicecore/pkg/avatar"
	"github.com/calmroom/voicecore/pkg/capture"
)

// TaskSender forwards an accepted transcript to the avatar vendor. The
// realtime channel implements it; tests substitute a fake.
type TaskSender interface {
	SendTask(ctx context.Context, sessionID, text string) error
}

// Options are the orchestrator's timing and threshold knobs.
type Options struct {
	Capture capture.Config

	// Cooldown is how long after the avatar finishes speaking the microphone
	// stays off so residual playback audio can dissipate.
	Cooldown time.Duration

	// MaxSpeaking bounds a single avatar utterance. If no finished event
	// arrives within it, the watchdog clears the speech window.
	MaxSpeaking time.Duration

	// RestartDelay is the pause before an automatic restart after a normal
	// capture end.
	RestartDelay time.Duration

	// NoSpeechRestartDelay is the fast-path restart after a benign no-speech
	// error.
	NoSpeechRestartDelay time.Duration

	// MaxRetries bounds restarts after transient capture errors before the
	// orchestrator gives up and alerts.
	MaxRetries int

	// RetryBackoffBase and RetryBackoffMax shape the exponential delay
	// between transient-error retries.
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration

	// HealthCheckInterval is how often a stalled orchestrator re-evaluates
	// whether listening can resume.
	HealthCheckInterval time.Duration

	// WatchdogTick is the cadence of the periodic sweep that enforces
	// MaxSpeaking and tidies expired cooldowns.
	WatchdogTick time.Duration

	// SendTimeout bounds one send-text call to the avatar channel.
	SendTimeout time.Duration

	Guard GuardConfig

	// PhraseMemory is how many recent avatar lines the content heuristic
	// keeps for echo matching.
	PhraseMemory int
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		Capture:              capture.Config{Language: "en-US", InterimResults: true, Continuous: true},
		Cooldown:             2 * time.Second,
		MaxSpeaking:          45 * time.Second,
		RestartDelay:         750 * time.Millisecond,
		NoSpeechRestartDelay: 100 * time.Millisecond,
		MaxRetries:           5,
		RetryBackoffBase:     250 * time.Millisecond,
		RetryBackoffMax:      5 * time.Second,
		HealthCheckInterval:  15 * time.Second,
		WatchdogTick:         time.Second,
		SendTimeout:          10 * time.Second,
		Guard:                DefaultGuardConfig(),
		PhraseMemory:         4,
	}
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Adapter      capture.Adapter
	Sender       TaskSender
	AvatarEvents <-chan avatar.Event
	Modes        *ModeController
	SessionID    string
	Logger       *slog.Logger
	Options      Options
}

type cmdKind int

const (
	cmdModeChanged cmdKind = iota
	cmdListening
	cmdPressTalk
	cmdReleaseTalk
	cmdSendFailed
	cmdAddPhrase
)

type command struct {
	kind      cmdKind
	mode      ConversationMode
	directive modeDirective
	enabled   bool
	text      string
}

// Orchestrator is the voice state machine. All mutable machine state is owned
// by the Run loop goroutine; external callers interact through commands and
// atomic snapshots.
type Orchestrator struct {
	opts     Options
	guard    *Guard
	modes    *ModeController
	adapter  capture.Adapter
	sender   TaskSender
	avatarEv <-chan avatar.Event
	log      *slog.Logger

	sessionID string

	state atomic.Int32

	heardMu   sync.Mutex
	lastHeard string

	cmds      chan command
	alerts    chan Alert
	timerC    chan int
	closed    chan struct{}
	closeOnce sync.Once

	// Loop-owned. Never touched outside the Run goroutine.
	window       AvatarSpeechWindow
	pausedAt     time.Time
	capturing    bool
	awaitingTask bool
	retryCount   int
	pendingTimer *time.Timer
	pendingGen   int
	phrases      []string

	now func() time.Time
}

// New creates an orchestrator. Adapter and Sender are required; a nil Modes
// gets a default controller, a nil Logger the process default.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("voice: capture adapter is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("voice: task sender is required")
	}
	if cfg.Modes == nil {
		cfg.Modes = NewModeController(DefaultModeConfig())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	opts := cfg.Options
	def := DefaultOptions()
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	if opts.MaxSpeaking <= 0 {
		opts.MaxSpeaking = def.MaxSpeaking
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = def.RestartDelay
	}
	if opts.NoSpeechRestartDelay <= 0 {
		opts.NoSpeechRestartDelay = def.NoSpeechRestartDelay
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.RetryBackoffBase <= 0 {
		opts.RetryBackoffBase = def.RetryBackoffBase
	}
	if opts.RetryBackoffMax <= 0 {
		opts.RetryBackoffMax = def.RetryBackoffMax
	}
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = def.HealthCheckInterval
	}
	if opts.WatchdogTick <= 0 {
		opts.WatchdogTick = def.WatchdogTick
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = def.SendTimeout
	}
	if opts.PhraseMemory <= 0 {
		opts.PhraseMemory = def.PhraseMemory
	}
	if opts.Capture.Language == "" {
		opts.Capture = def.Capture
	}

	o := &Orchestrator{
		opts:      opts,
		guard:     NewGuard(opts.Guard),
		modes:     cfg.Modes,
		adapter:   cfg.Adapter,
		sender:    cfg.Sender,
		avatarEv:  cfg.AvatarEvents,
		log:       cfg.Logger.With("component", "voice"),
		sessionID: cfg.SessionID,
		cmds:      make(chan command, 16),
		alerts:    make(chan Alert, 4),
		timerC:    make(chan int, 1),
		closed:    make(chan struct{}),
		now:       time.Now,
	}
	o.modes.bind(o.onModeChanged, o.onListeningChanged)
	return o, nil
}

// Run drives the state machine until ctx is cancelled or Close is called.
// It must be called exactly once.
func (o *Orchestrator) Run(ctx context.Context) error {
	watchdog := time.NewTicker(o.opts.WatchdogTick)
	defer watchdog.Stop()
	health := time.NewTicker(o.opts.HealthCheckInterval)
	defer health.Stop()
	defer o.teardown()

	avatarEvents := o.avatarEv

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.closed:
			return nil
		case cmd := <-o.cmds:
			o.handleCommand(cmd)
		case ev, ok := <-o.adapter.Events():
			if !ok {
				return errors.New("voice: capture event stream closed")
			}
			o.handleCaptureEvent(ev)
		case ev, ok := <-avatarEvents:
			if !ok {
				avatarEvents = nil // channel gone; keep running on capture alone
				continue
			}
			o.handleAvatarEvent(ev)
		case gen := <-o.timerC:
			o.handleTimer(gen)
		case <-watchdog.C:
			o.sweep()
		case <-health.C:
			o.healthCheck()
		}
	}
}

// Close stops the Run loop. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

// State returns the current machine state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// MicState returns the externally observable microphone state.
func (o *Orchestrator) MicState() MicState { return o.State().mic() }

// Mode returns the active conversation mode.
func (o *Orchestrator) Mode() ConversationMode { return o.modes.Mode() }

// Alerts delivers user-facing failures. The channel is buffered; undrained
// alerts beyond the buffer are dropped after logging.
func (o *Orchestrator) Alerts() <-chan Alert { return o.alerts }

// LastHeard returns the most recent transcript text, interim or final. UI
// feedback only; it carries no state-machine meaning.
func (o *Orchestrator) LastHeard() string {
	o.heardMu.Lock()
	defer o.heardMu.Unlock()
	return o.lastHeard
}

// SetMode switches conversation mode. User-initiated only.
func (o *Orchestrator) SetMode(m ConversationMode) { o.modes.SetMode(m) }

// EnableListening is the explicit cue that allows capture in continuous mode.
func (o *Orchestrator) EnableListening() { o.modes.EnableListening() }

// DisableListening switches listening off and stops any active capture.
func (o *Orchestrator) DisableListening() { o.modes.DisableListening() }

// PressTalk starts capture in push-to-talk mode. Ignored in other modes.
func (o *Orchestrator) PressTalk() { o.post(command{kind: cmdPressTalk}) }

// ReleaseTalk ends a push-to-talk capture.
func (o *Orchestrator) ReleaseTalk() { o.post(command{kind: cmdReleaseTalk}) }

// AddAvatarPhrase feeds a known avatar line to the echo content heuristic,
// for scripted speech the orchestrator did not send itself.
func (o *Orchestrator) AddAvatarPhrase(text string) {
	o.post(command{kind: cmdAddPhrase, text: text})
}

func (o *Orchestrator) onModeChanged(next ConversationMode, d modeDirective) {
	o.post(command{kind: cmdModeChanged, mode: next, directive: d})
}

func (o *Orchestrator) onListeningChanged(enabled bool) {
	o.post(command{kind: cmdListening, enabled: enabled})
}

func (o *Orchestrator) post(cmd command) {
	select {
	case o.cmds <- cmd:
	case <-o.closed:
	}
}

func (o *Orchestrator) teardown() {
	o.cancelPendingTimer()
	if o.capturing {
		o.adapter.Stop()
		o.capturing = false
	}
	o.setState(StateIdle)
}

func (o *Orchestrator) setState(next State) {
	prev := State(o.state.Swap(int32(next)))
	if prev == next {
		return
	}
	if next == StatePausedForAvatar {
		o.pausedAt = o.now() // dwell start for the paused watchdog
	}
	metricStateTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	o.log.Debug("state transition", "from", prev.String(), "to", next.String())
}

// --- commands ---

func (o *Orchestrator) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdModeChanged:
		o.applyModeChange(cmd.mode, cmd.directive)
	case cmdListening:
		o.applyListeningChange(cmd.enabled)
	case cmdPressTalk:
		o.pressTalk()
	case cmdReleaseTalk:
		o.releaseTalk()
	case cmdSendFailed:
		o.sendFailed()
	case cmdAddPhrase:
		o.rememberPhrase(cmd.text)
	}
}

func (o *Orchestrator) applyModeChange(next ConversationMode, d modeDirective) {
	o.log.Info("conversation mode changed", "mode", next.String())
	o.retryCount = 0

	if d.stopCapture {
		o.cancelPendingTimer()
		if o.capturing {
			o.adapter.Stop()
		}
		o.setState(StateIdle)
		return
	}
	if d.startAfter > 0 {
		// One start attempt at the mode's entry delay, replacing anything a
		// previous mode left armed.
		o.cancelPendingTimer()
		o.scheduleRestart(d.startAfter, true)
		o.setState(StateRestartScheduled)
	}
}

func (o *Orchestrator) applyListeningChange(enabled bool) {
	if !enabled {
		o.cancelPendingTimer()
		if o.capturing {
			o.adapter.Stop()
		}
		o.setState(StateIdle)
		return
	}
	if o.pendingTimer != nil || o.capturing {
		return
	}
	o.tryStartCapture("listening enabled")
}

func (o *Orchestrator) pressTalk() {
	if o.modes.Mode() != ModePushToTalk || o.capturing {
		return
	}
	o.startCapture()
}

func (o *Orchestrator) releaseTalk() {
	if o.modes.Mode() != ModePushToTalk {
		return
	}
	if o.capturing {
		o.adapter.Stop()
	}
}

// --- capture events ---

func (o *Orchestrator) handleCaptureEvent(ev capture.Event) {
	switch ev.Type {
	case capture.EventStart:
		o.capturing = true
		// The avatar may have started talking between the start request and
		// the engine coming up. Yield immediately.
		if o.window.IsSpeaking && o.modes.Mode() != ModePushToTalk {
			o.adapter.Stop()
			o.setState(StatePausedForAvatar)
		}
	case capture.EventResult:
		o.handleResult(ev)
	case capture.EventError:
		o.handleCaptureError(ev)
	case capture.EventEnd:
		o.handleCaptureEnd()
	case capture.EventAudioStart, capture.EventAudioEnd, capture.EventVolume:
		// Observable only; no state-machine meaning.
	}
}

func (o *Orchestrator) handleResult(ev capture.Event) {
	o.heardMu.Lock()
	o.lastHeard = ev.Text
	o.heardMu.Unlock()

	if !ev.IsFinal {
		return // interim results are UI feedback, never forwarded
	}

	res := RecognitionResult{Text: ev.Text, IsFinal: true, Confidence: ev.Confidence, Timestamp: ev.Timestamp}
	now := o.now()
	cd := o.window.Cooldown(now, o.opts.Cooldown)
	if reason := o.guard.Verdict(res, o.window, cd, o.modes.Mode(), o.phrases); reason != SuppressNone {
		metricSuppressed.WithLabelValues(reason.String()).Inc()
		o.log.Debug("suppressed final result", "reason", reason.String(), "len", len(ev.Text))
		return
	}
	if o.awaitingTask {
		// A prior send is still waiting for its speaking ack. Only one text
		// task may be outstanding at a time.
		o.log.Warn("dropping transcript, send already in flight")
		return
	}

	o.retryCount = 0
	o.cancelPendingTimer()

	// Pause the microphone before the vendor's speaking event lands; the
	// avatar's reply is already on its way.
	if o.capturing {
		o.adapter.Stop()
	}
	o.setState(StatePausedForAvatar)
	o.awaitingTask = true
	o.forwardTranscript(res.Text)
}

func (o *Orchestrator) forwardTranscript(text string) {
	metricTasksSent.Inc()
	o.rememberPhrase(text)
	o.log.Info("forwarding transcript", "len", len(text))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.SendTimeout)
		defer cancel()
		if err := o.sender.SendTask(ctx, o.sessionID, text); err != nil {
			o.log.Error("send task failed", "error", err)
			o.post(command{kind: cmdSendFailed})
		}
	}()
}

// sendFailed recovers from a failed send-text call: no speaking event will
// arrive, so release the outstanding-task slot and bring the microphone back
// if the mode wants it.
func (o *Orchestrator) sendFailed() {
	o.awaitingTask = false
	if o.window.IsSpeaking || o.State() != StatePausedForAvatar {
		return
	}
	if o.modes.Mode().autoRestarts() && o.modes.ListeningEnabled() {
		o.scheduleRestart(o.opts.RestartDelay, true)
		o.setState(StateRestartScheduled)
	} else {
		o.setState(StateIdle)
	}
}

func (o *Orchestrator) handleCaptureEnd() {
	if !o.capturing {
		return // duplicate or stray end; the cycle is already closed
	}
	o.capturing = false

	switch o.State() {
	case StatePausedForAvatar, StateError, StateRestartScheduled:
		return // stop was deliberate or a retry is already armed
	case StateCooldown:
		return
	}

	if o.window.IsSpeaking {
		o.setState(StatePausedForAvatar)
		return
	}
	now := o.now()
	if cd := o.window.Cooldown(now, o.opts.Cooldown); cd.Active {
		o.setState(StateCooldown)
		o.scheduleRestart(cd.ExpiresAt.Sub(now), true)
		return
	}
	if o.modes.Mode().autoRestarts() && o.modes.ListeningEnabled() {
		if o.scheduleRestart(o.opts.RestartDelay, false) {
			o.setState(StateRestartScheduled)
		}
		return
	}
	o.setState(StateIdle)
}

func (o *Orchestrator) handleCaptureError(ev capture.Event) {
	// An error terminates the capture cycle; the trailing end event carries
	// no extra information.
	o.capturing = false

	switch {
	case ev.Kind.Benign():
		// Silence is normal in a therapy session.
		o.log.Debug("no speech detected")
		if o.modes.Mode().autoRestarts() && o.modes.ListeningEnabled() && !o.window.IsSpeaking {
			o.scheduleRestart(o.opts.NoSpeechRestartDelay, true)
			o.setState(StateRestartScheduled)
		} else {
			o.setState(StateIdle)
		}
	case ev.Kind.Fatal():
		o.disableVoice(fmt.Errorf("capture unavailable: %s", ev.Kind))
	default:
		o.transientFailure(fmt.Errorf("capture error: %s", ev.Kind))
	}
}

func (o *Orchestrator) transientFailure(err error) {
	if o.retryCount >= o.opts.MaxRetries {
		o.log.Warn("capture retry budget exhausted", "retries", o.retryCount, "error", err)
		o.cancelPendingTimer()
		o.setState(StateIdle)
		o.alert(Alert{Kind: AlertCaptureRetriesExhausted, Err: err})
		return
	}
	o.retryCount++
	metricCaptureRetries.Inc()
	delay := retryDelay(o.retryCount, o.opts.RetryBackoffBase, o.opts.RetryBackoffMax)
	o.log.Warn("transient capture error, retrying", "attempt", o.retryCount, "delay", delay, "error", err)
	o.scheduleRestart(delay, true)
	o.setState(StateError)
}

// retryDelay is the backoff before retry n (1-based): base doubled per
// attempt, capped at ceiling.
func retryDelay(n int, base, ceiling time.Duration) time.Duration {
	d := base << (n - 1)
	if d > ceiling || d <= 0 {
		return ceiling
	}
	return d
}

func (o *Orchestrator) disableVoice(err error) {
	o.log.Error("voice disabled", "error", err)
	o.cancelPendingTimer()
	if o.capturing {
		o.adapter.Stop()
		o.capturing = false
	}
	o.modes.disable()
	o.setState(StateError)
	o.alert(Alert{Kind: AlertVoiceUnavailable, Err: err})
}

func (o *Orchestrator) alert(a Alert) {
	select {
	case o.alerts <- a:
	default:
		o.log.Warn("alert dropped, buffer full", "kind", a.Kind)
	}
}

// --- avatar events ---

func (o *Orchestrator) handleAvatarEvent(ev avatar.Event) {
	switch ev.Type {
	case avatar.EventSpeaking:
		o.avatarStartedSpeaking()
	case avatar.EventFinished, avatar.EventTaskCompleted:
		o.avatarFinishedSpeaking()
	case avatar.EventError:
		// Channel trouble does not touch microphone state.
		o.log.Warn("avatar channel error", "message", ev.Message)
	}
}

func (o *Orchestrator) avatarStartedSpeaking() {
	o.awaitingTask = false
	o.window.IsSpeaking = true
	o.window.StartedAt = o.now()
	o.cancelPendingTimer()
	if o.capturing {
		o.adapter.Stop()
	}
	o.setState(StatePausedForAvatar)
}

func (o *Orchestrator) avatarFinishedSpeaking() {
	if !o.window.IsSpeaking {
		// Task completed without a speaking event, or a duplicate finished.
		// Release the slot; recover if we pre-emptively paused for nothing.
		if o.awaitingTask {
			o.awaitingTask = false
			o.sendFailedRecovery()
		}
		return
	}
	o.window.IsSpeaking = false
	o.window.StartedAt = time.Time{}
	o.window.LastEndedAt = o.now()
	o.awaitingTask = false

	o.setState(StateCooldown)
	if o.modes.Mode().autoRestarts() && o.modes.ListeningEnabled() {
		// Restart lands exactly when the cooldown expires; the timer handler
		// re-validates every guard before touching the microphone.
		o.scheduleRestart(o.opts.Cooldown, true)
	}
}

// sendFailedRecovery mirrors sendFailed for the no-speaking-ack case.
func (o *Orchestrator) sendFailedRecovery() {
	if o.State() != StatePausedForAvatar {
		return
	}
	if o.modes.Mode().autoRestarts() && o.modes.ListeningEnabled() {
		o.scheduleRestart(o.opts.RestartDelay, true)
		o.setState(StateRestartScheduled)
	} else {
		o.setState(StateIdle)
	}
}

// --- timers ---

// scheduleRestart arms the single restart timer. With replace false an
// already-armed timer wins and the request is dropped; with replace true the
// pending timer is cancelled first. There is never more than one pending
// restart.
func (o *Orchestrator) scheduleRestart(d time.Duration, replace bool) bool {
	if o.pendingTimer != nil {
		if !replace {
			metricRestartsCoalesced.Inc()
			return false
		}
		o.pendingTimer.Stop()
	}
	o.pendingGen++
	gen := o.pendingGen
	metricRestartsScheduled.Inc()
	o.pendingTimer = time.AfterFunc(d, func() {
		select {
		case o.timerC <- gen:
		case <-o.closed:
		}
	})
	return true
}

func (o *Orchestrator) cancelPendingTimer() {
	if o.pendingTimer == nil {
		return
	}
	o.pendingTimer.Stop()
	o.pendingTimer = nil
	o.pendingGen++ // invalidates a fire already in flight
}

func (o *Orchestrator) handleTimer(gen int) {
	if gen != o.pendingGen || o.pendingTimer == nil {
		return // cancelled or replaced while the fire was in flight
	}
	o.pendingTimer = nil
	o.tryStartCapture("timer")
}

// tryStartCapture re-validates every guard at the moment of truth. Conditions
// may have changed since the start was requested.
func (o *Orchestrator) tryStartCapture(trigger string) {
	mode := o.modes.Mode()
	if mode == ModePushToTalk {
		o.setState(StateIdle) // only an explicit press starts push-to-talk
		return
	}
	if !o.modes.ListeningEnabled() {
		o.setState(StateIdle)
		return
	}
	if o.window.IsSpeaking {
		o.setState(StatePausedForAvatar)
		return
	}
	now := o.now()
	if cd := o.window.Cooldown(now, o.opts.Cooldown); cd.Active {
		// Fired early relative to a refreshed cooldown. Wait out the rest.
		o.setState(StateCooldown)
		o.scheduleRestart(cd.ExpiresAt.Sub(now), true)
		return
	}
	if o.capturing {
		o.setState(StateListening)
		return
	}
	o.log.Debug("starting capture", "trigger", trigger)
	o.startCapture()
}

func (o *Orchestrator) startCapture() {
	cfg := o.opts.Capture
	cfg.Continuous = o.modes.Mode() != ModePushToTalk
	if err := o.adapter.Start(cfg); err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) || errors.Is(err, capture.ErrUnavailable) {
			o.disableVoice(err)
			return
		}
		o.transientFailure(err)
		return
	}
	o.capturing = true
	o.setState(StateListening)
}

// --- periodic sweeps ---

// sweep enforces the speaking watchdog, bounds how long the machine may sit
// in PausedForAvatar without any avatar speech arriving, and tidies an
// expired cooldown that has no restart armed.
func (o *Orchestrator) sweep() {
	now := o.now()
	if o.window.IsSpeaking && now.Sub(o.window.StartedAt) >= o.opts.MaxSpeaking {
		metricWatchdogFires.Inc()
		o.log.Warn("speaking watchdog fired, clearing speech window",
			"elapsed", now.Sub(o.window.StartedAt))
		o.avatarFinishedSpeaking()
		return
	}
	if o.State() == StatePausedForAvatar && !o.window.IsSpeaking &&
		!o.pausedAt.IsZero() && now.Sub(o.pausedAt) >= o.opts.MaxSpeaking {
		// Paused on the promise of avatar speech that never arrived, likely
		// a dead realtime channel. Release the task slot and bring the
		// microphone back.
		metricWatchdogFires.Inc()
		o.log.Warn("paused without avatar speech, forcing recovery",
			"elapsed", now.Sub(o.pausedAt))
		o.awaitingTask = false
		o.sendFailedRecovery()
		return
	}
	if o.State() == StateCooldown && o.pendingTimer == nil && !o.window.IsSpeaking {
		if cd := o.window.Cooldown(now, o.opts.Cooldown); !cd.Active {
			o.setState(StateIdle)
		}
	}
}

// healthCheck restarts listening after a stall. It also refreshes the retry
// budget: a stall long enough to reach the health tick is a fresh situation,
// not the same error burst.
func (o *Orchestrator) healthCheck() {
	if o.pendingTimer != nil || o.capturing || o.window.IsSpeaking {
		return
	}
	if st := o.State(); st != StateIdle && st != StateError {
		return
	}
	if !o.modes.Mode().autoRestarts() || !o.modes.ListeningEnabled() {
		return
	}
	if cd := o.window.Cooldown(o.now(), o.opts.Cooldown); cd.Active {
		return
	}
	if o.retryCount >= o.opts.MaxRetries {
		o.retryCount = 0
	}
	o.tryStartCapture("health check")
}

func (o *Orchestrator) rememberPhrase(text string) {
	if text == "" {
		return
	}
	o.phrases = append(o.phrases, text)
	if len(o.phrases) > o.opts.PhraseMemory {
		o.phrases = o.phrases[len(o.phrases)-o.opts.PhraseMemory:]
	}
}
