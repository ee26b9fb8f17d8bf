// Package fake provides a scriptable capture adapter for tests and demos.
package fake

import (
	"sync"
	"time"

	"github.com/calmroom/voicecore/pkg/capture"
)

// FakeAdapter implements capture.Adapter with fully scripted behavior. Tests
// drive the event stream directly with the Emit helpers, which makes it
// possible to reproduce orderings the real platform only produces under race
// conditions (stale results after a stop, duplicate end events, and so on).
type FakeAdapter struct {
	mu         sync.Mutex
	events     chan capture.Event
	capturing  bool
	starts     int
	stops      int
	startErr   error
	lastCfg    capture.Config
	transcript string
}

// NewFakeAdapter creates a fake adapter that emits nothing on its own. Use
// the Emit helpers to script the stream.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{events: make(chan capture.Event, 64)}
}

// NewScripted creates a fake adapter that plays back a fixed transcript on
// every capture cycle: one interim result followed by one final result.
func NewScripted(transcript string) *FakeAdapter {
	a := NewFakeAdapter()
	a.transcript = transcript
	return a
}

// SetStartError makes the next Start calls fail with err. Pass nil to clear.
func (a *FakeAdapter) SetStartError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startErr = err
}

// Start begins a fake capture cycle.
func (a *FakeAdapter) Start(cfg capture.Config) error {
	a.mu.Lock()
	if a.startErr != nil {
		err := a.startErr
		a.mu.Unlock()
		return err
	}
	a.capturing = true
	a.starts++
	a.lastCfg = cfg
	transcript := a.transcript
	a.mu.Unlock()

	a.send(capture.Event{Type: capture.EventStart})
	a.send(capture.Event{Type: capture.EventAudioStart})

	if transcript != "" {
		half := transcript[:len(transcript)/2]
		a.send(capture.Event{Type: capture.EventResult, Text: half})
		conf := 0.95
		a.send(capture.Event{Type: capture.EventResult, Text: transcript, IsFinal: true, Confidence: &conf})
	}
	return nil
}

// Stop ends the current cycle. Idempotent: only the first call after a Start
// produces an end event.
func (a *FakeAdapter) Stop() {
	a.mu.Lock()
	a.stops++
	wasCapturing := a.capturing
	a.capturing = false
	a.mu.Unlock()

	if wasCapturing {
		a.send(capture.Event{Type: capture.EventAudioEnd})
		a.send(capture.Event{Type: capture.EventEnd})
	}
}

// Events returns the scripted event stream.
func (a *FakeAdapter) Events() <-chan capture.Event { return a.events }

// EmitInterim injects an interim result, regardless of capture state. This
// simulates in-flight results that were already queued when capture stopped.
func (a *FakeAdapter) EmitInterim(text string) {
	a.send(capture.Event{Type: capture.EventResult, Text: text})
}

// EmitFinal injects a final result. confidence may be nil.
func (a *FakeAdapter) EmitFinal(text string, confidence *float64) {
	a.send(capture.Event{Type: capture.EventResult, Text: text, IsFinal: true, Confidence: confidence})
}

// EmitError injects a recognition error. The fake mirrors real recognizers:
// an error terminates the capture cycle, so an end event follows it.
func (a *FakeAdapter) EmitError(kind capture.ErrorKind) {
	a.mu.Lock()
	wasCapturing := a.capturing
	a.capturing = false
	a.mu.Unlock()

	a.send(capture.Event{Type: capture.EventError, Kind: kind})
	if wasCapturing {
		a.send(capture.Event{Type: capture.EventEnd})
	}
}

// EmitEnd injects a bare end event without going through Stop. Used to test
// duplicate-end handling.
func (a *FakeAdapter) EmitEnd() {
	a.mu.Lock()
	a.capturing = false
	a.mu.Unlock()
	a.send(capture.Event{Type: capture.EventEnd})
}

// EmitVolume injects an input level sample.
func (a *FakeAdapter) EmitVolume(level float64) {
	a.send(capture.Event{Type: capture.EventVolume, Level: level})
}

// Inject delivers an arbitrary event verbatim.
func (a *FakeAdapter) Inject(ev capture.Event) { a.send(ev) }

// Starts returns how many times Start succeeded.
func (a *FakeAdapter) Starts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts
}

// Stops returns how many times Stop was called.
func (a *FakeAdapter) Stops() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

// Capturing reports whether a cycle is active.
func (a *FakeAdapter) Capturing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capturing
}

// LastConfig returns the config passed to the most recent Start.
func (a *FakeAdapter) LastConfig() capture.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastCfg
}

func (a *FakeAdapter) send(ev capture.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	a.events <- ev
}
