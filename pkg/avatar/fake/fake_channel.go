// Package fake provides a scriptable avatar channel for tests.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/calmroom/voicecore/pkg/avatar"
)

// FakeChannel implements avatar.Channel with a test-driven event stream.
type FakeChannel struct {
	mu        sync.Mutex
	events    chan avatar.Event
	tasks     []string
	connected bool
	closed    bool
	sendErr   error
}

// NewFakeChannel creates a fake channel ready for scripting.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{events: make(chan avatar.Event, 64)}
}

// Connect marks the channel connected. It never fails.
func (c *FakeChannel) Connect(ctx context.Context, endpoint string, creds avatar.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

// SendTask records the text and returns the configured error, if any.
func (c *FakeChannel) SendTask(ctx context.Context, sessionID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.tasks = append(c.tasks, text)
	return nil
}

// Events returns the scripted event stream.
func (c *FakeChannel) Events() <-chan avatar.Event { return c.events }

// Close marks the channel closed. Idempotent.
func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// SetSendError makes SendTask fail with err. Pass nil to clear.
func (c *FakeChannel) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// EmitSpeaking injects an avatar_speaking event.
func (c *FakeChannel) EmitSpeaking() { c.emit(avatar.EventSpeaking, "") }

// EmitFinished injects an avatar_finished event.
func (c *FakeChannel) EmitFinished() { c.emit(avatar.EventFinished, "") }

// EmitTaskCompleted injects a task_completed event.
func (c *FakeChannel) EmitTaskCompleted() { c.emit(avatar.EventTaskCompleted, "") }

// EmitError injects a channel error event.
func (c *FakeChannel) EmitError(msg string) { c.emit(avatar.EventError, msg) }

// Tasks returns a copy of every text sent through SendTask.
func (c *FakeChannel) Tasks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Closed reports whether Close was called.
func (c *FakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *FakeChannel) emit(t avatar.EventType, msg string) {
	c.events <- avatar.Event{Type: t, Message: msg, Timestamp: time.Now()}
}
