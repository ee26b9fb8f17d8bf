package docstore

import (
	"context"
	"sync"
)

// MemoryWatcher is an in-process Watcher for tests and the demo CLI. Pushed
// documents go to every active watch.
type MemoryWatcher struct {
	mu        sync.Mutex
	subs      []chan Document
	closed    bool
	closeOnce sync.Once
}

// NewMemoryWatcher creates an empty in-memory watcher.
func NewMemoryWatcher() *MemoryWatcher {
	return &MemoryWatcher{}
}

// Watch returns a stream fed by Push. deviceID is ignored.
func (w *MemoryWatcher) Watch(ctx context.Context, deviceID string) (<-chan Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan Document, 16)
	if w.closed {
		close(ch)
		return ch, nil
	}
	w.subs = append(w.subs, ch)
	return ch, nil
}

// Push delivers a document change to all watchers.
func (w *MemoryWatcher) Push(doc Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for _, ch := range w.subs {
		ch <- doc
	}
}

// Close ends every active watch.
func (w *MemoryWatcher) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		for _, ch := range w.subs {
			close(ch)
		}
		w.subs = nil
	})
	return nil
}
