package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FeedWatcher subscribes to the document store's websocket change feed.
type FeedWatcher struct {
	feedURL string
	logger  *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// NewFeedWatcher creates a watcher for the given change-feed URL.
func NewFeedWatcher(feedURL string, logger *slog.Logger) *FeedWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedWatcher{
		feedURL: feedURL,
		logger:  logger.With("component", "docstore"),
		closed:  make(chan struct{}),
	}
}

// feedMessage is one change-feed frame. Frames that are not document changes
// (heartbeats, acks) have a different type and are skipped.
type feedMessage struct {
	Type     string   `json:"type"`
	Document Document `json:"document"`
}

// Watch subscribes to changes for one device. The first frame after
// subscribing carries the document's current state.
func (w *FeedWatcher) Watch(ctx context.Context, deviceID string) (<-chan Document, error) {
	u, err := url.Parse(w.feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("device_id", deviceID)
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial change feed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.logger.Info("watching device document", "device_id", deviceID)

	out := make(chan Document, 4)
	go w.readLoop(conn, out)
	return out, nil
}

func (w *FeedWatcher) readLoop(conn *websocket.Conn, out chan<- Document) {
	defer close(out)
	for {
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-w.closed:
			default:
				w.logger.Warn("change feed dropped", "error", err)
			}
			return
		}
		if msg.Type != "change" {
			continue
		}
		select {
		case out <- msg.Document:
		case <-w.closed:
			return
		}
	}
}

// Close stops the feed. Idempotent.
func (w *FeedWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.mu.Lock()
		if w.conn != nil {
			err = w.conn.Close()
		}
		w.mu.Unlock()
	})
	return err
}
