package docstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSessionActive(t *testing.T) {
	tests := []struct {
		status      string
		sessionType string
		want        bool
	}{
		{StatusActive, SessionTypeTherapy, true},
		{StatusIdle, SessionTypeTherapy, false},
		{StatusActive, "onboarding", false},
		{"", "", false},
	}
	for _, tt := range tests {
		d := Document{Status: tt.status, SessionType: tt.sessionType}
		if got := d.SessionActive(); got != tt.want {
			t.Errorf("SessionActive(%q,%q) = %v, want %v", tt.status, tt.sessionType, got, tt.want)
		}
	}
}

func TestMemoryWatcher(t *testing.T) {
	w := NewMemoryWatcher()
	defer w.Close()

	docs, err := w.Watch(context.Background(), "dev-1")
	if err != nil {
		t.Fatal(err)
	}

	want := Document{Status: StatusActive, SessionType: SessionTypeTherapy}
	w.Push(want)
	select {
	case got := <-docs:
		if got != want {
			t.Errorf("doc = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for document")
	}

	w.Close()
	if _, open := <-docs; open {
		t.Error("stream should close with the watcher")
	}
}

func TestFeedWatcher(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("device_id"); got != "dev-1" {
			t.Errorf("device_id = %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"change","document":{"status":"active","session_type":"therapy","current_user":{"session_id":"u-9"}}}`))
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	w := NewFeedWatcher("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	defer w.Close()

	docs, err := w.Watch(context.Background(), "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	select {
	case doc := <-docs:
		if !doc.SessionActive() || doc.CurrentUser.SessionID != "u-9" {
			t.Errorf("doc = %+v", doc)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}
