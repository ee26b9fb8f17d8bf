package streamapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/calmroom/voicecore/pkg/avatar"
)

// eventServer scripts raw realtime messages to a connected channel.
type eventServer struct {
	srv  *httptest.Server
	send chan string
	seen chan string // query strings of accepted connections
}

func newEventServer(t *testing.T) *eventServer {
	t.Helper()
	es := &eventServer{send: make(chan string, 32), seen: make(chan string, 1)}
	upgrader := websocket.Upgrader{}
	es.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		es.seen <- r.URL.RawQuery
		defer conn.Close()
		for msg := range es.send {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(es.send)
		es.srv.Close()
	})
	return es
}

func (es *eventServer) wsURL() string {
	return "ws" + strings.TrimPrefix(es.srv.URL, "http")
}

func connectTestChannel(t *testing.T) (*Channel, *eventServer) {
	t.Helper()
	es := newEventServer(t)
	ch := NewChannel(NewClient(Config{BaseURL: "http://unused"}, testLogger()), testLogger())
	err := ch.Connect(context.Background(), es.wsURL(), avatar.Credentials{
		SessionID:    "sess-1",
		SessionToken: "tok-abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch, es
}

func nextEvent(t *testing.T, ch *Channel) avatar.Event {
	t.Helper()
	select {
	case ev := <-ch.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for avatar event")
		return avatar.Event{}
	}
}

func noEvent(t *testing.T, ch *Channel) {
	t.Helper()
	select {
	case ev := <-ch.Events():
		t.Fatalf("unexpected event: %v", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectAppendsSessionID(t *testing.T) {
	_, es := connectTestChannel(t)
	q := <-es.seen
	if !strings.Contains(q, "session_id=sess-1") {
		t.Errorf("query = %q, want session_id", q)
	}
}

func TestNumericStateShape(t *testing.T) {
	ch, es := connectTestChannel(t)

	es.send <- `{"type":"agent.state","state":1}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventSpeaking {
		t.Fatalf("event = %v, want speaking", ev.Type)
	}
	es.send <- `{"type":"agent.state","state":0}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventFinished {
		t.Fatalf("event = %v, want finished", ev.Type)
	}
}

func TestLegacyNamedShape(t *testing.T) {
	ch, es := connectTestChannel(t)

	es.send <- `{"event":"avatar_start_talking"}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventSpeaking {
		t.Fatalf("event = %v, want speaking", ev.Type)
	}
	es.send <- `{"event":"avatar_stop_talking"}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventFinished {
		t.Fatalf("event = %v, want finished", ev.Type)
	}
}

// The vendor sends both shapes for the same utterance; only one
// speaking/finished pair may come out.
func TestDualShapeDeduplication(t *testing.T) {
	ch, es := connectTestChannel(t)

	es.send <- `{"type":"agent.state","state":1}`
	es.send <- `{"event":"avatar_speaking"}`
	es.send <- `{"type":"agent.state","state":1}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventSpeaking {
		t.Fatalf("event = %v, want speaking", ev.Type)
	}
	noEvent(t, ch)

	es.send <- `{"event":"avatar_finished"}`
	es.send <- `{"type":"agent.state","state":0}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventFinished {
		t.Fatalf("event = %v, want finished", ev.Type)
	}
	noEvent(t, ch)
}

func TestTaskCompletedAndError(t *testing.T) {
	ch, es := connectTestChannel(t)

	es.send <- `{"type":"task_completed"}`
	if ev := nextEvent(t, ch); ev.Type != avatar.EventTaskCompleted {
		t.Fatalf("event = %v, want task_completed", ev.Type)
	}
	es.send <- `{"type":"error","message":"session expired"}`
	ev := nextEvent(t, ch)
	if ev.Type != avatar.EventError || ev.Message != "session expired" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestUnknownEventsIgnored(t *testing.T) {
	ch, es := connectTestChannel(t)

	es.send <- `{"type":"heartbeat"}`
	es.send <- `{"type":"agent.state"}` // missing state value
	noEvent(t, ch)
}
