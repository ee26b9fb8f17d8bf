package streamapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(envelope{Code: successCode, Data: raw})
}

// vendorStub serves the five lifecycle RPCs with canned responses and records
// request details for assertions.
type vendorStub struct {
	mux *http.ServeMux

	mu        sync.Mutex
	newBodies []NewSessionRequest
	startBody StartSessionRequest
	taskBody  taskRequest
	stopped   atomic.Bool
}

func (s *vendorStub) recordedNew() []NewSessionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NewSessionRequest(nil), s.newBodies...)
}

func (s *vendorStub) recordedStart() StartSessionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startBody
}

func (s *vendorStub) recordedTask() taskRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskBody
}

func newVendorStub() *vendorStub {
	s := &vendorStub{mux: http.NewServeMux()}
	s.mux.HandleFunc("/v1/streaming.create_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ok(w, map[string]string{"token": "tok-abc"})
	})
	s.mux.HandleFunc("/v1/streaming.new", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req NewSessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.newBodies = append(s.newBodies, req)
		s.mu.Unlock()
		ok(w, Session{
			SessionID:        "sess-1",
			URL:              "wss://media.example.com",
			AccessToken:      "room-token",
			RealtimeEndpoint: "wss://events.example.com/v1/ws",
		})
	})
	s.mux.HandleFunc("/v1/streaming.start", func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.startBody = req
		s.mu.Unlock()
		ok(w, nil)
	})
	s.mux.HandleFunc("/v1/streaming.task", func(w http.ResponseWriter, r *http.Request) {
		var req taskRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.taskBody = req
		s.mu.Unlock()
		ok(w, nil)
	})
	s.mux.HandleFunc("/v1/streaming.stop", func(w http.ResponseWriter, r *http.Request) {
		s.stopped.Store(true)
		ok(w, nil)
	})
	return s
}

func TestProvisionSequence(t *testing.T) {
	stub := newVendorStub()
	srv := httptest.NewServer(stub.mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	prov, err := c.Provision(context.Background(), ProvisionConfig{
		Quality:       "high",
		AvatarID:      "ava-7",
		Version:       "v2",
		VideoEncoding: "H264",
		STTLanguage:   "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if prov.SessionID != "sess-1" || prov.Token != "tok-abc" {
		t.Errorf("provisioned = %+v", prov)
	}
	if prov.RealtimeEndpoint == "" || prov.AccessToken != "room-token" {
		t.Errorf("session = %+v", prov.Session)
	}
	if got := stub.recordedNew(); len(got) != 1 || got[0].AvatarID != "ava-7" || got[0].Version != "v2" {
		t.Errorf("new session bodies = %+v", got)
	}
	start := stub.recordedStart()
	if start.SessionID != "sess-1" || start.SessionToken != "tok-abc" {
		t.Errorf("start body = %+v, want session id and token", start)
	}
	if start.STTLanguage != "en" {
		t.Errorf("start stt_language = %q, want en", start.STTLanguage)
	}
}

func TestProvisionRetriesWholeSequence(t *testing.T) {
	var calls atomic.Int32
	stub := newVendorStub()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streaming.create_token", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ok(w, map[string]string{"token": "tok-abc"})
	})
	mux.Handle("/", stub.mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	_, err := c.Provision(context.Background(), ProvisionConfig{
		Attempts:   3,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("create_token calls = %d, want 3", calls.Load())
	}
}

func TestProvisionGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streaming.create_token", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	_, err := c.Provision(context.Background(), ProvisionConfig{
		Attempts:   3,
		RetryDelay: time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}
	if calls.Load() != 3 {
		t.Errorf("attempts = %d, want 3", calls.Load())
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("err = %v, want wrapped APIError", err)
	}
}

func TestEnvelopeErrorCodeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streaming.create_token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope{Code: 40012, Message: "quota exceeded"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	_, err := c.CreateToken(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Code != 40012 || apiErr.Message != "quota exceeded" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSendTaskPayload(t *testing.T) {
	stub := newVendorStub()
	srv := httptest.NewServer(stub.mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	if err := c.SendTask(context.Background(), "tok-abc", "sess-1", "hello avatar"); err != nil {
		t.Fatal(err)
	}
	want := taskRequest{SessionID: "sess-1", Text: "hello avatar", TaskType: "talk"}
	if got := stub.recordedTask(); got != want {
		t.Errorf("task body = %+v, want %+v", got, want)
	}
}

func TestStopSession(t *testing.T) {
	stub := newVendorStub()
	srv := httptest.NewServer(stub.mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-123"}, testLogger())
	if err := c.StopSession(context.Background(), "tok-abc", "sess-1"); err != nil {
		t.Fatal(err)
	}
	if !stub.stopped.Load() {
		t.Error("stop endpoint was not called")
	}
}
