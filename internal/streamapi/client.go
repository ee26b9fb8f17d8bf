// Package streamapi talks to the avatar vendor: the HTTP session lifecycle
// RPCs and the realtime event socket that reports avatar speaking state.
package streamapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// successCode is the vendor's application-level success code, carried inside
// the JSON envelope independently of the HTTP status.
const successCode = 100

const maxResponseBytes = 1 << 20

// Config holds vendor API access settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the vendor session lifecycle client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a vendor API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "streamapi"),
	}
}

// envelope is the vendor's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a vendor-reported failure: a non-2xx HTTP status or an envelope
// code other than the success code.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vendor api error: status=%d code=%d message=%q", e.Status, e.Code, e.Message)
}

type authMode int

const (
	authAPIKey authMode = iota
	authBearer
)

func (c *Client) post(ctx context.Context, path string, auth authMode, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	switch auth {
	case authAPIKey:
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Status: resp.StatusCode, Message: truncate(string(raw), 200)}
		}
		return fmt.Errorf("decode %s response: %w", path, jsonErr)
	}
	if resp.StatusCode != http.StatusOK || env.Code != successCode {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CreateToken exchanges the API key for a short-lived session token.
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	var data struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/v1/streaming.create_token", authAPIKey, "", struct{}{}, &data); err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	return data.Token, nil
}

// NewSessionRequest selects the avatar and stream parameters for a session.
type NewSessionRequest struct {
	Quality         string `json:"quality"`
	AvatarID        string `json:"avatar_id"`
	ParticipantName string `json:"participant_name,omitempty"`
	Version         string `json:"version"`
	VideoEncoding   string `json:"video_encoding"`
}

// Session is the vendor's description of a provisioned streaming session.
type Session struct {
	SessionID        string `json:"session_id"`
	URL              string `json:"url"`
	AccessToken      string `json:"access_token"`
	RealtimeEndpoint string `json:"realtime_endpoint"`
}

// NewSession allocates a streaming session. The returned URL and AccessToken
// attach the media room; RealtimeEndpoint carries avatar state events.
func (c *Client) NewSession(ctx context.Context, token string, req NewSessionRequest) (*Session, error) {
	var sess Session
	if err := c.post(ctx, "/v1/streaming.new", authBearer, token, req, &sess); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	return &sess, nil
}

// StartSessionRequest begins streaming for an allocated session. The vendor
// wants the session token in the body as well as the bearer header.
type StartSessionRequest struct {
	SessionID       string `json:"session_id"`
	SessionToken    string `json:"session_token"`
	SilenceResponse bool   `json:"silence_response"`
	STTLanguage     string `json:"stt_language,omitempty"`
}

// StartSession begins streaming for an allocated session.
func (c *Client) StartSession(ctx context.Context, token string, req StartSessionRequest) error {
	if err := c.post(ctx, "/v1/streaming.start", authBearer, token, req, nil); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

type taskRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	TaskType  string `json:"task_type"`
}

// SendTask forwards user text to the avatar as a talk task.
func (c *Client) SendTask(ctx context.Context, token, sessionID, text string) error {
	req := taskRequest{SessionID: sessionID, Text: text, TaskType: "talk"}
	if err := c.post(ctx, "/v1/streaming.task", authBearer, token, req, nil); err != nil {
		return fmt.Errorf("send task: %w", err)
	}
	return nil
}

// StopSession ends a streaming session.
func (c *Client) StopSession(ctx context.Context, token, sessionID string) error {
	body := struct {
		SessionID string `json:"session_id"`
	}{sessionID}
	if err := c.post(ctx, "/v1/streaming.stop", authBearer, token, body, nil); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	return nil
}

// ProvisionConfig drives the full provisioning sequence.
type ProvisionConfig struct {
	Quality         string
	AvatarID        string
	ParticipantName string
	Version         string
	VideoEncoding   string
	STTLanguage     string
	SilenceResponse bool

	// Attempts and RetryDelay shape the provisioning retry: a failed sequence
	// is retried as a whole, with a fixed delay between attempts.
	Attempts   int
	RetryDelay time.Duration
}

// Provisioned is a fully started session plus the token that authorizes
// lifecycle calls against it.
type Provisioned struct {
	Session
	Token string
}

// Provision runs create_token, new, and start as one sequence, retrying the
// whole sequence on failure.
func (c *Client) Provision(ctx context.Context, cfg ProvisionConfig) (*Provisioned, error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("provisioning retry", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}

		prov, err := c.provisionOnce(ctx, cfg)
		if err == nil {
			c.logger.Info("session provisioned", "session_id", prov.SessionID, "attempt", attempt)
			return prov, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("provisioning failed after %d attempts: %w", cfg.Attempts, lastErr)
}

func (c *Client) provisionOnce(ctx context.Context, cfg ProvisionConfig) (*Provisioned, error) {
	token, err := c.CreateToken(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := c.NewSession(ctx, token, NewSessionRequest{
		Quality:         cfg.Quality,
		AvatarID:        cfg.AvatarID,
		ParticipantName: cfg.ParticipantName,
		Version:         cfg.Version,
		VideoEncoding:   cfg.VideoEncoding,
	})
	if err != nil {
		return nil, err
	}
	err = c.StartSession(ctx, token, StartSessionRequest{
		SessionID:       sess.SessionID,
		SessionToken:    token,
		SilenceResponse: cfg.SilenceResponse,
		STTLanguage:     cfg.STTLanguage,
	})
	if err != nil {
		return nil, err
	}
	return &Provisioned{Session: *sess, Token: token}, nil
}
