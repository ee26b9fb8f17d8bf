// Package docstore watches the per-device document whose transitions trigger
// session start and stop. The document is owned by the backend; this side is
// strictly read-only.
package docstore

import "context"

// Document states and session types that matter to voicecore.
const (
	StatusActive = "active"
	StatusIdle   = "idle"

	SessionTypeTherapy = "therapy"
)

// Document is the device document as delivered by the change feed.
type Document struct {
	Status      string `json:"status"`
	SessionType string `json:"session_type"`
	CurrentUser struct {
		SessionID string `json:"session_id"`
	} `json:"current_user"`
}

// SessionActive reports whether the document calls for a running therapy
// session.
func (d Document) SessionActive() bool {
	return d.Status == StatusActive && d.SessionType == SessionTypeTherapy
}

// Watcher delivers device document changes. The stream closes when the
// watcher is closed or the feed drops.
type Watcher interface {
	Watch(ctx context.Context, deviceID string) (<-chan Document, error)
	Close() error
}
