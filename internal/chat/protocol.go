// Package chat implements the per-event real-time chat layer: a connection
// registry keyed by event room, an authenticated websocket session per client,
// and the wire protocol between them. Messages are persisted before they are
// fanned out, so the database timestamp is the total order per event.
package chat

import (
	"encoding/json"
	"errors"
	"strings"
)

// MaxContentBytes bounds the content of a single inbound frame.
const MaxContentBytes = 4096

var ErrBadFrame = errors.New("malformed chat frame")

// Inbound is the client-to-server frame: one JSON object per frame.
type Inbound struct {
	Content string `json:"content"`
}

// Outbound is the server-to-room frame delivered for each persisted message.
type Outbound struct {
	Content string `json:"content"`
	Email   string `json:"email"`
	UserID  int64  `json:"user_id"`
}

// ErrorFrame is sent best-effort before closing a session on an unrecoverable
// error.
type ErrorFrame struct {
	Error string `json:"error"`
}

// ParseInbound validates a raw frame against the protocol contract: a JSON
// object whose content is a non-whitespace string of at most MaxContentBytes.
// Violations return ErrBadFrame; they are dropped by the session, not fatal.
func ParseInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, ErrBadFrame
	}
	if strings.TrimSpace(in.Content) == "" {
		return Inbound{}, ErrBadFrame
	}
	if len(in.Content) > MaxContentBytes {
		return Inbound{}, ErrBadFrame
	}
	return in, nil
}
