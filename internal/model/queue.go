package model

import "time"

// PendingAction is one queued client-side action awaiting replay. Seq is a
// monotonically increasing enqueue order; Payload is the JSON-encoded action
// variant for Kind.
type PendingAction struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Kind       string    `json:"kind"`
	Payload    []byte    `json:"payload"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
