// Package replication forwards committed mutations to remote sinks. Delivery
// is at least once and best effort: requests wait in a bounded outbox,
// are retried with exponential backoff, and land in a dead-letter list when
// their attempts run out.
package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hrms/internal/store"
)

// Request is one remote write.
type Request struct {
	ID       string `json:"id"`
	Action   string `json:"action"`
	Kind     string `json:"kind,omitempty"`
	RecordID string `json:"recordId"`
	// Payload is the action body posted to the sync service.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Record is the full record, or records for a batch, after the change.
	Record     json.RawMessage `json:"record,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	LastError  string          `json:"lastError,omitempty"`

	seq       uint64
	notBefore time.Time
}

// Sink delivers a request somewhere. Implementations must be safe for
// concurrent use and should treat a repeated request ID as already applied.
type Sink interface {
	Send(ctx context.Context, req Request) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, req Request) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, req Request) error { return f(ctx, req) }

// NopSink accepts everything. It is used when no remote is configured.
var NopSink Sink = SinkFunc(func(context.Context, Request) error { return nil })

// FromChange builds a request for a store change. The payload is the
// change's request fields, or the record itself when there are none.
func FromChange(c store.Change) (Request, error) {
	record, err := json.Marshal(c.Record)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode %s record: %w", c.Kind, err)
	}

	payload := record
	if c.Fields != nil {
		payload, err = json.Marshal(c.Fields)
		if err != nil {
			return Request{}, fmt.Errorf("failed to encode %s fields: %w", c.Action, err)
		}
	}

	return Request{
		ID:         uuid.NewString(),
		Action:     c.Action,
		Kind:       c.Kind,
		RecordID:   c.RecordID,
		Payload:    payload,
		Record:     record,
		Actor:      c.Actor.Email,
		EnqueuedAt: c.At,
	}, nil
}

type dedupeKey struct {
	action   string
	recordID string
}

func (r *Request) key() dedupeKey {
	return dedupeKey{action: r.Action, recordID: r.RecordID}
}
