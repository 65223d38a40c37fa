package replication

import (
	"context"
	"errors"
	"log"

	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// Writer connects a store to the outbox according to the write policy.
// It implements store.Replicator.
type Writer struct {
	policy config.WritePolicy
	outbox *Outbox
	sink   Sink
}

var _ store.Replicator = (*Writer)(nil)

// NewWriter creates a writer. Under the strict policy sink is called
// synchronously; under the optimistic policy committed changes go to outbox.
func NewWriter(policy config.WritePolicy, outbox *Outbox, sink Sink) *Writer {
	if policy == "" {
		policy = config.WriteOptimistic
	}
	if sink == nil {
		sink = NopSink
	}
	return &Writer{policy: policy, outbox: outbox, sink: sink}
}

// Policy returns the active write policy.
func (w *Writer) Policy() config.WritePolicy {
	return w.policy
}

// Prepare sends the change before it is committed under the strict policy.
// A failure aborts the mutation.
func (w *Writer) Prepare(ctx context.Context, c store.Change) error {
	if w.policy != config.WriteStrict {
		return nil
	}
	req, err := FromChange(c)
	if err != nil {
		return err
	}
	if err := w.sink.Send(ctx, req); err != nil {
		var te *types.TransportError
		if errors.As(err, &te) {
			return err
		}
		return &types.TransportError{Action: c.Action, Message: "remote write failed", Cause: err}
	}
	return nil
}

// Committed enqueues the change under the optimistic policy. Nothing here
// reaches the caller; failures are logged and dead-lettered.
func (w *Writer) Committed(c store.Change) {
	if w.policy != config.WriteOptimistic || w.outbox == nil {
		return
	}
	req, err := FromChange(c)
	if err != nil {
		log.Printf("[replication] warning: dropping %s %s: %v", c.Action, c.RecordID, err)
		return
	}
	if err := w.outbox.Enqueue(req); err != nil {
		log.Printf("[replication] warning: %s %s not queued: %v", c.Action, c.RecordID, err)
		w.outbox.DeadLetter(req, err)
	}
}
