package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/hrms/internal/replication"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// Sink applies replication requests to the mirror. Each request id is
// recorded in sync_log in the same transaction, so redelivery is a no-op.
type Sink struct {
	db *DB
}

var _ replication.Sink = (*Sink)(nil)

// NewSink creates a replication sink backed by db.
func NewSink(db *DB) *Sink {
	return &Sink{db: db}
}

// Send upserts the record carried by req.
func (s *Sink) Send(ctx context.Context, req replication.Request) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO sync_log (request_id, action, record_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (request_id) DO NOTHING`,
		req.ID, req.Action, req.RecordID,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync %s: %w", req.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if err := applyRecord(ctx, tx, req); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sync %s: %w", req.ID, err)
	}
	return nil
}

func applyRecord(ctx context.Context, e execer, req replication.Request) error {
	if len(req.Record) == 0 || bytes.Equal(req.Record, []byte("null")) {
		return nil
	}
	switch req.Kind {
	case store.KindRequirement:
		var r types.Requirement
		if err := json.Unmarshal(req.Record, &r); err != nil {
			return fmt.Errorf("failed to decode requirement record: %w", err)
		}
		return upsertRequirement(ctx, e, r)
	case store.KindCandidate:
		cands, err := decodeCandidates(req.Record)
		if err != nil {
			return err
		}
		for _, c := range cands {
			if err := upsertCandidate(ctx, e, c); err != nil {
				return err
			}
		}
		return nil
	case store.KindTemplate:
		var t types.JobTemplate
		if err := json.Unmarshal(req.Record, &t); err != nil {
			return fmt.Errorf("failed to decode template record: %w", err)
		}
		return upsertTemplate(ctx, e, t)
	}
	return nil
}

// decodeCandidates accepts a single candidate or an upload batch.
func decodeCandidates(raw json.RawMessage) ([]types.Candidate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []types.Candidate
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode candidate batch: %w", err)
		}
		return batch, nil
	}
	var c types.Candidate
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, fmt.Errorf("failed to decode candidate record: %w", err)
	}
	return []types.Candidate{c}, nil
}
