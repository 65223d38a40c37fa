package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hrms/internal/types"
)

// UpsertRequirement stores or replaces a requirement document.
func (db *DB) UpsertRequirement(ctx context.Context, r types.Requirement) error {
	return upsertRequirement(ctx, db.pool, r)
}

// UpsertCandidate stores or replaces a candidate document.
func (db *DB) UpsertCandidate(ctx context.Context, c types.Candidate) error {
	return upsertCandidate(ctx, db.pool, c)
}

// UpsertTemplate stores or replaces a job template.
func (db *DB) UpsertTemplate(ctx context.Context, t types.JobTemplate) error {
	return upsertTemplate(ctx, db.pool, t)
}

// Snapshot is a full copy of the collections.
type Snapshot struct {
	Requirements []types.Requirement
	Candidates   []types.Candidate
	Templates    []types.JobTemplate
}

// SyncSnapshot upserts every record of s in one transaction.
func (db *DB) SyncSnapshot(ctx context.Context, s Snapshot) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, r := range s.Requirements {
		if err := upsertRequirement(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, c := range s.Candidates {
		if err := upsertCandidate(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, t := range s.Templates {
		if err := upsertTemplate(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// GetRequirement reads a mirrored requirement, or nil if absent.
func (db *DB) GetRequirement(ctx context.Context, id string) (*types.Requirement, error) {
	var doc []byte
	err := db.pool.QueryRow(ctx, `SELECT doc FROM requirements WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get requirement %s: %w", id, err)
	}
	var r types.Requirement
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("failed to decode requirement %s: %w", id, err)
	}
	return &r, nil
}

// ListCandidates reads the mirrored candidates of a requirement.
func (db *DB) ListCandidates(ctx context.Context, requirementID string) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT doc FROM candidates WHERE requirement_id = $1 ORDER BY id`, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []types.Candidate
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var c types.Candidate
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("failed to decode candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// version orders snapshots of one record. A row is only replaced by a
// snapshot at least as new, so a late retry cannot roll the mirror back.
func version(updatedAt time.Time) int64 {
	if updatedAt.IsZero() {
		return 0
	}
	return updatedAt.UnixNano()
}

func upsertRequirement(ctx context.Context, e execer, r types.Requirement) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal requirement: %w", err)
	}
	_, err = e.Exec(ctx,
		`INSERT INTO requirements (id, status, job_role, raised_by, doc, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (id) DO UPDATE SET status = $2, job_role = $3, raised_by = $4, doc = $5, version = $6, updated_at = NOW()
		 WHERE requirements.version <= EXCLUDED.version`,
		r.ID, string(r.Status), r.JobRole, r.RaisedBy, doc, version(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert requirement %s: %w", r.ID, err)
	}
	return nil
}

func upsertCandidate(ctx context.Context, e execer, c types.Candidate) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate: %w", err)
	}
	_, err = e.Exec(ctx,
		`INSERT INTO candidates (id, requirement_id, status, doc, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (id) DO UPDATE SET requirement_id = $2, status = $3, doc = $4, version = $5, updated_at = NOW()
		 WHERE candidates.version <= EXCLUDED.version`,
		c.ID, c.RequirementID, string(c.Status), doc, version(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.ID, err)
	}
	return nil
}

func upsertTemplate(ctx context.Context, e execer, t types.JobTemplate) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	_, err = e.Exec(ctx,
		`INSERT INTO job_templates (job_role, doc, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (job_role) DO UPDATE SET doc = $2, updated_at = NOW()`,
		strings.ToLower(strings.TrimSpace(t.JobRole)), doc,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s: %w", t.JobRole, err)
	}
	return nil
}
