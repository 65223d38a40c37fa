// Package store owns the requirement, candidate and template collections
// plus the audit log. Every mutation runs against a copy of the record,
// passes through the replicator and is only then committed and written to
// the local cache.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/types"
)

// Record kinds used in changes and audit entries.
const (
	KindRequirement = "requirement"
	KindCandidate   = "candidate"
	KindTemplate    = "template"
	KindPermission  = "permission"
)

// Mutation describes who is changing a record and why.
type Mutation struct {
	Action string
	Actor  types.Actor
	Detail string
	// Fields carries the action-specific request fields forwarded to the
	// sync service alongside the record.
	Fields map[string]any
}

// Change is a committed-or-about-to-be-committed record mutation.
type Change struct {
	Action   string
	Kind     string
	RecordID string
	Actor    types.Actor
	Detail   string
	Fields   map[string]any
	Record   any
	At       time.Time
}

// Replicator observes mutations. Prepare runs before the commit, and an
// error aborts the mutation with local state untouched. Committed runs after
// the record and the cache have been written.
type Replicator interface {
	Prepare(ctx context.Context, c Change) error
	Committed(c Change)
}

type nopReplicator struct{}

func (nopReplicator) Prepare(context.Context, Change) error { return nil }
func (nopReplicator) Committed(Change)                      {}

// Store is the authoritative in-memory copy of every collection. It is safe
// for concurrent use; writers are serialized.
type Store struct {
	wmu sync.Mutex   // serializes writers
	mu  sync.RWMutex // guards the collections below

	requirements map[string]*types.Requirement
	reqOrder     []string
	candidates   map[string]*types.Candidate
	candOrder    []string
	templates    map[string]*types.JobTemplate
	tmplOrder    []string
	audit        []types.AuditEntry

	cache      cache.Cache
	replicator Replicator
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithReplicator sets the mutation observer.
func WithReplicator(r Replicator) Option {
	return func(s *Store) { s.replicator = r }
}

// New returns an empty store persisting to c. A nil cache keeps everything
// in memory.
func New(c cache.Cache, opts ...Option) *Store {
	if c == nil {
		c = cache.NewMemoryCache()
	}
	s := &Store{
		requirements: make(map[string]*types.Requirement),
		candidates:   make(map[string]*types.Candidate),
		templates:    make(map[string]*types.JobTemplate),
		cache:        c,
		replicator:   nopReplicator{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReplicator replaces the mutation observer. It is used when the
// replicator itself needs the store to be constructed first.
func (s *Store) SetReplicator(r Replicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = nopReplicator{}
	}
	s.replicator = r
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// NewRequirementID returns an opaque requirement id.
func NewRequirementID() string {
	return "REQ-" + uuid.NewString()
}

// NewCandidateID returns an opaque candidate id.
func NewCandidateID() string {
	return "CAND-" + uuid.NewString()
}

func templateKey(jobRole string) string {
	return strings.ToLower(strings.TrimSpace(jobRole))
}

// --- reads ---

// Requirement returns a copy of the requirement with id.
func (s *Store) Requirement(id string) (types.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements[id]
	if !ok {
		return types.Requirement{}, &types.NotFoundError{Kind: KindRequirement, ID: id}
	}
	return *r, nil
}

// Requirements yields copies of requirements in insertion order. Each
// iteration reads a fresh snapshot.
func (s *Store) Requirements() iter.Seq[types.Requirement] {
	return func(yield func(types.Requirement) bool) {
		for _, r := range s.requirementSnapshot() {
			if !yield(r) {
				return
			}
		}
	}
}

func (s *Store) requirementSnapshot() []types.Requirement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Requirement, 0, len(s.reqOrder))
	for _, id := range s.reqOrder {
		out = append(out, *s.requirements[id])
	}
	return out
}

// Candidate returns a copy of the candidate with id.
func (s *Store) Candidate(id string) (types.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return types.Candidate{}, &types.NotFoundError{Kind: KindCandidate, ID: id}
	}
	return *c, nil
}

// Candidates yields copies of candidates in insertion order. Each iteration
// reads a fresh snapshot.
func (s *Store) Candidates() iter.Seq[types.Candidate] {
	return func(yield func(types.Candidate) bool) {
		for _, c := range s.candidateSnapshot() {
			if !yield(c) {
				return
			}
		}
	}
}

func (s *Store) candidateSnapshot() []types.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Candidate, 0, len(s.candOrder))
	for _, id := range s.candOrder {
		out = append(out, *s.candidates[id])
	}
	return out
}

// Template returns the template for a job role.
func (s *Store) Template(jobRole string) (types.JobTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[templateKey(jobRole)]
	if !ok {
		return types.JobTemplate{}, false
	}
	return *t, true
}

// Templates returns every template in insertion order.
func (s *Store) Templates() []types.JobTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.JobTemplate, 0, len(s.tmplOrder))
	for _, k := range s.tmplOrder {
		out = append(out, *s.templates[k])
	}
	return out
}

// Audit returns a copy of the audit log, oldest first.
func (s *Store) Audit() []types.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.AuditEntry(nil), s.audit...)
}

// --- writes ---
//
// Writes are serialized by wmu. A writer reads the current record under a
// read lock, calls Prepare with no lock on the collections, then commits
// under mu. Readers never wait on the replicator.

// InsertRequirement adds a new requirement.
func (s *Store) InsertRequirement(ctx context.Context, r types.Requirement, m Mutation) (types.Requirement, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	_, exists := s.requirements[r.ID]
	s.mu.RUnlock()
	if exists {
		return types.Requirement{}, fmt.Errorf("requirement %s already exists", r.ID)
	}

	r.UpdatedAt = s.now()
	change := s.change(m, KindRequirement, r.ID, r)
	err := s.apply(ctx, change, cache.KeyRequirements, func() {
		stored := r
		s.requirements[r.ID] = &stored
		s.reqOrder = append(s.reqOrder, r.ID)
	})
	if err != nil {
		return types.Requirement{}, err
	}
	return r, nil
}

// UpdateRequirement applies fn to a copy of the requirement. When fn fails
// the stored record is left unmodified.
func (s *Store) UpdateRequirement(ctx context.Context, id string, m Mutation, fn func(*types.Requirement) error) (types.Requirement, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	cur, ok := s.requirements[id]
	var next types.Requirement
	if ok {
		next = *cur
	}
	s.mu.RUnlock()
	if !ok {
		return types.Requirement{}, &types.NotFoundError{Kind: KindRequirement, ID: id}
	}
	if err := fn(&next); err != nil {
		return types.Requirement{}, err
	}
	next.UpdatedAt = s.now()

	change := s.change(m, KindRequirement, id, next)
	if err := s.apply(ctx, change, cache.KeyRequirements, func() { *cur = next }); err != nil {
		return types.Requirement{}, err
	}
	return next, nil
}

// InsertCandidates adds a batch of candidates. Either all are stored or none.
func (s *Store) InsertCandidates(ctx context.Context, batch []types.Candidate, m Mutation) ([]types.Candidate, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	seen := make(map[string]bool, len(batch))
	var dup string
	for i := range batch {
		id := batch[i].ID
		if _, exists := s.candidates[id]; exists || seen[id] {
			dup = id
			break
		}
		seen[id] = true
	}
	s.mu.RUnlock()
	if dup != "" {
		return nil, fmt.Errorf("candidate %s already exists", dup)
	}

	now := s.now()
	for i := range batch {
		batch[i].Status = types.DeriveStatus(&batch[i])
		batch[i].UpdatedAt = now
	}

	// A batch is keyed by its first candidate so separate uploads against
	// one requirement never coalesce.
	recordID := ""
	if len(batch) > 0 {
		recordID = batch[0].ID
	}
	change := s.change(m, KindCandidate, recordID, batch)
	err := s.apply(ctx, change, cache.KeyCandidates, func() {
		for i := range batch {
			stored := batch[i]
			s.candidates[stored.ID] = &stored
			s.candOrder = append(s.candOrder, stored.ID)
		}
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateCandidate applies fn to a copy of the candidate and recomputes the
// derived status. When fn fails the stored record is left unmodified.
func (s *Store) UpdateCandidate(ctx context.Context, id string, m Mutation, fn func(*types.Candidate) error) (types.Candidate, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.RLock()
	cur, ok := s.candidates[id]
	var next types.Candidate
	if ok {
		next = *cur
	}
	s.mu.RUnlock()
	if !ok {
		return types.Candidate{}, &types.NotFoundError{Kind: KindCandidate, ID: id}
	}
	if err := fn(&next); err != nil {
		return types.Candidate{}, err
	}
	next.Status = types.DeriveStatus(&next)
	next.UpdatedAt = s.now()

	change := s.change(m, KindCandidate, id, next)
	if err := s.apply(ctx, change, cache.KeyCandidates, func() { *cur = next }); err != nil {
		return types.Candidate{}, err
	}
	return next, nil
}

// PutTemplate inserts or replaces the template for its job role.
func (s *Store) PutTemplate(ctx context.Context, t types.JobTemplate, m Mutation) (types.JobTemplate, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	key := templateKey(t.JobRole)
	t.UpdatedAt = s.now()
	change := s.change(m, KindTemplate, t.JobRole, t)
	err := s.apply(ctx, change, cache.KeyTemplates, func() {
		if _, exists := s.templates[key]; !exists {
			s.tmplOrder = append(s.tmplOrder, key)
		}
		stored := t
		s.templates[key] = &stored
	})
	if err != nil {
		return types.JobTemplate{}, err
	}
	return t, nil
}

// apply runs Prepare, then mutate and the cache write under mu, then
// Committed. The caller holds wmu, so the record read before Prepare is
// still current when mutate runs.
func (s *Store) apply(ctx context.Context, c Change, key string, mutate func()) error {
	rep := s.currentReplicator()
	if err := rep.Prepare(ctx, c); err != nil {
		return err
	}

	s.mu.Lock()
	mutate()
	s.appendAudit(c)
	switch key {
	case cache.KeyRequirements:
		s.persist(key, s.requirementsLocked())
	case cache.KeyCandidates:
		s.persist(key, s.candidatesLocked())
	case cache.KeyTemplates:
		s.persist(key, s.templatesLocked())
	}
	s.persist(cache.KeyAudit, s.audit)
	s.mu.Unlock()

	rep.Committed(c)
	return nil
}

func (s *Store) currentReplicator() Replicator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replicator
}

// RecordAudit appends an entry for a mutation owned by another package.
func (s *Store) RecordAudit(kind, recordID string, m Mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAudit(s.change(m, kind, recordID, nil))
	s.persist(cache.KeyAudit, s.audit)
}

func (s *Store) change(m Mutation, kind, recordID string, record any) Change {
	return Change{
		Action:   m.Action,
		Kind:     kind,
		RecordID: recordID,
		Actor:    m.Actor,
		Detail:   m.Detail,
		Fields:   m.Fields,
		Record:   record,
		At:       s.now(),
	}
}

func (s *Store) appendAudit(c Change) {
	s.audit = append(s.audit, types.AuditEntry{
		ID:       uuid.NewString(),
		Action:   c.Action,
		Kind:     c.Kind,
		RecordID: c.RecordID,
		Actor:    c.Actor.String(),
		Detail:   c.Detail,
		At:       c.At,
	})
}

func (s *Store) requirementsLocked() []types.Requirement {
	out := make([]types.Requirement, 0, len(s.reqOrder))
	for _, id := range s.reqOrder {
		out = append(out, *s.requirements[id])
	}
	return out
}

func (s *Store) candidatesLocked() []types.Candidate {
	out := make([]types.Candidate, 0, len(s.candOrder))
	for _, id := range s.candOrder {
		out = append(out, *s.candidates[id])
	}
	return out
}

func (s *Store) templatesLocked() []types.JobTemplate {
	out := make([]types.JobTemplate, 0, len(s.tmplOrder))
	for _, k := range s.tmplOrder {
		out = append(out, *s.templates[k])
	}
	return out
}

// persist writes a collection document; failures are logged, the in-memory
// copy stays authoritative.
func (s *Store) persist(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[store] warning: failed to encode %s: %v", key, err)
		return
	}
	if err := s.cache.Put(key, data); err != nil {
		log.Printf("[store] warning: failed to write %s to cache: %v", key, err)
	}
}
