// Package reports computes dashboard statistics and the audit log view.
package reports

import (
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// DefaultAuditLimit is used when AuditLog is called without a limit.
const DefaultAuditLimit = 100

// Stats are the dashboard counters.
type Stats struct {
	TotalRequirements   int `json:"totalRequirements"`
	PendingRequirements int `json:"pendingRequirements"`
	TotalCandidates     int `json:"totalCandidates"`
	Shortlisted         int `json:"shortlisted"`
	Interviewed         int `json:"interviewed"`
	Rejected            int `json:"rejected"`
	OnHold              int `json:"onHold"`
}

// Service reads from a store.
type Service struct {
	store *store.Store
	perms permissions.Checker
}

// NewService creates a report service. A nil checker allows everything.
func NewService(s *store.Store, perms permissions.Checker) *Service {
	if perms == nil {
		perms = permissions.AllowAll
	}
	return &Service{store: s, perms: perms}
}

// Stats counts requirements and candidates. Pending requirements are the
// ones awaiting review.
func (s *Service) Stats(actor types.Actor) (Stats, error) {
	if err := s.perms.Require(actor, permissions.ModuleDashboard, permissions.View); err != nil {
		return Stats{}, err
	}

	var st Stats
	for r := range s.store.Requirements() {
		st.TotalRequirements++
		if r.Status == types.RequirementRaised {
			st.PendingRequirements++
		}
	}
	for c := range s.store.Candidates() {
		st.TotalCandidates++
		if c.ShortlistingStatus == types.ShortlistApproved {
			st.Shortlisted++
		}
		switch c.Status {
		case types.CandidateInterviewed:
			st.Interviewed++
		case types.CandidateRejected:
			st.Rejected++
		case types.CandidateOnHold:
			st.OnHold++
		}
	}
	return st, nil
}

// AuditFilter narrows the audit log. Empty fields match everything.
type AuditFilter struct {
	Kind     string `json:"kind,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// AuditLog returns matching entries newest first, at most f.Limit of them.
func (s *Service) AuditLog(actor types.Actor, f AuditFilter) ([]types.AuditEntry, error) {
	if err := s.perms.Require(actor, permissions.ModuleReports, permissions.View); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	entries := s.store.Audit()
	out := make([]types.AuditEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := entries[i]
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.RecordID != "" && e.RecordID != f.RecordID {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
