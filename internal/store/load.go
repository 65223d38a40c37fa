package store

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/schemas"
	"github.com/jonathan/hrms/internal/types"
)

// LoadReport summarizes what Load read from the cache.
type LoadReport struct {
	Requirements int
	Candidates   int
	Templates    int
	AuditEntries int
	// Rejected lists document keys that failed schema validation. Their
	// contents were copied to "<key>_rejected" and not loaded.
	Rejected []string
}

// Load replaces the in-memory collections with the cached documents. Each
// document is checked against its schema; legacy requirement vocabulary is
// normalized and candidate status is recomputed. A cache read failure is
// returned; an invalid document is set aside and logged.
func (s *Store) Load() (*LoadReport, error) {
	report := &LoadReport{}

	var reqs []types.Requirement
	var cands []types.Candidate
	var tmpls []types.JobTemplate
	var audit []types.AuditEntry

	docs := []struct {
		key string
		dst any
	}{
		{cache.KeyRequirements, &reqs},
		{cache.KeyCandidates, &cands},
		{cache.KeyTemplates, &tmpls},
		{cache.KeyAudit, &audit},
	}
	for _, d := range docs {
		ok, err := s.readDocument(d.key, d.dst)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Rejected = append(report.Rejected, d.key)
		}
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requirements = make(map[string]*types.Requirement, len(reqs))
	s.reqOrder = s.reqOrder[:0]
	for i := range reqs {
		r := reqs[i]
		r.Status = types.NormalizeRequirementStatus(string(r.Status))
		if _, dup := s.requirements[r.ID]; dup {
			log.Printf("[store] warning: duplicate requirement %s in cache, keeping the last copy", r.ID)
		} else {
			s.reqOrder = append(s.reqOrder, r.ID)
		}
		s.requirements[r.ID] = &r
	}

	s.candidates = make(map[string]*types.Candidate, len(cands))
	s.candOrder = s.candOrder[:0]
	for i := range cands {
		c := cands[i]
		c.Status = types.DeriveStatus(&c)
		if _, dup := s.candidates[c.ID]; dup {
			log.Printf("[store] warning: duplicate candidate %s in cache, keeping the last copy", c.ID)
		} else {
			s.candOrder = append(s.candOrder, c.ID)
		}
		s.candidates[c.ID] = &c
	}

	s.templates = make(map[string]*types.JobTemplate, len(tmpls))
	s.tmplOrder = s.tmplOrder[:0]
	for i := range tmpls {
		t := tmpls[i]
		key := templateKey(t.JobRole)
		if _, dup := s.templates[key]; !dup {
			s.tmplOrder = append(s.tmplOrder, key)
		}
		s.templates[key] = &t
	}

	s.audit = audit

	report.Requirements = len(s.reqOrder)
	report.Candidates = len(s.candOrder)
	report.Templates = len(s.tmplOrder)
	report.AuditEntries = len(s.audit)
	return report, nil
}

// readDocument decodes key into dst. It reports false when the document
// exists but is invalid.
func (s *Store) readDocument(key string, dst any) (bool, error) {
	data, ok, err := s.cache.Get(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return true, nil
	}

	if err := schemas.ValidateDocument(key, data); err != nil {
		s.setAside(key, data, err)
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.setAside(key, data, err)
		return false, nil
	}
	return true, nil
}

func (s *Store) setAside(key string, data []byte, cause error) {
	log.Printf("[store] warning: cached %s is invalid, starting empty: %v", key, cause)
	if err := s.cache.Put(key+"_rejected", data); err != nil {
		log.Printf("[store] warning: failed to keep rejected %s: %v", key, err)
	}
}
