// Package templates manages per-role job templates used to prefill new
// requirements.
package templates

import (
	"context"
	"sort"
	"strings"

	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// ActionSave is the sync service action for template writes.
const ActionSave = "saveJobTemplate"

// Service reads and writes job templates.
type Service struct {
	store *store.Store
	perms permissions.Checker
}

// NewService creates a template service. A nil checker allows everything.
func NewService(s *store.Store, perms permissions.Checker) *Service {
	if perms == nil {
		perms = permissions.AllowAll
	}
	return &Service{store: s, perms: perms}
}

// Save creates or replaces the template for t.JobRole.
func (s *Service) Save(ctx context.Context, actor types.Actor, t types.JobTemplate) (types.JobTemplate, error) {
	if err := s.perms.Require(actor, permissions.ModuleTemplates, permissions.Edit); err != nil {
		return types.JobTemplate{}, err
	}
	if err := t.Validate(); err != nil {
		return types.JobTemplate{}, err
	}
	t.UpdatedBy = actor.Email
	return s.store.PutTemplate(ctx, t, store.Mutation{Action: ActionSave, Actor: actor, Detail: t.JobRole})
}

// Get returns the template for a job role.
func (s *Service) Get(jobRole string) (types.JobTemplate, error) {
	t, ok := s.store.Template(jobRole)
	if !ok {
		return types.JobTemplate{}, &types.NotFoundError{Kind: store.KindTemplate, ID: jobRole}
	}
	return t, nil
}

// List returns every template sorted by job role.
func (s *Service) List() []types.JobTemplate {
	all := s.store.Templates()
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].JobRole) < strings.ToLower(all[j].JobRole)
	})
	return all
}
