// Package requirements implements the requirement lifecycle:
// Raised -> Valid | Sent Back, and Sent Back -> Raised on resubmission by
// the original raiser.
package requirements

import (
	"context"
	"iter"
	"strings"

	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// Sync service action names.
const (
	ActionRaise    = "raiseRequirement"
	ActionApprove  = "reviewRequirement"
	ActionSendBack = "sendBackRequirement"
	ActionResubmit = "resubmitRequirement"
)

// Service runs requirement transitions against a store.
type Service struct {
	store *store.Store
	perms permissions.Checker
}

// NewService creates a requirement service. A nil checker allows everything.
func NewService(s *store.Store, perms permissions.Checker) *Service {
	if perms == nil {
		perms = permissions.AllowAll
	}
	return &Service{store: s, perms: perms}
}

// Raise creates a requirement in status Raised. Empty fields are prefilled
// from the job template for the role, if one exists.
func (s *Service) Raise(ctx context.Context, actor types.Actor, fields types.RequirementFields) (types.Requirement, error) {
	if err := s.perms.Require(actor, permissions.ModuleRequirements, permissions.Create); err != nil {
		return types.Requirement{}, err
	}
	if tmpl, ok := s.store.Template(fields.JobRole); ok {
		fields.Prefill(&tmpl)
	}
	if err := fields.Validate(); err != nil {
		return types.Requirement{}, err
	}

	r := types.Requirement{
		ID:         store.NewRequirementID(),
		Status:     types.RequirementRaised,
		RaisedBy:   actor.Email,
		RaisedDate: s.store.Now(),
	}
	fields.Apply(&r)

	return s.store.InsertRequirement(ctx, r, store.Mutation{
		Action: ActionRaise,
		Actor:  actor,
		Detail: r.JobTitle,
	})
}

// Approve moves a Raised requirement to Valid.
func (s *Service) Approve(ctx context.Context, actor types.Actor, id string) (types.Requirement, error) {
	if err := s.perms.Require(actor, permissions.ModuleRequirements, permissions.Edit); err != nil {
		return types.Requirement{}, err
	}

	m := store.Mutation{
		Action: ActionApprove,
		Actor:  actor,
		Detail: types.RemarkApproved,
		Fields: map[string]any{"requirementId": id, "remark": types.RemarkApproved},
	}
	return s.store.UpdateRequirement(ctx, id, m, func(r *types.Requirement) error {
		if r.Status != types.RequirementRaised {
			return invalid(r, "approve")
		}
		now := s.store.Now()
		r.Status = types.RequirementValid
		r.Remark = types.RemarkApproved
		r.ReviewedBy = actor.Email
		r.ReviewDate = &now
		return nil
	})
}

// SendBack returns a Raised requirement to its raiser with a remark.
func (s *Service) SendBack(ctx context.Context, actor types.Actor, id, remark string) (types.Requirement, error) {
	if err := s.perms.Require(actor, permissions.ModuleRequirements, permissions.Edit); err != nil {
		return types.Requirement{}, err
	}
	remark = strings.TrimSpace(remark)
	if err := types.RequireReason("remark", remark); err != nil {
		return types.Requirement{}, err
	}

	m := store.Mutation{
		Action: ActionSendBack,
		Actor:  actor,
		Detail: remark,
		Fields: map[string]any{"requirementId": id, "remark": remark},
	}
	return s.store.UpdateRequirement(ctx, id, m, func(r *types.Requirement) error {
		if r.Status != types.RequirementRaised {
			return invalid(r, "send back")
		}
		now := s.store.Now()
		r.Status = types.RequirementSentBack
		r.Remark = remark
		r.ReviewedBy = actor.Email
		r.ReviewDate = &now
		return nil
	})
}

// Resubmit applies edited fields to a Sent Back requirement and returns it
// to Raised. Only the original raiser may resubmit.
func (s *Service) Resubmit(ctx context.Context, actor types.Actor, id string, fields types.RequirementFields) (types.Requirement, error) {
	if err := s.perms.Require(actor, permissions.ModuleRequirements, permissions.Create); err != nil {
		return types.Requirement{}, err
	}
	if err := fields.Validate(); err != nil {
		return types.Requirement{}, err
	}

	m := store.Mutation{Action: ActionResubmit, Actor: actor, Detail: fields.JobTitle}
	return s.store.UpdateRequirement(ctx, id, m, func(r *types.Requirement) error {
		if r.Status != types.RequirementSentBack {
			return invalid(r, "resubmit")
		}
		if !strings.EqualFold(r.RaisedBy, actor.Email) {
			return &types.ForbiddenError{
				Actor:  actor.String(),
				Action: "resubmit requirement " + r.ID,
				Reason: "only the original raiser may resubmit",
			}
		}
		now := s.store.Now()
		fields.Apply(r)
		r.Status = types.RequirementRaised
		r.Remark = ""
		r.ResubmittedDate = &now
		return nil
	})
}

// Get returns one requirement.
func (s *Service) Get(id string) (types.Requirement, error) {
	return s.store.Requirement(id)
}

// List yields requirements matching f. The sequence reads the store afresh
// every time it is ranged over.
func (s *Service) List(f types.RequirementFilter) iter.Seq[types.Requirement] {
	return func(yield func(types.Requirement) bool) {
		for r := range s.store.Requirements() {
			if !f.Match(&r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

func invalid(r *types.Requirement, action string) error {
	return &types.InvalidTransitionError{
		Kind:   store.KindRequirement,
		ID:     r.ID,
		Action: action,
		From:   string(r.Status),
	}
}
