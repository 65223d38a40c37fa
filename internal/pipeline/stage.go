package pipeline

import (
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/types"
)

// Stage names a work queue.
type Stage string

const (
	StageShortlisting Stage = "shortlisting"
	StageTelephonic   Stage = "telephonic"
	StageOwnerReview  Stage = "owner-review"
	StageOnHold       Stage = "on-hold"
	StageSchedule     Stage = "schedule"
	StageWalkIn       Stage = "walkins"
)

// Env is the read-time context queue predicates are evaluated against.
type Env struct {
	Hold  config.HoldPolicy
	Today string // YYYY-MM-DD in the configured zone
}

// StageDefinition describes one queue.
type StageDefinition struct {
	Name   Stage
	Module permissions.Module
	// Member decides queue membership. It never sees rejected candidates.
	Member func(c *types.Candidate, env Env) bool
}

// StageRegistry holds every queue keyed by name.
var StageRegistry = map[Stage]StageDefinition{
	StageShortlisting: {
		Name:   StageShortlisting,
		Module: permissions.ModuleShortlisting,
		Member: func(c *types.Candidate, _ Env) bool {
			return types.DeriveStatus(c) == types.CandidateUploaded
		},
	},
	StageTelephonic: {
		Name:   StageTelephonic,
		Module: permissions.ModuleTelephonic,
		Member: func(c *types.Candidate, _ Env) bool {
			return c.ShortlistingStatus == types.ShortlistApproved && !c.TelephonicStatus.Final()
		},
	},
	StageOwnerReview: {
		Name:   StageOwnerReview,
		Module: permissions.ModuleOwnerReview,
		Member: func(c *types.Candidate, env Env) bool {
			if c.TelephonicStatus != types.TelephonicRecommended {
				return false
			}
			return c.OwnerStatus == "" || (c.OwnerStatus == types.OwnerHold && env.Hold != config.HoldTerminal)
		},
	},
	StageOnHold: {
		Name:   StageOnHold,
		Module: permissions.ModuleOwnerReview,
		Member: func(c *types.Candidate, _ Env) bool {
			return c.OwnerStatus == types.OwnerHold
		},
	},
	StageSchedule: {
		Name:   StageSchedule,
		Module: permissions.ModuleSchedule,
		Member: func(c *types.Candidate, _ Env) bool {
			return c.OwnerStatus == types.OwnerApproved && c.WalkInStatus != types.WalkInInformed
		},
	},
	StageWalkIn: {
		Name:   StageWalkIn,
		Module: permissions.ModuleWalkins,
		Member: func(c *types.Candidate, env Env) bool {
			return c.WalkInStatus == types.WalkInInformed && c.InterviewDate == env.Today
		},
	},
}

// StageOrder lists queues in pipeline order.
var StageOrder = []Stage{
	StageShortlisting,
	StageTelephonic,
	StageOwnerReview,
	StageOnHold,
	StageSchedule,
	StageWalkIn,
}

// ParseStage reports whether s names a known queue.
func ParseStage(s string) (Stage, bool) {
	st := Stage(s)
	_, ok := StageRegistry[st]
	return st, ok
}

// InQueue reports whether c belongs to the stage's queue. Rejected
// candidates are in no queue.
func InQueue(stage Stage, c *types.Candidate, env Env) bool {
	def, ok := StageRegistry[stage]
	if !ok || c.Rejected() {
		return false
	}
	return def.Member(c, env)
}
