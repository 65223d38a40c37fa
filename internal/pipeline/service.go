// Package pipeline moves candidates through the screening stages:
// shortlisting, telephonic screening, owner review, scheduling and the
// walk-in interview. Queues are pure filters over the candidate collection
// evaluated at read time; every decision validates before it mutates and
// recomputes the derived status.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/jonathan/hrms/internal/accesslink"
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/intake"
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/store"
	"github.com/jonathan/hrms/internal/types"
)

// Sync service action names.
const (
	ActionUpload      = "uploadCandidates"
	ActionShortlist   = "shortlistCandidate"
	ActionTelephonic  = "recordTelephonic"
	ActionOwnerReview = "ownerReview"
	ActionSchedule    = "scheduleInterview"
	ActionLink        = "generateInterviewLink"
	ActionHRInterview = "recordHRInterview"
	ActionTestMarks   = "recordTestMarks"
	ActionChangeRole  = "updateCandidateRole"
)

// Options configures a Service.
type Options struct {
	HoldPolicy           config.HoldPolicy
	UploadLimit          int
	DefaultInterviewTime string
	Company              Company
	Location             *time.Location // decides "today" for walk-ins
}

// OptionsFromConfig copies the pipeline settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HoldPolicy:           cfg.HoldPolicy,
		UploadLimit:          cfg.UploadLimit,
		DefaultInterviewTime: cfg.DefaultInterviewTime,
		Company:              Company{Name: cfg.CompanyName, Address: cfg.CompanyAddress},
		Location:             cfg.Location(),
	}
}

// Service runs candidate pipeline decisions against a store.
type Service struct {
	store  *store.Store
	perms  permissions.Checker
	links  *accesslink.Issuer
	parser *intake.Parser
	opts   Options
}

// NewService creates a pipeline service. A nil checker allows everything.
// links may be nil, in which case MarkAppeared fails.
func NewService(s *store.Store, perms permissions.Checker, links *accesslink.Issuer, opts Options) *Service {
	if perms == nil {
		perms = permissions.AllowAll
	}
	def := config.Default()
	if opts.HoldPolicy == "" {
		opts.HoldPolicy = def.HoldPolicy
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = def.UploadLimit
	}
	if opts.DefaultInterviewTime == "" {
		opts.DefaultInterviewTime = def.DefaultInterviewTime
	}
	if opts.Company.Name == "" {
		opts.Company.Name = def.CompanyName
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{store: s, perms: perms, links: links, parser: intake.NewParser(), opts: opts}
}

// Env returns the queue evaluation context for the current instant.
func (s *Service) Env() Env {
	return Env{
		Hold:  s.opts.HoldPolicy,
		Today: s.store.Now().In(s.opts.Location).Format(types.DateLayout),
	}
}

// Queue yields the candidates currently in a stage's queue, narrowed by f.
// Membership is decided when the sequence is ranged over.
func (s *Service) Queue(stage Stage, f types.CandidateFilter) iter.Seq[types.Candidate] {
	return func(yield func(types.Candidate) bool) {
		env := s.Env()
		for c := range s.store.Candidates() {
			if !InQueue(stage, &c, env) || !f.Match(&c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Candidates yields every candidate matching f regardless of stage.
func (s *Service) Candidates(f types.CandidateFilter) iter.Seq[types.Candidate] {
	return func(yield func(types.Candidate) bool) {
		for c := range s.store.Candidates() {
			if !f.Match(&c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Get returns one candidate.
func (s *Service) Get(id string) (types.Candidate, error) {
	return s.store.Candidate(id)
}

// Upload parses a batch of CV filenames and stores one candidate per file
// against a Valid requirement. A single malformed filename fails the batch.
func (s *Service) Upload(ctx context.Context, actor types.Actor, requirementID string, filenames []string) ([]types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleCandidates, permissions.Create); err != nil {
		return nil, err
	}
	req, err := s.store.Requirement(requirementID)
	if err != nil {
		return nil, err
	}
	if req.Status != types.RequirementValid {
		return nil, &types.InvalidTransitionError{
			Kind:   store.KindRequirement,
			ID:     req.ID,
			Action: "upload candidates",
			From:   string(req.Status),
		}
	}
	if len(filenames) == 0 {
		return nil, &types.ValidationError{Field: "files", Message: "at least one file is required"}
	}
	if len(filenames) > s.opts.UploadLimit {
		return nil, &types.ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("at most %d files per upload, got %d", s.opts.UploadLimit, len(filenames)),
		}
	}

	results := s.parser.ParseBatch(filenames)
	if err := intake.BatchError(results); err != nil {
		return nil, err
	}

	now := s.store.Now()
	batch := make([]types.Candidate, 0, len(results))
	for _, r := range results {
		batch = append(batch, types.Candidate{
			ID:            store.NewCandidateID(),
			RequirementID: req.ID,
			Name:          r.Candidate.Name,
			Mobile:        r.Candidate.Mobile,
			Source:        r.Candidate.Source,
			SourceLabel:   r.Candidate.SourceLabel,
			CurrentRole:   req.JobRole,
			SourceFile:    r.Candidate.Filename,
			UploadedBy:    actor.Email,
			UploadDate:    now,
		})
	}

	return s.store.InsertCandidates(ctx, batch, store.Mutation{
		Action: ActionUpload,
		Actor:  actor,
		Detail: fmt.Sprintf("%d candidates for %s", len(batch), req.ID),
		Fields: map[string]any{
			"requirementId": req.ID,
			"jobRole":       req.JobRole,
			"candidates":    batch,
		},
	})
}

// Shortlist records the CV shortlisting decision.
func (s *Service) Shortlist(ctx context.Context, actor types.Actor, id string, d types.ShortlistDecision) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleShortlisting, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	d.Reason = strings.TrimSpace(d.Reason)
	if err := d.Validate(); err != nil {
		return types.Candidate{}, err
	}

	m := store.Mutation{
		Action: ActionShortlist,
		Actor:  actor,
		Detail: detail(string(d.Decision), d.Reason),
		Fields: map[string]any{"candidateId": id, "decision": d.Decision, "reason": d.Reason},
	}
	return s.decide(ctx, StageShortlisting, id, "shortlist", m, func(c *types.Candidate) error {
		c.ShortlistingStatus = d.Decision
		c.ShortlistingReason = d.Reason
		return nil
	})
}

// RecordTelephonic records a telephonic screening call. Call Back and Not
// Reachable leave the candidate in the telephonic queue.
func (s *Service) RecordTelephonic(ctx context.Context, actor types.Actor, id string, r types.TelephonicResult) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleTelephonic, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if err := r.Validate(); err != nil {
		return types.Candidate{}, err
	}

	m := store.Mutation{
		Action: ActionTelephonic,
		Actor:  actor,
		Detail: detail(string(r.Status), r.Reason),
		Fields: map[string]any{
			"candidateId":        id,
			"status":             r.Status,
			"communicationMarks": r.CommunicationMarks,
			"experienceMarks":    r.ExperienceMarks,
			"reason":             r.Reason,
		},
	}
	return s.decide(ctx, StageTelephonic, id, "record telephonic", m, func(c *types.Candidate) error {
		c.TelephonicStatus = r.Status
		c.TelephonicReason = r.Reason
		c.CommunicationMarks = cloneInt(r.CommunicationMarks)
		c.ExperienceMarks = cloneInt(r.ExperienceMarks)
		return nil
	})
}

// OwnerReview records the owners' decision. An approval without a time gets
// the configured default interview time.
func (s *Service) OwnerReview(ctx context.Context, actor types.Actor, id string, d types.OwnerDecision) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleOwnerReview, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	d.Reason = strings.TrimSpace(d.Reason)
	if err := d.Validate(); err != nil {
		return types.Candidate{}, err
	}
	if d.Decision == types.OwnerApproved && d.InterviewTime == "" {
		d.InterviewTime = s.opts.DefaultInterviewTime
	}

	m := store.Mutation{
		Action: ActionOwnerReview,
		Actor:  actor,
		Detail: detail(string(d.Decision), d.Reason),
		Fields: map[string]any{
			"candidateId":   id,
			"decision":      d.Decision,
			"interviewDate": d.InterviewDate,
			"interviewTime": d.InterviewTime,
			"reason":        d.Reason,
		},
	}
	return s.decide(ctx, StageOwnerReview, id, "owner review", m, func(c *types.Candidate) error {
		c.OwnerStatus = d.Decision
		c.OwnerReason = d.Reason
		if d.Decision == types.OwnerApproved {
			c.InterviewDate = d.InterviewDate
			c.InterviewTime = d.InterviewTime
		}
		return nil
	})
}

// ScheduleResult is the outcome of a schedule call.
type ScheduleResult struct {
	Candidate types.Candidate `json:"candidate"`
	Message   string          `json:"message,omitempty"`
}

// Schedule records the result of the call informing a candidate of the
// interview slot. Once the candidate is Informed the invitation text is
// returned for sending.
func (s *Service) Schedule(ctx context.Context, actor types.Actor, id string, call types.ScheduleCall) (ScheduleResult, error) {
	if err := s.perms.Require(actor, permissions.ModuleSchedule, permissions.Edit); err != nil {
		return ScheduleResult{}, err
	}
	if err := call.Validate(); err != nil {
		return ScheduleResult{}, err
	}

	m := store.Mutation{
		Action: ActionSchedule,
		Actor:  actor,
		Detail: string(call.Status),
		Fields: map[string]any{"candidateId": id, "status": call.Status},
	}
	c, err := s.decide(ctx, StageSchedule, id, "schedule", m, func(c *types.Candidate) error {
		c.WalkInStatus = call.Status
		return nil
	})
	if err != nil {
		return ScheduleResult{}, err
	}

	res := ScheduleResult{Candidate: c}
	if c.WalkInStatus == types.WalkInInformed {
		res.Message = InvitationMessage(&c, s.opts.Company)
	}
	return res, nil
}

// InvitationFor renders the invitation for an already scheduled candidate.
func (s *Service) InvitationFor(id string) (string, error) {
	c, err := s.store.Candidate(id)
	if err != nil {
		return "", err
	}
	if c.OwnerStatus != types.OwnerApproved || c.InterviewDate == "" {
		return "", &types.InvalidTransitionError{
			Kind:   store.KindCandidate,
			ID:     id,
			Action: "render invitation",
			From:   string(c.Status),
		}
	}
	return InvitationMessage(&c, s.opts.Company), nil
}

// AppearedResult carries the issued interview link.
type AppearedResult struct {
	Candidate types.Candidate  `json:"candidate"`
	Link      *accesslink.Link `json:"link"`
}

// MarkAppeared records that a candidate walked in today and issues the
// time-boxed interview link.
func (s *Service) MarkAppeared(ctx context.Context, actor types.Actor, id string) (AppearedResult, error) {
	if err := s.perms.Require(actor, permissions.ModuleWalkins, permissions.Edit); err != nil {
		return AppearedResult{}, err
	}
	if s.links == nil {
		return AppearedResult{}, fmt.Errorf("interview links are not configured")
	}

	current, err := s.store.Candidate(id)
	if err != nil {
		return AppearedResult{}, err
	}
	if !InQueue(StageWalkIn, &current, s.Env()) {
		return AppearedResult{}, notInQueue(&current, "mark appeared")
	}
	link, err := s.links.Issue(current.ID, current.RequirementID)
	if err != nil {
		return AppearedResult{}, fmt.Errorf("failed to issue interview link: %w", err)
	}

	m := store.Mutation{
		Action: ActionLink,
		Actor:  actor,
		Detail: "link expires " + link.ExpiresAt.Format("2006-01-02 15:04"),
		Fields: map[string]any{"candidateId": id, "link": link.URL, "expiresAt": link.ExpiresAt},
	}
	c, err := s.decide(ctx, StageWalkIn, id, "mark appeared", m, func(c *types.Candidate) error {
		issued := link.IssuedAt
		if c.AppearedAt == nil {
			c.AppearedAt = &issued
		}
		c.InterviewLinkIssuedAt = &issued
		return nil
	})
	if err != nil {
		return AppearedResult{}, err
	}
	return AppearedResult{Candidate: c, Link: link}, nil
}

// RecordHRInterview stores the HR interview marks for a walk-in candidate.
func (s *Service) RecordHRInterview(ctx context.Context, actor types.Actor, id string, r types.HRInterviewResult) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleWalkins, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	if err := r.Validate(); err != nil {
		return types.Candidate{}, err
	}

	m := store.Mutation{
		Action: ActionHRInterview,
		Actor:  actor,
		Detail: fmt.Sprintf("%d/%d", r.Marks, types.HRMarksMax),
		Fields: map[string]any{"candidateId": id, "marks": r.Marks},
	}
	return s.decide(ctx, StageWalkIn, id, "record HR interview", m, func(c *types.Candidate) error {
		marks := r.Marks
		c.HRInterviewMarks = &marks
		return nil
	})
}

// RecordTestMarks stores marks for one of the tests offered for the
// candidate's current role.
func (s *Service) RecordTestMarks(ctx context.Context, actor types.Actor, id string, r types.TestResult) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleWalkins, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	if err := r.Validate(); err != nil {
		return types.Candidate{}, err
	}

	m := store.Mutation{
		Action: ActionTestMarks,
		Actor:  actor,
		Detail: fmt.Sprintf("%s %d/%d", r.TestType, r.Marks, types.TestMarksMax),
		Fields: map[string]any{"candidateId": id, "testType": r.TestType, "marks": r.Marks},
	}
	return s.decide(ctx, StageWalkIn, id, "record test marks", m, func(c *types.Candidate) error {
		offered := TestTypesFor(c.CurrentRole)
		if !slices.Contains(offered, r.TestType) {
			return &types.ValidationError{
				Field:   "testType",
				Message: fmt.Sprintf("%q is not offered for role %q (offered: %s)", r.TestType, c.CurrentRole, joinTests(offered)),
			}
		}
		c.SetTestMarks(r.TestType, r.Marks)
		return nil
	})
}

// ChangeRole moves a candidate to a different job role. The role decides
// which walk-in tests are offered.
func (s *Service) ChangeRole(ctx context.Context, actor types.Actor, id, role string) (types.Candidate, error) {
	if err := s.perms.Require(actor, permissions.ModuleCandidates, permissions.Edit); err != nil {
		return types.Candidate{}, err
	}
	if actor.Role != types.RoleAdmin && actor.Role != types.RoleEA {
		return types.Candidate{}, &types.ForbiddenError{
			Actor:  actor.String(),
			Action: "change candidate role",
			Reason: "only admin and ea change candidate roles",
		}
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return types.Candidate{}, &types.ValidationError{Field: "newRole", Message: "is required"}
	}

	m := store.Mutation{
		Action: ActionChangeRole,
		Actor:  actor,
		Detail: role,
		Fields: map[string]any{"candidateId": id, "newRole": role},
	}
	return s.store.UpdateCandidate(ctx, id, m, func(c *types.Candidate) error {
		if c.Rejected() {
			return notInQueue(c, "change role")
		}
		c.CurrentRole = role
		return nil
	})
}

// decide applies fn when the candidate is in the stage's queue. The check
// runs under the store lock so concurrent decisions on one candidate
// cannot both pass it.
func (s *Service) decide(ctx context.Context, stage Stage, id, action string, m store.Mutation, fn func(*types.Candidate) error) (types.Candidate, error) {
	env := s.Env()
	return s.store.UpdateCandidate(ctx, id, m, func(c *types.Candidate) error {
		if !InQueue(stage, c, env) {
			return notInQueue(c, action)
		}
		return fn(c)
	})
}

func notInQueue(c *types.Candidate, action string) error {
	return &types.InvalidTransitionError{
		Kind:   store.KindCandidate,
		ID:     c.ID,
		Action: action,
		From:   string(types.DeriveStatus(c)),
	}
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func detail(outcome, reason string) string {
	if reason == "" {
		return outcome
	}
	return outcome + ": " + reason
}

func joinTests(list []types.TestType) string {
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
