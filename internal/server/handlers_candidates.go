package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/pipeline"
	"github.com/jonathan/hrms/internal/types"
)

// handleListCandidates lists candidates matching the query filter.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleCandidates, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	f := types.CandidateFilterFromMap(queryMap(r))
	list := slices.Collect(s.deps.Pipeline.Candidates(f))
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"candidates": list,
		"total":      len(list),
	})
}

// handleGetCandidate retrieves a candidate by ID.
func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleCandidates, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	c, err := s.deps.Pipeline.Get(r.PathValue("id"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

// handleQueue lists the candidates currently in a stage queue.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	stage, known := pipeline.ParseStage(r.PathValue("stage"))
	if !known {
		s.errorResponse(w, http.StatusNotFound, "Unknown stage: "+r.PathValue("stage"))
		return
	}
	def := pipeline.StageRegistry[stage]
	if err := s.deps.Permissions.Require(actor, def.Module, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	f := types.CandidateFilterFromMap(queryMap(r))
	list := slices.Collect(s.deps.Pipeline.Queue(stage, f))
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"stage":      stage,
		"candidates": list,
		"total":      len(list),
	})
}

// decision decodes a JSON body of type T and applies it to the candidate
// named in the path.
func decision[T any, R any](s *Server, w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, actor types.Actor, id string, body T) (R, error)) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var body T
	if err := decodeJSON(r, &body); err != nil {
		s.failWith(w, err)
		return
	}

	res, err := apply(r.Context(), actor, r.PathValue("id"), body)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleShortlist records the CV shortlisting decision.
func (s *Server) handleShortlist(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.Shortlist)
}

// handleTelephonic records the telephonic screening outcome.
func (s *Server) handleTelephonic(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.RecordTelephonic)
}

// handleOwnerReview records the owner's decision.
func (s *Server) handleOwnerReview(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.OwnerReview)
}

// handleSchedule records the schedule call and returns the invitation text
// once the candidate is informed.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.Schedule)
}

// handleHRInterview records HR interview marks.
func (s *Server) handleHRInterview(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.RecordHRInterview)
}

// handleTestMarks records marks for one test.
func (s *Server) handleTestMarks(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, s.deps.Pipeline.RecordTestMarks)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// handleChangeRole moves a candidate onto another job role.
func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	decision(s, w, r, func(ctx context.Context, actor types.Actor, id string, body changeRoleRequest) (types.Candidate, error) {
		return s.deps.Pipeline.ChangeRole(ctx, actor, id, body.Role)
	})
}

// handleAppeared marks a walk-in candidate as appeared and returns the
// interview link.
func (s *Server) handleAppeared(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	res, err := s.deps.Pipeline.MarkAppeared(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleInvitation renders the invitation text for a scheduled candidate.
func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleSchedule, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	id := r.PathValue("id")
	msg, err := s.deps.Pipeline.InvitationFor(id)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"candidateId": id,
		"message":     msg,
	})
}

// handleVerifyLink checks an interview link token. It is public: the
// candidate opens the link without a session.
func (s *Server) handleVerifyLink(w http.ResponseWriter, r *http.Request) {
	if s.deps.Links == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Interview links are not configured")
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		s.errorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	claims, err := s.deps.Links.Verify(token)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Invalid or expired interview link")
		return
	}

	resp := map[string]any{
		"candidateId":   claims.CandidateID,
		"requirementId": claims.RequirementID,
	}
	if claims.ExpiresAt != nil {
		resp["expiresAt"] = claims.ExpiresAt.Time
	}
	if c, err := s.deps.Pipeline.Get(claims.CandidateID); err == nil {
		resp["name"] = c.Name
		resp["jobRole"] = c.CurrentRole
		resp["tests"] = pipeline.TestTypesFor(c.CurrentRole)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
