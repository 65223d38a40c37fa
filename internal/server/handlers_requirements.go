package server

import (
	"net/http"
	"slices"

	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/requirements"
	"github.com/jonathan/hrms/internal/types"
)

// handleListRequirements lists requirements matching the query filter.
func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleRequirements, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	f := types.RequirementFilterFromMap(queryMap(r))
	list := slices.Collect(s.deps.Requirements.List(f))
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"requirements": list,
		"total":        len(list),
	})
}

// handleRaiseRequirement raises a new requirement.
func (s *Server) handleRaiseRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var fields types.RequirementFields
	if err := decodeJSON(r, &fields); err != nil {
		s.failWith(w, err)
		return
	}

	req, err := s.deps.Requirements.Raise(r.Context(), actor, fields)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, req)
}

// handleGetRequirement retrieves a requirement by ID.
func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleRequirements, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	req, err := s.deps.Requirements.Get(r.PathValue("id"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

// handleResubmitRequirement edits a sent back requirement and raises it again.
func (s *Server) handleResubmitRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var fields types.RequirementFields
	if err := decodeJSON(r, &fields); err != nil {
		s.failWith(w, err)
		return
	}

	req, err := s.deps.Requirements.Resubmit(r.Context(), actor, r.PathValue("id"), fields)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

// handleApproveRequirement marks a raised requirement valid.
func (s *Server) handleApproveRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	req, err := s.deps.Requirements.Approve(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

type sendBackRequest struct {
	Remark string `json:"remark"`
}

// handleSendBackRequirement returns a raised requirement to its author.
func (s *Server) handleSendBackRequirement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var body sendBackRequest
	if err := decodeJSON(r, &body); err != nil {
		s.failWith(w, err)
		return
	}

	req, err := s.deps.Requirements.SendBack(r.Context(), actor, r.PathValue("id"), body.Remark)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

// handleRequirementDetails returns the shareable job details text.
func (s *Server) handleRequirementDetails(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleRequirements, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	req, err := s.deps.Requirements.Get(r.PathValue("id"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"requirementId": req.ID,
		"text":          requirements.JobDetails(req),
	})
}

type uploadRequest struct {
	Files []string `json:"files"`
}

// handleUploadCandidates creates candidates from CV filenames.
func (s *Server) handleUploadCandidates(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var body uploadRequest
	if err := decodeJSON(r, &body); err != nil {
		s.failWith(w, err)
		return
	}

	created, err := s.deps.Pipeline.Upload(r.Context(), actor, r.PathValue("id"), body.Files)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"candidates": created,
		"total":      len(created),
	})
}
