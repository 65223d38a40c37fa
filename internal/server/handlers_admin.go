package server

import (
	"net/http"

	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/reports"
	"github.com/jonathan/hrms/internal/types"
)

// handleListTemplates lists job templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleTemplates, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	list := s.deps.Templates.List()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"templates": list,
		"total":     len(list),
	})
}

// handleGetTemplate retrieves the template for a job role.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleTemplates, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}

	t, err := s.deps.Templates.Get(r.PathValue("role"))
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, t)
}

// handleSaveTemplate creates or replaces the template for a job role.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var t types.JobTemplate
	if err := decodeJSON(r, &t); err != nil {
		s.failWith(w, err)
		return
	}
	t.JobRole = r.PathValue("role")

	saved, err := s.deps.Templates.Save(r.Context(), actor, t)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, saved)
}

// handleListPermissions returns the caller's own grants, or with
// ?module=... every role's grant for that module.
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("module")
	if name == "" {
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"role":   actor.Role,
			"grants": s.deps.Permissions.ForRole(actor.Role),
		})
		return
	}

	if err := s.deps.Permissions.Require(actor, permissions.ModulePermissions, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}
	module, known := permissions.ParseModule(name)
	if !known {
		s.errorResponse(w, http.StatusBadRequest, "Unknown module: "+name)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"module": module,
		"grants": s.deps.Permissions.ForModule(module),
	})
}

type setPermissionRequest struct {
	Module     string `json:"module"`
	Role       string `json:"role"`
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
}

// handleSetPermission changes one capability in the matrix.
func (s *Server) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModulePermissions, permissions.Edit); err != nil {
		s.failWith(w, err)
		return
	}
	var body setPermissionRequest
	if err := decodeJSON(r, &body); err != nil {
		s.failWith(w, err)
		return
	}

	capability, known := permissions.ParseCapability(body.Capability)
	if !known {
		s.failWith(w, &types.ValidationError{Field: "capability", Message: "unknown capability " + body.Capability})
		return
	}
	module := permissions.Module(body.Module)
	if err := s.deps.Permissions.Set(module, types.Role(body.Role), capability, body.Allowed); err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"module": module,
		"grants": s.deps.Permissions.ForModule(module),
	})
}

// handleStats returns dashboard counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	st, err := s.deps.Reports.Stats(actor)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, st)
}

// handleAudit returns the audit log newest first.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	entries, err := s.deps.Reports.AuditLog(actor, reports.AuditFilter{
		Kind:     q.Get("kind"),
		RecordID: q.Get("recordId"),
		Actor:    q.Get("actor"),
		Limit:    parseQueryInt(r, "limit", reports.DefaultAuditLimit, 1000),
	})
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// handleSyncStatus reports the replication queue.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if err := s.deps.Permissions.Require(actor, permissions.ModuleReports, permissions.View); err != nil {
		s.failWith(w, err)
		return
	}
	if s.deps.Outbox == nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"enabled":     true,
		"stats":       s.deps.Outbox.Stats(),
		"deadLetters": s.deps.Outbox.DeadLetters(),
	})
}

// handleSyncRetry moves dead letters back onto the queue. Admin only.
func (s *Server) handleSyncRetry(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if actor.Role != types.RoleAdmin {
		s.failWith(w, &types.ForbiddenError{Actor: actor.String(), Action: "retry replication", Reason: "admin only"})
		return
	}
	if s.deps.Outbox == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Replication is disabled")
		return
	}

	n := s.deps.Outbox.Requeue()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"requeued": n,
		"stats":    s.deps.Outbox.Stats(),
	})
}
