// Package permissions holds the role by module capability matrix.
// Admins are always allowed; every other role is checked against the matrix.
package permissions

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/jonathan/hrms/internal/cache"
	"github.com/jonathan/hrms/internal/schemas"
	"github.com/jonathan/hrms/internal/types"
)

// Module names a functional area guarded by the matrix.
type Module string

const (
	ModuleDashboard    Module = "dashboard"
	ModuleRequirements Module = "requirements"
	ModuleCandidates   Module = "candidates"
	ModuleShortlisting Module = "shortlisting"
	ModuleTelephonic   Module = "telephonic"
	ModuleOwnerReview  Module = "owner-review"
	ModuleSchedule     Module = "schedule"
	ModuleWalkins      Module = "walkins"
	ModuleTemplates    Module = "templates"
	ModuleUsers        Module = "users"
	ModulePermissions  Module = "permissions"
	ModuleReports      Module = "reports"
)

// Modules lists every module in menu order.
var Modules = []Module{
	ModuleDashboard, ModuleRequirements, ModuleCandidates, ModuleShortlisting,
	ModuleTelephonic, ModuleOwnerReview, ModuleSchedule, ModuleWalkins,
	ModuleTemplates, ModuleUsers, ModulePermissions, ModuleReports,
}

// Capability is one of view, create, edit, delete.
type Capability string

const (
	View   Capability = "view"
	Create Capability = "create"
	Edit   Capability = "edit"
	Delete Capability = "delete"
)

// Grant is the capability set of one role on one module.
type Grant struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// Has reports whether the grant includes c.
func (g Grant) Has(c Capability) bool {
	switch c {
	case View:
		return g.View
	case Create:
		return g.Create
	case Edit:
		return g.Edit
	case Delete:
		return g.Delete
	}
	return false
}

func (g *Grant) set(c Capability, allowed bool) {
	switch c {
	case View:
		g.View = allowed
	case Create:
		g.Create = allowed
	case Edit:
		g.Edit = allowed
	case Delete:
		g.Delete = allowed
	}
}

// Checker is the precondition services call before mutating.
type Checker interface {
	Require(actor types.Actor, module Module, c Capability) error
}

type allowAll struct{}

func (allowAll) Require(types.Actor, Module, Capability) error { return nil }

// AllowAll is a Checker that never refuses.
var AllowAll Checker = allowAll{}

type document map[Module]map[types.Role]Grant

// Matrix is the permission table. It is safe for concurrent use.
type Matrix struct {
	mu     sync.RWMutex
	grants document
	cache  cache.Cache
}

var (
	viewOnly  = Grant{View: true}
	viewEdit  = Grant{View: true, Edit: true}
	allGrants = Grant{View: true, Create: true, Edit: true, Delete: true}
)

// defaults gives reviewers (hr) the screening stages and requirement review,
// and recruiters (ea) requirement intake and candidate role changes. Owner
// review stays with admins.
func defaults() document {
	return document{
		ModuleDashboard:    {types.RoleEA: viewOnly, types.RoleHR: viewOnly},
		ModuleRequirements: {types.RoleEA: {View: true, Create: true}, types.RoleHR: viewEdit},
		ModuleCandidates:   {types.RoleEA: viewEdit, types.RoleHR: {View: true, Create: true}},
		ModuleShortlisting: {types.RoleHR: viewEdit},
		ModuleTelephonic:   {types.RoleHR: viewEdit},
		ModuleOwnerReview:  {types.RoleHR: viewOnly},
		ModuleSchedule:     {types.RoleHR: viewEdit},
		ModuleWalkins:      {types.RoleHR: viewEdit},
		ModuleTemplates:    {types.RoleEA: viewOnly, types.RoleHR: {View: true, Create: true, Edit: true}},
		ModuleReports:      {types.RoleEA: viewOnly, types.RoleHR: viewOnly},
	}
}

// New returns the default matrix, persisting changes to c when non-nil.
func New(c cache.Cache) *Matrix {
	return &Matrix{grants: defaults(), cache: c}
}

// Load reads the matrix from the cache, falling back to defaults when the
// document is absent or invalid. Grants in the document override defaults
// per module and role.
func Load(c cache.Cache) (*Matrix, error) {
	m := New(c)
	if c == nil {
		return m, nil
	}
	data, ok, err := c.Get(cache.KeyPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions: %w", err)
	}
	if !ok {
		return m, nil
	}
	if err := schemas.ValidateDocument(cache.KeyPermissions, data); err != nil {
		log.Printf("[permissions] warning: cached matrix is invalid, using defaults: %v", err)
		return m, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("[permissions] warning: cached matrix is unreadable, using defaults: %v", err)
		return m, nil
	}
	for mod, roles := range doc {
		if !knownModule(mod) {
			continue
		}
		if m.grants[mod] == nil {
			m.grants[mod] = map[types.Role]Grant{}
		}
		for role, g := range roles {
			if _, ok := types.ParseRole(string(role)); ok {
				m.grants[mod][role] = g
			}
		}
	}
	return m, nil
}

// Allowed reports whether role holds c on module.
func (m *Matrix) Allowed(role types.Role, module Module, c Capability) bool {
	if role == types.RoleAdmin {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[module][role].Has(c)
}

// Require fails with a ForbiddenError when the actor lacks c on module.
func (m *Matrix) Require(actor types.Actor, module Module, c Capability) error {
	if m.Allowed(actor.Role, module, c) {
		return nil
	}
	return &types.ForbiddenError{
		Actor:  actor.String(),
		Action: fmt.Sprintf("%s %s", c, module),
		Reason: fmt.Sprintf("role %q lacks %s on %s", actor.Role, c, module),
	}
}

// Grant returns the grant of role on module. Admin always gets every capability.
func (m *Matrix) Grant(role types.Role, module Module) Grant {
	if role == types.RoleAdmin {
		return allGrants
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[module][role]
}

// ForRole returns the role's grant on every module.
func (m *Matrix) ForRole(role types.Role) map[Module]Grant {
	out := make(map[Module]Grant, len(Modules))
	for _, mod := range Modules {
		out[mod] = m.Grant(role, mod)
	}
	return out
}

// ForModule returns every non-admin role's grant on module.
func (m *Matrix) ForModule(module Module) map[types.Role]Grant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[types.Role]Grant, len(types.Roles))
	for _, role := range types.Roles {
		if role == types.RoleAdmin {
			continue
		}
		out[role] = m.grants[module][role]
	}
	return out
}

// Set changes one capability and persists the matrix. Admin grants cannot
// be changed.
func (m *Matrix) Set(module Module, role types.Role, c Capability, allowed bool) error {
	if !knownModule(module) {
		return &types.ValidationError{Field: "module", Message: fmt.Sprintf("unknown module %q", module)}
	}
	parsed, ok := types.ParseRole(string(role))
	if !ok {
		return &types.ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	if parsed == types.RoleAdmin {
		return &types.ValidationError{Field: "role", Message: "admin permissions are fixed"}
	}
	switch c {
	case View, Create, Edit, Delete:
	default:
		return &types.ValidationError{Field: "capability", Message: fmt.Sprintf("unknown capability %q", c)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grants[module] == nil {
		m.grants[module] = map[types.Role]Grant{}
	}
	g := m.grants[module][parsed]
	g.set(c, allowed)
	m.grants[module][parsed] = g
	m.persistLocked()
	return nil
}

func (m *Matrix) persistLocked() {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(m.grants)
	if err != nil {
		log.Printf("[permissions] warning: failed to encode matrix: %v", err)
		return
	}
	if err := m.cache.Put(cache.KeyPermissions, data); err != nil {
		log.Printf("[permissions] warning: failed to write matrix: %v", err)
	}
}

// ParseModule validates a module name.
func ParseModule(s string) (Module, bool) {
	mod := Module(s)
	return mod, knownModule(mod)
}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, bool) {
	c := Capability(s)
	switch c {
	case View, Create, Edit, Delete:
		return c, true
	}
	return c, false
}

func knownModule(mod Module) bool {
	for _, known := range Modules {
		if known == mod {
			return true
		}
	}
	return false
}
