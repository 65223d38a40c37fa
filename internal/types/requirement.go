// Package types provides the records and request shapes shared by the
// requirement lifecycle, the candidate pipeline and their collaborators.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// RequirementStatus is the review state of a job requisition.
type RequirementStatus string

const (
	RequirementRaised   RequirementStatus = "Raised"
	RequirementValid    RequirementStatus = "Valid"
	RequirementSentBack RequirementStatus = "Sent Back"

	// legacyPendingReview is an older label for Raised still found in
	// cached documents.
	legacyPendingReview = "Pending Review"
)

// RemarkApproved is the remark written on approval.
const RemarkApproved = "Approved"

// NormalizeRequirementStatus maps legacy vocabulary onto the canonical set.
// Unknown values are returned unchanged.
func NormalizeRequirementStatus(s string) RequirementStatus {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, legacyPendingReview) {
		return RequirementRaised
	}
	for _, known := range []RequirementStatus{RequirementRaised, RequirementValid, RequirementSentBack} {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	return RequirementStatus(trimmed)
}

// Requirement is a job requisition raised by a recruiter.
type Requirement struct {
	ID                    string            `json:"id"`
	JobRole               string            `json:"jobRole"`
	JobTitle              string            `json:"jobTitle"`
	RolesResponsibilities string            `json:"rolesResponsibilities"`
	MustHaveSkills        string            `json:"mustHaveSkills"`
	Shift                 string            `json:"shift"`
	PayScale              string            `json:"payScale"`
	Perks                 string            `json:"perks"`
	Note                  string            `json:"note,omitempty"`
	Remark                string            `json:"remark,omitempty"`
	Status                RequirementStatus `json:"status"`
	RaisedBy              string            `json:"raisedBy"`
	RaisedDate            time.Time         `json:"raisedDate"`
	ReviewedBy            string            `json:"reviewedBy,omitempty"`
	ReviewDate            *time.Time        `json:"reviewDate,omitempty"`
	ResubmittedDate       *time.Time        `json:"resubmittedDate,omitempty"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// RequirementFields holds the user-editable part of a requirement.
type RequirementFields struct {
	JobRole               string `json:"jobRole" validate:"required"`
	JobTitle              string `json:"jobTitle" validate:"required"`
	RolesResponsibilities string `json:"rolesResponsibilities" validate:"required"`
	MustHaveSkills        string `json:"mustHaveSkills" validate:"required"`
	Shift                 string `json:"shift" validate:"required"`
	PayScale              string `json:"payScale" validate:"required"`
	Perks                 string `json:"perks" validate:"required"`
	Note                  string `json:"note,omitempty"`
}

// Validate checks required-field presence.
func (f *RequirementFields) Validate() error {
	f.trim()
	return validateStruct(f)
}

func (f *RequirementFields) trim() {
	f.JobRole = strings.TrimSpace(f.JobRole)
	f.JobTitle = strings.TrimSpace(f.JobTitle)
	f.RolesResponsibilities = strings.TrimSpace(f.RolesResponsibilities)
	f.MustHaveSkills = strings.TrimSpace(f.MustHaveSkills)
	f.Shift = strings.TrimSpace(f.Shift)
	f.PayScale = strings.TrimSpace(f.PayScale)
	f.Perks = strings.TrimSpace(f.Perks)
}

// Prefill copies template values into empty fields.
func (f *RequirementFields) Prefill(t *JobTemplate) {
	if t == nil {
		return
	}
	if f.JobTitle == "" {
		f.JobTitle = t.JobTitle
	}
	if f.RolesResponsibilities == "" {
		f.RolesResponsibilities = t.RolesResponsibilities
	}
	if f.MustHaveSkills == "" {
		f.MustHaveSkills = t.MustHaveSkills
	}
	if f.Shift == "" {
		f.Shift = t.Shift
	}
	if f.PayScale == "" {
		f.PayScale = t.PayScale
	}
	if f.Perks == "" {
		f.Perks = t.Perks
	}
}

// Apply writes the fields onto r.
func (f RequirementFields) Apply(r *Requirement) {
	r.JobRole = f.JobRole
	r.JobTitle = f.JobTitle
	r.RolesResponsibilities = f.RolesResponsibilities
	r.MustHaveSkills = f.MustHaveSkills
	r.Shift = f.Shift
	r.PayScale = f.PayScale
	r.Perks = f.Perks
	r.Note = f.Note
}

// RequirementFilter is a permissive partial-match predicate. Empty fields
// match everything.
type RequirementFilter struct {
	Status        RequirementStatus `json:"status,omitempty"`
	RequirementID string            `json:"requirementId,omitempty"`
	RaisedBy      string            `json:"raisedBy,omitempty"`
}

// RequirementFilterFromMap builds a filter from loosely keyed input such as
// query parameters. Keys it does not know are ignored.
func RequirementFilterFromMap(m map[string]string) RequirementFilter {
	f := RequirementFilter{
		RequirementID: strings.TrimSpace(m["requirementId"]),
		RaisedBy:      strings.TrimSpace(m["raisedBy"]),
	}
	if s := strings.TrimSpace(m["status"]); s != "" {
		f.Status = NormalizeRequirementStatus(s)
	}
	return f
}

// Match reports whether r satisfies every non-empty field of f.
func (f RequirementFilter) Match(r *Requirement) bool {
	if f.Status != "" && NormalizeRequirementStatus(string(f.Status)) != r.Status {
		return false
	}
	if f.RequirementID != "" && f.RequirementID != r.ID {
		return false
	}
	if f.RaisedBy != "" && !strings.EqualFold(f.RaisedBy, r.RaisedBy) {
		return false
	}
	return true
}

// JobTemplate holds default requirement text for a job role.
type JobTemplate struct {
	JobRole               string    `json:"jobRole" validate:"required"`
	JobTitle              string    `json:"jobTitle" validate:"required"`
	RolesResponsibilities string    `json:"rolesResponsibilities"`
	MustHaveSkills        string    `json:"mustHaveSkills"`
	Shift                 string    `json:"shift"`
	PayScale              string    `json:"payScale"`
	Perks                 string    `json:"perks"`
	UpdatedBy             string    `json:"updatedBy,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the template has a role and title.
func (t *JobTemplate) Validate() error {
	t.JobRole = strings.TrimSpace(t.JobRole)
	t.JobTitle = strings.TrimSpace(t.JobTitle)
	return validateStruct(t)
}
