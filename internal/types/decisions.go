//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Mark ranges.
const (
	ScreeningMarksMax = 10
	HRMarksMax        = 10
	TestMarksMax      = 100
)

// ShortlistDecision is the shortlisting form.
type ShortlistDecision struct {
	Decision ShortlistingStatus `json:"decision"`
	Reason   string             `json:"reason,omitempty"`
}

// Validate checks the decision value and the rejection reason.
func (d *ShortlistDecision) Validate() error {
	if !d.Decision.Valid() {
		return invalidChoice("decision", string(d.Decision), ShortlistApproved, ShortlistRejected)
	}
	if d.Decision == ShortlistRejected {
		return RequireReason("reason", d.Reason)
	}
	return nil
}

// TelephonicResult is the telephonic screening form. Marks are optional
// except on a recommendation.
type TelephonicResult struct {
	Status             TelephonicStatus `json:"status"`
	CommunicationMarks *int             `json:"communicationMarks,omitempty"`
	ExperienceMarks    *int             `json:"experienceMarks,omitempty"`
	Reason             string           `json:"reason,omitempty"`
}

// Validate checks the outcome, the 0-10 mark range and the rejection reason.
// A recommendation needs both marks.
func (r *TelephonicResult) Validate() error {
	if !r.Status.Valid() {
		return invalidChoice("status", string(r.Status),
			TelephonicRecommended, TelephonicReject, TelephonicCallBack, TelephonicNotReachable)
	}
	marks := []struct {
		field string
		v     *int
	}{
		{"communicationMarks", r.CommunicationMarks},
		{"experienceMarks", r.ExperienceMarks},
	}
	for _, m := range marks {
		if m.v == nil {
			if r.Status == TelephonicRecommended {
				return &ValidationError{Field: m.field, Message: "is required"}
			}
			continue
		}
		if err := CheckMarks(m.field, *m.v, 0, 10); err != nil {
			return err
		}
	}
	if r.Status == TelephonicReject {
		return RequireReason("reason", r.Reason)
	}
	return nil
}

// OwnerDecision is the owner review form.
type OwnerDecision struct {
	Decision      OwnerStatus `json:"decision"`
	InterviewDate string      `json:"interviewDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	InterviewTime string      `json:"interviewTime,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

// Validate checks the decision and its dependent fields. An approval needs an
// interview date; rejection and hold need a reason.
func (d *OwnerDecision) Validate() error {
	if !d.Decision.Valid() {
		return invalidChoice("decision", string(d.Decision), OwnerApproved, OwnerRejected, OwnerHold)
	}
	d.InterviewDate = strings.TrimSpace(d.InterviewDate)
	d.InterviewTime = strings.TrimSpace(d.InterviewTime)
	if err := validateStruct(d); err != nil {
		return err
	}
	switch d.Decision {
	case OwnerApproved:
		if d.InterviewDate == "" {
			return &ValidationError{Field: "interviewDate", Message: "is required"}
		}
	case OwnerRejected, OwnerHold:
		return RequireReason("reason", d.Reason)
	}
	return nil
}

// ScheduleCall is the schedule form.
type ScheduleCall struct {
	Status WalkInStatus `json:"status"`
}

// Validate checks the call status.
func (s *ScheduleCall) Validate() error {
	if !s.Status.Valid() {
		return invalidChoice("status", string(s.Status), WalkInInformed, WalkInNotReachable, WalkInCallLater)
	}
	return nil
}

// HRInterviewResult is the HR interview form.
type HRInterviewResult struct {
	Marks int `json:"marks" validate:"min=0,max=10"`
}

// Validate checks the mark range.
func (r *HRInterviewResult) Validate() error {
	return validateStruct(r)
}

// TestResult is the walk-in test form.
type TestResult struct {
	TestType TestType `json:"testType" validate:"required"`
	Marks    int      `json:"marks" validate:"min=0,max=100"`
}

// Validate checks presence and mark range. Whether the type is offered for
// the candidate's role is checked by the pipeline.
func (r *TestResult) Validate() error {
	r.TestType = TestType(strings.ToLower(strings.TrimSpace(string(r.TestType))))
	return validateStruct(r)
}

func invalidChoice[T ~string](field, got string, allowed ...T) error {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of [%s], got %q", strings.Join(names, ", "), got),
	}
}
