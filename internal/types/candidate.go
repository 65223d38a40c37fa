//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// CandidateStatus is the aggregate label derived from the stage outcomes.
type CandidateStatus string

const (
	CandidateUploaded    CandidateStatus = "Uploaded"
	CandidateInProcess   CandidateStatus = "In Process"
	CandidateScheduled   CandidateStatus = "Scheduled"
	CandidateInterviewed CandidateStatus = "Interviewed"
	CandidateOnHold      CandidateStatus = "On Hold"
	CandidateRejected    CandidateStatus = "Rejected"
)

// ShortlistingStatus is the outcome of CV shortlisting.
type ShortlistingStatus string

const (
	ShortlistApproved ShortlistingStatus = "Approved"
	ShortlistRejected ShortlistingStatus = "Rejected"
)

// Valid reports whether s is a known shortlisting decision.
func (s ShortlistingStatus) Valid() bool {
	return s == ShortlistApproved || s == ShortlistRejected
}

// TelephonicStatus is the outcome of the telephonic screening call.
type TelephonicStatus string

const (
	TelephonicRecommended  TelephonicStatus = "Recommended for Owners"
	TelephonicReject       TelephonicStatus = "Reject"
	TelephonicCallBack     TelephonicStatus = "Call Back"
	TelephonicNotReachable TelephonicStatus = "Not Reachable"
)

// Valid reports whether s is a known telephonic outcome.
func (s TelephonicStatus) Valid() bool {
	switch s {
	case TelephonicRecommended, TelephonicReject, TelephonicCallBack, TelephonicNotReachable:
		return true
	}
	return false
}

// Final reports whether the outcome closes the telephonic stage.
func (s TelephonicStatus) Final() bool {
	return s == TelephonicRecommended || s == TelephonicReject
}

// OwnerStatus is the owners' decision after reviewing screening results.
type OwnerStatus string

const (
	OwnerApproved OwnerStatus = "Approved"
	OwnerRejected OwnerStatus = "Rejected"
	OwnerHold     OwnerStatus = "Hold"
)

// Valid reports whether s is a known owner decision.
func (s OwnerStatus) Valid() bool {
	return s == OwnerApproved || s == OwnerRejected || s == OwnerHold
}

// WalkInStatus is the result of the call that informs a candidate of the
// interview slot.
type WalkInStatus string

const (
	WalkInInformed     WalkInStatus = "Informed"
	WalkInNotReachable WalkInStatus = "Not Reachable"
	WalkInCallLater    WalkInStatus = "Call Later"
)

// Valid reports whether s is a known call status.
func (s WalkInStatus) Valid() bool {
	return s == WalkInInformed || s == WalkInNotReachable || s == WalkInCallLater
}

// TestType names a walk-in test.
type TestType string

const (
	TestExcel TestType = "excel"
	TestTally TestType = "tally"
	TestVoice TestType = "voice"
)

// DateLayout is the layout of interviewDate.
const DateLayout = "2006-01-02"

// Candidate is a person tracked through the screening stages.
type Candidate struct {
	ID            string `json:"id"`
	RequirementID string `json:"requirementId"`
	Name          string `json:"name"`
	Mobile        string `json:"mobile"`
	Source        string `json:"source"`
	SourceLabel   string `json:"sourceLabel,omitempty"`
	CurrentRole   string `json:"currentRole"`
	CVURL         string `json:"cvUrl,omitempty"`
	SourceFile    string `json:"sourceFile,omitempty"`

	Status     CandidateStatus `json:"status"`
	UploadedBy string          `json:"uploadedBy,omitempty"`
	UploadDate time.Time       `json:"uploadDate"`

	ShortlistingStatus ShortlistingStatus `json:"shortlistingStatus,omitempty"`
	ShortlistingReason string             `json:"shortlistingReason,omitempty"`

	TelephonicStatus   TelephonicStatus `json:"telephonicStatus,omitempty"`
	TelephonicReason   string           `json:"telephonicReason,omitempty"`
	CommunicationMarks *int             `json:"communicationMarks,omitempty"`
	ExperienceMarks    *int             `json:"experienceMarks,omitempty"`

	OwnerStatus   OwnerStatus `json:"ownerStatus,omitempty"`
	OwnerReason   string      `json:"ownerReason,omitempty"`
	InterviewDate string      `json:"interviewDate,omitempty"`
	InterviewTime string      `json:"interviewTime,omitempty"`

	WalkInStatus WalkInStatus `json:"walkInStatus,omitempty"`

	AppearedAt            *time.Time `json:"appearedAt,omitempty"`
	InterviewLinkIssuedAt *time.Time `json:"interviewLinkIssuedAt,omitempty"`
	HRInterviewMarks      *int       `json:"hrInterviewMarks,omitempty"`
	ExcelMarks            *int       `json:"excelMarks,omitempty"`
	TallyMarks            *int       `json:"tallyMarks,omitempty"`
	VoiceMarks            *int       `json:"voiceMarks,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Rejected reports whether any stage rejected the candidate. Rejection is
// terminal: later field writes never bring the candidate back into a queue.
func (c *Candidate) Rejected() bool {
	return c.ShortlistingStatus == ShortlistRejected ||
		c.TelephonicStatus == TelephonicReject ||
		c.OwnerStatus == OwnerRejected
}

// HasWalkInResults reports whether the candidate appeared or has any walk-in marks.
func (c *Candidate) HasWalkInResults() bool {
	return c.AppearedAt != nil || c.HRInterviewMarks != nil ||
		c.ExcelMarks != nil || c.TallyMarks != nil || c.VoiceMarks != nil
}

// TestMarks returns the recorded marks for a test type, or nil.
func (c *Candidate) TestMarks(t TestType) *int {
	switch t {
	case TestExcel:
		return c.ExcelMarks
	case TestTally:
		return c.TallyMarks
	case TestVoice:
		return c.VoiceMarks
	}
	return nil
}

// SetTestMarks stores marks for a test type. Unknown types are ignored.
func (c *Candidate) SetTestMarks(t TestType, marks int) {
	switch t {
	case TestExcel:
		c.ExcelMarks = &marks
	case TestTally:
		c.TallyMarks = &marks
	case TestVoice:
		c.VoiceMarks = &marks
	}
}

// DeriveStatus computes the aggregate status from the stage outcome fields.
// It is the only place the aggregate label is decided.
func DeriveStatus(c *Candidate) CandidateStatus {
	switch {
	case c.Rejected():
		return CandidateRejected
	case c.OwnerStatus == OwnerHold:
		return CandidateOnHold
	case c.HasWalkInResults():
		return CandidateInterviewed
	case c.WalkInStatus == WalkInInformed:
		return CandidateScheduled
	case c.ShortlistingStatus != "" || c.TelephonicStatus != "" ||
		c.OwnerStatus != "" || c.WalkInStatus != "":
		return CandidateInProcess
	default:
		return CandidateUploaded
	}
}

// CandidateFilter is a permissive partial-match predicate over candidates.
type CandidateFilter struct {
	RequirementID      string             `json:"requirementId,omitempty"`
	Status             CandidateStatus    `json:"status,omitempty"`
	ShortlistingStatus ShortlistingStatus `json:"shortlistingStatus,omitempty"`
	TelephonicStatus   TelephonicStatus   `json:"telephonicStatus,omitempty"`
	OwnerStatus        OwnerStatus        `json:"ownerStatus,omitempty"`
	WalkInStatus       WalkInStatus       `json:"walkInStatus,omitempty"`
	CurrentRole        string             `json:"currentRole,omitempty"`
}

// CandidateFilterFromMap builds a filter from loosely keyed input. Keys it
// does not know are ignored.
func CandidateFilterFromMap(m map[string]string) CandidateFilter {
	get := func(k string) string { return strings.TrimSpace(m[k]) }
	return CandidateFilter{
		RequirementID:      get("requirementId"),
		Status:             CandidateStatus(get("status")),
		ShortlistingStatus: ShortlistingStatus(get("shortlistingStatus")),
		TelephonicStatus:   TelephonicStatus(get("telephonicStatus")),
		OwnerStatus:        OwnerStatus(get("ownerStatus")),
		WalkInStatus:       WalkInStatus(get("walkInStatus")),
		CurrentRole:        get("currentRole"),
	}
}

// Match reports whether c satisfies every non-empty field of f.
func (f CandidateFilter) Match(c *Candidate) bool {
	if f.RequirementID != "" && f.RequirementID != c.RequirementID {
		return false
	}
	if f.Status != "" && f.Status != c.Status {
		return false
	}
	if f.ShortlistingStatus != "" && f.ShortlistingStatus != c.ShortlistingStatus {
		return false
	}
	if f.TelephonicStatus != "" && f.TelephonicStatus != c.TelephonicStatus {
		return false
	}
	if f.OwnerStatus != "" && f.OwnerStatus != c.OwnerStatus {
		return false
	}
	if f.WalkInStatus != "" && f.WalkInStatus != c.WalkInStatus {
		return false
	}
	if f.CurrentRole != "" && !strings.EqualFold(f.CurrentRole, c.CurrentRole) {
		return false
	}
	return true
}
