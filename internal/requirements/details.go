package requirements

import (
	"strings"

	"github.com/jonathan/hrms/internal/types"
)

// JobDetails renders the shareable job description block for a requirement.
func JobDetails(r types.Requirement) string {
	var sb strings.Builder
	sb.WriteString("Job Title: " + r.JobTitle + "\n")
	sb.WriteString("Job Role: " + r.JobRole + "\n\n")
	sb.WriteString("Roles & Responsibilities:\n" + r.RolesResponsibilities + "\n\n")
	sb.WriteString("Must Have Skills:\n" + r.MustHaveSkills + "\n\n")
	sb.WriteString("Shift: " + r.Shift + "\n")
	sb.WriteString("Pay Scale: " + r.PayScale + "\n\n")
	sb.WriteString("Perks:\n" + r.Perks)
	return strings.TrimSpace(sb.String())
}
