package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/hrms/internal/types"
)

// InvitationDateLayout is how the interview date is printed in invitations.
const InvitationDateLayout = "2 Jan 2006"

var accountingMarkers = []string{"account", "tally", "finance"}

// TestTypesFor returns the walk-in tests offered for a role. Accounting
// roles take excel and tally; every other role takes excel and voice.
func TestTypesFor(role string) []types.TestType {
	lower := strings.ToLower(role)
	for _, m := range accountingMarkers {
		if strings.Contains(lower, m) {
			return []types.TestType{types.TestExcel, types.TestTally}
		}
	}
	return []types.TestType{types.TestExcel, types.TestVoice}
}

// Company identifies the sender of an invitation.
type Company struct {
	Name    string
	Address string
}

// InvitationMessage renders the interview invitation sent after a candidate
// has been informed. An unparseable date is printed as stored.
func InvitationMessage(c *types.Candidate, co Company) string {
	date := c.InterviewDate
	if d, err := time.Parse(types.DateLayout, c.InterviewDate); err == nil {
		date = d.Format(InvitationDateLayout)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", c.Name)
	fmt.Fprintf(&b, "We are pleased to inform you that you have been shortlisted for an interview for the position of %s.\n\n", c.CurrentRole)
	b.WriteString("Interview Details:\n")
	fmt.Fprintf(&b, "Location: %s\n", co.Address)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Time: %s\n\n", c.InterviewTime)
	b.WriteString("Kindly confirm your availability at your earliest convenience.\n\n")
	b.WriteString("For any information or assistance, please feel free to contact us.\n\n")
	b.WriteString("Regards\nTeam HR\n")
	b.WriteString(co.Name)
	return b.String()
}
