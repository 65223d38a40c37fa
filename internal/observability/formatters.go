// Package observability renders workflow state as boxed text for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/hrms/internal/intake"
	"github.com/jonathan/hrms/internal/replication"
	"github.com/jonathan/hrms/internal/reports"
	"github.com/jonathan/hrms/internal/types"
)

const (
	boxWidth       = 60 // runes, borders included
	maxItemsToShow = 10 // queue listings stop here
)

// Printer writes boxed summaries.
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox pads each content line to the box width.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintParseResults outputs each filename with its parsed identity or the
// reason it was rejected.
func (p *Printer) PrintParseResults(results []intake.Result) {
	var sb strings.Builder
	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
			source := r.Candidate.Source
			if r.Candidate.SourceLabel != "" && r.Candidate.SourceLabel != source {
				source += " (" + r.Candidate.SourceLabel + ")"
			}
			sb.WriteString(fmt.Sprintf("✓ %s | %s | %s\n", r.Candidate.Name, r.Candidate.Mobile, source))
			continue
		}
		sb.WriteString(fmt.Sprintf("✗ %s: %v\n", r.Filename, r.Err))
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d filenames parsed", ok, len(results)))
	p.printBox("INTAKE", sb.String())
}

// PrintRequirement outputs a summary of a requirement.
func (p *Printer) PrintRequirement(r *types.Requirement) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", r.ID))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", r.JobRole))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", r.JobTitle))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", r.Status))
	sb.WriteString(fmt.Sprintf("Raised:   %s by %s\n", r.RaisedDate.Format("2006-01-02"), r.RaisedBy))
	if r.Remark != "" {
		sb.WriteString(fmt.Sprintf("Remark:   %s\n", r.Remark))
	}
	p.printBox("REQUIREMENT", sb.String())
}

// PrintQueue outputs the candidates waiting in one stage.
func (p *Printer) PrintQueue(stage string, cands []types.Candidate) {
	var sb strings.Builder
	if len(cands) == 0 {
		sb.WriteString("(empty)")
	}
	count := min(len(cands), maxItemsToShow)
	for _, c := range cands[:count] {
		sb.WriteString(fmt.Sprintf("• %s  %s (%s)  %s\n", c.ID, c.Name, c.Mobile, c.CurrentRole))
	}
	if len(cands) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(cands)-maxItemsToShow))
	}
	p.printBox(fmt.Sprintf("QUEUE %s (%d)", strings.ToUpper(stage), len(cands)), sb.String())
}

// PrintStats outputs dashboard counters.
func (p *Printer) PrintStats(st reports.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Requirements:  %d (%d pending review)\n", st.TotalRequirements, st.PendingRequirements))
	sb.WriteString(fmt.Sprintf("Candidates:    %d\n", st.TotalCandidates))
	sb.WriteString(fmt.Sprintf("Shortlisted:   %d\n", st.Shortlisted))
	sb.WriteString(fmt.Sprintf("Interviewed:   %d\n", st.Interviewed))
	sb.WriteString(fmt.Sprintf("Rejected:      %d\n", st.Rejected))
	sb.WriteString(fmt.Sprintf("On hold:       %d\n", st.OnHold))
	p.printBox("DASHBOARD", sb.String())
}

// PrintReplication outputs outbox counters and any dead letters.
func (p *Printer) PrintReplication(st replication.Stats, dead []replication.Request) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pending: %d  In flight: %d\n", st.Pending, st.InFlight))
	sb.WriteString(fmt.Sprintf("Sent: %d  Failed attempts: %d  Coalesced: %d\n", st.Sent, st.Failed, st.Coalesced))

	if len(dead) > 0 {
		sb.WriteString(fmt.Sprintf("\nDead letters (%d):\n", len(dead)))
		count := min(len(dead), maxItemsToShow)
		for _, r := range dead[:count] {
			sb.WriteString(fmt.Sprintf("  • %s %s after %d attempts: %s\n", r.Action, r.RecordID, r.Attempts, r.LastError))
		}
		if len(dead) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(dead)-maxItemsToShow))
		}
	}
	p.printBox("REPLICATION", sb.String())
}
