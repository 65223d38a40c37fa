// Package intake parses candidate identity out of CV filenames.
//
// A CV file is named Name_Mobile_Source.ext, for example
// "Asha_9999999999_Naukri.pdf". Anything after the third field is ignored.
package intake

import (
	"path"
	"strings"
	"unicode"

	"github.com/jonathan/hrms/internal/types"
)

// DefaultExtensions are the CV file types accepted when none are configured.
var DefaultExtensions = []string{".pdf", ".doc", ".docx"}

// ParsedCandidate is the identity encoded in a CV filename. Source is the
// token as written; SourceLabel is its canonical channel name.
type ParsedCandidate struct {
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	Source      string `json:"source"`
	SourceLabel string `json:"sourceLabel,omitempty"`
}

// Result holds either a parsed candidate or the reason the filename was
// rejected. Exactly one of Candidate and Err is set.
type Result struct {
	Filename  string
	Candidate *ParsedCandidate
	Err       error
}

// OK reports whether the filename parsed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Parser parses CV filenames.
type Parser struct {
	// Extensions lists accepted lowercase extensions including the dot.
	// Empty accepts any extension.
	Extensions []string
}

// NewParser returns a parser accepting DefaultExtensions.
func NewParser() *Parser {
	return &Parser{Extensions: DefaultExtensions}
}

// ParseFilename parses one filename with the default parser.
func ParseFilename(filename string) (*ParsedCandidate, error) {
	return NewParser().Parse(filename)
}

// Parse splits the filename (minus directory and extension) on underscores.
// Name, mobile and source must all be present and non-blank; the mobile
// must be 7 to 15 digits with an optional leading '+'.
func (p *Parser) Parse(filename string) (*ParsedCandidate, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "" || base == "." || base == "/" {
		return nil, &ParseError{Filename: filename, Message: "empty filename"}
	}

	ext := path.Ext(base)
	if !p.allowed(ext) {
		return nil, &ParseError{Filename: filename, Message: "unsupported file type " + quoteExt(ext)}
	}
	stem := strings.TrimSuffix(base, ext)

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return nil, &ParseError{Filename: filename, Message: "expected Name_Mobile_Source"}
	}

	name := strings.TrimSpace(parts[0])
	mobile := strings.TrimSpace(parts[1])
	source := strings.TrimSpace(parts[2])
	switch {
	case name == "":
		return nil, &ParseError{Filename: filename, Message: "name is empty"}
	case mobile == "":
		return nil, &ParseError{Filename: filename, Message: "mobile is empty"}
	case source == "":
		return nil, &ParseError{Filename: filename, Message: "source is empty"}
	}
	if !validMobile(mobile) {
		return nil, &ParseError{Filename: filename, Message: "mobile " + mobile + " is not a phone number"}
	}

	return &ParsedCandidate{
		Filename:    base,
		Name:        name,
		Mobile:      mobile,
		Source:      source,
		SourceLabel: NormalizeSource(source),
	}, nil
}

// ParseBatch parses every filename, keeping input order.
func (p *Parser) ParseBatch(filenames []string) []Result {
	results := make([]Result, 0, len(filenames))
	for _, f := range filenames {
		c, err := p.Parse(f)
		results = append(results, Result{Filename: f, Candidate: c, Err: err})
	}
	return results
}

// BatchError folds every failed result into one ValidationError, or returns
// nil when the whole batch parsed.
func BatchError(results []Result) error {
	var details []types.FieldError
	for _, r := range results {
		if r.Err != nil {
			details = append(details, types.FieldError{Field: r.Filename, Message: r.Err.Error()})
		}
	}
	if len(details) == 0 {
		return nil
	}
	bad := make([]string, len(details))
	for i, d := range details {
		bad[i] = d.Field
	}
	return &types.ValidationError{
		Field:   "files",
		Message: "malformed filenames: " + strings.Join(bad, ", "),
		Details: details,
	}
}

func (p *Parser) allowed(ext string) bool {
	if len(p.Extensions) == 0 {
		return true
	}
	ext = strings.ToLower(ext)
	for _, e := range p.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func validMobile(s string) bool {
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func quoteExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
