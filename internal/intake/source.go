package intake

import "strings"

// sourceNormalizations maps common sourcing channel spellings to canonical names
var sourceNormalizations = map[string]string{
	"naukri":      "Naukri",
	"naukri.com":  "Naukri",
	"linkedin":    "LinkedIn",
	"indeed":      "Indeed",
	"referral":    "Referral",
	"reference":   "Referral",
	"ref":         "Referral",
	"walkin":      "Walk-in",
	"walk-in":     "Walk-in",
	"apna":        "Apna",
	"workindia":   "WorkIndia",
	"shine":       "Shine",
	"monster":     "Monster",
	"foundit":     "Foundit",
	"consultancy": "Consultancy",
}

// NormalizeSource normalizes a sourcing channel to its canonical form.
// Unknown channels are returned trimmed but otherwise unchanged.
func NormalizeSource(source string) string {
	normalized := strings.TrimSpace(source)
	if canonical, ok := sourceNormalizations[strings.ToLower(normalized)]; ok {
		return canonical
	}
	return normalized
}
