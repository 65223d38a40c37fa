package intake

import "fmt"

// ParseError represents a filename that does not follow the
// Name_Mobile_Source.ext contract.
type ParseError struct {
	Filename string
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %q: %s", e.Filename, e.Message)
}
