//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// NotFoundError indicates no record matches the given id.
type NotFoundError struct {
	Kind string // "requirement", "candidate", "template"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidTransitionError indicates an action was attempted from a state
// that does not permit it.
type InvalidTransitionError struct {
	Kind   string
	ID     string
	Action string
	From   string
}

func (e *InvalidTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "(unset)"
	}
	return fmt.Sprintf("invalid transition: cannot %s %s %s from %s", e.Action, e.Kind, e.ID, from)
}

// ValidationError indicates a missing or out-of-range field. When struct
// validation finds several failures, the first is promoted to Field/Message
// and all of them are kept in Details.
type ValidationError struct {
	Field   string
	Message string
	Details []FieldError
}

// FieldError is one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error: %s", e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	if len(e.Details) > 1 {
		others := make([]string, 0, len(e.Details)-1)
		for _, d := range e.Details[1:] {
			others = append(others, d.Field+" "+d.Message)
		}
		msg += " (also: " + strings.Join(others, ", ") + ")"
	}
	return msg
}

// TransportError indicates an external write or read failed or could not be observed.
type TransportError struct {
	Action  string
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error (%s): %s: %v", e.Action, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error (%s): %s", e.Action, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ForbiddenError indicates the acting user lacks the capability for an action.
type ForbiddenError struct {
	Actor  string
	Action string
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s is not allowed to %s: %s", e.Actor, e.Action, e.Reason)
	}
	return fmt.Sprintf("%s is not allowed to %s", e.Actor, e.Action)
}
