package types

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidScore      = errors.New("score must be within [0,1]")
	ErrUnknownGraph      = errors.New("unknown graph")
	ErrGraphNotFound     = errors.New("graph not found")
	ErrNodeNotFound      = errors.New("node not found")
	ErrDanglingEdge      = errors.New("edge references a node that does not exist")
	ErrSelfLoop          = errors.New("self loops are not permitted")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNoPathFound       = errors.New("no path found")
)

// Collaborator errors.
var (
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrMalformedExtraction  = errors.New("malformed extraction response")
	ErrCollaboratorTimeout  = errors.New("collaborator timed out")
	ErrCollaboratorFailed   = errors.New("collaborator failed")
)

// Construction errors.
var (
	ErrInsufficientConcepts = errors.New("insufficient concepts")
)

// Internal errors.
var (
	ErrInvariantViolation = errors.New("internal invariant violated")
)

// ErrorKind classifies engine errors.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindCollaborator ErrorKind = "collaborator"
	KindConstruction ErrorKind = "construction"
	KindInternal     ErrorKind = "internal"
)

// Retryable reports whether the caller may retry the operation.
func (k ErrorKind) Retryable() bool {
	return k == KindCollaborator
}

// Classify returns the kind of err. Unknown errors are internal.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmbeddingUnavailable),
		errors.Is(err, ErrMalformedExtraction),
		errors.Is(err, ErrCollaboratorTimeout),
		errors.Is(err, ErrCollaboratorFailed):
		return KindCollaborator
	case errors.Is(err, ErrInsufficientConcepts):
		return KindConstruction
	case errors.Is(err, ErrInvariantViolation):
		return KindInternal
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidScore),
		errors.Is(err, ErrUnknownGraph),
		errors.Is(err, ErrGraphNotFound),
		errors.Is(err, ErrNodeNotFound),
		errors.Is(err, ErrDanglingEdge),
		errors.Is(err, ErrSelfLoop),
		errors.Is(err, ErrDuplicateID),
		errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrNoPathFound):
		return KindValidation
	}
	return KindInternal
}

// ConstructionError reports a failed build together with advice for the caller.
type ConstructionError struct {
	Reason     string
	Remaining  int
	Required   int
	Suggestion string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %d concept(s) remain, %d required: %s", e.Reason, e.Remaining, e.Required, e.Suggestion)
}

// Is reports whether target is ErrInsufficientConcepts.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrInsufficientConcepts
}

// NewInsufficientConceptsError creates a ConstructionError for an unusable extraction.
func NewInsufficientConceptsError(remaining, required int) *ConstructionError {
	return &ConstructionError{
		Reason:     "insufficient concepts after deduplication",
		Remaining:  remaining,
		Required:   required,
		Suggestion: "provide richer or longer input text and retry",
	}
}

// InvariantError reports a broken internal invariant. It indicates a bug.
type InvariantError struct {
	GraphID string
	Detail  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in graph %s: %s", e.GraphID, e.Detail)
}

// Is reports whether target is ErrInvariantViolation.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// CollaboratorError wraps a failure of an external model call.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCollaboratorFailed.
func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorFailed
}
