package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// Validation errors
var (
	ErrEmptyConcepts    = errors.New("concepts cannot be empty")
	ErrTooManyConcepts  = fmt.Errorf("concepts count exceeds maximum (%d)", MaxConceptsCount)
	ErrTooManyRelations = fmt.Errorf("relationships count exceeds maximum (%d)", MaxRelationshipsCount)
	ErrEmptyLabel       = errors.New("label cannot be empty")
	ErrLabelTooLong     = fmt.Errorf("label exceeds maximum length (%d)", MaxLabelLength)
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrQuestionTooLong  = fmt.Errorf("question exceeds maximum length (%d)", MaxQuestionLength)
	ErrEmptyNodeID      = errors.New("node id cannot be empty")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxConceptsCount      = 1000
	MaxRelationshipsCount = 5000
	MaxLabelLength        = 512
	MaxDescriptionLength  = 4096
	MaxQuestionLength     = 4096
	MaxHistoryCount       = 50
)

// ErrorResponse represents an error response. Retry tells the caller whether
// repeating the request may succeed.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Retry   bool   `json:"retry"`
}

func validateConcepts(concepts []types.Concept) error {
	if len(concepts) > MaxConceptsCount {
		return ErrTooManyConcepts
	}
	for i, c := range concepts {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return fmt.Errorf("concept %d: %w", i, ErrEmptyLabel)
		}
		if len(label) > MaxLabelLength {
			return fmt.Errorf("concept %d: %w", i, ErrLabelTooLong)
		}
		if len(c.Description) > MaxDescriptionLength {
			return fmt.Errorf("concept %d: description exceeds maximum length (%d)", i, MaxDescriptionLength)
		}
	}
	return nil
}

func validateRelationships(rels []types.Relationship) error {
	if len(rels) > MaxRelationshipsCount {
		return ErrTooManyRelations
	}
	for i, r := range rels {
		if strings.TrimSpace(r.SourceLabel) == "" || strings.TrimSpace(r.TargetLabel) == "" {
			return fmt.Errorf("relationship %d: source_label and target_label are required", i)
		}
	}
	return nil
}
