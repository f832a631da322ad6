package recommendation

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAssessmentData   = errors.New("invalid assessment data")
	ErrMissingSection          = errors.New("missing section score")
	ErrInvalidOrganizationSize = errors.New("invalid organization size")
	ErrInvalidCatalog          = errors.New("invalid catalog")
)

// FieldProblem describes one rejected input field.
type FieldProblem struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// InvalidAssessmentDataError lists every problem found in an assessment.
type InvalidAssessmentDataError struct {
	Problems []FieldProblem
}

func (e *InvalidAssessmentDataError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidAssessmentData.Error()
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+" "+p.Issue)
	}
	return ErrInvalidAssessmentData.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidAssessmentDataError) Is(target error) bool {
	return target == ErrInvalidAssessmentData
}

// MissingSectionError reports a gating section absent from the assessment.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return ErrMissingSection.Error() + ": " + e.Section
}

func (e *MissingSectionError) Is(target error) bool {
	return target == ErrMissingSection
}
