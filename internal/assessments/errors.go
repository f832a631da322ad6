package assessments

import (
	"errors"
	"strings"

	"compliance-backend/internal/recommendation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// InputError lists request fields that failed validation before reaching the engine.
type InputError struct {
	Problems []recommendation.FieldProblem
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+" "+p.Issue)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Problems extracts field-level details from input, engine validation and
// missing-section errors. The second return is false for other errors.
func Problems(err error) ([]recommendation.FieldProblem, bool) {
	var input *InputError
	if errors.As(err, &input) {
		return input.Problems, true
	}
	var invalid *recommendation.InvalidAssessmentDataError
	if errors.As(err, &invalid) {
		return invalid.Problems, true
	}
	var missing *recommendation.MissingSectionError
	if errors.As(err, &missing) {
		return []recommendation.FieldProblem{{Field: "sectionScores", Issue: "missing required section " + missing.Section}}, true
	}
	if errors.Is(err, recommendation.ErrInvalidOrganizationSize) {
		return []recommendation.FieldProblem{{Field: "organizationSize", Issue: "must be one of small, medium, large, enterprise"}}, true
	}
	return nil, false
}
