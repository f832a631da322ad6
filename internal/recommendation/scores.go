package recommendation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MidpointScore is substituted for missing sections under PolicyAssumeMidpoint.
const MidpointScore = 50.0

// MissingSectionPolicy decides how absent gating sections are handled.
type MissingSectionPolicy string

const (
	PolicyReject         MissingSectionPolicy = "reject"
	PolicyAssumeMidpoint MissingSectionPolicy = "assume_midpoint"
)

// ParseMissingSectionPolicy normalizes raw input. Empty input means reject.
func ParseMissingSectionPolicy(raw string) (MissingSectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "reject":
		return PolicyReject, nil
	case "assume_midpoint", "assume-midpoint", "midpoint":
		return PolicyAssumeMidpoint, nil
	default:
		return "", fmt.Errorf("unknown missing section policy %q", raw)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate rejects empty or out-of-range assessment data.
func Validate(data AssessmentData) error {
	var problems []FieldProblem
	if err := validate.Struct(data); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, FieldProblem{Field: fieldPath(fe.Namespace()), Issue: issueFor(fe)})
		}
	}
	if math.IsNaN(data.OverallScore) {
		problems = setProblem(problems, "overallScore", "must be a number")
	}
	for i, s := range data.SectionScores {
		if math.IsNaN(s.Percentage) {
			problems = setProblem(problems, fmt.Sprintf("sectionScores[%d].percentage", i), "must be a number")
		}
		if s.Title != "" && strings.TrimSpace(s.Title) == "" {
			problems = setProblem(problems, fmt.Sprintf("sectionScores[%d].title", i), "is required")
		}
	}
	if len(problems) > 0 {
		return &InvalidAssessmentDataError{Problems: problems}
	}
	return nil
}

// setProblem reports one issue per field, replacing a range failure the
// validator already recorded for it.
func setProblem(problems []FieldProblem, field, issue string) []FieldProblem {
	for i := range problems {
		if problems[i].Field == field {
			problems[i].Issue = issue
			return problems
		}
	}
	return append(problems, FieldProblem{Field: field, Issue: issue})
}

func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func issueFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " item"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// resolveScore finds a section score by title: exact case-insensitive match first,
// then the first section whose title contains the key.
func resolveScore(sections []SectionScore, title string) (float64, error) {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return 0, &MissingSectionError{Section: title}
	}
	for _, s := range sections {
		if strings.ToLower(strings.TrimSpace(s.Title)) == key {
			return s.Percentage, nil
		}
	}
	for _, s := range sections {
		if strings.Contains(strings.ToLower(s.Title), key) {
			return s.Percentage, nil
		}
	}
	return 0, &MissingSectionError{Section: title}
}

// scoreResolver applies the missing-section policy and remembers what it assumed.
type scoreResolver struct {
	sections []SectionScore
	policy   MissingSectionPolicy
	assumed  []string
}

func newScoreResolver(sections []SectionScore, policy MissingSectionPolicy) *scoreResolver {
	return &scoreResolver{sections: sections, policy: policy}
}

func (r *scoreResolver) resolve(section string) (float64, bool, error) {
	score, err := resolveScore(r.sections, section)
	if err == nil {
		return score, false, nil
	}
	if r.policy != PolicyAssumeMidpoint {
		return 0, false, err
	}
	for _, s := range r.assumed {
		if s == section {
			return MidpointScore, true, nil
		}
	}
	r.assumed = append(r.assumed, section)
	return MidpointScore, true, nil
}

func (r *scoreResolver) assumptions() []string {
	out := make([]string, 0, len(r.assumed))
	for _, s := range r.assumed {
		out = append(out, fmt.Sprintf("No %s section score was provided; assumed %.0f%%.", s, MidpointScore))
	}
	return out
}
