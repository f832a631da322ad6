package assessments

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"compliance-backend/internal/recommendation"
)

// RecommendationRequest is the body of POST /recommendations and POST /assessments.
type RecommendationRequest struct {
	OverallScore     *float64                      `json:"overallScore" validate:"required"`
	SectionScores    []recommendation.SectionScore `json:"sectionScores" validate:"required"`
	OrganizationSize string                        `json:"organizationSize" validate:"omitempty,max=32"`
}

var requestValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// toEngine checks request shape and converts it to engine input.
// Score ranges are left to the engine's own validation.
func (r RecommendationRequest) toEngine() (recommendation.AssessmentData, recommendation.OrganizationSize, error) {
	if err := requestValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return recommendation.AssessmentData{}, "", err
		}
		problems := make([]recommendation.FieldProblem, 0, len(verrs))
		for _, fe := range verrs {
			issue := "is invalid"
			switch fe.Tag() {
			case "required":
				issue = "is required"
			case "max":
				issue = "is too long"
			}
			problems = append(problems, recommendation.FieldProblem{Field: fe.Field(), Issue: issue})
		}
		return recommendation.AssessmentData{}, "", &InputError{Problems: problems}
	}

	size, err := recommendation.ParseOrganizationSize(r.OrganizationSize)
	if err != nil {
		return recommendation.AssessmentData{}, "", err
	}
	sections := make([]recommendation.SectionScore, len(r.SectionScores))
	copy(sections, r.SectionScores)
	return recommendation.AssessmentData{OverallScore: *r.OverallScore, SectionScores: sections}, size, nil
}

// ComputeResponse is returned by the stateless recommendation endpoint.
type ComputeResponse struct {
	EngineVersion  string                                      `json:"engineVersion"`
	Recommendation recommendation.OrganizationalRecommendation `json:"recommendation"`
}

// Summary is the list view of a stored assessment.
type Summary struct {
	ID                string                          `json:"id"`
	OrganizationSize  recommendation.OrganizationSize `json:"organizationSize"`
	OverallScore      float64                         `json:"overallScore"`
	CriticalRoleCount int                             `json:"criticalRoleCount"`
	MinimumHeadcount  float64                         `json:"minimumHeadcount"`
	EstimatedBudget   string                          `json:"estimatedBudgetRange"`
	EngineVersion     string                          `json:"engineVersion"`
	CreatedAt         time.Time                       `json:"createdAt"`
}

func toSummary(a Assessment) Summary {
	return Summary{
		ID:                a.ID,
		OrganizationSize:  a.OrganizationSize,
		OverallScore:      a.OverallScore,
		CriticalRoleCount: len(a.Recommendation.CriticalRoles),
		MinimumHeadcount:  a.Recommendation.ResourceEstimates.MinimumHeadcount,
		EstimatedBudget:   a.Recommendation.ResourceEstimates.EstimatedBudgetRange,
		EngineVersion:     a.EngineVersion,
		CreatedAt:         a.CreatedAt,
	}
}
