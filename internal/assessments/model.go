package assessments

import (
	"time"

	"compliance-backend/internal/recommendation"
)

// Assessment is a stored engine evaluation for one organization.
type Assessment struct {
	ID               string                                      `json:"id"`
	OrgID            string                                      `json:"orgId"`
	OrganizationSize recommendation.OrganizationSize             `json:"organizationSize"`
	OverallScore     float64                                     `json:"overallScore"`
	SectionScores    []recommendation.SectionScore               `json:"sectionScores"`
	Recommendation   recommendation.OrganizationalRecommendation `json:"recommendation"`
	EngineVersion    string                                      `json:"engineVersion"`
	CreatedAt        time.Time                                   `json:"createdAt"`
}

// Input returns the engine input the assessment was computed from.
func (a Assessment) Input() recommendation.AssessmentData {
	return recommendation.AssessmentData{
		OverallScore:  a.OverallScore,
		SectionScores: a.SectionScores,
	}
}
