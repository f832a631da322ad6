package assessments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/recommendation"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// Service coordinates the recommendation engine and assessment persistence.
type Service struct {
	Repo   Repo
	Engine *recommendation.Engine
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Compute evaluates a request without persisting it.
func (s *Service) Compute(ctx context.Context, req RecommendationRequest) (recommendation.OrganizationalRecommendation, error) {
	data, size, err := req.toEngine()
	if err != nil {
		metrics.IncRecommendationsInvalid()
		return recommendation.OrganizationalRecommendation{}, err
	}
	return s.generate(ctx, data, size)
}

func (s *Service) generate(ctx context.Context, data recommendation.AssessmentData, size recommendation.OrganizationSize) (recommendation.OrganizationalRecommendation, error) {
	if err := ctx.Err(); err != nil {
		return recommendation.OrganizationalRecommendation{}, err
	}
	start := time.Now()
	rec, err := s.Engine.Generate(data, size)
	if err != nil {
		metrics.IncRecommendationsInvalid()
		telemetry.Warn("recommendation.rejected", map[string]any{
			"organization_size": string(size),
			"error":             err,
		})
		return recommendation.OrganizationalRecommendation{}, err
	}
	durationMs := float64(time.Since(start).Microseconds()) / 1000

	metrics.IncRecommendations()
	metrics.ObserveRecommendationDurationMs(durationMs)
	metrics.AddRolePriority(string(recommendation.PriorityCritical), len(rec.CriticalRoles))
	metrics.AddRolePriority(string(recommendation.PriorityRecommended), len(rec.RecommendedRoles))
	metrics.AddRolePriority(string(recommendation.PriorityOptional), len(rec.OptionalRoles))

	telemetry.Info("recommendation.generated", map[string]any{
		"organization_size": string(rec.OrganizationSize),
		"engine_version":    s.Engine.Version(),
		"critical_roles":    len(rec.CriticalRoles),
		"recommended_roles": len(rec.RecommendedRoles),
		"assumptions":       len(rec.Assumptions),
		"duration_ms":       durationMs,
	})
	return rec, nil
}

// Create evaluates and stores a new assessment for orgID.
func (s *Service) Create(ctx context.Context, orgID string, req RecommendationRequest) (Assessment, error) {
	if strings.TrimSpace(orgID) == "" {
		return Assessment{}, ErrInvalidInput
	}
	data, size, err := req.toEngine()
	if err != nil {
		metrics.IncRecommendationsInvalid()
		return Assessment{}, err
	}
	rec, err := s.generate(ctx, data, size)
	if err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		ID:               uuid.NewString(),
		OrgID:            orgID,
		OrganizationSize: rec.OrganizationSize,
		OverallScore:     data.OverallScore,
		SectionScores:    data.SectionScores,
		Recommendation:   rec,
		EngineVersion:    s.Engine.Version(),
		CreatedAt:        s.now(),
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		telemetry.Error("assessment.create.failed", map[string]any{
			"org_id": orgID,
			"error":  err,
		})
		return Assessment{}, err
	}
	telemetry.Info("assessment.created", map[string]any{
		"org_id":        orgID,
		"assessment_id": a.ID,
	})
	return a, nil
}

// Get returns a stored assessment. Unknown or malformed IDs are ErrNotFound.
func (s *Service) Get(ctx context.Context, orgID, assessmentID string) (Assessment, error) {
	if _, err := uuid.Parse(assessmentID); err != nil {
		return Assessment{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, orgID, assessmentID)
}

// List returns a page of assessments for orgID. Limit is clamped to MaxListLimit.
func (s *Service) List(ctx context.Context, orgID string, limit, offset int) ([]Assessment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByOrg(ctx, orgID, limit, offset)
}
