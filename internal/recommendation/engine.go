package recommendation

import "fmt"

// Engine evaluates assessments against a catalog. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
	policy  MissingSectionPolicy
}

type Option func(*Engine)

// WithMissingSectionPolicy overrides the default reject policy.
func WithMissingSectionPolicy(p MissingSectionPolicy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

func New(catalog *Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, policy: PolicyReject}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Default builds an engine over the embedded catalog.
func Default(opts ...Option) (*Engine, error) {
	c, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return New(c, opts...), nil
}

// Version identifies the catalog the engine evaluates.
func (e *Engine) Version() string { return e.catalog.Version }

func (e *Engine) Policy() MissingSectionPolicy { return e.policy }

// Generate produces the full organizational recommendation for one assessment.
func (e *Engine) Generate(data AssessmentData, size OrganizationSize) (OrganizationalRecommendation, error) {
	size, err := ParseOrganizationSize(string(size))
	if err != nil {
		return OrganizationalRecommendation{}, err
	}
	if err := Validate(data); err != nil {
		return OrganizationalRecommendation{}, err
	}

	scores := newScoreResolver(data.SectionScores, e.policy)
	roles, err := e.analyzeRoleNeeds(scores)
	if err != nil {
		return OrganizationalRecommendation{}, err
	}
	critical, recommended, optional := partition(roles)
	team := BuildTeamStructure(roles, size, data.OverallScore)

	tasks, err := e.generateFunctionalTasks(data, team.OptimalTeam, scores)
	if err != nil {
		return OrganizationalRecommendation{}, err
	}

	return OrganizationalRecommendation{
		OrganizationSize:      size,
		OverallScore:          data.OverallScore,
		CriticalRoles:         critical,
		RecommendedRoles:      recommended,
		OptionalRoles:         optional,
		MinimalTeam:           team.MinimalTeam,
		OptimalTeam:           team.OptimalTeam,
		FunctionalTasks:       tasks,
		ResourceEstimates:     e.CalculateResourceEstimates(team.MinimalTeam, team.OptimalTeam, data),
		TeamStructureGuidance: e.catalog.guidanceFor(data.OverallScore),
		Assumptions:           scores.assumptions(),
	}, nil
}

// GenerateOrganizationalRecommendations runs the default engine with the reject policy.
func GenerateOrganizationalRecommendations(data AssessmentData, size OrganizationSize) (OrganizationalRecommendation, error) {
	e, err := Default()
	if err != nil {
		return OrganizationalRecommendation{}, fmt.Errorf("load default catalog: %w", err)
	}
	return e.Generate(data, size)
}
