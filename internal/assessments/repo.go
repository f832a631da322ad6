package assessments

import "context"

// Repo defines persistence operations for assessments. Reads are scoped to an organization.
type Repo interface {
	Create(ctx context.Context, assessment Assessment) error
	GetByID(ctx context.Context, orgID, assessmentID string) (Assessment, error)
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Assessment, error)
}
