package assessments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"compliance-backend/internal/recommendation"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new assessment.
func (r *PGRepo) Create(ctx context.Context, a Assessment) error {
	const query = `
INSERT INTO assessments (
	id, org_id, organization_size, overall_score, section_scores, recommendation, engine_version, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	sections, err := marshalJSONB(a.SectionScores)
	if err != nil {
		return err
	}
	rec, err := marshalJSONB(a.Recommendation)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.OrgID,
		string(a.OrganizationSize),
		a.OverallScore,
		sections,
		rec,
		a.EngineVersion,
		a.CreatedAt,
	)
	return err
}

// GetByID returns an assessment owned by orgID.
func (r *PGRepo) GetByID(ctx context.Context, orgID, assessmentID string) (Assessment, error) {
	const query = `
SELECT id, org_id, organization_size, overall_score, section_scores, recommendation, engine_version, created_at
FROM assessments
WHERE id = $1 AND org_id = $2
LIMIT 1`
	a, err := scanAssessment(r.DB.QueryRowContext(ctx, query, assessmentID, orgID))
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, ErrNotFound
	}
	return a, err
}

// ListByOrg returns assessments for an organization, newest first.
func (r *PGRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]Assessment, error) {
	const query = `
SELECT id, org_id, organization_size, overall_score, section_scores, recommendation, engine_version, created_at
FROM assessments
WHERE org_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (Assessment, error) {
	var a Assessment
	var size string
	var sections, rec []byte
	if err := row.Scan(&a.ID, &a.OrgID, &size, &a.OverallScore, &sections, &rec, &a.EngineVersion, &a.CreatedAt); err != nil {
		return Assessment{}, err
	}
	a.OrganizationSize = recommendation.OrganizationSize(size)
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &a.SectionScores); err != nil {
			return Assessment{}, fmt.Errorf("decode section_scores: %w", err)
		}
	}
	if len(rec) > 0 {
		if err := json.Unmarshal(rec, &a.Recommendation); err != nil {
			return Assessment{}, fmt.Errorf("decode recommendation: %w", err)
		}
	}
	return a, nil
}

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

var _ Repo = (*PGRepo)(nil)
