package assessments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"compliance-backend/internal/recommendation"
)

var assessmentColumns = []string{
	"id", "org_id", "organization_size", "overall_score", "section_scores", "recommendation", "engine_version", "created_at",
}

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	a := Assessment{
		ID:               "5f0c7b0e-8a52-4d8e-9a43-3f1f1c2d7a10",
		OrgID:            "org-1",
		OrganizationSize: recommendation.SizeSmall,
		OverallScore:     45,
		SectionScores:    []recommendation.SectionScore{{Title: "Govern", Percentage: 40}},
		EngineVersion:    "2024.1",
		CreatedAt:        time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO assessments").
		WithArgs(
			a.ID,
			a.OrgID,
			"small",
			a.OverallScore,
			sqlmock.AnyArg(), // section_scores
			sqlmock.AnyArg(), // recommendation
			a.EngineVersion,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rec := recommendation.OrganizationalRecommendation{
		OrganizationSize: recommendation.SizeMedium,
		OverallScore:     62,
		Assumptions:      []string{},
	}
	recJSON, _ := json.Marshal(rec)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, org_id, organization_size").
		WithArgs("a-1", "org-1").
		WillReturnRows(sqlmock.NewRows(assessmentColumns).
			AddRow("a-1", "org-1", "medium", 62.0, []byte(`[{"title":"Govern","percentage":71}]`), recJSON, "2024.1", created))

	repo := &PGRepo{DB: db}
	got, err := repo.GetByID(context.Background(), "org-1", "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OrganizationSize != recommendation.SizeMedium {
		t.Fatalf("expected medium, got %q", got.OrganizationSize)
	}
	if len(got.SectionScores) != 1 || got.SectionScores[0].Percentage != 71 {
		t.Fatalf("unexpected sections %+v", got.SectionScores)
	}
	if got.Recommendation.OverallScore != 62 {
		t.Fatalf("unexpected recommendation %+v", got.Recommendation)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, org_id, organization_size").
		WithArgs("missing", "org-1").
		WillReturnRows(sqlmock.NewRows(assessmentColumns))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "org-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByOrg(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("FROM assessments").
		WithArgs("org-1", 2, 4).
		WillReturnRows(sqlmock.NewRows(assessmentColumns).
			AddRow("a-2", "org-1", "small", 30.0, []byte(`[]`), []byte(`{}`), "2024.1", now).
			AddRow("a-1", "org-1", "small", 20.0, []byte(`[]`), []byte(`{}`), "2024.1", now.Add(-time.Hour)))

	repo := &PGRepo{DB: db}
	items, err := repo.ListByOrg(context.Background(), "org-1", 2, 4)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a-2" {
		t.Fatalf("unexpected items %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
