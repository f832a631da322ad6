package exports

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/assessments"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/recommendation"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/storage/object"
	local "compliance-backend/internal/shared/storage/object/local"
)

type fixture struct {
	svc         *Service
	repo        *MemoryRepo
	assessments *assessments.Service
	store       object.ObjectStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := recommendation.Default()
	if err != nil {
		t.Fatalf("default engine: %v", err)
	}
	aRepo := assessments.NewMemoryRepo()
	repo := NewMemoryRepo()
	store := local.New(t.TempDir())
	return &fixture{
		svc: &Service{
			Repo:        repo,
			Assessments: aRepo,
			Store:       store,
			Now:         func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
		},
		repo:        repo,
		assessments: &assessments.Service{Repo: aRepo, Engine: engine},
		store:       store,
	}
}

func (f *fixture) seedAssessment(t *testing.T, orgID string, overall, section float64) assessments.Assessment {
	t.Helper()
	req := assessments.RecommendationRequest{OverallScore: &overall, OrganizationSize: "small"}
	for _, title := range []string{"Identify", "Govern", "Control", "Communicate", "Protect"} {
		req.SectionScores = append(req.SectionScores, recommendation.SectionScore{Title: title, Percentage: section})
	}
	a, err := f.assessments.Create(context.Background(), orgID, req)
	if err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	return a
}

func (f *fixture) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(middleware.OrgIdentity())
	NewHandler(f.svc).RegisterRoutes(api)
	return r
}

type stubQueue struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (s *stubQueue) Send(_ context.Context, msg queue.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, string, io.Reader) (int64, error) {
	return 0, errors.New("bucket unavailable: arn:aws:s3:::secret-bucket")
}

func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, object.ErrNotFound
}
