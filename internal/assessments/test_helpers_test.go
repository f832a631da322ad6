package assessments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/recommendation"
	"compliance-backend/internal/shared/server/middleware"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	engine, err := recommendation.Default()
	if err != nil {
		t.Fatalf("default engine: %v", err)
	}
	repo := NewMemoryRepo()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &Service{
		Repo:   repo,
		Engine: engine,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
	return svc, repo
}

func setupRouter(t *testing.T) (*gin.Engine, *Service, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, repo := newTestService(t)
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.OrgIdentity())
	NewHandler(svc).RegisterRoutes(api)
	return router, svc, repo
}

func uniformRequest(overall, section float64, size string) RecommendationRequest {
	req := RecommendationRequest{OverallScore: &overall, OrganizationSize: size}
	for _, title := range []string{"Identify", "Govern", "Control", "Communicate", "Protect"} {
		req.SectionScores = append(req.SectionScores, recommendation.SectionScore{Title: title, Percentage: section})
	}
	return req
}

func doJSON(t *testing.T, router http.Handler, method, path, orgID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		switch p := payload.(type) {
		case string:
			body.WriteString(p)
		default:
			if err := json.NewEncoder(&body).Encode(p); err != nil {
				t.Fatalf("encode payload: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if orgID != "" {
		req.Header.Set(middleware.OrgIDHeader, orgID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string                        `json:"code"`
		Message string                        `json:"message"`
		Details []recommendation.FieldProblem `json:"details"`
	} `json:"error"`
}
