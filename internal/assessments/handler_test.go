package assessments

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"compliance-backend/internal/recommendation"
)

func TestComputeRecommendation(t *testing.T) {
	router, _, repo := setupRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/recommendations", "org-1", uniformRequest(45, 40, "small"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out ComputeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.EngineVersion == "" {
		t.Fatalf("expected engineVersion")
	}
	if got := len(out.Recommendation.CriticalRoles); got != 4 {
		t.Fatalf("expected 4 critical roles, got %d", got)
	}
	if out.Recommendation.OrganizationSize != recommendation.SizeSmall {
		t.Fatalf("expected small, got %q", out.Recommendation.OrganizationSize)
	}
	if out.Recommendation.ResourceEstimates.EstimatedBudgetRange != "$420,000 - $660,000/year" {
		t.Fatalf("unexpected budget %q", out.Recommendation.ResourceEstimates.EstimatedBudgetRange)
	}

	items, err := repo.ListByOrg(t.Context(), "org-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("compute must not persist, got %d stored", len(items))
	}
}

func TestComputeDefaultsToMedium(t *testing.T) {
	router, _, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/recommendations", "org-1", uniformRequest(70, 70, ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var out ComputeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Recommendation.OrganizationSize != recommendation.SizeMedium {
		t.Fatalf("expected medium, got %q", out.Recommendation.OrganizationSize)
	}
}

func TestComputeValidationErrors(t *testing.T) {
	router, _, _ := setupRouter(t)

	outOfRange := uniformRequest(120, 40, "small")
	missingOverall := uniformRequest(50, 50, "")
	missingOverall.OverallScore = nil
	missingSection := uniformRequest(50, 50, "")
	missingSection.SectionScores = missingSection.SectionScores[:3]

	cases := []struct {
		name    string
		payload any
		field   string
		issue   string
	}{
		{name: "malformed_json", payload: "{", field: ""},
		{name: "overall_out_of_range", payload: outOfRange, field: "overallScore"},
		{name: "overall_missing", payload: missingOverall, field: "overallScore", issue: "is required"},
		{name: "unknown_size", payload: uniformRequest(50, 50, "galactic"), field: "organizationSize"},
		{name: "missing_section", payload: missingSection, field: "sectionScores", issue: "missing required section Communicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/v1/recommendations", "org-1", tc.payload)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
			}
			var env errorEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if env.Error.Code != "validation_error" {
				t.Fatalf("expected validation_error, got %q", env.Error.Code)
			}
			if tc.field == "" {
				return
			}
			for _, p := range env.Error.Details {
				if p.Field == tc.field && (tc.issue == "" || p.Issue == tc.issue) {
					return
				}
			}
			t.Fatalf("expected problem on %s, got %+v", tc.field, env.Error.Details)
		})
	}
}

func TestCreateAndGetAssessment(t *testing.T) {
	router, _, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/assessments", "org-1", uniformRequest(90, 90, "large"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created Assessment
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || created.OrgID != "org-1" {
		t.Fatalf("unexpected assessment %+v", created)
	}
	if loc := resp.Header().Get("Location"); loc != "/api/v1/assessments/"+created.ID {
		t.Fatalf("unexpected Location %q", loc)
	}

	got := doJSON(t, router, http.MethodGet, "/api/v1/assessments/"+created.ID, "org-1", nil)
	if got.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", got.Code)
	}
	var fetched Assessment
	if err := json.NewDecoder(got.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(fetched.Recommendation.OptionalRoles) != 4 {
		t.Fatalf("expected 4 optional roles, got %d", len(fetched.Recommendation.OptionalRoles))
	}

	other := doJSON(t, router, http.MethodGet, "/api/v1/assessments/"+created.ID, "org-2", nil)
	if other.Code != http.StatusNotFound {
		t.Fatalf("expected other org to get 404, got %d", other.Code)
	}
	bogus := doJSON(t, router, http.MethodGet, "/api/v1/assessments/not-a-uuid", "org-1", nil)
	if bogus.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", bogus.Code)
	}
}

func TestCreateRequiresOrgIdentity(t *testing.T) {
	router, _, _ := setupRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/assessments", "", uniformRequest(50, 50, ""))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestListAssessmentsPaginates(t *testing.T) {
	router, _, _ := setupRouter(t)

	for _, overall := range []float64{10, 20, 30} {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/assessments", "org-1", uniformRequest(overall, overall, "small"))
		if resp.Code != http.StatusCreated {
			t.Fatalf("create: status %d", resp.Code)
		}
	}
	doJSON(t, router, http.MethodPost, "/api/v1/assessments", "org-2", uniformRequest(99, 99, "small"))

	resp := doJSON(t, router, http.MethodGet, "/api/v1/assessments?limit=2&offset=0", "org-1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var page struct {
		Items  []Summary `json:"items"`
		Limit  int       `json:"limit"`
		Offset int       `json:"offset"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 2 || page.Limit != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].OverallScore != 30 || page.Items[1].OverallScore != 20 {
		t.Fatalf("expected newest first, got %v then %v", page.Items[0].OverallScore, page.Items[1].OverallScore)
	}
	if page.Items[0].CriticalRoleCount != 4 {
		t.Fatalf("expected 4 critical roles, got %d", page.Items[0].CriticalRoleCount)
	}

	clamped := doJSON(t, router, http.MethodGet, "/api/v1/assessments?limit=500", "org-1", nil)
	if !strings.Contains(clamped.Body.String(), `"limit":50`) {
		t.Fatalf("expected limit clamped to 50, got %s", clamped.Body.String())
	}

	bad := doJSON(t, router, http.MethodGet, "/api/v1/assessments?offset=-1", "org-1", nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", bad.Code)
	}
}
