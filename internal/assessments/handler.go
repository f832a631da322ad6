package assessments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the assessments service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches recommendation and assessment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommendations", h.compute)
	rg.POST("/assessments", h.create)
	rg.GET("/assessments", h.list)
	rg.GET("/assessments/:id", h.get)
}

func (h *Handler) compute(c *gin.Context) {
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	rec, err := h.Svc.Compute(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err, "failed to generate recommendation")
		return
	}
	respond.OK(c, ComputeResponse{
		EngineVersion:  h.Svc.Engine.Version(),
		Recommendation: rec,
	})
}

func (h *Handler) create(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	a, err := h.Svc.Create(c.Request.Context(), orgID, req)
	if err != nil {
		writeServiceError(c, err, "failed to create assessment")
		return
	}
	c.Set("assessmentId", a.ID)
	c.Header("Location", "/api/v1/assessments/"+a.ID)
	respond.Created(c, a)
}

func (h *Handler) get(c *gin.Context) {
	assessmentID := c.Param("id")
	if assessmentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "assessment id is required", nil)
		return
	}
	c.Set("assessmentId", assessmentID)

	a, err := h.Svc.Get(c.Request.Context(), middleware.OrgIDFromContext(c), assessmentID)
	if err != nil {
		writeServiceError(c, err, "failed to fetch assessment")
		return
	}
	respond.OK(c, a)
}

func (h *Handler) list(c *gin.Context) {
	orgID := middleware.OrgIDFromContext(c)

	limit := DefaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", []map[string]string{
				{"field": "limit", "issue": "invalid"},
			})
			return
		}
		limit = parsed
	}
	if v := c.Query("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be a non-negative integer", []map[string]string{
				{"field": "offset", "issue": "invalid"},
			})
			return
		}
		offset = parsed
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	items, err := h.Svc.List(c.Request.Context(), orgID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list assessments", nil)
		return
	}

	summaries := make([]Summary, 0, len(items))
	for _, a := range items {
		summaries = append(summaries, toSummary(a))
	}
	respond.OK(c, gin.H{
		"items":  summaries,
		"limit":  limit,
		"offset": offset,
	})
}

func writeServiceError(c *gin.Context, err error, fallback string) {
	if problems, ok := Problems(err); ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "assessment data is invalid", problems)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "assessment not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "assessment data is invalid", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
