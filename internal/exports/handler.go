package exports

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the exports service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches export routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assessments/:id/exports", h.request)
	rg.GET("/exports/:id", h.get)
	rg.GET("/exports/:id/download", h.download)
}

func (h *Handler) request(c *gin.Context) {
	assessmentID := c.Param("id")
	c.Set("assessmentId", assessmentID)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	export, err := h.Svc.Request(ctx, middleware.OrgIDFromContext(c), assessmentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAssessmentNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "assessment not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to request export", nil)
		}
		return
	}
	c.Set("exportId", export.ID)
	respond.Accepted(c, gin.H{
		"exportId": export.ID,
		"status":   export.Status,
	})
}

func (h *Handler) get(c *gin.Context) {
	exportID := c.Param("id")
	c.Set("exportId", exportID)

	export, err := h.Svc.Get(c.Request.Context(), middleware.OrgIDFromContext(c), exportID)
	if err != nil {
		writeLookupError(c, err, "failed to fetch export")
		return
	}
	respond.OK(c, export)
}

func (h *Handler) download(c *gin.Context) {
	exportID := c.Param("id")
	c.Set("exportId", exportID)

	rc, export, err := h.Svc.Open(c.Request.Context(), middleware.OrgIDFromContext(c), exportID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "conflict", "export is not completed", []map[string]string{
				{"field": "status", "issue": export.Status},
			})
		case errors.Is(err, object.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "export file not found", nil)
		default:
			writeLookupError(c, err, "failed to download export")
		}
		return
	}
	defer rc.Close()

	name, err := util.SanitizeFileName("assessment-" + export.AssessmentID + "-report.json")
	if err != nil {
		name = "report.json"
	}
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Error("export.download.failed", map[string]any{
			"export_id": export.ID,
			"error":     err,
		})
	}
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "export not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
}
