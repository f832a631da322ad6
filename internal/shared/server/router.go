package server

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/storage/db"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/api/v1/metrics"

	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"
)

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps holds the dependencies the router needs.
type RouterDeps struct {
	Config             config.Config
	DB                 *sql.DB
	AssessmentsHandler RouteRegistrar
	ExportsHandler     RouteRegistrar
	Limiter            *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.Use(
		middleware.OrgIdentity(healthPath, metricsPath),
		middleware.RateLimit(rateLimitConfig(deps)),
	)

	api.GET("/health", healthHandler(deps.DB))
	api.GET("/metrics", metrics.Handler())
	if deps.AssessmentsHandler != nil {
		deps.AssessmentsHandler.RegisterRoutes(api)
	}
	if deps.ExportsHandler != nil {
		deps.ExportsHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimitConfig gives export status polling a larger budget than other calls.
func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	rps := deps.Config.RateLimitRPS
	burst := deps.Config.RateLimitBurst
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		Limiter:      deps.Limiter,
		GroupFor: func(c *gin.Context) string {
			switch c.Request.URL.Path {
			case healthPath, metricsPath:
				return "NONE"
			}
			if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/exports/:id" {
				return rateGroupPolling
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: rps, Burst: burst},
			rateGroupPolling: {Rate: rps * 4, Burst: burst * 2},
		},
	}
}

func healthHandler(sqlDB *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		database := "memory"
		if sqlDB != nil {
			database = "up"
			if err := db.Healthy(c.Request.Context(), sqlDB); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "down"})
				return
			}
		}
		respond.OK(c, gin.H{"ok": true, "database": database})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
