package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every service metric. It is separate from the global
// default registry so tests can gather it in isolation.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	recommendationsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "recommendations_total",
		Help: "Total recommendations generated",
	})
	recommendationsInvalid = factory.NewCounter(prometheus.CounterOpts{
		Name: "recommendations_invalid_total",
		Help: "Total recommendation requests rejected by validation",
	})
	rolesByPriority = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "recommended_roles_total",
		Help: "Recommended roles by priority",
	}, []string{"priority"})
	recommendationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommendation_duration_ms",
		Help:    "Engine evaluation duration in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})

	exportJobs = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Export jobs by lifecycle event",
	}, []string{"event"})
	exportDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "export_duration_ms",
		Help:    "Export job duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000, 30000},
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncRecommendations counts a successful engine evaluation.
func IncRecommendations() { recommendationsTotal.Inc() }

// IncRecommendationsInvalid counts engine inputs rejected by validation.
func IncRecommendationsInvalid() { recommendationsInvalid.Inc() }

// AddRolePriority counts recommended roles by priority tier.
func AddRolePriority(priority string, n int) {
	if n <= 0 {
		return
	}
	rolesByPriority.WithLabelValues(priority).Add(float64(n))
}

func IncExportJobsRequested()            { exportJobs.WithLabelValues("requested").Inc() }
func IncExportJobsReceived()             { exportJobs.WithLabelValues("received").Inc() }
func IncExportJobsCompleted()            { exportJobs.WithLabelValues("completed").Inc() }
func IncExportJobsFailed()               { exportJobs.WithLabelValues("failed").Inc() }
func IncExportJobsDeletedUnrecoverable() { exportJobs.WithLabelValues("deleted_unrecoverable").Inc() }

// ObserveRecommendationDurationMs records one engine evaluation in milliseconds.
func ObserveRecommendationDurationMs(value float64) {
	recommendationDuration.Observe(clampNonNegative(value))
}

// ObserveExportDurationMs records one export job in milliseconds.
func ObserveExportDurationMs(value float64) {
	exportDuration.Observe(clampNonNegative(value))
}

// Handler exposes the registry in Prometheus exposition format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
