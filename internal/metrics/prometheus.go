package metrics

import (
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rouge-eval/backend/internal/rouge/table"
)

var (
	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rouge_evaluation_duration_seconds",
			Help:    "Wall time of a ROUGE evaluation including the subprocess",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rouge_evaluations_total",
			Help: "Total number of evaluations by outcome",
		},
		[]string{"status"},
	)

	ParseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rouge_report_parse_failures_total",
			Help: "Reports that did not contain the requested output",
		},
		[]string{"reason"},
	)

	ExecutionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rouge_execution_failures_total",
			Help: "ROUGE subprocess runs that failed or could not start",
		},
	)

	AverageFMeasure = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rouge_average_fmeasure",
			Help: "Average F-measure of the latest successful evaluation",
		},
		[]string{"order"},
	)

	SegmentsScored = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rouge_segments_scored",
			Help:    "Number of segments per evaluation",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rouge_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rouge_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rouge_breaker_transitions_total",
			Help: "Circuit breaker state changes",
		},
		[]string{"name", "to"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EvaluationDuration,
			EvaluationsTotal,
			ParseFailures,
			ExecutionFailures,
			AverageFMeasure,
			SegmentsScored,
			CacheHits,
			CacheMisses,
			BreakerTransitions,
		)
	})
}

// ObserveResult records the averages and segment count of a result set.
func ObserveResult(rs *table.ResultSet) {
	segments := 0
	for _, row := range rs.Rows {
		if row.Name != table.AverageRow {
			segments++
			continue
		}
		for col, v := range row.Values {
			if label, ok := strings.CutSuffix(col, "-F"); ok {
				AverageFMeasure.WithLabelValues(label).Set(v)
			}
		}
	}
	SegmentsScored.Observe(float64(segments))
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
