package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/constants"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
)

var (
	solveOutcomes    *prometheus.CounterVec
	solveDuration    *prometheus.HistogramVec
	solveGap         *prometheus.GaugeVec
	solveObjective   *prometheus.GaugeVec
	modelVariables   *prometheus.GaugeVec
	modelConstraints *prometheus.GaugeVec
	planScore        prometheus.Gauge
	pipelineErrors   *prometheus.CounterVec
)

// InitMetrics registers all custom metrics with the provided registry
func InitMetrics(registry prometheus.Registerer) {
	solveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: constants.PlacerSolveOutcomesTotal,
			Help: "Total number of solves by outcome",
		},
		[]string{constants.LabelBackend, constants.LabelOutcome},
	)
	solveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    constants.PlacerSolveDurationSeconds,
			Help:    "Wall-clock time spent in the solver backend",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
		},
		[]string{constants.LabelBackend},
	)
	solveGap = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.PlacerSolveGap,
			Help: "Relative gap of the last solve",
		},
		[]string{constants.LabelBackend},
	)
	solveObjective = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.PlacerSolveObjective,
			Help: "Total latency saved by the incumbent of the last solve",
		},
		[]string{constants.LabelBackend},
	)
	modelVariables = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.PlacerModelVariables,
			Help: "Number of binary variables of the last model by family",
		},
		[]string{constants.LabelFamily},
	)
	modelConstraints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.PlacerModelConstraints,
			Help: "Number of constraints of the last model by family",
		},
		[]string{constants.LabelFamily},
	)
	planScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: constants.PlacerPlanScore,
			Help: "Average latency saved per request of the last plan, in microseconds",
		},
	)
	pipelineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: constants.PlacerErrorsTotal,
			Help: "Total number of pipeline errors",
		},
		[]string{constants.LabelStage, constants.LabelErrorType},
	)

	registry.MustRegister(solveOutcomes)
	registry.MustRegister(solveDuration)
	registry.MustRegister(solveGap)
	registry.MustRegister(solveObjective)
	registry.MustRegister(modelVariables)
	registry.MustRegister(modelConstraints)
	registry.MustRegister(planScore)
	registry.MustRegister(pipelineErrors)
}

// InitMetricsAndEmitter registers metrics with Prometheus and creates a metrics emitter
// This is a convenience function that handles both registration and emitter creation
func InitMetricsAndEmitter(registry prometheus.Registerer) *MetricsEmitter {
	InitMetrics(registry)
	return NewMetricsEmitter()
}

// WriteTextfile writes the gathered metrics in the Prometheus text format
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// MetricsEmitter handles emission of custom metrics; it is a no-op until InitMetrics is called
type MetricsEmitter struct{}

// NewMetricsEmitter creates a new metrics emitter
func NewMetricsEmitter() *MetricsEmitter {
	return &MetricsEmitter{}
}

// EmitModelMetrics emits the size of a built model
func (m *MetricsEmitter) EmitModelMetrics(ctx context.Context, stats formulation.Stats) {
	if modelVariables == nil {
		return
	}
	modelVariables.With(prometheus.Labels{constants.LabelFamily: constants.FamilyPlacement}).Set(float64(stats.PlacementVars))
	modelVariables.With(prometheus.Labels{constants.LabelFamily: constants.FamilyService}).Set(float64(stats.ServiceVars))
	modelConstraints.With(prometheus.Labels{constants.LabelFamily: constants.FamilyCapacity}).Set(float64(stats.CapacityRows))
	modelConstraints.With(prometheus.Labels{constants.LabelFamily: constants.FamilyLink}).Set(float64(stats.LinkRows))
	modelConstraints.With(prometheus.Labels{constants.LabelFamily: constants.FamilyService}).Set(float64(stats.ServiceRows))
}

// EmitSolveMetrics emits the outcome, duration and quality of a solve
func (m *MetricsEmitter) EmitSolveMetrics(ctx context.Context, backend, outcome string, seconds, gap, objective float64) {
	if solveOutcomes == nil {
		return
	}
	labels := prometheus.Labels{constants.LabelBackend: backend}
	solveOutcomes.With(prometheus.Labels{constants.LabelBackend: backend, constants.LabelOutcome: outcome}).Inc()
	solveDuration.With(labels).Observe(seconds)
	solveGap.With(labels).Set(gap)
	solveObjective.With(labels).Set(objective)
}

// EmitScoreMetrics emits the score of an emitted plan
func (m *MetricsEmitter) EmitScoreMetrics(ctx context.Context, score int) {
	if planScore == nil {
		return
	}
	planScore.Set(float64(score))
}

// EmitErrorMetrics emits error-related metrics
func (m *MetricsEmitter) EmitErrorMetrics(ctx context.Context, stage, errorType string) {
	if pipelineErrors == nil {
		return
	}
	pipelineErrors.With(prometheus.Labels{constants.LabelStage: stage, constants.LabelErrorType: errorType}).Inc()
}
