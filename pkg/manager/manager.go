package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/internal/metrics"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/loader"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/placement"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/solver"
)

// Name of the model registered with the solver
const ModelName = "videos"

// Manager runs the placement pipeline: load, build, solve, decode and emit
type Manager struct {
	config       *config.Config
	orchestrator *solver.Orchestrator
	fs           afero.Fs
	emitter      *metrics.MetricsEmitter
}

func NewManager(cfg *config.Config, orchestrator *solver.Orchestrator) *Manager {
	return &Manager{
		config:       cfg,
		orchestrator: orchestrator,
		fs:           afero.NewOsFs(),
		emitter:      metrics.NewMetricsEmitter(),
	}
}

// file system used for every file the pipeline reads or writes
func (m *Manager) WithFs(fs afero.Fs) *Manager {
	m.fs = fs
	return m
}

func (m *Manager) WithEmitter(emitter *metrics.MetricsEmitter) *Manager {
	m.emitter = emitter
	return m
}

// Outcome of a pipeline run; fields are filled as far as the run got
type Result struct {
	Instance    *core.ProblemInstance
	Formulation *formulation.Formulation
	Solution    *solver.Solution
	Plan        *placement.Plan
	Report      *RunReport
}

// Run loads the configured dataset, optimizes it and writes the plan.
// Nothing is written when the solve outcome is rejected.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	res := &Result{Report: &RunReport{}}
	start := time.Now()
	inst, err := loader.LoadFS(ctx, m.fs, m.config.DatasetPath, loader.OptionsFromConfig(m.config))
	res.Report.Timings.LoadMsec = time.Since(start).Milliseconds()
	if err != nil {
		m.emitter.EmitErrorMetrics(ctx, "load", ErrorType(err))
		return m.finish(res, err)
	}
	res.Instance = inst
	res.Report.Dataset = newDatasetStats(inst, m.config.DatasetPath, m.config.Truncation.String())

	if err := m.optimize(ctx, res); err != nil {
		return m.finish(res, err)
	}

	if err := placement.WriteFile(m.fs, m.config.OutputPath, res.Plan); err != nil {
		m.emitter.EmitErrorMetrics(ctx, "write", ErrorType(err))
		return m.finish(res, err)
	}
	res.Report.Plan.Path = m.config.OutputPath
	logger.Log.Infow("plan written", "path", m.config.OutputPath, "caches", res.Plan.NumCaches(),
		"placements", res.Plan.NumPlacements(), "score", res.Report.Plan.Score)
	return m.finish(res, nil)
}

// Optimize builds, solves and decodes an already loaded instance without writing the plan
func (m *Manager) Optimize(ctx context.Context, inst *core.ProblemInstance) (*Result, error) {
	res := &Result{
		Instance: inst,
		Report:   &RunReport{Dataset: newDatasetStats(inst, "", m.config.Truncation.String())},
	}
	err := m.optimize(ctx, res)
	if err != nil {
		res.Report.Error = err.Error()
	}
	return res, err
}

func (m *Manager) optimize(ctx context.Context, res *Result) error {
	inst := res.Instance
	report := res.Report

	start := time.Now()
	problem := mip.NewProblem(ModelName)
	form, err := formulation.Build(inst, problem)
	report.Timings.BuildMsec = time.Since(start).Milliseconds()
	if err != nil {
		m.emitter.EmitErrorMetrics(ctx, "build", ErrorType(err))
		return err
	}
	res.Formulation = form
	report.Model = form.Stats()
	m.emitter.EmitModelMetrics(ctx, report.Model)
	logger.Log.Infow("model built", "variables", problem.NumVars(), "constraints", problem.NumConstraints())

	if m.config.ModelFile != "" {
		if err := m.writeModel(problem); err != nil {
			m.emitter.EmitErrorMetrics(ctx, "build", ErrorType(err))
			return err
		}
	}

	backend := m.orchestrator.Backend().Name()
	report.Solve.Backend = backend
	var startValues []float64
	if m.config.Optimizer.WarmStart {
		if startValues, err = solver.WarmStart(inst, form, problem); err != nil {
			return err
		}
		report.Solve.WarmStart = true
		report.Solve.WarmStartObjective = problem.Evaluate(startValues)
	}

	sol, err := m.orchestrator.SolveFrom(ctx, problem, startValues)
	report.Timings.SolveMsec = m.orchestrator.GetSolutionTimeMsec()
	if sol != nil {
		res.Solution = sol
		report.Solve.Outcome = sol.Outcome.String()
		report.Solve.Status = sol.Status.String()
		report.Solve.Objective = sol.Objective
		report.Solve.BestBound = sol.BestBound
		report.Solve.Gap = sol.Gap
		report.Solve.Nodes = sol.Nodes
		m.emitter.EmitSolveMetrics(ctx, backend, sol.Outcome.String(),
			float64(report.Timings.SolveMsec)/1000, sol.Gap, sol.Objective)
	}
	if err != nil {
		m.emitter.EmitErrorMetrics(ctx, "solve", ErrorType(err))
		return err
	}

	start = time.Now()
	plan, err := placement.Decode(inst, form, sol.Values)
	if err != nil {
		m.emitter.EmitErrorMetrics(ctx, "decode", ErrorType(err))
		return err
	}
	if err := plan.Validate(inst); err != nil {
		m.emitter.EmitErrorMetrics(ctx, "decode", ErrorType(err))
		return fmt.Errorf("decoded plan is invalid: %w", err)
	}
	report.Timings.DecodeMsec = time.Since(start).Milliseconds()
	res.Plan = plan
	report.Plan = &PlanStats{
		Caches:     plan.NumCaches(),
		Placements: plan.NumPlacements(),
		Score:      placement.Score(inst, plan),
	}
	m.emitter.EmitScoreMetrics(ctx, report.Plan.Score)
	return nil
}

func (m *Manager) writeModel(p *mip.Problem) error {
	f, err := m.fs.Create(m.config.ModelFile)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := mip.WriteMPS(f, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	logger.Log.Infow("model written", "path", m.config.ModelFile)
	return nil
}

// record the error and write the report if configured
func (m *Manager) finish(res *Result, err error) (*Result, error) {
	if err != nil {
		res.Report.Error = err.Error()
	}
	if m.config.ReportFile != "" {
		if werr := WriteReport(m.fs, m.config.ReportFile, res.Report); werr != nil {
			logger.Log.Errorw("failed to write report", "path", m.config.ReportFile, "error", werr)
		}
	}
	return res, err
}

// label for the errors_total metric
func ErrorType(err error) string {
	var tooLarge *http.MaxBytesError
	var malformed *loader.MalformedInputError
	var unavailable *solver.SolverUnavailableError
	var rejected *solver.NoAcceptableSolutionError
	switch {
	case errors.As(err, &tooLarge):
		return "BodyTooLarge"
	case errors.As(err, &malformed):
		return "MalformedInput"
	case errors.As(err, &unavailable):
		return "SolverUnavailable"
	case errors.As(err, &rejected):
		return "NoAcceptableSolution"
	case errors.Is(err, formulation.ErrInconsistentInstance):
		return "InconsistentInstance"
	case errors.Is(err, placement.ErrCapacityExceeded):
		return "CapacityExceeded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Internal"
	}
}
