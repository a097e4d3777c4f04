package solver

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

// Solution of an orchestrated solve
type Solution struct {
	Outcome   Outcome
	Status    mip.Status
	Objective float64
	BestBound float64
	Gap       float64
	Nodes     int
	Values    []float64 // incumbent, nil when there is none
}

// Value of a variable in the incumbent; 0 if there is none
func (s *Solution) Value(v mip.Var) float64 {
	if s == nil || int(v) < 0 || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Orchestrator runs a backend under the configured limits and decides
// whether its result is acceptable. There are no retries.
type Orchestrator struct {
	spec             *config.OptimizerSpec
	backend          mip.Solver
	solutionTimeMsec int64
}

// Create an orchestrator around a given backend
func NewOrchestrator(spec *config.OptimizerSpec, backend mip.Solver) *Orchestrator {
	return &Orchestrator{
		spec:    spec,
		backend: backend,
	}
}

// Create an orchestrator with the backend named in the spec
func NewOrchestratorFromSpec(spec *config.OptimizerSpec, log *zap.SugaredLogger) (*Orchestrator, error) {
	if spec == nil {
		return nil, &SolverUnavailableError{Err: fmt.Errorf("missing optimizer spec")}
	}
	if err := spec.Validate(); err != nil {
		return nil, &SolverUnavailableError{Backend: spec.Backend, Err: err}
	}
	backend, err := NewBackend(spec.Backend, log)
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(spec, backend), nil
}

// Solve runs the backend on the problem
func (o *Orchestrator) Solve(ctx context.Context, p *mip.Problem) (*Solution, error) {
	return o.SolveFrom(ctx, p, nil)
}

// SolveFrom runs the backend seeded with a starting assignment (ignored if nil or infeasible).
// A solution is returned with a *NoAcceptableSolutionError when its outcome is not accepted.
func (o *Orchestrator) SolveFrom(ctx context.Context, p *mip.Problem, start []float64) (*Solution, error) {
	if o.backend == nil {
		return nil, &SolverUnavailableError{Err: fmt.Errorf("no backend")}
	}
	params := mip.Params{
		TimeLimit: o.spec.TimeLimit,
		MIPGap:    o.spec.MIPGap,
		MaxNodes:  o.spec.MaxNodes,
		Start:     start,
	}
	logger.Log.Infow("solve started", "backend", o.backend.Name(), "variables", p.NumVars(),
		"constraints", p.NumConstraints(), "timeLimit", o.spec.TimeLimit.String(), "mipGap", o.spec.MIPGap,
		"warmStart", start != nil)

	startTime := time.Now()
	res, err := o.backend.Solve(ctx, p, params)
	o.solutionTimeMsec = time.Since(startTime).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("backend %s failed: %w", o.backend.Name(), err)
	}

	sol := &Solution{
		Outcome:   Classify(res, o.spec.MIPGap),
		Status:    res.Status,
		Objective: res.ObjectiveValue,
		BestBound: res.BestBound,
		Gap:       res.Gap,
		Nodes:     res.Nodes,
	}
	if res.HasSolution() {
		sol.Values = res.Solution
	}
	logger.Log.Infow("solve finished", "outcome", sol.Outcome.String(), "status", res.Status.String(),
		"solutions", res.SolutionCount, "objective", sol.Objective, "bound", sol.BestBound, "gap", sol.Gap,
		"nodes", sol.Nodes, "solutionTimeMsec", o.solutionTimeMsec)

	if !sol.Outcome.Accepted() {
		return sol, &NoAcceptableSolutionError{Outcome: sol.Outcome, Status: res.Status, Gap: res.Gap}
	}
	return sol, nil
}

func (o *Orchestrator) Backend() mip.Solver {
	return o.backend
}

func (o *Orchestrator) Spec() *config.OptimizerSpec {
	return o.spec
}

func (o *Orchestrator) GetSolutionTimeMsec() int64 {
	return o.solutionTimeMsec
}

func (o *Orchestrator) String() string {
	var b bytes.Buffer
	b.WriteString("Orchestrator: ")
	if o.backend != nil {
		fmt.Fprintf(&b, "backend=%s; ", o.backend.Name())
	}
	if o.spec != nil {
		fmt.Fprintf(&b, "timeLimit=%v; mipGap=%v; ", o.spec.TimeLimit, o.spec.MIPGap)
	}
	fmt.Fprintf(&b, "solutionTime=%d msec", o.solutionTimeMsec)
	return b.String()
}
