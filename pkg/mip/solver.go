package mip

import (
	"context"
	"math"
	"time"
)

// Status reported by a solver backend at the end of a solve
type Status int

const (
	StatusUnknown     Status = iota // no status
	StatusOptimal                   // proven optimal within the requested gap
	StatusInfeasible                // no feasible assignment exists
	StatusUnbounded                 // the relaxation is unbounded
	StatusInfOrUnbd                 // infeasible or unbounded, not decided
	StatusTimeLimit                 // stopped by the time limit
	StatusNodeLimit                 // stopped by the node budget
	StatusInterrupted               // stopped by context cancellation
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusInfOrUnbd:
		return "InfeasibleOrUnbounded"
	case StatusTimeLimit:
		return "TimeLimit"
	case StatusNodeLimit:
		return "NodeLimit"
	case StatusInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Solve parameters
type Params struct {
	TimeLimit time.Duration // wall-clock budget, 0 for none
	MIPGap    float64       // stop once the relative gap is at most this value
	MaxNodes  int           // node budget, 0 for none
	Start     []float64     // optional starting assignment, ignored if infeasible
}

// Outcome of a solve; Solution holds the incumbent when SolutionCount > 0
type Result struct {
	Status         Status
	SolutionCount  int
	ObjectiveValue float64
	BestBound      float64
	Gap            float64
	Nodes          int
	Runtime        time.Duration
	Solution       []float64
}

// Value of a variable in the incumbent; 0 if there is none
func (r *Result) Value(v Var) float64 {
	if r == nil || int(v) < 0 || int(v) >= len(r.Solution) {
		return 0
	}
	return r.Solution[v]
}

// HasSolution reports whether an incumbent exists
func (r *Result) HasSolution() bool {
	return r != nil && r.SolutionCount > 0 && r.Solution != nil
}

// Capability to optimize a Problem
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem, params Params) (*Result, error)
}

// RelativeGap is |bound - objective| / |objective|; 0 when both are 0 and +Inf when only the objective is 0
func RelativeGap(objective, bound float64) float64 {
	diff := math.Abs(bound - objective)
	if diff <= 1e-9 {
		return 0
	}
	if math.Abs(objective) <= 1e-9 {
		return math.Inf(1)
	}
	return diff / math.Abs(objective)
}
