package solver

import (
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

// Classification of a finished solve
type Outcome int

const (
	Optimal               Outcome = iota // 0 : proven optimal
	FeasibleWithinGap                    // 1 : stopped early with a gap within tolerance
	FeasibleOutsideGap                   // 2 : stopped early with a gap above tolerance
	InfeasibleOrUnbounded                // 3 : no feasible assignment or unbounded
	NoSolutionFound                      // 4 : stopped before finding any assignment
)

func (o Outcome) String() string {
	switch o {
	case Optimal:
		return "Optimal"
	case FeasibleWithinGap:
		return "FeasibleWithinGap"
	case FeasibleOutsideGap:
		return "FeasibleOutsideGap"
	case InfeasibleOrUnbounded:
		return "InfeasibleOrUnbounded"
	case NoSolutionFound:
		return "NoSolutionFound"
	default:
		return "Unknown"
	}
}

// Accepted reports whether the solution may be emitted as a plan
func (o Outcome) Accepted() bool {
	return o == Optimal || o == FeasibleWithinGap
}

// All outcomes, in declaration order
func Outcomes() []Outcome {
	return []Outcome{Optimal, FeasibleWithinGap, FeasibleOutsideGap, InfeasibleOrUnbounded, NoSolutionFound}
}

// Classify maps a backend result to an outcome given the accepted relative gap
func Classify(res *mip.Result, gapTolerance float64) Outcome {
	if res == nil {
		return NoSolutionFound
	}
	if res.SolutionCount == 0 {
		switch res.Status {
		case mip.StatusInfeasible, mip.StatusUnbounded, mip.StatusInfOrUnbd:
			return InfeasibleOrUnbounded
		default:
			return NoSolutionFound
		}
	}
	if res.Status == mip.StatusOptimal {
		return Optimal
	}
	if res.Gap <= gapTolerance {
		return FeasibleWithinGap
	}
	return FeasibleOutsideGap
}
