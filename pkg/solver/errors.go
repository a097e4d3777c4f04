package solver

import (
	"fmt"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

// NoAcceptableSolutionError reports a solve that ran but produced nothing to emit
type NoAcceptableSolutionError struct {
	Outcome Outcome
	Status  mip.Status
	Gap     float64
}

func (e *NoAcceptableSolutionError) Error() string {
	if e.Outcome == FeasibleOutsideGap {
		return fmt.Sprintf("no acceptable solution: outcome=%s, status=%s, gap=%g", e.Outcome, e.Status, e.Gap)
	}
	return fmt.Sprintf("no acceptable solution: outcome=%s, status=%s", e.Outcome, e.Status)
}

// SolverUnavailableError reports a backend that could not be initialized
type SolverUnavailableError struct {
	Backend string
	Err     error
}

func (e *SolverUnavailableError) Error() string {
	return fmt.Sprintf("solver %q unavailable: %v", e.Backend, e.Err)
}

func (e *SolverUnavailableError) Unwrap() error {
	return e.Err
}
