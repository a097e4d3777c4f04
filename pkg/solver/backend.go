package solver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip/branchbound"
)

var ErrUnknownBackend = errors.New("unknown backend")

// Backend names accepted by NewBackend
func Backends() []string {
	return []string{branchbound.Name}
}

// NewBackend creates a solver backend by name; progress goes to log
func NewBackend(name string, log *zap.SugaredLogger) (mip.Solver, error) {
	switch name {
	case branchbound.Name:
		return branchbound.NewSolver(log), nil
	default:
		return nil, &SolverUnavailableError{Backend: name, Err: ErrUnknownBackend}
	}
}
