package branchbound

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

const (
	Name = "branchbound"

	// tolerance for integrality and feasibility checks
	DefaultTolerance = 1e-6

	// progress is logged every this many nodes
	DefaultLogInterval = 100
)

// Solver is a best-first branch-and-bound over binary problems.
// Every node relaxation is solved with the gonum simplex method.
type Solver struct {
	log         *zap.SugaredLogger
	tolerance   float64
	logInterval int
}

// Create a solver writing progress to the given logger; nil discards progress
func NewSolver(log *zap.SugaredLogger) *Solver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Solver{
		log:         log,
		tolerance:   DefaultTolerance,
		logInterval: DefaultLogInterval,
	}
}

func (s *Solver) Name() string {
	return Name
}

// a search node: fixed variables and the relaxation solved under them
type node struct {
	seq   int
	depth int
	fixed []int8
	bound float64 // relaxation objective, minimization form
	x     []float64
}

// open nodes ordered by bound, deeper nodes first on ties
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	if q[i].depth != q[j].depth {
		return q[i].depth > q[j].depth
	}
	return q[i].seq < q[j].seq
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// search state of one solve
type search struct {
	*Solver
	problem *mip.Problem
	rel     *relaxation
	sign    float64 // +1 minimize, -1 maximize

	ctx        context.Context
	deadline   time.Time
	maxNodes   int
	rootSolved bool

	incumbent    []float64
	incumbentObj float64 // minimization form
	solutions    int

	open  nodeQueue
	seq   int
	nodes int
}

// Solve searches for an optimal binary assignment within the given limits.
// Limits are checked before every relaxation, and a relaxation still running at the
// deadline or at cancellation is abandoned.
func (s *Solver) Solve(ctx context.Context, p *mip.Problem, params mip.Params) (*mip.Result, error) {
	if p == nil {
		return nil, fmt.Errorf("nil problem")
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	startTime := time.Now()
	var deadline time.Time
	if params.TimeLimit > 0 {
		deadline = startTime.Add(params.TimeLimit)
	}

	_, direction := p.Objective()
	sign := 1.0
	if direction == mip.Maximize {
		sign = -1
	}
	st := &search{
		Solver:       s,
		problem:      p,
		rel:          newRelaxation(p, sign, s.tolerance),
		sign:         sign,
		ctx:          ctx,
		deadline:     deadline,
		maxNodes:     params.MaxNodes,
		incumbentObj: math.Inf(1),
	}
	s.log.Infow("branch-and-bound started", "problem", p.Name(), "variables", p.NumVars(),
		"constraints", p.NumConstraints(), "timeLimit", params.TimeLimit.String(), "mipGap", params.MIPGap)

	if len(params.Start) == p.NumVars() {
		if st.offer(params.Start) {
			s.log.Infow("warm start accepted", "objective", st.sign*st.incumbentObj)
		} else {
			s.log.Infow("warm start rejected")
		}
	}

	fixed := make([]int8, p.NumVars())
	for j := range fixed {
		fixed[j] = free
	}
	root, stop, err := st.solveNode(fixed)
	if err != nil {
		return nil, err
	}
	if stop != mip.StatusUnknown {
		return st.finish(stop, startTime), nil
	}
	switch root.status {
	case lpInfeasible:
		return st.result(mip.StatusInfeasible, startTime), nil
	case lpUnbounded:
		return st.result(mip.StatusUnbounded, startTime), nil
	}
	st.rootSolved = true
	st.consider(fixed, 0, root)

	status := mip.StatusOptimal
	for st.open.Len() > 0 {
		if st.solutions > 0 && mip.RelativeGap(st.objective(), st.bound()) <= params.MIPGap {
			break
		}
		nd := heap.Pop(&st.open).(*node)
		if nd.bound >= st.incumbentObj-s.tolerance {
			continue
		}
		stop, err := st.branch(nd)
		if err != nil {
			return nil, err
		}
		if stop != mip.StatusUnknown {
			status = stop
			break
		}
		if st.nodes%s.logInterval == 0 {
			st.progress()
		}
	}
	if status == mip.StatusOptimal && st.solutions == 0 {
		status = mip.StatusInfeasible
	}
	return st.finish(status, startTime), nil
}

func (st *search) finish(status mip.Status, startTime time.Time) *mip.Result {
	res := st.result(status, startTime)
	st.log.Infow("branch-and-bound finished", "status", res.Status.String(), "solutions", res.SolutionCount,
		"objective", res.ObjectiveValue, "bound", res.BestBound, "gap", res.Gap, "nodes", res.Nodes,
		"runtime", res.Runtime.String())
	return res
}

// limit reached before a relaxation may start; StatusUnknown when none is
func (st *search) limit() mip.Status {
	switch {
	case st.ctx.Err() != nil:
		return mip.StatusInterrupted
	case !st.deadline.IsZero() && !time.Now().Before(st.deadline):
		return mip.StatusTimeLimit
	case st.maxNodes > 0 && st.nodes >= st.maxNodes:
		return mip.StatusNodeLimit
	default:
		return mip.StatusUnknown
	}
}

type lpOutcome struct {
	sol *lpSolution
	err error
}

// solve one node relaxation unless a limit stops it first.
// The simplex cannot be interrupted, so at the deadline or on cancellation its
// goroutine is left to finish and its result is dropped.
func (st *search) solveNode(fixed []int8) (*lpSolution, mip.Status, error) {
	if stop := st.limit(); stop != mip.StatusUnknown {
		return nil, stop, nil
	}
	done := make(chan lpOutcome, 1)
	go func() {
		sol, err := st.rel.solve(fixed)
		done <- lpOutcome{sol: sol, err: err}
	}()

	var timeout <-chan time.Time
	if !st.deadline.IsZero() {
		timer := time.NewTimer(time.Until(st.deadline))
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case out := <-done:
		if out.err != nil {
			return nil, mip.StatusUnknown, out.err
		}
		st.nodes++
		return out.sol, mip.StatusUnknown, nil
	case <-timeout:
		return nil, mip.StatusTimeLimit, nil
	case <-st.ctx.Done():
		return nil, mip.StatusInterrupted, nil
	}
}

// split a node on its most fractional variable; a stopped branch puts the node back
func (st *search) branch(nd *node) (mip.Status, error) {
	j := st.mostFractional(nd.x)
	if j < 0 {
		return mip.StatusUnknown, nil
	}
	for _, value := range []int8{one, zero} {
		fixed := slices.Clone(nd.fixed)
		fixed[j] = value
		sol, stop, err := st.solveNode(fixed)
		if err != nil {
			return mip.StatusUnknown, err
		}
		if stop != mip.StatusUnknown {
			heap.Push(&st.open, nd)
			return stop, nil
		}
		if sol.status != lpOptimal {
			continue
		}
		st.consider(fixed, nd.depth+1, sol)
	}
	return mip.StatusUnknown, nil
}

// record an integral relaxation as a solution or queue a fractional one
func (st *search) consider(fixed []int8, depth int, sol *lpSolution) {
	if sol.obj >= st.incumbentObj-st.tolerance {
		return
	}
	if st.mostFractional(sol.x) < 0 {
		st.offer(st.round(sol.x, 0.5))
		return
	}
	st.offer(st.round(sol.x, 1-st.tolerance))
	st.offer(st.round(sol.x, 0.5))
	st.seq++
	heap.Push(&st.open, &node{
		seq:   st.seq,
		depth: depth,
		fixed: fixed,
		bound: sol.obj,
		x:     sol.x,
	})
}

// accept values as the incumbent if feasible and better
func (st *search) offer(values []float64) bool {
	if !st.problem.Feasible(values, st.tolerance) {
		return false
	}
	obj := st.sign * st.problem.Evaluate(values)
	if obj >= st.incumbentObj-st.tolerance && st.solutions > 0 {
		return false
	}
	st.incumbent = slices.Clone(values)
	st.incumbentObj = obj
	st.solutions++
	st.log.Debugw("new incumbent", "objective", st.sign*obj, "nodes", st.nodes)
	return true
}

// index of the variable farthest from integrality, -1 if all are integral
func (st *search) mostFractional(x []float64) int {
	best, bestDist := -1, st.tolerance
	for j, v := range x {
		dist := math.Min(v-math.Floor(v), math.Ceil(v)-v)
		if dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func (st *search) round(x []float64, threshold float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if v >= threshold {
			out[j] = 1
		}
	}
	return out
}

// incumbent objective in the problem's direction
func (st *search) objective() float64 {
	if st.solutions == 0 {
		return math.NaN()
	}
	return st.sign * st.incumbentObj
}

// best bound in the problem's direction; before the root relaxation is solved
// only the bound of setting every variable to its better value is known
func (st *search) bound() float64 {
	lower := st.incumbentObj
	if st.open.Len() > 0 {
		lower = math.Min(lower, st.open[0].bound)
	}
	if !st.rootSolved {
		lower = math.Min(lower, st.rel.floor)
	}
	return st.sign * lower
}

func (st *search) progress() {
	st.log.Infow("branch-and-bound progress", "nodes", st.nodes, "open", st.open.Len(),
		"solutions", st.solutions, "incumbent", st.objective(), "bound", st.bound())
}

func (st *search) result(status mip.Status, startTime time.Time) *mip.Result {
	res := &mip.Result{
		Status:        status,
		SolutionCount: st.solutions,
		Nodes:         st.nodes,
		Runtime:       time.Since(startTime),
		Gap:           math.Inf(1),
	}
	if st.solutions > 0 {
		res.ObjectiveValue = st.objective()
		res.BestBound = st.bound()
		res.Gap = mip.RelativeGap(res.ObjectiveValue, res.BestBound)
		res.Solution = slices.Clone(st.incumbent)
	}
	return res
}
