package branchbound

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// values of a variable in a node: free or fixed to 0/1
const (
	free  int8 = -1
	zero  int8 = 0
	one   int8 = 1
	epsLP      = 1e-10
)

type lpSolution struct {
	status lpStatus
	obj    float64   // minimization objective including fixed variables
	x      []float64 // value of every problem variable
}

// LP relaxation of a binary problem in minimization form
type relaxation struct {
	problem *mip.Problem
	c       []float64 // minimization costs
	floor   float64   // sum of the negative costs, a bound valid without any relaxation
	tol     float64
}

func newRelaxation(p *mip.Problem, sign float64, tol float64) *relaxation {
	c := make([]float64, p.NumVars())
	obj, _ := p.Objective()
	for _, t := range obj {
		c[t.Var] += sign * t.Coef
	}
	floor := 0.0
	for _, v := range c {
		floor += math.Min(0, v)
	}
	return &relaxation{
		problem: p,
		c:       c,
		floor:   floor,
		tol:     tol,
	}
}

// a reduced inequality row over free columns: sum coef*x <= rhs
type reducedRow struct {
	cols []int
	coef []float64
	rhs  float64
}

// solve the relaxation with some variables fixed; fixed has one entry per variable
func (r *relaxation) solve(fixed []int8) (*lpSolution, error) {
	n := len(fixed)
	column := make([]int, n) // variable -> free column, -1 if fixed
	var freeVars []int
	constant := 0.0
	for j, f := range fixed {
		column[j] = -1
		switch f {
		case free:
			column[j] = len(freeVars)
			freeVars = append(freeVars, j)
		case one:
			constant += r.c[j]
		}
	}

	var rows []reducedRow
	for _, con := range r.problem.Constraints() {
		fixedSum := 0.0
		var cols []int
		var coef []float64
		for _, t := range con.Expr {
			if col := column[t.Var]; col >= 0 {
				cols = append(cols, col)
				coef = append(coef, t.Coef)
			} else if fixed[t.Var] == one {
				fixedSum += t.Coef
			}
		}
		rhs := con.RHS - fixedSum
		if len(cols) == 0 {
			if !satisfiedConstant(con.Sense, rhs, r.tol) {
				return &lpSolution{status: lpInfeasible}, nil
			}
			continue
		}
		if con.Sense == mip.LessEqual || con.Sense == mip.Equal {
			rows = append(rows, reducedRow{cols: cols, coef: coef, rhs: rhs})
		}
		if con.Sense == mip.GreaterEqual || con.Sense == mip.Equal {
			neg := make([]float64, len(coef))
			for i, v := range coef {
				neg[i] = -v
			}
			rows = append(rows, reducedRow{cols: cols, coef: neg, rhs: -rhs})
		}
	}

	x := make([]float64, n)
	for j, f := range fixed {
		if f == one {
			x[j] = 1
		}
	}
	nFree := len(freeVars)
	if nFree == 0 {
		return &lpSolution{status: lpOptimal, obj: constant, x: x}, nil
	}

	// upper bounds of the free binaries not already implied by a row
	bounded := impliedUpperBounds(rows, nFree)
	for col := range freeVars {
		if !bounded[col] {
			rows = append(rows, reducedRow{cols: []int{col}, coef: []float64{1}, rhs: 1})
		}
	}

	// standard form: [A_free | S] [x; s] = b with one slack per row
	m := len(rows)
	nCols := nFree + m
	A := mat.NewDense(m, nCols, nil)
	b := make([]float64, m)
	cStd := make([]float64, nCols)
	for col, j := range freeVars {
		cStd[col] = r.c[j]
	}
	slackBasis := true
	for i, row := range rows {
		sign := 1.0
		if row.rhs < 0 {
			sign = -1
			slackBasis = false
		}
		for k, col := range row.cols {
			A.Set(i, col, A.At(i, col)+sign*row.coef[k])
		}
		A.Set(i, nFree+i, sign)
		b[i] = sign * row.rhs
	}
	var basis []int
	if slackBasis {
		basis = make([]int, m)
		for i := range basis {
			basis[i] = nFree + i
		}
	}

	optF, optX, err := lp.Simplex(cStd, A, b, epsLP, basis)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &lpSolution{status: lpInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &lpSolution{status: lpUnbounded, obj: math.Inf(-1)}, nil
	case err != nil:
		return nil, fmt.Errorf("lp relaxation failed: %w", err)
	}

	for col, j := range freeVars {
		x[j] = math.Min(1, math.Max(0, optX[col]))
	}
	return &lpSolution{status: lpOptimal, obj: optF + constant, x: x}, nil
}

// columns whose value is kept at or below 1 by a row sum coef*x <= rhs with no
// negative coefficient, such as the at-most-one rows of the service variables
func impliedUpperBounds(rows []reducedRow, nFree int) []bool {
	bounded := make([]bool, nFree)
	for _, row := range rows {
		if row.rhs < 0 || slices.ContainsFunc(row.coef, func(v float64) bool { return v < 0 }) {
			continue
		}
		for k, col := range row.cols {
			if row.coef[k] > 0 && row.coef[k] >= row.rhs {
				bounded[col] = true
			}
		}
	}
	return bounded
}

func satisfiedConstant(sense mip.Sense, rhs float64, tol float64) bool {
	switch sense {
	case mip.LessEqual:
		return 0 <= rhs+tol
	case mip.GreaterEqual:
		return 0 >= rhs-tol
	default:
		return math.Abs(rhs) <= tol
	}
}
