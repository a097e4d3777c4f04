package mip

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maximize 40 y s.t. 3 a + 2 b <= 4, y - a <= 0, y <= 1
func newTinyProblem() (*Problem, Var, Var, Var) {
	p := NewProblem("videos")
	a := p.AddBinaryVar("x_0_0")
	b := p.AddBinaryVar("x_1_0")
	y := p.AddBinaryVar("y_0_0")
	p.SetObjective(LinExpr{}.Add(y, 40), Maximize)
	p.AddConstraint("CacheCap_0", LinExpr{}.Add(a, 3).Add(b, 2), LessEqual, 4)
	p.AddConstraint("Link_0_0", LinExpr{}.Add(y, 1).Add(a, -1), LessEqual, 0)
	p.AddConstraint("UniqueService_0", LinExpr{}.Add(y, 1), LessEqual, 1)
	return p, a, b, y
}

func TestLinExpr(t *testing.T) {
	e := LinExpr{}.Add(0, 2).Add(1, 0).Add(2, -1.5)
	assert.Len(t, e, 2, "zero coefficients are dropped")
	assert.InDelta(t, 0.5, e.Eval([]float64{1, 7, 1}), 1e-12)
}

func TestProblem(t *testing.T) {
	p, _, b, _ := newTinyProblem()

	assert.Equal(t, "videos", p.Name())
	assert.Equal(t, 3, p.NumVars())
	assert.Equal(t, 3, p.NumConstraints())
	assert.Equal(t, "x_1_0", p.VarName(b))
	assert.Equal(t, "", p.VarName(Var(9)))
	_, dir := p.Objective()
	assert.Equal(t, Maximize, dir)
	require.NoError(t, p.Check())

	tests := []struct {
		name     string
		values   []float64
		feasible bool
		obj      float64
	}{
		{name: "serve from cached video", values: []float64{1, 0, 1}, feasible: true, obj: 40},
		{name: "nothing placed", values: []float64{0, 0, 0}, feasible: true, obj: 0},
		{name: "capacity overflow", values: []float64{1, 1, 0}, feasible: false, obj: 0},
		{name: "service without placement", values: []float64{0, 1, 1}, feasible: false, obj: 40},
		{name: "fractional value", values: []float64{0.5, 0, 0.5}, feasible: false, obj: 20},
		{name: "wrong length", values: []float64{1, 0}, feasible: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.feasible, p.Feasible(tt.values, 1e-9))
			if len(tt.values) == p.NumVars() {
				assert.InDelta(t, tt.obj, p.Evaluate(tt.values), 1e-12)
			}
		})
	}
}

func TestProblem_CheckUnknownVariable(t *testing.T) {
	p := NewProblem("bad")
	v := p.AddBinaryVar("v")
	p.AddConstraint("c", LinExpr{}.Add(v, 1).Add(Var(3), 1), LessEqual, 1)
	err := p.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVariable))
}

func TestConstraint_Satisfied(t *testing.T) {
	values := []float64{1, 1}
	expr := LinExpr{}.Add(0, 1).Add(1, 1)
	tests := []struct {
		name  string
		sense Sense
		rhs   float64
		want  bool
	}{
		{name: "le holds", sense: LessEqual, rhs: 2, want: true},
		{name: "le violated", sense: LessEqual, rhs: 1, want: false},
		{name: "ge holds", sense: GreaterEqual, rhs: 2, want: true},
		{name: "ge violated", sense: GreaterEqual, rhs: 3, want: false},
		{name: "eq holds", sense: Equal, rhs: 2, want: true},
		{name: "eq violated", sense: Equal, rhs: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Constraint{Expr: expr, Sense: tt.sense, RHS: tt.rhs}
			assert.Equal(t, tt.want, c.Satisfied(values, 1e-9))
		})
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOptimal, "Optimal"},
		{StatusInfeasible, "Infeasible"},
		{StatusUnbounded, "Unbounded"},
		{StatusInfOrUnbd, "InfeasibleOrUnbounded"},
		{StatusTimeLimit, "TimeLimit"},
		{StatusNodeLimit, "NodeLimit"},
		{StatusInterrupted, "Interrupted"},
		{Status(99), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestRelativeGap(t *testing.T) {
	assert.Equal(t, 0.0, RelativeGap(0, 0))
	assert.True(t, math.IsInf(RelativeGap(0, 5), 1))
	assert.InDelta(t, 0.25, RelativeGap(40, 50), 1e-12)
	assert.InDelta(t, 0.25, RelativeGap(-40, -50), 1e-12)
	assert.Equal(t, 0.0, RelativeGap(40, 40))
}

func TestResult_Value(t *testing.T) {
	var nilResult *Result
	assert.Equal(t, 0.0, nilResult.Value(0))
	assert.False(t, nilResult.HasSolution())

	r := &Result{SolutionCount: 1, Solution: []float64{1, 0}}
	assert.True(t, r.HasSolution())
	assert.Equal(t, 1.0, r.Value(0))
	assert.Equal(t, 0.0, r.Value(5))
}
