package mip

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownVariable = errors.New("unknown variable")

// Handle of a decision variable registered on a Problem
type Var int

// A weighted variable
type Term struct {
	Var  Var
	Coef float64
}

// A linear expression (sum of terms)
type LinExpr []Term

// Append a term; zero coefficients are dropped
func (e LinExpr) Add(v Var, coef float64) LinExpr {
	if coef == 0 {
		return e
	}
	return append(e, Term{Var: v, Coef: coef})
}

// Evaluate the expression at the given variable values
func (e LinExpr) Eval(values []float64) float64 {
	sum := 0.0
	for _, t := range e {
		sum += t.Coef * values[t.Var]
	}
	return sum
}

type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// A linear constraint: Expr Sense RHS
type Constraint struct {
	Name  string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// Satisfied reports whether the constraint holds at values within tol
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Capability to register a model with a solver
type Builder interface {
	// Register a binary decision variable
	AddBinaryVar(name string) Var
	// Set the linear objective
	SetObjective(expr LinExpr, direction Direction)
	// Register a linear constraint
	AddConstraint(name string, expr LinExpr, sense Sense, rhs float64)
}

// A pure binary linear program, independent of any solver backend
type Problem struct {
	name        string
	varNames    []string
	objective   LinExpr
	direction   Direction
	constraints []Constraint
}

func NewProblem(name string) *Problem {
	return &Problem{
		name:      name,
		direction: Maximize,
	}
}

func (p *Problem) AddBinaryVar(name string) Var {
	p.varNames = append(p.varNames, name)
	return Var(len(p.varNames) - 1)
}

func (p *Problem) SetObjective(expr LinExpr, direction Direction) {
	p.objective = expr
	p.direction = direction
}

func (p *Problem) AddConstraint(name string, expr LinExpr, sense Sense, rhs float64) {
	p.constraints = append(p.constraints, Constraint{
		Name:  name,
		Expr:  expr,
		Sense: sense,
		RHS:   rhs,
	})
}

func (p *Problem) Name() string {
	return p.name
}

func (p *Problem) NumVars() int {
	return len(p.varNames)
}

func (p *Problem) NumConstraints() int {
	return len(p.constraints)
}

func (p *Problem) VarName(v Var) string {
	if int(v) < 0 || int(v) >= len(p.varNames) {
		return ""
	}
	return p.varNames[v]
}

func (p *Problem) Objective() (LinExpr, Direction) {
	return p.objective, p.direction
}

func (p *Problem) Constraints() []Constraint {
	return p.constraints
}

// Check verifies that every term references a registered variable
func (p *Problem) Check() error {
	n := Var(len(p.varNames))
	for _, t := range p.objective {
		if t.Var < 0 || t.Var >= n {
			return fmt.Errorf("objective: %w %d", ErrUnknownVariable, t.Var)
		}
	}
	for i := range p.constraints {
		for _, t := range p.constraints[i].Expr {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("constraint %s: %w %d", p.constraints[i].Name, ErrUnknownVariable, t.Var)
			}
		}
	}
	return nil
}

// Feasible reports whether an assignment is binary and satisfies every constraint
func (p *Problem) Feasible(values []float64, tol float64) bool {
	if len(values) != len(p.varNames) {
		return false
	}
	for _, x := range values {
		if math.Abs(x) > tol && math.Abs(x-1) > tol {
			return false
		}
	}
	for i := range p.constraints {
		if !p.constraints[i].Satisfied(values, tol) {
			return false
		}
	}
	return true
}

// Objective value of an assignment
func (p *Problem) Evaluate(values []float64) float64 {
	return p.objective.Eval(values)
}
