// Package constants provides centralized constant definitions for the placer.
package constants

// Placer Output Metrics
// These metric names are used to emit solve and plan metrics to Prometheus,
// either served on /metrics or written to a text file after a CLI run.
const (
	// PlacerSolveOutcomesTotal is a counter of solves by classified outcome.
	// Labels: backend, outcome
	PlacerSolveOutcomesTotal = "placer_solve_outcomes_total"

	// PlacerSolveDurationSeconds is a histogram of the wall-clock time spent in the backend.
	// Labels: backend
	PlacerSolveDurationSeconds = "placer_solve_duration_seconds"

	// PlacerSolveGap is a gauge of the relative gap of the last solve.
	// Labels: backend
	PlacerSolveGap = "placer_solve_gap"

	// PlacerSolveObjective is a gauge of the incumbent objective of the last solve.
	// Labels: backend
	PlacerSolveObjective = "placer_solve_objective"

	// PlacerModelVariables is a gauge of the binary variables of the last model.
	// Labels: family (placement/service)
	PlacerModelVariables = "placer_model_variables"

	// PlacerModelConstraints is a gauge of the constraints of the last model.
	// Labels: family (capacity/link/service)
	PlacerModelConstraints = "placer_model_constraints"

	// PlacerPlanScore is a gauge of the score of the last plan.
	PlacerPlanScore = "placer_plan_score"

	// PlacerErrorsTotal is a counter of pipeline errors.
	// Labels: stage, error_type
	PlacerErrorsTotal = "placer_errors_total"
)

// Metric Label Names
// Common label names used across metrics for consistency.
const (
	LabelBackend   = "backend"
	LabelOutcome   = "outcome"
	LabelFamily    = "family"
	LabelStage     = "stage"
	LabelErrorType = "error_type"
)

// Values of the family label
const (
	FamilyPlacement = "placement"
	FamilyService   = "service"
	FamilyCapacity  = "capacity"
	FamilyLink      = "link"
)
