package milp

import (
	"context"
	"math"
)

type Status int

const (
	// Optimal means the solution is proven optimal
	Optimal Status = iota
	// Feasible means a limit was reached and the solution is the best one found so far (not proven optimal)
	Feasible
	Infeasible
	Unbounded
	// Unknown means a limit was reached before any feasible solution was found
	Unknown
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

type Solution struct {
	Status    Status
	Objective float64
	Values    []float64 // Indexed as Problem.Variables; nil unless Status is Optimal or Feasible
}

// Rounded returns the value of the variable rounded to the nearest integer, absorbing the floating-point noise of solver outputs
func (solution Solution) Rounded(variable int) int64 {
	return int64(math.Round(solution.Values[variable]))
}

type Solver interface {
	// Solve returns a non-nil error only when the solver itself fails (missing executable, abnormal termination,
	// unreadable output). Infeasibility and unboundedness are valid outputs reported through Solution.Status
	Solve(ctx context.Context, problem *Problem) (Solution, error)
	Name() string
}
