package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	integralityTolerance = 1e-6
	simplexTolerance     = 1e-10
	pruneTolerance       = 1e-9
)

// branchAndBoundSolver solves the problem in-process: LP relaxations are solved with gonum's simplex and
// integrality is enforced by depth-first branching on the most fractional variable
type branchAndBoundSolver struct {
	timeLimit time.Duration
}

func NewBranchAndBoundSolver(timeLimit time.Duration) Solver {
	return &branchAndBoundSolver{timeLimit: timeLimit}
}

func (solver *branchAndBoundSolver) Name() string {
	return "branchbound"
}

type node struct {
	lower []float64
	upper []float64
}

type relaxation struct {
	status    Status // Optimal, Infeasible or Unbounded
	objective float64
	values    []float64
}

func (solver *branchAndBoundSolver) Solve(ctx context.Context, problem *Problem) (Solution, error) {
	if solver.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, solver.timeLimit)
		defer cancel()
	}

	//** Initialize root bounds
	lower, upper := make([]float64, len(problem.Variables)), make([]float64, len(problem.Variables))
	for i, variable := range problem.Variables {
		if math.IsInf(variable.Lower, -1) {
			return Solution{}, fmt.Errorf("variable %v has no finite lower bound", variable.Name)
		}
		lower[i], upper[i] = variable.Lower, variable.Upper
		if variable.Kind != Continuous {
			lower[i] = math.Ceil(lower[i] - integralityTolerance)
			upper[i] = math.Floor(upper[i] + integralityTolerance)
		}
	}

	// Objective values are compared as maximization values: larger is better
	sign := 1.0
	if problem.Sense == Minimize {
		sign = -1.0
	}

	var incumbent []float64
	incumbentValue := math.Inf(-1)
	limitReached := false

	stack := []node{{lower: lower, upper: upper}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return Solution{}, err
			}
			limitReached = true
			break
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		relaxed, err := solveRelaxation(problem, current.lower, current.upper)
		if err != nil {
			return Solution{}, err
		}

		switch relaxed.status {
		case Infeasible:
			continue
		case Unbounded:
			return Solution{Status: Unbounded}, nil
		}

		// Prune nodes whose bound cannot improve the incumbent
		bound := sign * relaxed.objective
		if incumbent != nil && bound <= incumbentValue+pruneTolerance*math.Max(1, math.Abs(incumbentValue)) {
			continue
		}

		branchVariable := mostFractional(problem, relaxed.values)
		if branchVariable < 0 {
			incumbent = roundIntegers(problem, relaxed.values)
			incumbentValue = sign * problem.Evaluate(incumbent)
			continue
		}

		value := relaxed.values[branchVariable]
		downUpper := slices.Clone(current.upper)
		downUpper[branchVariable] = math.Floor(value)
		upLower := slices.Clone(current.lower)
		upLower[branchVariable] = math.Ceil(value)

		// The "up" branch is pushed last so it is explored first
		stack = append(stack,
			node{lower: current.lower, upper: downUpper},
			node{lower: upLower, upper: current.upper},
		)
	}

	if incumbent == nil {
		if limitReached {
			return Solution{Status: Unknown}, nil
		}
		return Solution{Status: Infeasible}, nil
	}

	status := Optimal
	if limitReached {
		status = Feasible
	}
	return Solution{Status: status, Objective: problem.Evaluate(incumbent), Values: incumbent}, nil
}

// solveRelaxation solves the continuous relaxation of the problem under the given bounds. Variables are shifted
// by their lower bound (x = lower + x', x' >= 0) and every inequality gets its own slack, which yields the
// standard form "min c'x s.t. Ax = b, x >= 0" expected by lp.Simplex
func solveRelaxation(problem *Problem, lower, upper []float64) (relaxation, error) {
	variables := len(problem.Variables)
	for i := range variables {
		if lower[i] > upper[i]+integralityTolerance {
			return relaxation{status: Infeasible}, nil
		}
	}

	type row struct {
		coefs []float64
		op    Comparison
		rhs   float64
	}

	//** Collect rows
	rows := make([]row, 0, len(problem.Constraints)+variables)
	for _, constraint := range problem.Constraints {
		coefs := make([]float64, variables)
		for _, term := range constraint.Terms {
			coefs[term.Variable] += term.Coef
		}

		rhs := constraint.RHS
		empty := true
		for j, coef := range coefs {
			rhs -= coef * lower[j]
			if coef != 0 {
				empty = false
			}
		}

		// A row without coefficients is either trivially satisfied or makes the node infeasible
		if empty {
			if !holds(0, constraint.Op, rhs) {
				return relaxation{status: Infeasible}, nil
			}
			continue
		}
		rows = append(rows, row{coefs: coefs, op: constraint.Op, rhs: rhs})
	}
	for j := range variables {
		if math.IsInf(upper[j], 1) {
			continue
		}
		coefs := make([]float64, variables)
		coefs[j] = 1
		rows = append(rows, row{coefs: coefs, op: LessEqual, rhs: upper[j] - lower[j]})
	}

	//** Build cost vector
	cost := make([]float64, variables)
	for _, term := range problem.Objective {
		if problem.Sense == Maximize {
			cost[term.Variable] -= term.Coef
		} else {
			cost[term.Variable] += term.Coef
		}
	}

	//** Drop columns absent from every row: they rest at their lower bound unless they improve the objective indefinitely
	columns := make([]int, 0, variables)
	for j := range variables {
		used := false
		for _, r := range rows {
			if r.coefs[j] != 0 {
				used = true
				break
			}
		}
		if used {
			columns = append(columns, j)
		} else if cost[j] < 0 {
			return relaxation{status: Unbounded}, nil
		}
	}

	values := slices.Clone(lower)
	if len(rows) == 0 {
		return relaxation{status: Optimal, objective: problem.Evaluate(values), values: values}, nil
	}

	slacks := 0
	for _, r := range rows {
		if r.op != Equal {
			slacks++
		}
	}
	if len(rows) > len(columns)+slacks {
		return relaxation{}, fmt.Errorf("relaxation has more equality rows than columns (%d rows, %d columns)", len(rows), len(columns)+slacks)
	}

	//** Assemble standard form
	A := mat.NewDense(len(rows), len(columns)+slacks, nil)
	b := make([]float64, len(rows))
	c := make([]float64, len(columns)+slacks)
	for k, j := range columns {
		c[k] = cost[j]
	}
	slack := len(columns)
	for i, r := range rows {
		for k, j := range columns {
			if r.coefs[j] != 0 {
				A.Set(i, k, r.coefs[j])
			}
		}
		switch r.op {
		case LessEqual:
			A.Set(i, slack, 1)
			slack++
		case GreaterEqual:
			A.Set(i, slack, -1)
			slack++
		}
		b[i] = r.rhs
	}

	_, x, err := lp.Simplex(c, A, b, simplexTolerance, nil)
	if errors.Is(err, lp.ErrInfeasible) {
		return relaxation{status: Infeasible}, nil
	} else if errors.Is(err, lp.ErrUnbounded) {
		return relaxation{status: Unbounded}, nil
	} else if err != nil {
		return relaxation{}, fmt.Errorf("simplex failed: %w", err)
	}

	for k, j := range columns {
		values[j] = lower[j] + x[k]
	}
	return relaxation{status: Optimal, objective: problem.Evaluate(values), values: values}, nil
}

func holds(lhs float64, op Comparison, rhs float64) bool {
	switch op {
	case LessEqual:
		return lhs <= rhs+integralityTolerance
	case GreaterEqual:
		return lhs >= rhs-integralityTolerance
	default:
		return math.Abs(lhs-rhs) <= integralityTolerance
	}
}

// mostFractional returns the integer variable farthest from integrality or -1 if every integer variable is integral
func mostFractional(problem *Problem, values []float64) int {
	chosen, chosenDistance := -1, integralityTolerance
	for i, variable := range problem.Variables {
		if variable.Kind == Continuous {
			continue
		}
		distance := math.Abs(values[i] - math.Round(values[i]))
		if distance > chosenDistance {
			chosen, chosenDistance = i, distance
		}
	}
	return chosen
}

func roundIntegers(problem *Problem, values []float64) []float64 {
	rounded := slices.Clone(values)
	for i, variable := range problem.Variables {
		if variable.Kind != Continuous {
			rounded[i] = math.Round(rounded[i])
		}
	}
	return rounded
}
