package milp

import (
	"math"
	"math/rand/v2"
)

func posInf() float64 {
	return math.Inf(1)
}

// generateProblem builds a random binary program with a cardinality row and a few random knapsack-like rows
func generateProblem(random *rand.Rand, variables, constraints int) *Problem {
	problem := NewProblem("random", Maximize)
	objective := make([]Term, 0, variables)
	all := make([]Term, 0, variables)
	for range variables {
		index := problem.AddBinary("v")
		objective = append(objective, Term{Variable: index, Coef: float64(random.IntN(21) - 5)})
		all = append(all, Term{Variable: index, Coef: 1})
	}
	problem.SetObjective(objective)

	problem.AddConstraint(Constraint{Name: "cardinality", Terms: all, Op: Equal, RHS: float64(1 + random.IntN(variables))})
	for range constraints {
		terms := make([]Term, 0, variables)
		for j := range variables {
			if random.Float32() < 0.5 {
				terms = append(terms, Term{Variable: j, Coef: float64(random.IntN(7) - 3)})
			}
		}
		if len(terms) == 0 {
			continue
		}
		op := LessEqual
		if random.Float32() < 0.4 {
			op = GreaterEqual
		}
		problem.AddConstraint(Constraint{Terms: terms, Op: op, RHS: float64(random.IntN(5) - 1)})
	}
	return problem
}

// bruteForce enumerates every binary assignment and returns the best objective value, or false if none is feasible
func bruteForce(problem *Problem) (float64, bool) {
	variables := len(problem.Variables)
	best, found := math.Inf(-1), false
	values := make([]float64, variables)
	for mask := range 1 << variables {
		for j := range variables {
			values[j] = float64((mask >> j) & 1)
		}
		if !problem.Feasible(values, 1e-9) {
			continue
		}
		if objective := problem.Evaluate(values); objective > best {
			best, found = objective, true
		}
	}
	return best, found
}
