package model

import (
	"fmt"

	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/samber/lo"
)

type constraintState struct {
	catalog      Catalog
	tracks       []Track
	totalCourses int

	courseVariables []int // Indexed by catalog position
	trackVariables  []int // Indexed by track position
}

// sum(y_t) = 1
func trackSelectionConstraints(state constraintState) []milp.Constraint {
	terms := lo.Map(state.trackVariables, func(variable int, _ int) milp.Term {
		return milp.Term{Variable: variable, Coef: 1}
	})

	return []milp.Constraint{{
		Name:  "pick_exactly_one_track",
		Terms: terms,
		Op:    milp.Equal,
		RHS:   1,
	}}
}

// sum(x_c) = N
func totalCoursesConstraints(state constraintState) []milp.Constraint {
	terms := lo.Map(state.courseVariables, func(variable int, _ int) milp.Term {
		return milp.Term{Variable: variable, Coef: 1}
	})

	return []milp.Constraint{{
		Name:  "total_courses",
		Terms: terms,
		Op:    milp.Equal,
		RHS:   float64(state.totalCourses),
	}}
}

// sum(x_c, c in S) >= K * y_t for every requirement (K, S) of every track t
func requirementConstraints(state constraintState) []milp.Constraint {
	constraints := []milp.Constraint{}

	for i, track := range state.tracks {
		indicator := state.trackVariables[i]

		for _, requirement := range track.Requirements() {
			if requirement.AtLeast == 0 {
				continue
			}

			// Codes that are not in the catalog cannot be selected, so they are left out of the sum
			terms := lo.FilterMap(lo.Uniq(requirement.Courses), func(code string, _ int) (milp.Term, bool) {
				position, ok := state.catalog.index[code]
				if !ok {
					return milp.Term{}, false
				}
				return milp.Term{Variable: state.courseVariables[position], Coef: 1}, true
			})

			name := fmt.Sprintf("%v_%v", track.ID, requirement.Name)
			constraints = append(constraints, milp.Conditional(name, terms, milp.GreaterEqual, float64(requirement.AtLeast), indicator))
		}
	}

	return constraints
}
