package model

import (
	"fmt"

	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/samber/lo"
)

const selectionThreshold = 0.5

// Program is a built selection model together with the mapping from its variables back to courses and tracks
type Program struct {
	Problem      *milp.Problem
	Catalog      Catalog
	Tracks       []Track
	TotalCourses int
	Scores       []float64 // Indexed by catalog position

	courseVariables []int
	trackVariables  []int
}

func (program *Program) CourseVariable(code string) (int, bool) {
	position, ok := program.Catalog.index[code]
	if !ok {
		return 0, false
	}
	return program.courseVariables[position], true
}

func (program *Program) TrackVariable(id TrackID) (int, bool) {
	_, position, ok := lo.FindIndexOf(program.Tracks, func(track Track) bool { return track.ID == id })
	if !ok {
		return 0, false
	}
	return program.trackVariables[position], true
}

// Build scores every course and turns the catalog and track rules into a binary program maximizing total utility
func Build(catalog Catalog, tracks []Track, totalCourses int, weights Weights) (*Program, error) {
	//** Validate input
	if totalCourses < 0 {
		return nil, &ValidationError{Field: "total courses", Reason: fmt.Sprintf("must be >= 0, got %d", totalCourses)}
	} else if err := validateTracks(tracks); err != nil {
		return nil, err
	} else if err := weights.Validate(); err != nil {
		return nil, err
	}

	// Scoring goes first so that malformed courses are rejected before any variable exists
	scores := make([]float64, 0, catalog.Len())
	for _, course := range catalog.Courses {
		score, err := weights.Score(course)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	// Catalogs built as literals bypass NewCatalog, so the index is rebuilt and duplicates are caught here
	catalog, err := NewCatalog(catalog.Courses)
	if err != nil {
		return nil, err
	}

	//** Declare variables
	problem := milp.NewProblem("course_selection", milp.Maximize)

	courseVariables := lo.Map(catalog.Courses, func(course Course, _ int) int {
		return problem.AddBinary("x_" + course.Code)
	})
	trackVariables := lo.Map(tracks, func(track Track, _ int) int {
		return problem.AddBinary("y_" + string(track.ID))
	})

	//** Add constraints
	state := constraintState{
		catalog:         catalog,
		tracks:          tracks,
		totalCourses:    totalCourses,
		courseVariables: courseVariables,
		trackVariables:  trackVariables,
	}

	constraints := []func(state constraintState) []milp.Constraint{
		trackSelectionConstraints,
		totalCoursesConstraints,
		requirementConstraints,
	}
	for _, constraint := range constraints {
		for _, generated := range constraint(state) {
			problem.AddConstraint(generated)
		}
	}

	//** Set objective
	problem.SetObjective(lo.Map(courseVariables, func(variable int, position int) milp.Term {
		return milp.Term{Variable: variable, Coef: scores[position]}
	}))

	return &Program{
		Problem:         problem,
		Catalog:         catalog,
		Tracks:          tracks,
		TotalCourses:    totalCourses,
		Scores:          scores,
		courseVariables: courseVariables,
		trackVariables:  trackVariables,
	}, nil
}

// Plan is the outcome of a successful solve. Courses follow catalog order
type Plan struct {
	Track     Track
	Objective float64
	Courses   []Course
	// Optimal is false when a solver limit stopped the search with a feasible but unproven selection
	Optimal bool
}

func (plan Plan) Codes() []string {
	return lo.Map(plan.Courses, func(course Course, _ int) string { return course.Code })
}

// Extract reads a solver solution back into a plan, mapping non-solution statuses to their errors
func Extract(program *Program, solution milp.Solution) (Plan, error) {
	switch solution.Status {
	case milp.Infeasible:
		return Plan{}, ErrInfeasible
	case milp.Unbounded:
		return Plan{}, ErrUnbounded
	case milp.Unknown:
		return Plan{}, ErrNoSolution
	}

	if len(solution.Values) != len(program.Problem.Variables) {
		return Plan{}, &SolverError{Err: fmt.Errorf("solution has %d values for %d variables", len(solution.Values), len(program.Problem.Variables))}
	}

	selected := func(variable int) bool { return solution.Values[variable] > selectionThreshold }

	chosenTracks := lo.Filter(program.Tracks, func(_ Track, i int) bool {
		return selected(program.trackVariables[i])
	})
	if len(chosenTracks) != 1 {
		return Plan{}, &SolverError{Err: fmt.Errorf("solution selects %d tracks", len(chosenTracks))}
	}

	courses, objective := []Course{}, 0.0
	for position, course := range program.Catalog.Courses {
		if selected(program.courseVariables[position]) {
			courses = append(courses, course)
			objective += program.Scores[position]
		}
	}
	if len(courses) != program.TotalCourses {
		return Plan{}, &SolverError{Err: fmt.Errorf("solution selects %d courses instead of %d", len(courses), program.TotalCourses)}
	}

	return Plan{
		Track:     chosenTracks[0],
		Objective: objective,
		Courses:   courses,
		Optimal:   solution.Status == milp.Optimal,
	}, nil
}
