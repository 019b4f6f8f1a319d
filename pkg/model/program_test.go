package model

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioCatalog and scenarioTracks describe an instance whose unique optimum is {C1, C3, C4, X, Y} under track "a"
func scenarioCatalog() Catalog {
	return mustCatalog(
		scored("C1", 5), scored("C2", 1), scored("C3", 4), scored("C4", 4), scored("C5", 1),
		scored("X", 6), scored("Y", 6),
		scored("Z", 0.5), scored("W", 0.5), scored("V", 0.2),
	)
}

func scenarioTracks() []Track {
	return []Track{
		{
			ID:       "a",
			Name:     "Track A",
			Required: []string{"C1", "C2"},
			Rules:    []Requirement{{Name: "core", AtLeast: 2, Courses: []string{"C3", "C4", "C5"}}},
		},
		{
			ID:       "b",
			Name:     "Track B",
			Required: []string{"Z"},
			Rules:    []Requirement{{Name: "electives", AtLeast: 2, Courses: []string{"Z", "W", "V"}}},
		},
	}
}

func solve(t *testing.T, catalog Catalog, tracks []Track, totalCourses int) (Plan, error) {
	t.Helper()
	program, err := Build(catalog, tracks, totalCourses, DefaultWeights)
	require.NoError(t, err)
	return Solve(context.Background(), milp.NewBranchAndBoundSolver(0), program)
}

func TestBuild(t *testing.T) {
	//** Arrange
	catalog, tracks := scenarioCatalog(), scenarioTracks()

	//** Act
	program, err := Build(catalog, tracks, 5, DefaultWeights)

	//** Assert
	require.NoError(t, err)
	problem := program.Problem
	assert.Equal(t, milp.Maximize, problem.Sense)
	assert.Len(t, problem.Variables, catalog.Len()+len(tracks))
	assert.True(t, lo.EveryBy(problem.Variables, func(variable milp.Variable) bool { return variable.Kind == milp.Binary }))

	names := lo.Map(problem.Constraints, func(constraint milp.Constraint, _ int) string { return constraint.Name })
	assert.Equal(t, []string{"pick_exactly_one_track", "total_courses", "a_required", "a_core", "b_required", "b_electives"}, names)

	x, ok := program.CourseVariable("C3")
	require.True(t, ok)
	objective := lo.SliceToMap(problem.Objective, func(term milp.Term) (int, float64) { return term.Variable, term.Coef })
	assert.InDelta(t, 48.0, objective[x], 1e-9)

	// The core rule reads: x_C3 + x_C4 + x_C5 - 2 y_a >= 0
	y, ok := program.TrackVariable("a")
	require.True(t, ok)
	core := problem.Constraints[3]
	assert.Equal(t, milp.GreaterEqual, core.Op)
	assert.Zero(t, core.RHS)
	assert.Contains(t, core.Terms, milp.Term{Variable: y, Coef: -2})
	assert.Len(t, core.Terms, 4)
}

func TestBuildSkipsUnknownCodes(t *testing.T) {
	tracks := []Track{{
		ID:    "a",
		Rules: []Requirement{{Name: "mixed", AtLeast: 1, Courses: []string{"C1", "GHOST", "C1"}}},
	}}

	program, err := Build(scenarioCatalog(), tracks, 3, DefaultWeights)

	require.NoError(t, err)
	mixed, ok := lo.Find(program.Problem.Constraints, func(constraint milp.Constraint) bool { return constraint.Name == "a_mixed" })
	require.True(t, ok)
	assert.Len(t, mixed.Terms, 2) // x_C1 and the indicator
}

func TestBuildValidation(t *testing.T) {
	testCases := []struct {
		name         string
		catalog      Catalog
		tracks       []Track
		totalCourses int
	}{
		{"Negative total", scenarioCatalog(), scenarioTracks(), -1},
		{"No tracks", scenarioCatalog(), []Track{}, 5},
		{"Duplicated track", scenarioCatalog(), []Track{{ID: "a"}, {ID: "a"}}, 5},
		{"Negative at least", scenarioCatalog(), []Track{{ID: "a", Rules: []Requirement{{Name: "r", AtLeast: -1}}}}, 5},
		{"Negative reviews", Catalog{Courses: []Course{{Code: "C1", NumReviews: -5}}}, scenarioTracks(), 1},
		{"Duplicated course", Catalog{Courses: []Course{scored("C1", 1), scored("C1", 2)}}, scenarioTracks(), 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			program, err := Build(testCase.catalog, testCase.tracks, testCase.totalCourses, DefaultWeights)

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Nil(t, program)
		})
	}
}

func TestSolveScenario(t *testing.T) {
	//** Act
	plan, err := solve(t, scenarioCatalog(), scenarioTracks(), 5)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, TrackID("a"), plan.Track.ID)
	assert.Equal(t, []string{"C1", "C3", "C4", "X", "Y"}, plan.Codes())
	assert.InDelta(t, 12*25.0, plan.Objective, 1e-6)
	assert.True(t, plan.Optimal)

	// Track B requires Z, which is left out: rules of the unchosen track do not bind
	assert.NotContains(t, plan.Codes(), "Z")
}

func TestSolveInfeasible(t *testing.T) {
	t.Run("More courses than the catalog holds", func(t *testing.T) {
		catalog := scenarioCatalog()

		_, err := solve(t, catalog, scenarioTracks(), catalog.Len()+1)

		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("Rules demand more than the total", func(t *testing.T) {
		tracks := []Track{{ID: "a", Rules: []Requirement{
			{Name: "first", AtLeast: 2, Courses: []string{"C1", "C2"}},
			{Name: "second", AtLeast: 2, Courses: []string{"C3", "C4"}},
		}}}

		_, err := solve(t, scenarioCatalog(), tracks, 3)

		assert.ErrorIs(t, err, ErrInfeasible)
	})
}

func TestSolvePicksTheOnlyFeasibleTrack(t *testing.T) {
	tracks := scenarioTracks()
	tracks[0].Rules[0].AtLeast = 4 // Only three core courses exist

	plan, err := solve(t, scenarioCatalog(), tracks, 5)

	require.NoError(t, err)
	assert.Equal(t, TrackID("b"), plan.Track.ID)
	assert.Subset(t, plan.Codes(), []string{"Z"})
	assert.NoError(t, Verify(plan, scenarioCatalog(), tracks, 5))
}

func TestSolveUnknownOnlyRequirement(t *testing.T) {
	tracks := scenarioTracks()
	tracks[0].Rules = append(tracks[0].Rules, Requirement{Name: "ghosts", AtLeast: 1, Courses: []string{"GHOST"}})

	plan, err := solve(t, scenarioCatalog(), tracks, 5)

	require.NoError(t, err)
	assert.Equal(t, TrackID("b"), plan.Track.ID)
}

func TestSolveKeepsPermissiveRequiredSet(t *testing.T) {
	// Both required courses are the best ones, "at least 1 of" lets the solver take both
	catalog := mustCatalog(scored("A", 9), scored("B", 8), scored("C", 1), scored("D", 1))
	tracks := []Track{{ID: "t", Required: []string{"A", "B"}}}

	plan, err := solve(t, catalog, tracks, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, plan.Codes())
}

func TestSolveReferenceTracks(t *testing.T) {
	for seed := range uint64(5) {
		//** Arrange
		random := rand.New(rand.NewPCG(seed, 17))
		catalog, tracks := referenceCatalog(random), ReferenceTracks()
		program, err := Build(catalog, tracks, 10, DefaultWeights)
		require.NoError(t, err)
		solver := milp.NewBranchAndBoundSolver(0)

		//** Act
		solution, err := solver.Solve(context.Background(), program.Problem)
		require.NoError(t, err)
		plan, err := Extract(program, solution)
		require.NoError(t, err)
		again, err := Solve(context.Background(), solver, program)
		require.NoError(t, err)

		//** Assert
		assert.Len(t, plan.Courses, 10)
		assert.Len(t, lo.Uniq(plan.Codes()), 10)
		assert.NoError(t, Verify(plan, catalog, tracks, 10))
		assert.InDelta(t, plan.Objective, again.Objective, 1e-6)
		assert.InDelta(t, solution.Objective, plan.Objective, 1e-6)

		indicators := lo.CountBy(tracks, func(track Track) bool {
			variable, _ := program.TrackVariable(track.ID)
			return solution.Rounded(variable) == 1
		})
		assert.Equal(t, 1, indicators)
	}
}

func TestExtract(t *testing.T) {
	program, err := Build(scenarioCatalog(), scenarioTracks(), 5, DefaultWeights)
	require.NoError(t, err)

	// values selects the given codes and track with solver-like noise
	values := func(track TrackID, codes ...string) []float64 {
		assignment := make([]float64, len(program.Problem.Variables))
		for i := range assignment {
			assignment[i] = 1e-9
		}
		variable, _ := program.TrackVariable(track)
		assignment[variable] = 0.9999999
		for _, code := range codes {
			variable, _ := program.CourseVariable(code)
			assignment[variable] = 0.9999999
		}
		return assignment
	}

	t.Run("Feasible is not optimal", func(t *testing.T) {
		solution := milp.Solution{Status: milp.Feasible, Values: values("a", "C1", "C3", "C4", "X", "C2")}

		plan, err := Extract(program, solution)

		require.NoError(t, err)
		assert.False(t, plan.Optimal)
		assert.Equal(t, []string{"C1", "C2", "C3", "C4", "X"}, plan.Codes())
		assert.InDelta(t, 12*20.0, plan.Objective, 1e-6)
	})

	statuses := []struct {
		status milp.Status
		err    error
	}{
		{milp.Infeasible, ErrInfeasible},
		{milp.Unbounded, ErrUnbounded},
		{milp.Unknown, ErrNoSolution},
	}
	for _, testCase := range statuses {
		t.Run(testCase.status.String(), func(t *testing.T) {
			_, err := Extract(program, milp.Solution{Status: testCase.status})

			assert.ErrorIs(t, err, testCase.err)
		})
	}

	t.Run("Malformed solutions", func(t *testing.T) {
		twoTracks := values("a", "C1", "C3", "C4", "X", "Y")
		variable, _ := program.TrackVariable("b")
		twoTracks[variable] = 1

		malformed := []milp.Solution{
			{Status: milp.Optimal, Values: []float64{1, 0}},
			{Status: milp.Optimal, Values: twoTracks},
			{Status: milp.Optimal, Values: values("a", "C1", "C3")},
		}
		for _, solution := range malformed {
			_, err := Solve(context.Background(), fixedSolver{solution: solution}, program)

			var solverErr *SolverError
			require.ErrorAs(t, err, &solverErr)
			assert.Equal(t, "fixed", solverErr.Solver)
		}
	})

	t.Run("Solver failure", func(t *testing.T) {
		failure := errors.New("crashed")

		_, err := Solve(context.Background(), fixedSolver{err: failure}, program)

		var solverErr *SolverError
		require.ErrorAs(t, err, &solverErr)
		assert.ErrorIs(t, err, failure)
		assert.NotErrorIs(t, err, ErrInfeasible)
	})
}
