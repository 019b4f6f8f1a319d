package model

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/samber/lo"
)

// scored returns a course whose default-weight score is 12 * rating
func scored(code string, rating float64) Course {
	return Course{Code: code, Name: "Course " + code, Rating: rating, Difficulty: 5}
}

func mustCatalog(courses ...Course) Catalog {
	catalog, err := NewCatalog(courses)
	if err != nil {
		panic(err)
	}
	return catalog
}

// referenceCatalog holds every course named by the reference tracks plus some free electives, with random attributes
func referenceCatalog(random *rand.Rand) Catalog {
	codes := []string{}
	for _, track := range ReferenceTracks() {
		for _, requirement := range track.Requirements() {
			codes = append(codes, requirement.Courses...)
		}
	}
	codes = append(lo.Uniq(codes), "CS-7646", "CS-6457", "CS-8803-GA", "ISYE-6644")

	courses := lo.Map(codes, func(code string, _ int) Course {
		return Course{
			Code:       code,
			Name:       fmt.Sprintf("Course %v", code),
			Rating:     1 + 4*random.Float64(),
			Difficulty: 1 + 4*random.Float64(),
			Workload:   5 + 20*random.Float64(),
			NumReviews: random.IntN(500),
			Interest:   random.Float64(),
		}
	})
	return mustCatalog(courses...)
}

// fixedSolver returns a preset answer, used to exercise extraction without a real solver
type fixedSolver struct {
	solution milp.Solution
	err      error
}

func (solver fixedSolver) Name() string {
	return "fixed"
}

func (solver fixedSolver) Solve(_ context.Context, _ *milp.Problem) (milp.Solution, error) {
	return solver.solution, solver.err
}
