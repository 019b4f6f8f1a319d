package model

import (
	"context"
	"errors"
	"time"

	"github.com/limaJavier/courseopt/pkg/milp"
	"go.uber.org/zap"
)

type Planner interface {
	Plan(
		ctx context.Context,
		catalog Catalog,
		tracks []Track,
		totalCourses int,
	) (Plan, error)

	SolveProgram(ctx context.Context, program *Program) (Plan, error)

	Verify(
		plan Plan,
		catalog Catalog,
		tracks []Track,
		totalCourses int,
	) error
}

type planner struct {
	solver  milp.Solver
	weights Weights
	logger  *zap.Logger
}

func NewPlanner(solver milp.Solver, weights Weights, logger *zap.Logger) Planner {
	return &planner{
		solver:  solver,
		weights: weights,
		logger:  logger,
	}
}

func (planner *planner) Plan(ctx context.Context, catalog Catalog, tracks []Track, totalCourses int) (Plan, error) {
	//** Build program
	program, err := Build(catalog, tracks, totalCourses, planner.weights)
	if err != nil {
		return Plan{}, err
	}
	planner.logger.Debug("selection model built",
		zap.Int("courses", program.Catalog.Len()),
		zap.Int("tracks", len(program.Tracks)),
		zap.Int("variables", len(program.Problem.Variables)),
		zap.Int("constraints", len(program.Problem.Constraints)),
	)

	return planner.SolveProgram(ctx, program)
}

// SolveProgram solves a program returned by Build
func (planner *planner) SolveProgram(ctx context.Context, program *Program) (Plan, error) {
	start := time.Now()
	plan, err := Solve(ctx, planner.solver, program)
	if err != nil {
		planner.logger.Info("course selection failed",
			zap.String("solver", planner.solver.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Plan{}, err
	}

	planner.logger.Info("course selection solved",
		zap.String("solver", planner.solver.Name()),
		zap.String("track", string(plan.Track.ID)),
		zap.Float64("objective", plan.Objective),
		zap.Bool("optimal", plan.Optimal),
		zap.Duration("duration", time.Since(start)),
	)
	if !plan.Optimal {
		planner.logger.Warn("solver stopped at a limit, the selection is feasible but not proven optimal")
	}
	return plan, nil
}

func (planner *planner) Verify(plan Plan, catalog Catalog, tracks []Track, totalCourses int) error {
	return Verify(plan, catalog, tracks, totalCourses)
}

// Solve runs the solver on a built program and extracts the plan. Solver failures are reported as *SolverError
func Solve(ctx context.Context, solver milp.Solver, program *Program) (Plan, error) {
	solution, err := solver.Solve(ctx, program.Problem)
	if err != nil {
		return Plan{}, &SolverError{Solver: solver.Name(), Err: err}
	}

	plan, err := Extract(program, solution)
	var solverErr *SolverError
	if errors.As(err, &solverErr) && solverErr.Solver == "" {
		solverErr.Solver = solver.Name()
	}
	return plan, err
}
