package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/limaJavier/courseopt/internal/config"
	"github.com/limaJavier/courseopt/internal/logging"
	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/limaJavier/courseopt/pkg/model"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const objectiveTolerance = 1e-6

type ResultType int

const (
	optimal ResultType = iota
	feasible
	infeasible
	unbounded
	timeout
	failed
)

var resultTypes = map[ResultType]string{
	optimal:    "optimal",
	feasible:   "feasible",
	infeasible: "infeasible",
	unbounded:  "unbounded",
	timeout:    "timeout",
	failed:     "failed",
}

type TestMetadata struct {
	Name         string
	Courses      int
	Tracks       int
	TotalCourses int
}

type BenchmarkResult struct {
	Solver      string
	Test        TestMetadata
	Variables   int
	Constraints int
	Duration    int64 // Milliseconds
	Objective   float64
	Track       model.TrackID
	Result      ResultType
}

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to a YAML config file")
	files := pflag.StringSliceP("file", "f", []string{"test/catalog.json"}, "Catalog files to benchmark")
	totals := pflag.IntSliceP("total", "n", []int{4, 8, 10, 12}, "Numbers of courses to select")
	solverNames := pflag.StringSliceP("solver", "s", milp.SolverNames(), "Solvers to benchmark")
	outPath := pflag.StringP("out", "o", "benchmark_results.csv", "Path of the CSV file with the results")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	solvers := availableSolvers(logger, cfg.Solver, *solverNames)
	results := []BenchmarkResult{}

	for _, file := range *files {
		catalog, err := model.CatalogFromJson(file)
		if err != nil {
			logger.Fatal("cannot parse catalog", zap.String("file", file), zap.Error(err))
		}

		for _, total := range *totals {
			test := TestMetadata{Name: file, Courses: catalog.Len(), Tracks: len(cfg.Tracks), TotalCourses: total}
			for _, solver := range solvers {
				logger.Info("benchmarking", zap.String("test", test.Name), zap.Int("total", total), zap.String("solver", solver.Name()))

				result, err := measure(context.Background(), solver, catalog, cfg.Tracks, cfg.Weights, test)
				if err != nil {
					logger.Warn("solver failed", zap.String("solver", solver.Name()), zap.Error(err))
				}
				results = append(results, result)
			}
		}
	}

	if err := checkAgreement(results); err != nil {
		logger.Error("solvers disagree", zap.Error(err))
	}

	file, err := os.Create(*outPath)
	if err != nil {
		logger.Fatal("cannot create CSV file", zap.Error(err))
	}
	defer file.Close()

	if err := toCsv(file, results); err != nil {
		logger.Fatal("cannot write CSV file", zap.Error(err))
	}
}

// availableSolvers builds the requested solvers, leaving out those whose executable cannot be found
func availableSolvers(logger *zap.Logger, solverConfig config.SolverConfig, names []string) []milp.Solver {
	solvers := []milp.Solver{}
	for _, name := range names {
		options := solverConfig.Options(name)
		if options.Path != "" {
			if _, err := exec.LookPath(options.Path); err != nil {
				logger.Warn("skipping solver, executable not found", zap.String("solver", name), zap.String("path", options.Path))
				continue
			}
		}

		solver, err := milp.NewSolver(name, options)
		if err != nil {
			logger.Fatal("cannot create solver", zap.Error(err))
		}
		solvers = append(solvers, solver)
	}
	return solvers
}

func measure(ctx context.Context, solver milp.Solver, catalog model.Catalog, tracks []model.Track, weights model.Weights, test TestMetadata) (BenchmarkResult, error) {
	result := BenchmarkResult{Solver: solver.Name(), Test: test}

	program, err := model.Build(catalog, tracks, test.TotalCourses, weights)
	if err != nil {
		result.Result = failed
		return result, err
	}
	result.Variables, result.Constraints = len(program.Problem.Variables), len(program.Problem.Constraints)

	start := time.Now()
	plan, err := model.Solve(ctx, solver, program)
	result.Duration = time.Since(start).Milliseconds()

	switch {
	case err == nil && plan.Optimal:
		result.Result = optimal
	case err == nil:
		result.Result = feasible
	case errors.Is(err, model.ErrInfeasible):
		return withResult(result, infeasible), nil
	case errors.Is(err, model.ErrUnbounded):
		return withResult(result, unbounded), nil
	case errors.Is(err, model.ErrNoSolution):
		return withResult(result, timeout), nil
	default:
		return withResult(result, failed), err
	}

	if err := model.Verify(plan, catalog, tracks, test.TotalCourses); err != nil {
		return withResult(result, failed), err
	}
	result.Objective, result.Track = plan.Objective, plan.Track.ID
	return result, nil
}

func withResult(result BenchmarkResult, resultType ResultType) BenchmarkResult {
	result.Result = resultType
	return result
}

// checkAgreement makes sure every solver proving optimality on a test reached the same objective, and that
// solvers agree on infeasibility
func checkAgreement(results []BenchmarkResult) error {
	groups := lo.GroupBy(results, func(result BenchmarkResult) TestMetadata { return result.Test })

	for test, group := range groups {
		optimals := lo.Filter(group, func(result BenchmarkResult, _ int) bool { return result.Result == optimal })
		for _, result := range optimals {
			reference := optimals[0]
			if math.Abs(result.Objective-reference.Objective) > objectiveTolerance*math.Max(1, math.Abs(reference.Objective)) {
				return fmt.Errorf("test %v (total %d): %v found %v but %v found %v",
					test.Name, test.TotalCourses, reference.Solver, reference.Objective, result.Solver, result.Objective)
			}
		}

		solved := lo.ContainsBy(group, func(result BenchmarkResult) bool { return result.Result == optimal || result.Result == feasible })
		unsolvable := lo.ContainsBy(group, func(result BenchmarkResult) bool { return result.Result == infeasible })
		if solved && unsolvable {
			return fmt.Errorf("test %v (total %d): solvers disagree on feasibility", test.Name, test.TotalCourses)
		}
	}
	return nil
}

func toCsv(writer io.Writer, results []BenchmarkResult) error {
	csvWriter := csv.NewWriter(writer)

	header := []string{"Solver", "Test", "Courses", "Tracks", "TotalCourses", "Variables", "Constraints", "Duration(ms)", "Objective", "Track", "Result"}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Test.Name,
			fmt.Sprintf("%d", result.Test.Courses),
			fmt.Sprintf("%d", result.Test.Tracks),
			fmt.Sprintf("%d", result.Test.TotalCourses),
			fmt.Sprintf("%d", result.Variables),
			fmt.Sprintf("%d", result.Constraints),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.6f", result.Objective),
			string(result.Track),
			resultTypes[result.Result],
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
