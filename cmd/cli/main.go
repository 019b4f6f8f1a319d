package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/limaJavier/courseopt/internal/config"
	"github.com/limaJavier/courseopt/internal/logging"
	"github.com/limaJavier/courseopt/pkg/milp"
	"github.com/limaJavier/courseopt/pkg/model"
	"github.com/limaJavier/courseopt/pkg/report"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes follow the SAT-solver convention: 10 solved, 20 no solution
const (
	exitOptimal      = 10
	exitFeasible     = 11
	exitVerification = 15
	exitInfeasible   = 20
	exitUnbounded    = 30
	exitFailure      = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("courseopt", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", "", "Path to a YAML config file; if empty, config.yaml is looked up in ./config and the working directory")
	catalogPath := flags.StringP("file", "f", "", "Path to the course catalog (JSON array of scraped course records)")
	totalCourses := flags.IntP("total", "n", 10, "Number of courses to select")
	solverName := flags.StringP("solver", "s", "branchbound", fmt.Sprintf("Solver to use. Allowed values are: %v", strings.Join(milp.SolverNames(), ", ")))
	timeLimit := flags.Duration("time-limit", 0, "Solver time limit (e.g. 30s); 0 disables it")
	format := flags.String("format", "text", "Output format. Allowed values are: text, json, yaml, xlsx")
	outPath := flags.StringP("out", "o", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	lpPath := flags.String("lp", "", "Path where the selection model is written in LP format")
	logLevel := flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return exitFailure
	}

	//** Load configuration, flags set on the command line take precedence
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	overrides := map[string]func(){
		"file":       func() { cfg.Catalog = *catalogPath },
		"total":      func() { cfg.TotalCourses = *totalCourses },
		"solver":     func() { cfg.Solver.Name = strings.ToLower(*solverName) },
		"time-limit": func() { cfg.Solver.TimeLimit = *timeLimit },
		"format":     func() { cfg.Output.Format = strings.ToLower(*format) },
		"out":        func() { cfg.Output.Path = *outPath },
		"log-level":  func() { cfg.Log.Level = *logLevel },
	}
	flags.Visit(func(flag *pflag.Flag) {
		if override, ok := overrides[flag.Name]; ok {
			override()
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	} else if cfg.Catalog == "" {
		fmt.Fprintln(stderr, "a catalog file must be specified")
		return exitFailure
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	defer logger.Sync()

	//** Extract input
	catalog, err := model.CatalogFromJson(cfg.Catalog)
	if err != nil {
		logger.Error("cannot load catalog", zap.String("file", cfg.Catalog), zap.Error(err))
		return exitFailure
	}

	program, err := model.Build(catalog, cfg.Tracks, cfg.TotalCourses, cfg.Weights)
	if err != nil {
		logger.Error("cannot build selection model", zap.Error(err))
		return exitFailure
	}
	if *lpPath != "" {
		if err := os.WriteFile(*lpPath, []byte(program.Problem.ToLP()), 0666); err != nil {
			logger.Error("cannot export model", zap.String("file", *lpPath), zap.Error(err))
			return exitFailure
		}
	}

	//** Initialize engines
	solver, err := milp.NewSolver(cfg.Solver.Name, cfg.Solver.Options(cfg.Solver.Name))
	if err != nil {
		logger.Error("cannot create solver", zap.Error(err))
		return exitFailure
	}
	planner := model.NewPlanner(solver, cfg.Weights, logger)

	//** Plan
	plan, err := planner.SolveProgram(ctx, program)
	if err != nil {
		logger.Error("no course selection produced", zap.Error(err))
		return exitCode(err)
	}

	// Verify plan correctness
	if err := planner.Verify(plan, catalog, cfg.Tracks, cfg.TotalCourses); err != nil {
		logger.Error("plan verification failed", zap.Error(err))
		return exitVerification
	}

	//** Write output
	rendered, err := report.New(plan, cfg.Weights, solver.Name())
	if err != nil {
		logger.Error("cannot build report", zap.Error(err))
		return exitFailure
	}
	if err := writeReport(stdout, cfg.Output, rendered); err != nil {
		logger.Error("cannot write report", zap.Error(err))
		return exitFailure
	}

	if !plan.Optimal {
		return exitFeasible
	}
	return exitOptimal
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrInfeasible):
		return exitInfeasible
	case errors.Is(err, model.ErrUnbounded):
		return exitUnbounded
	default:
		return exitFailure
	}
}

func writeReport(stdout io.Writer, output config.OutputConfig, rendered report.Report) error {
	// Verify outfile is empty, if so then write the results to the Standard Output
	if output.Path == "" {
		return report.Write(stdout, output.Format, rendered)
	}

	file, err := os.Create(output.Path)
	if err != nil {
		return err
	}
	if err := report.Write(file, output.Format, rendered); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
