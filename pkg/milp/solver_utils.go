package milp

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Options configures a solver. Zero values select the conventional executable name and no time limit
type Options struct {
	Path      string
	TimeLimit time.Duration
}

var solvers = map[string]func(Options) Solver{
	"branchbound": func(options Options) Solver { return NewBranchAndBoundSolver(options.TimeLimit) },
	"cbc":         NewCbcSolver,
	"glpk":        NewGlpkSolver,
	"highs":       NewHighsSolver,
}

// NewSolver returns the solver registered under name
func NewSolver(name string, options Options) (Solver, error) {
	constructor, ok := solvers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%v is not a valid solver, allowed values are: %v", name, strings.Join(SolverNames(), ", "))
	}
	return constructor(options), nil
}

func SolverNames() []string {
	names := lo.Keys(solvers)
	slices.Sort(names)
	return names
}

func executablePath(options Options, fallback string) string {
	if options.Path != "" {
		return options.Path
	}
	return fallback
}

// runExecutable writes the problem into a temporary LP file, executes the solver and returns the content of the
// solution file it was asked to write
func runExecutable(ctx context.Context, solverName, path string, problem *Problem, arguments func(modelFile, solutionFile string) []string) (string, error) {
	lpContent := problem.ToLP() // Transform problem into CPLEX LP string format

	// Create a temporary file to hold the LP content
	modelFile, err := os.CreateTemp("", "model-*.lp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(modelFile.Name()) // Ensure the file is removed after execution

	solutionFile, err := os.CreateTemp("", solverName+"_solution-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(solutionFile.Name()) // Ensure the file is removed after execution
	if err := solutionFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary file: %w", err)
	}

	// Write the LP content to the temporary file
	if _, err := modelFile.WriteString(lpContent); err != nil {
		return "", fmt.Errorf("failed to write LP to temporary file: %w", err)
	}
	if err := modelFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary file: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, arguments(modelFile.Name(), solutionFile.Name())...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("an error occurred during %v execution: %w : %v", solverName, err, strings.TrimSpace(stderr.String()))
	}

	output, err := os.ReadFile(solutionFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read solution file: %w", err)
	} else if len(bytes.TrimSpace(output)) == 0 {
		return "", fmt.Errorf("%v did not write a solution: %v", solverName, strings.TrimSpace(stdOut.String()))
	}
	return string(output), nil
}

// parseColumnIndex maps an LP column name (see ColumnName) back to its variable index
func parseColumnIndex(name string, problem *Problem) (int, error) {
	if !strings.HasPrefix(name, "x") {
		return 0, fmt.Errorf("unexpected column %q in solver output", name)
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 0 || index >= len(problem.Variables) {
		return 0, fmt.Errorf("unexpected column %q in solver output", name)
	}
	return index, nil
}

func parseValue(valueStr string) (float64, error) {
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value in solver output: %w", err)
	}
	return value, nil
}

// withValues completes a solution that carries an assignment: the objective is recomputed from the values,
// since solvers may report it negated or rounded depending on the sense of the problem
func withValues(status Status, values []float64, problem *Problem) Solution {
	return Solution{Status: status, Objective: problem.Evaluate(values), Values: values}
}

func seconds(timeLimit time.Duration) string {
	return strconv.FormatFloat(timeLimit.Seconds(), 'f', -1, 64)
}

func wholeSeconds(timeLimit time.Duration) string {
	return strconv.Itoa(int(math.Max(1, math.Ceil(timeLimit.Seconds()))))
}
