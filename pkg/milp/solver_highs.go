package milp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const highsPath = "highs"

type highsSolver struct {
	path      string
	timeLimit time.Duration
}

func NewHighsSolver(options Options) Solver {
	return &highsSolver{
		path:      executablePath(options, highsPath),
		timeLimit: options.TimeLimit,
	}
}

func (solver *highsSolver) Name() string {
	return "highs"
}

func (solver *highsSolver) Solve(ctx context.Context, problem *Problem) (Solution, error) {
	output, err := runExecutable(ctx, solver.Name(), solver.path, problem, func(modelFile, solutionFile string) []string {
		arguments := []string{"--model_file", modelFile, "--solution_file", solutionFile}
		if solver.timeLimit > 0 {
			arguments = append(arguments, "--time_limit", seconds(solver.timeLimit))
		}
		return arguments
	})
	if err != nil {
		return Solution{}, err
	}
	return parseHighsSolution(output, problem)
}

// parseHighsSolution reads a HiGHS solution file: a "Model status" block, then a "# Primal solution values" block
// with the feasibility of the reported point and a "# Columns <n>" table of "name value" lines
func parseHighsSolution(output string, problem *Problem) (Solution, error) {
	lines := lo.Map(strings.Split(output, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})

	// Returns the first non-empty line after the given header
	after := func(header string) string {
		_, index, ok := lo.FindIndexOf(lines, func(line string) bool { return line == header })
		if !ok {
			return ""
		}
		for _, line := range lines[index+1:] {
			if line != "" {
				return line
			}
		}
		return ""
	}

	modelStatus := after("Model status")
	if modelStatus == "" {
		return Solution{}, fmt.Errorf("highs solution has no model status")
	}
	primalStatus := after("# Primal solution values")

	var status Status
	switch {
	case modelStatus == "Optimal":
		status = Optimal
	case modelStatus == "Infeasible":
		return Solution{Status: Infeasible}, nil
	case modelStatus == "Unbounded":
		return Solution{Status: Unbounded}, nil
	case modelStatus == "Primal infeasible or unbounded":
		// Only a problem with an unbounded column can be unbounded
		if lo.EveryBy(problem.Variables, func(variable Variable) bool { return !math.IsInf(variable.Upper, 1) }) {
			return Solution{Status: Infeasible}, nil
		}
		return Solution{Status: Unbounded}, nil
	case strings.HasSuffix(modelStatus, "limit reached"):
		if primalStatus != "Feasible" {
			return Solution{Status: Unknown}, nil
		}
		status = Feasible
	default:
		return Solution{}, fmt.Errorf("unexpected highs model status %q", modelStatus)
	}

	_, columnsIndex, ok := lo.FindIndexOf(lines, func(line string) bool { return strings.HasPrefix(line, "# Columns") })
	if !ok {
		return Solution{}, fmt.Errorf("highs solution has no columns section")
	}
	count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lines[columnsIndex], "# Columns")))
	if err != nil || columnsIndex+count >= len(lines) {
		return Solution{}, fmt.Errorf("invalid highs columns header %q", lines[columnsIndex])
	}

	values := make([]float64, len(problem.Variables))
	for _, line := range lines[columnsIndex+1 : columnsIndex+1+count] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Solution{}, fmt.Errorf("invalid highs solution line: %q", line)
		}
		index, err := parseColumnIndex(fields[0], problem)
		if err != nil {
			return Solution{}, err
		}
		if values[index], err = parseValue(fields[1]); err != nil {
			return Solution{}, err
		}
	}

	return withValues(status, values, problem), nil
}
