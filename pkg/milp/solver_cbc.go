package milp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const cbcPath = "cbc"

type cbcSolver struct {
	path      string
	timeLimit time.Duration
}

func NewCbcSolver(options Options) Solver {
	return &cbcSolver{
		path:      executablePath(options, cbcPath),
		timeLimit: options.TimeLimit,
	}
}

func (solver *cbcSolver) Name() string {
	return "cbc"
}

func (solver *cbcSolver) Solve(ctx context.Context, problem *Problem) (Solution, error) {
	output, err := runExecutable(ctx, solver.Name(), solver.path, problem, func(modelFile, solutionFile string) []string {
		arguments := []string{modelFile}
		if solver.timeLimit > 0 {
			arguments = append(arguments, "sec", seconds(solver.timeLimit))
		}
		return append(arguments, "solve", "solu", solutionFile)
	})
	if err != nil {
		return Solution{}, err
	}
	return parseCbcSolution(output, problem)
}

// parseCbcSolution reads the file written by "solu": a status line followed by "index name value reduced-cost"
// rows for the non-zero columns (rows may be prefixed by "**" when infeasible)
func parseCbcSolution(output string, problem *Problem) (Solution, error) {
	lines := lo.Filter(strings.Split(output, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) == 0 {
		return Solution{}, fmt.Errorf("empty cbc solution")
	}

	statusFields := strings.Fields(lines[0])
	var status Status
	switch statusFields[0] {
	case "Optimal":
		status = Optimal
	case "Infeasible", "Integer":
		return Solution{Status: Infeasible}, nil
	case "Unbounded":
		return Solution{Status: Unbounded}, nil
	case "Stopped":
		// "Stopped on time - objective value X" carries the best solution found so far
		if len(statusFields) < 5 || statusFields[4] != "objective" {
			return Solution{Status: Unknown}, nil
		}
		status = Feasible
	default:
		return Solution{}, fmt.Errorf("unexpected cbc status line: %q", lines[0])
	}

	values := make([]float64, len(problem.Variables))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			return Solution{}, fmt.Errorf("invalid cbc solution line: %q", line)
		}

		index, err := parseColumnIndex(fields[1], problem)
		if err != nil {
			return Solution{}, err
		}
		if values[index], err = parseValue(fields[2]); err != nil {
			return Solution{}, err
		}
	}

	return withValues(status, values, problem), nil
}
