package milp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const glpsolPath = "glpsol"

type glpkSolver struct {
	path      string
	timeLimit time.Duration
}

func NewGlpkSolver(options Options) Solver {
	return &glpkSolver{
		path:      executablePath(options, glpsolPath),
		timeLimit: options.TimeLimit,
	}
}

func (solver *glpkSolver) Name() string {
	return "glpk"
}

func (solver *glpkSolver) Solve(ctx context.Context, problem *Problem) (Solution, error) {
	output, err := runExecutable(ctx, solver.Name(), solver.path, problem, func(modelFile, solutionFile string) []string {
		arguments := []string{"--lp", modelFile, "-w", solutionFile}
		if solver.timeLimit > 0 {
			arguments = append(arguments, "--tmlim", wholeSeconds(solver.timeLimit))
		}
		return arguments
	})
	if err != nil {
		return Solution{}, err
	}
	return parseGlpkSolution(output, problem)
}

// parseGlpkSolution reads the raw MIP solution written by "-w": a "s mip <rows> <cols> <status> <objective>"
// line followed by "j <column> <value>" lines, where columns are numbered from 1 in order of appearance in the LP file
func parseGlpkSolution(output string, problem *Problem) (Solution, error) {
	lines := lo.Map(strings.Split(output, "\n"), func(line string, _ int) []string {
		return strings.Fields(line)
	})

	header, ok := lo.Find(lines, func(fields []string) bool {
		return len(fields) > 0 && fields[0] == "s"
	})
	if !ok || len(header) < 5 {
		return Solution{}, fmt.Errorf("glpk solution has no status line")
	} else if header[1] != "mip" {
		return Solution{}, fmt.Errorf("unexpected glpk solution kind %q", header[1])
	}

	var status Status
	switch header[4] {
	case "o":
		status = Optimal
	case "f":
		status = Feasible // Integer feasible, search stopped by the time limit
	case "n":
		return Solution{Status: Infeasible}, nil
	case "u":
		return Solution{Status: Unknown}, nil
	default:
		return Solution{}, fmt.Errorf("unexpected glpk status %q", header[4])
	}

	values := make([]float64, len(problem.Variables))
	for _, fields := range lines {
		if len(fields) < 3 || fields[0] != "j" {
			continue
		}
		column, err := strconv.Atoi(fields[1])
		if err != nil || column < 1 || column > len(problem.Variables) {
			return Solution{}, fmt.Errorf("unexpected column %q in glpk solution", fields[1])
		}
		if values[column-1], err = parseValue(fields[2]); err != nil {
			return Solution{}, err
		}
	}

	return withValues(status, values, problem), nil
}
