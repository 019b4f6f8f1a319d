package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/limaJavier/courseopt/pkg/model"
	"gopkg.in/yaml.v3"
)

type CourseLine struct {
	Code  string               `json:"code" yaml:"code"`
	Name  string               `json:"name" yaml:"name"`
	Score model.ScoreBreakdown `json:"score" yaml:"score"`
}

// Report is the printable form of a plan
type Report struct {
	Solver    string            `json:"solver" yaml:"solver"`
	Track     model.TrackID     `json:"track" yaml:"track"`
	TrackName string            `json:"trackName" yaml:"trackName"`
	Objective float64           `json:"objective" yaml:"objective"`
	Optimal   bool              `json:"optimal" yaml:"optimal"`
	Courses   []CourseLine      `json:"courses" yaml:"courses"`
	Audit     model.AuditReport `json:"audit" yaml:"audit"`
}

func New(plan model.Plan, weights model.Weights, solver string) (Report, error) {
	courses := make([]CourseLine, 0, len(plan.Courses))
	for _, course := range plan.Courses {
		breakdown, err := weights.Breakdown(course)
		if err != nil {
			return Report{}, err
		}
		courses = append(courses, CourseLine{Code: course.Code, Name: course.Name, Score: breakdown})
	}

	audit, err := model.Audit(plan)
	if err != nil {
		return Report{}, fmt.Errorf("cannot audit plan: %w", err)
	}

	return Report{
		Solver:    solver,
		Track:     plan.Track.ID,
		TrackName: plan.Track.Name,
		Objective: plan.Objective,
		Optimal:   plan.Optimal,
		Courses:   courses,
		Audit:     audit,
	}, nil
}

// Write renders the report in the given format: text, json, yaml or xlsx
func Write(writer io.Writer, format string, report Report) error {
	switch format {
	case "text":
		return WriteText(writer, report)
	case "json":
		return WriteJSON(writer, report)
	case "yaml":
		return WriteYAML(writer, report)
	case "xlsx":
		return WriteXLSX(writer, report)
	default:
		return fmt.Errorf("%v is not a valid output format, allowed values are: text, json, yaml, xlsx", format)
	}
}

func WriteText(writer io.Writer, report Report) error {
	status := "optimal"
	if !report.Optimal {
		status = "feasible, not proven optimal"
	}

	fmt.Fprintf(writer, "Track:     %v (%v)\n", report.TrackName, report.Track)
	fmt.Fprintf(writer, "Objective: %.4f [%v, %v]\n", report.Objective, status, report.Solver)
	fmt.Fprintf(writer, "Courses:   %d\n\n", len(report.Courses))

	table := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(table, "CODE\tRATING\tDIFFICULTY\tWORKLOAD\tREVIEWS\tINTEREST\tSCORE\tNAME\t")
	for _, course := range report.Courses {
		score := course.Score
		fmt.Fprintf(table, "%v\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%v\t\n",
			course.Code, score.Rating, score.Difficulty, score.Workload, score.Reviews, score.Interest, score.Total, course.Name)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	if !report.Audit.Exclusive() {
		fmt.Fprintln(writer, "\nSome requirements are only met by counting a course twice:")
		for _, gap := range report.Audit.Unfilled {
			fmt.Fprintf(writer, "  %v: %d slot(s)\n", gap.Requirement, gap.Missing)
		}
	}
	_, err := fmt.Fprintf(writer, "\nFree electives: %v\n", report.Audit.FreeElectives)
	return err
}

func WriteJSON(writer io.Writer, report Report) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func WriteYAML(writer io.Writer, report Report) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		return err
	}
	return encoder.Close()
}
