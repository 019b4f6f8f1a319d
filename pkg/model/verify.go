package model

import (
	"fmt"
	"slices"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Verify re-checks a plan against the catalog and the track rules without looking at the program it came from
func Verify(plan Plan, catalog Catalog, tracks []Track, totalCourses int) error {
	track, ok := FindTrack(tracks, plan.Track.ID)
	if !ok {
		return fmt.Errorf("%w: track %q is not defined", ErrVerification, plan.Track.ID)
	}

	if len(plan.Courses) != totalCourses {
		return fmt.Errorf("%w: %d courses selected instead of %d", ErrVerification, len(plan.Courses), totalCourses)
	}

	codes := plan.Codes()
	if duplicates := lo.FindDuplicates(codes); len(duplicates) > 0 {
		return fmt.Errorf("%w: courses %v are selected more than once", ErrVerification, duplicates)
	}
	if unknown := lo.Reject(codes, func(code string, _ int) bool { return catalog.Contains(code) }); len(unknown) > 0 {
		return fmt.Errorf("%w: courses %v are not in the catalog", ErrVerification, unknown)
	}

	for _, requirement := range track.Requirements() {
		if count := len(lo.Intersect(lo.Uniq(requirement.Courses), codes)); count < requirement.AtLeast {
			return fmt.Errorf("%w: requirement %q of track %q needs %d courses, %d selected",
				ErrVerification, requirement.Name, track.ID, requirement.AtLeast, count)
		}
	}

	return nil
}

type SlotAssignment struct {
	Requirement string `json:"requirement" yaml:"requirement"`
	Course      string `json:"course" yaml:"course"`
}

type RequirementGap struct {
	Requirement string `json:"requirement" yaml:"requirement"`
	Missing     int    `json:"missing" yaml:"missing"`
}

// AuditReport tells how the courses of a plan cover the slots of its track when no course counts twice
type AuditReport struct {
	Assignments   []SlotAssignment `json:"assignments" yaml:"assignments"`
	Unfilled      []RequirementGap `json:"unfilled" yaml:"unfilled"`
	FreeElectives []string         `json:"freeElectives" yaml:"freeElectives"`
}

// Exclusive reports whether every requirement slot can be filled by a distinct course
func (report AuditReport) Exclusive() bool {
	return len(report.Unfilled) == 0
}

type slot struct {
	requirement int
	ordinal     int
}

// Audit matches the selected courses to requirement slots (one slot per unit of AtLeast). The selection model lets a
// course shared by two requirement sets count for both; slots that stay unmatched here are the ones that rely on it
func Audit(plan Plan) (AuditReport, error) {
	requirements := plan.Track.Requirements()
	codes := plan.Codes()

	slots := []slot{}
	for i, requirement := range requirements {
		for ordinal := range requirement.AtLeast {
			slots = append(slots, slot{requirement: i, ordinal: ordinal})
		}
	}

	matched := make(map[int]string, len(slots)) // Slot position -> course code
	if len(codes) > 0 && len(slots) > 0 {
		members := lo.Map(requirements, func(requirement Requirement, _ int) map[string]bool {
			return lo.SliceToMap(requirement.Courses, func(code string) (string, bool) { return code, true })
		})

		// Build neighbors predicate based on requirement membership
		neighbors := func(codeAny any, slotAny any) (bool, error) {
			code := codeAny.(string)
			requirementSlot := slotAny.(slot)

			return members[requirementSlot.requirement][code], nil
		}

		codesAny, slotsAny := lo.Map(codes, func(code string, _ int) any { return code }), lo.Map(slots, func(requirementSlot slot, _ int) any { return requirementSlot })

		graph, err := bipartitegraph.NewBipartiteGraph(codesAny, slotsAny, neighbors)
		if err != nil {
			return AuditReport{}, err
		}

		for _, edge := range graph.LargestMatching() {
			codeIndex, slotIndex := edge.Node1, edge.Node2-len(codes)
			matched[slotIndex] = codes[codeIndex]
		}
	}

	report := AuditReport{Assignments: []SlotAssignment{}, Unfilled: []RequirementGap{}, FreeElectives: []string{}}

	covering := make([][]string, len(requirements))
	missing := make([]int, len(requirements))
	for position, requirementSlot := range slots {
		if code, ok := matched[position]; ok {
			covering[requirementSlot.requirement] = append(covering[requirementSlot.requirement], code)
		} else {
			missing[requirementSlot.requirement]++
		}
	}

	// Matching order is an artifact of the algorithm, keep the report stable
	for i, requirement := range requirements {
		slices.Sort(covering[i])
		for _, code := range covering[i] {
			report.Assignments = append(report.Assignments, SlotAssignment{Requirement: requirement.Name, Course: code})
		}
		if missing[i] > 0 {
			report.Unfilled = append(report.Unfilled, RequirementGap{Requirement: requirement.Name, Missing: missing[i]})
		}
	}

	assigned := lo.SliceToMap(lo.Values(matched), func(code string) (string, bool) { return code, true })
	report.FreeElectives = lo.Reject(codes, func(code string, _ int) bool { return assigned[code] })

	return report, nil
}
