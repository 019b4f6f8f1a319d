package model

import (
	"fmt"

	"github.com/samber/lo"
)

// TrackID identifies a specialization. Tracks are data: adding one is a configuration change
type TrackID string

const (
	InteractiveIntelligence TrackID = "interactive-intelligence"
	ComputingSystems        TrackID = "computing-systems"
)

// Requirement demands at least AtLeast selected courses out of Courses when its track is chosen
type Requirement struct {
	Name    string   `mapstructure:"name" yaml:"name" json:"name"`
	AtLeast int      `mapstructure:"at_least" yaml:"at_least" json:"atLeast"`
	Courses []string `mapstructure:"courses" yaml:"courses" json:"courses"`
}

type Track struct {
	ID   TrackID `mapstructure:"id" yaml:"id" json:"id"`
	Name string  `mapstructure:"name" yaml:"name" json:"name"`
	// Required is read as "at least 1 of": listing two courses lets the solver take either or both
	Required []string      `mapstructure:"required" yaml:"required" json:"required"`
	Rules    []Requirement `mapstructure:"rules" yaml:"rules" json:"rules"`
}

const requiredRuleName = "required"

// Requirements returns every minimum-count rule of the track, the required set included
func (track Track) Requirements() []Requirement {
	requirements := make([]Requirement, 0, len(track.Rules)+1)
	if len(track.Required) > 0 {
		requirements = append(requirements, Requirement{Name: requiredRuleName, AtLeast: 1, Courses: track.Required})
	}
	return append(requirements, track.Rules...)
}

func FindTrack(tracks []Track, id TrackID) (Track, bool) {
	return lo.Find(tracks, func(track Track) bool { return track.ID == id })
}

func validateTracks(tracks []Track) error {
	if len(tracks) == 0 {
		return &ValidationError{Field: "tracks", Reason: "at least one track is required"}
	}

	seen := make(map[TrackID]bool)
	for _, track := range tracks {
		if track.ID == "" {
			return &ValidationError{Field: "tracks", Reason: fmt.Sprintf("track %q has no id", track.Name)}
		} else if seen[track.ID] {
			return &ValidationError{Field: "tracks", Reason: fmt.Sprintf("track id %q is duplicated", track.ID)}
		}
		seen[track.ID] = true

		for _, requirement := range track.Rules {
			if requirement.AtLeast < 0 {
				return &ValidationError{Field: "tracks", Reason: fmt.Sprintf("requirement %q of track %q must have at_least >= 0, got %d", requirement.Name, track.ID, requirement.AtLeast)}
			}
		}
	}
	return nil
}

// ReferenceTracks returns the rule sets of the Interactive Intelligence and Computing Systems specializations
func ReferenceTracks() []Track {
	interaction := []string{"CS-6440", "CS-6460", "CS-6603", "CS-6750"}
	aiMethods := []string{"CS-6476", "CS-7632", "CS-7643", "CS-7650"}
	cognition := []string{"CS-6795"}

	return []Track{
		{
			ID:       InteractiveIntelligence,
			Name:     "Interactive Intelligence",
			Required: []string{"CS-6300", "CS-6515"},
			Rules: []Requirement{
				{Name: "core-ai", AtLeast: 2, Courses: []string{"CS-6601", "CS-7637", "CS-7641"}},
				{Name: "electives", AtLeast: 2, Courses: lo.Union(interaction, aiMethods, cognition)},
			},
		},
		{
			ID:       ComputingSystems,
			Name:     "Computing Systems",
			Required: []string{"CS-6515"},
			Rules: []Requirement{
				{Name: "core", AtLeast: 2, Courses: []string{"CS-6210", "CS-6250", "CS-6290", "CS-6300", "CS-6301", "CS-6400"}},
				{Name: "electives", AtLeast: 3, Courses: []string{
					"CS-6035", "CS-6200", "CS-6238", "CS-6260", "CS-6262", "CS-6263", "CS-6291",
					"CS-6310", "CS-6340", "CS-6422", "CS-6675", "CS-7210", "CS-7280", "CSE-6220",
					"CS-6211", "CS-6264", "CS-7400", "CS-8803-O08",
				}},
			},
		},
	}
}
