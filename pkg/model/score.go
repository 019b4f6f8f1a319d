package model

import (
	"fmt"
	"math"
)

// Weights scale each attribute's contribution to a course's utility
type Weights struct {
	Rating     float64 `mapstructure:"rating" yaml:"rating" json:"rating"`
	Difficulty float64 `mapstructure:"difficulty" yaml:"difficulty" json:"difficulty"`
	Workload   float64 `mapstructure:"workload" yaml:"workload" json:"workload"`
	Reviews    float64 `mapstructure:"reviews" yaml:"reviews" json:"reviews"`
	Interest   float64 `mapstructure:"interest" yaml:"interest" json:"interest"`
}

var DefaultWeights = Weights{
	Rating:     12.0,
	Difficulty: 4.0,
	Workload:   4.0,
	Reviews:    6.0,
	Interest:   10.0,
}

// ScoreBreakdown holds the weighted contribution of every attribute; Total is their sum
type ScoreBreakdown struct {
	Rating     float64 `json:"rating" yaml:"rating"`
	Difficulty float64 `json:"difficulty" yaml:"difficulty"`
	Workload   float64 `json:"workload" yaml:"workload"`
	Reviews    float64 `json:"reviews" yaml:"reviews"`
	Interest   float64 `json:"interest" yaml:"interest"`
	Total      float64 `json:"total" yaml:"total"`
}

func (weights Weights) Score(course Course) (float64, error) {
	breakdown, err := weights.Breakdown(course)
	return breakdown.Total, err
}

// Breakdown converts the raw attributes of a course into weighted terms:
//   - difficulty is inverted (5 - difficulty) so that easier is better
//   - workload is scaled down by 5 and negated so that heavier is worse
//   - reviews are log-dampened (ln(1 + numReviews)) so that large counts do not dominate
func (weights Weights) Breakdown(course Course) (ScoreBreakdown, error) {
	if err := validateCourse(course); err != nil {
		return ScoreBreakdown{}, err
	}

	breakdown := ScoreBreakdown{
		Rating:     weights.Rating * course.Rating,
		Difficulty: weights.Difficulty * (5.0 - course.Difficulty),
		Workload:   weights.Workload * (-course.Workload / 5.0),
		Reviews:    weights.Reviews * math.Log(1.0+float64(course.NumReviews)),
		Interest:   weights.Interest * course.Interest,
	}
	breakdown.Total = breakdown.Rating + breakdown.Difficulty + breakdown.Workload + breakdown.Reviews + breakdown.Interest
	return breakdown, nil
}

func (weights Weights) Validate() error {
	values := []float64{weights.Rating, weights.Difficulty, weights.Workload, weights.Reviews, weights.Interest}
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &ValidationError{Field: "weights", Reason: fmt.Sprintf("must be finite, got %+v", weights)}
		}
	}
	return nil
}
