package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type Course struct {
	Code       string  `json:"codes" yaml:"code"`
	Name       string  `json:"courseName" yaml:"name"`
	Rating     float64 `json:"rating" yaml:"rating"`
	Difficulty float64 `json:"difficulty" yaml:"difficulty"`
	Workload   float64 `json:"workload" yaml:"workload"`
	NumReviews int     `json:"numReviews" yaml:"numReviews"`
	Interest   float64 `json:"interest" yaml:"interest"`
}

// rawCourse mirrors a catalog record as scraped; numReviews is kept as a float to detect fractional counts
type rawCourse struct {
	Codes      string  `mapstructure:"codes"`
	CourseName string  `mapstructure:"courseName"`
	Rating     float64 `mapstructure:"rating"`
	Difficulty float64 `mapstructure:"difficulty"`
	Workload   float64 `mapstructure:"workload"`
	NumReviews float64 `mapstructure:"numReviews"`
	Interest   float64 `mapstructure:"interest"`
}

var (
	requiredKeys = []string{"codes", "courseName", "rating", "difficulty", "workload", "numReviews", "interest"}
	numericKeys  = []string{"rating", "difficulty", "workload", "numReviews", "interest"}
)

// Scraped counts never come close, larger values are treated as corrupt
const maxReviews = math.MaxInt32

// Catalog is the validated set of courses. Codes are unique and every constraint joins on them
type Catalog struct {
	Courses []Course
	index   map[string]int
}

func NewCatalog(courses []Course) (Catalog, error) {
	index := make(map[string]int, len(courses))
	for i, course := range courses {
		if err := validateCourse(course); err != nil {
			return Catalog{}, err
		}
		if _, ok := index[course.Code]; ok {
			return Catalog{}, &ValidationError{Code: course.Code, Field: "codes", Reason: "is duplicated"}
		}
		index[course.Code] = i
	}
	return Catalog{Courses: courses, index: index}, nil
}

func (catalog Catalog) Lookup(code string) (Course, bool) {
	i, ok := catalog.index[code]
	if !ok {
		return Course{}, false
	}
	return catalog.Courses[i], true
}

func (catalog Catalog) Contains(code string) bool {
	_, ok := catalog.index[code]
	return ok
}

func (catalog Catalog) Len() int {
	return len(catalog.Courses)
}

func CatalogFromJson(file string) (Catalog, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Catalog{}, fmt.Errorf("cannot read catalog: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(bytes, &records); err != nil {
		return Catalog{}, fmt.Errorf("cannot parse catalog: %w", err)
	}
	return CatalogFromRecords(records)
}

func CatalogFromRecords(records []map[string]any) (Catalog, error) {
	courses := make([]Course, 0, len(records))
	for i, record := range records {
		course, err := decodeCourse(record)
		if err == nil {
			err = validateCourse(course)
		}
		if err != nil {
			if validationError, ok := err.(*ValidationError); ok && validationError.Code == "" {
				validationError.Field = fmt.Sprintf("record %d: %v", i, validationError.Field)
			}
			return Catalog{}, err
		}
		courses = append(courses, course)
	}
	return NewCatalog(courses)
}

func decodeCourse(record map[string]any) (Course, error) {
	code, _ := record["codes"].(string)

	// Make sure every attribute is present, a missing one would silently decode as zero
	if missing, ok := lo.Find(requiredKeys, func(key string) bool {
		_, present := record[key]
		return !present
	}); ok {
		return Course{}, &ValidationError{Code: code, Field: missing, Reason: "is missing"}
	}
	// The scraper writes unparsable numbers as null, which would also decode as zero
	if null, ok := lo.Find(numericKeys, func(key string) bool { return record[key] == nil }); ok {
		return Course{}, &ValidationError{Code: code, Field: null, Reason: "must be a number, got null"}
	}

	var raw rawCourse
	if err := mapstructure.Decode(record, &raw); err != nil {
		return Course{}, &ValidationError{Code: code, Field: "record", Reason: err.Error()}
	}

	if raw.NumReviews < 0 || raw.NumReviews > maxReviews {
		return Course{}, &ValidationError{Code: raw.Codes, Field: "numReviews", Reason: fmt.Sprintf("must be between 0 and %d, got %v", maxReviews, raw.NumReviews)}
	}
	if raw.NumReviews != math.Trunc(raw.NumReviews) {
		return Course{}, &ValidationError{Code: raw.Codes, Field: "numReviews", Reason: fmt.Sprintf("must be an integer, got %v", raw.NumReviews)}
	}

	return Course{
		Code:       raw.Codes,
		Name:       raw.CourseName,
		Rating:     raw.Rating,
		Difficulty: raw.Difficulty,
		Workload:   raw.Workload,
		NumReviews: int(raw.NumReviews),
		Interest:   raw.Interest,
	}, nil
}

func validateCourse(course Course) error {
	if course.Code == "" {
		return &ValidationError{Field: "codes", Reason: fmt.Sprintf("must not be empty (course %q)", course.Name)}
	}
	if course.NumReviews < 0 {
		return &ValidationError{Code: course.Code, Field: "numReviews", Reason: fmt.Sprintf("must be >= 0, got %d", course.NumReviews)}
	}

	attributes := []lo.Tuple2[string, float64]{
		lo.T2("rating", course.Rating),
		lo.T2("difficulty", course.Difficulty),
		lo.T2("workload", course.Workload),
		lo.T2("interest", course.Interest),
	}
	for _, attribute := range attributes {
		if math.IsNaN(attribute.B) || math.IsInf(attribute.B, 0) {
			return &ValidationError{Code: course.Code, Field: attribute.A, Reason: fmt.Sprintf("must be finite, got %v", attribute.B)}
		}
	}
	return nil
}
