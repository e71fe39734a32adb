package statistics

import "github.com/study-grade/internal/grades"

type Semester struct {
	// Number is the semester number as submitted.
	Number  int            `json:"semester"`
	Summary grades.Summary `json:"summary"`
}

// Overview is everything shown next to the record listing.
type Overview struct {
	Records []grades.Record `json:"records"`
	// Summary is nil when there are no records.
	Summary *grades.Summary `json:"summary"`
}
