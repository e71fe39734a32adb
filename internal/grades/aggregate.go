package grades

import (
	"fmt"
	"math"
)

// Summary is the semester-level view of a collection of records.
type Summary struct {
	WeightedAverageScore float64 `json:"weighted_average_score"`
	SuccessRate          float64 `json:"success_rate"`
	QualityRate          float64 `json:"quality_rate"`
	TotalStudents        int     `json:"total_students"`
	Records              int     `json:"records"`
}

// Aggregate summarizes records. It returns nil when there is nothing to
// summarize.
//
// The average score is the mean of each record's average weighted by the
// record's class size. Rates come from bucket counts summed over all records,
// not from the per-record rates. Records without metrics get them derived
// from their counts.
//
// Bucket totals cannot overflow once the students total fits, since every
// record's buckets add up to its own total.
//
// Rates are exact with respect to record order. The weighted average may
// differ between orderings by float64 rounding only, within 1e-9 relative.
func Aggregate(records []Record) (*Summary, error) {
	if len(records) == 0 {
		return nil, nil
	}

	averages := make([]float64, len(records))
	var totals Counts
	for i, record := range records {
		if err := record.Counts.check(); err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		metrics, err := record.metrics()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		averages[i] = metrics.AverageScore
		if totals.TotalStudents > math.MaxInt-record.TotalStudents {
			return nil, fmt.Errorf("records[%d]: %w", i,
				preconditionf(FieldTotalStudents, "students across records overflow"))
		}
		totals.TotalStudents += record.TotalStudents
		totals.Grade5 += record.Grade5
		totals.Grade4 += record.Grade4
		totals.Grade3 += record.Grade3
		totals.Grade2 += record.Grade2
		totals.NotPassed += record.NotPassed
	}

	total := float64(totals.TotalStudents)
	var weightedAverage float64
	for i, record := range records {
		// weights are n/N so a single record keeps its own average bit for bit.
		weightedAverage += averages[i] * (float64(record.TotalStudents) / total)
	}

	return &Summary{
		WeightedAverageScore: weightedAverage,
		SuccessRate:          float64(totals.Passed()) / total * 100,
		QualityRate:          float64(totals.Quality()) / total * 100,
		TotalStudents:        totals.TotalStudents,
		Records:              len(records),
	}, nil
}
