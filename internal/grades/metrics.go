package grades

type Metrics struct {
	AverageScore float64 `json:"average_score"`
	// SuccessRate is the percentage of students graded 3 or above.
	SuccessRate float64 `json:"success_rate"`
	// QualityRate is the percentage of students graded 4 or above.
	QualityRate float64 `json:"quality_rate"`
}

// DeriveMetrics computes the per-record metrics of a validated submission.
// Counts that did not go through Validate fail with KindPreconditionViolation.
func DeriveMetrics(s ValidatedSubmission) (Metrics, error) {
	return s.Counts.Metrics()
}

func (c Counts) Metrics() (Metrics, error) {
	if err := c.check(); err != nil {
		return Metrics{}, err
	}
	total := float64(c.TotalStudents)
	return Metrics{
		AverageScore: c.Points() / total,
		SuccessRate:  float64(c.Passed()) / total * 100,
		QualityRate:  float64(c.Quality()) / total * 100,
	}, nil
}
