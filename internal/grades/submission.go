package grades

import "math"

const (
	FieldDate          = "date"
	FieldSemester      = "semester"
	FieldSubject       = "subject"
	FieldGroup         = "group"
	FieldTotalStudents = "total_students"
	FieldGrade5        = "grade_5"
	FieldGrade4        = "grade_4"
	FieldGrade3        = "grade_3"
	FieldGrade2        = "grade_2"
	FieldNotPassed     = "not_passed"
)

// Submission is a grade distribution exactly as it was entered. Every field is
// kept as text, parsing happens in Validate.
type Submission struct {
	Date          string `json:"date" validate:"required"`
	Semester      string `json:"semester" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	Group         string `json:"group" validate:"required"`
	TotalStudents string `json:"total_students" validate:"required"`
	Grade5        string `json:"grade_5" validate:"required"`
	Grade4        string `json:"grade_4" validate:"required"`
	Grade3        string `json:"grade_3" validate:"required"`
	Grade2        string `json:"grade_2" validate:"required"`
	NotPassed     string `json:"not_passed" validate:"required"`
}

// Counts partitions a class into the five grade buckets.
type Counts struct {
	TotalStudents int `json:"total_students"`
	Grade5        int `json:"grade_5"`
	Grade4        int `json:"grade_4"`
	Grade3        int `json:"grade_3"`
	Grade2        int `json:"grade_2"`
	NotPassed     int `json:"not_passed"`
}

// Sum adds up the grade buckets. Sums that do not fit in an int are reported
// as math.MaxInt.
func (c Counts) Sum() int {
	sum, _ := c.sum()
	return sum
}

// sum adds up the buckets. ok is false when the sum overflows, in which case
// sum is math.MaxInt.
func (c Counts) sum() (sum int, ok bool) {
	for _, value := range []int{c.Grade5, c.Grade4, c.Grade3, c.Grade2, c.NotPassed} {
		if value > 0 && sum > math.MaxInt-value {
			return math.MaxInt, false
		}
		sum += value
	}
	return sum, true
}

// Passed is the number of students graded 3 or above.
func (c Counts) Passed() int {
	return c.Grade5 + c.Grade4 + c.Grade3
}

// Quality is the number of students graded 4 or above.
func (c Counts) Quality() int {
	return c.Grade5 + c.Grade4
}

// Points is the sum of all scores, not passed counting as zero. It is a float
// so that large classes do not overflow.
func (c Counts) Points() float64 {
	return 5*float64(c.Grade5) + 4*float64(c.Grade4) + 3*float64(c.Grade3) + 2*float64(c.Grade2)
}

// check reports counts that could not have come out of Validate.
func (c Counts) check() error {
	if c.TotalStudents < 1 {
		return preconditionf(FieldTotalStudents, "got %d students", c.TotalStudents)
	}
	for _, bucket := range []struct {
		field string
		value int
	}{
		{FieldGrade5, c.Grade5},
		{FieldGrade4, c.Grade4},
		{FieldGrade3, c.Grade3},
		{FieldGrade2, c.Grade2},
		{FieldNotPassed, c.NotPassed},
	} {
		if bucket.value < 0 {
			return preconditionf(bucket.field, "negative count %d", bucket.value)
		}
	}
	if sum, ok := c.sum(); !ok {
		return preconditionf(FieldTotalStudents, "buckets overflow, total is %d", c.TotalStudents)
	} else if sum != c.TotalStudents {
		return preconditionf(FieldTotalStudents, "buckets add up to %d, total is %d", sum, c.TotalStudents)
	}
	return nil
}

type ValidatedSubmission struct {
	Date     string `json:"date"`
	Semester int    `json:"semester"`
	Subject  string `json:"subject"`
	Group    string `json:"group"`
	Counts
}
