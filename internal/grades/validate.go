package grades

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a raw submission and converts it into typed values.
//
// Checks run in a fixed order and the first failure is returned: presence,
// integer parsing, ranges, and finally that the grade buckets add up to the
// number of students. The returned error is always an *Error.
func Validate(s Submission) (ValidatedSubmission, error) {
	s = trimSubmission(s)

	if err := validate.Struct(s); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return ValidatedSubmission{}, &Error{Kind: KindMissingField, Field: fieldErrors[0].Field()}
		}
		return ValidatedSubmission{}, fmt.Errorf("validate submission: %w", err)
	}

	numbers := []struct {
		field string
		raw   string
		dst   *int
		min   int
	}{
		{FieldSemester, s.Semester, new(int), 1},
		{FieldTotalStudents, s.TotalStudents, new(int), 1},
		{FieldGrade5, s.Grade5, new(int), 0},
		{FieldGrade4, s.Grade4, new(int), 0},
		{FieldGrade3, s.Grade3, new(int), 0},
		{FieldGrade2, s.Grade2, new(int), 0},
		{FieldNotPassed, s.NotPassed, new(int), 0},
	}

	for _, n := range numbers {
		value, err := strconv.Atoi(n.raw)
		if err != nil {
			return ValidatedSubmission{}, &Error{Kind: KindInvalidNumber, Field: n.field, Value: n.raw}
		}
		*n.dst = value
	}

	for _, n := range numbers {
		if *n.dst < n.min {
			return ValidatedSubmission{}, &Error{Kind: KindOutOfRange, Field: n.field, Expected: n.min, Actual: *n.dst}
		}
	}

	validated := ValidatedSubmission{
		Date:     s.Date,
		Semester: *numbers[0].dst,
		Subject:  s.Subject,
		Group:    s.Group,
		Counts: Counts{
			TotalStudents: *numbers[1].dst,
			Grade5:        *numbers[2].dst,
			Grade4:        *numbers[3].dst,
			Grade3:        *numbers[4].dst,
			Grade2:        *numbers[5].dst,
			NotPassed:     *numbers[6].dst,
		},
	}

	// an overflowing sum is reported as math.MaxInt and never matches
	if sum, ok := validated.sum(); !ok || sum != validated.TotalStudents {
		return ValidatedSubmission{}, &Error{Kind: KindSumMismatch, Expected: validated.TotalStudents, Actual: sum}
	}

	return validated, nil
}

func trimSubmission(s Submission) Submission {
	return Submission{
		Date:          strings.TrimSpace(s.Date),
		Semester:      strings.TrimSpace(s.Semester),
		Subject:       strings.TrimSpace(s.Subject),
		Group:         strings.TrimSpace(s.Group),
		TotalStudents: strings.TrimSpace(s.TotalStudents),
		Grade5:        strings.TrimSpace(s.Grade5),
		Grade4:        strings.TrimSpace(s.Grade4),
		Grade3:        strings.TrimSpace(s.Grade3),
		Grade2:        strings.TrimSpace(s.Grade2),
		NotPassed:     strings.TrimSpace(s.NotPassed),
	}
}
