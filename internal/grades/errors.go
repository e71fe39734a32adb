package grades

import (
	"fmt"
)

// ErrorKind classifies why a submission or a set of counts was rejected.
type ErrorKind uint

const (
	KindUnknown ErrorKind = iota
	KindMissingField
	KindInvalidNumber
	KindOutOfRange
	KindSumMismatch
	// KindPreconditionViolation means the caller handed unvalidated counts to
	// the aggregation code. It is a programming error, never a user error.
	KindPreconditionViolation
)

// String returns a stable message for the kind. Callers assert on it.
func (k ErrorKind) String() string {
	switch k {
	case KindMissingField:
		return "missing field"
	case KindInvalidNumber:
		return "invalid number"
	case KindOutOfRange:
		return "out of range"
	case KindSumMismatch:
		return "sum mismatch"
	case KindPreconditionViolation:
		return "precondition violation"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMissingField          = &Error{Kind: KindMissingField}
	ErrInvalidNumber         = &Error{Kind: KindInvalidNumber}
	ErrOutOfRange            = &Error{Kind: KindOutOfRange}
	ErrSumMismatch           = &Error{Kind: KindSumMismatch}
	ErrPreconditionViolation = &Error{Kind: KindPreconditionViolation}
)

// Error is returned by Validate, DeriveMetrics and Aggregate.
type Error struct {
	Kind ErrorKind
	// Field is the json name of the offending field, empty for errors about
	// the submission as a whole.
	Field string
	// Value is the raw input for parse failures.
	Value string
	// Expected and Actual describe bound and sum violations. A sum that
	// overflows is reported as math.MaxInt.
	Expected int
	Actual   int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("%s: %s", e.Field, e.Kind)
	case KindInvalidNumber:
		return fmt.Sprintf("%s: %s: %q", e.Field, e.Kind, e.Value)
	case KindOutOfRange:
		return fmt.Sprintf("%s: %s: must be at least %d, got %d", e.Field, e.Kind, e.Expected, e.Actual)
	case KindSumMismatch:
		return fmt.Sprintf("%s: grade counts add up to %d, expected %d", e.Kind, e.Actual, e.Expected)
	case KindPreconditionViolation:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Value)
	default:
		if e.Field != "" {
			return fmt.Sprintf("%s: %s", e.Field, e.Kind)
		}
		return e.Kind.String()
	}
}

// Is matches errors of the same kind. A target with a field set additionally
// requires the field to match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

func preconditionf(field string, format string, args ...any) *Error {
	return &Error{
		Kind:  KindPreconditionViolation,
		Field: field,
		Value: fmt.Sprintf(format, args...),
	}
}
