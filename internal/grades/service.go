package grades

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/study-grade/internal/timezone"
	"github.com/study-grade/internal/tokens"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "study_grade_submissions_total",
	Help: "Grade submissions by result, either accepted or the validation error kind",
}, []string{"result"})

var ErrInvalidDate = errors.New("invalid date")

type Service struct {
	logger *slog.Logger
	store  *Store
	now    func() time.Time

	recordCreatedCallbacks []func(context.Context, *Record)
}

func NewService(logger *slog.Logger, store *Store) *Service {
	return &Service{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// OnRecordCreated registers cb to be called after a record is stored.
func (s *Service) OnRecordCreated(cb func(context.Context, *Record)) {
	s.recordCreatedCallbacks = append(s.recordCreatedCallbacks, cb)
}

// Submit validates the submission and stores it as a new record of the
// authenticated user. Nothing is stored when validation fails.
func (s *Service) Submit(ctx context.Context, submission Submission) (*Record, error) {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return nil, tokens.ErrMissingFromContext
	}

	validated, err := Validate(submission)
	if err != nil {
		var gradesErr *Error
		if errors.As(err, &gradesErr) {
			submissionsTotal.WithLabelValues(gradesErr.Kind.String()).Inc()
		}
		return nil, err
	}

	date, err := parseDate(validated.Date)
	if err != nil {
		submissionsTotal.WithLabelValues("invalid date").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, validated.Date)
	}

	metrics, err := DeriveMetrics(validated)
	if err != nil {
		return nil, fmt.Errorf("derive metrics: %w", err)
	}

	record := &Record{
		ID:        NewID(),
		UserID:    token.UserID,
		Date:      date,
		Semester:  validated.Semester,
		Subject:   validated.Subject,
		Group:     validated.Group,
		CreatedAt: s.now().UTC(),
		Counts:    validated.Counts,
		Metrics:   &metrics,
	}

	if err := s.store.InsertRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	submissionsTotal.WithLabelValues("accepted").Inc()

	s.logger.InfoContext(ctx, "record created",
		"record_id", record.ID,
		"user_id", record.UserID,
		"semester", record.Semester)

	for _, cb := range s.recordCreatedCallbacks {
		cb(ctx, record)
	}

	return record, nil
}

// Get returns a record of the authenticated user. Records of other users are
// reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, id ID) (*Record, error) {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return nil, tokens.ErrMissingFromContext
	}
	return s.store.FindByID(ctx, token.UserID, id)
}

// List returns records of the authenticated user in chronological order.
func (s *Service) List(ctx context.Context, filters ...func(*Record) bool) ([]Record, error) {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return nil, tokens.ErrMissingFromContext
	}
	records, err := s.store.ListRecords(ctx, token.UserID, filters...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		if a.Date.Before(b.Date) {
			return -1
		}
		if a.Date.After(b.Date) {
			return 1
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return records, nil
}

// parseDate accepts calendar dates and RFC 3339 timestamps. Timestamps are
// taken as the date they fall on in Kyiv.
func parseDate(value string) (civil.Date, error) {
	if date, err := civil.ParseDate(value); err == nil {
		return date, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return civil.Date{}, err
	}
	return timezone.DateInKyiv(ts), nil
}
