package statistics

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/study-grade/internal/grades"
	"github.com/study-grade/internal/tokens"
	"github.com/study-grade/internal/users"
)

type Service struct {
	gradesService *grades.Service
	cache         *cache.Cache

	generationsGuard sync.Mutex
	generations      map[users.ID]uint64
}

func NewService(
	gradesService *grades.Service,
	ttl time.Duration,
) *Service {
	return &Service{
		gradesService: gradesService,
		cache:         cache.New(ttl, 2*ttl),
		generations:   make(map[users.ID]uint64),
	}
}

// Invalidate retires cached statistics of the record's owner. It is meant to be
// registered with grades.Service.OnRecordCreated.
func (s *Service) Invalidate(_ context.Context, record *grades.Record) {
	s.generationsGuard.Lock()
	defer s.generationsGuard.Unlock()
	s.generations[record.UserID]++
}

// Overview returns the records of the authenticated user together with their
// summary. A non-zero semester limits both to that semester.
func (s *Service) Overview(ctx context.Context, semester int) (*Overview, error) {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return nil, tokens.ErrMissingFromContext
	}
	key := overviewKey(token.UserID, s.generation(token.UserID), semester)
	if cached, found := s.cache.Get(key); found {
		return cached.(*Overview), nil
	}

	var filters []func(*grades.Record) bool
	if semester != 0 {
		filters = append(filters, grades.BySemester(semester))
	}
	records, err := s.gradesService.List(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	summary, err := grades.Aggregate(records)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	overview := &Overview{
		Records: records,
		Summary: summary,
	}
	s.cache.SetDefault(key, overview)
	return overview, nil
}

// Semesters summarizes records of the authenticated user per semester, in
// semester order. Semesters without records are not listed.
func (s *Service) Semesters(ctx context.Context) ([]Semester, error) {
	token, ok := tokens.FromContext(ctx)
	if !ok {
		return nil, tokens.ErrMissingFromContext
	}
	key := semestersKey(token.UserID, s.generation(token.UserID))
	if cached, found := s.cache.Get(key); found {
		return cached.([]Semester), nil
	}

	records, err := s.gradesService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	bySemester := map[int][]grades.Record{}
	for _, record := range records {
		bySemester[record.Semester] = append(bySemester[record.Semester], record)
	}

	semesters := make([]Semester, 0, len(bySemester))
	for _, number := range slices.Sorted(maps.Keys(bySemester)) {
		summary, err := grades.Aggregate(bySemester[number])
		if err != nil {
			return nil, fmt.Errorf("aggregate semester %d: %w", number, err)
		}
		semesters = append(semesters, Semester{
			Number:  number,
			Summary: *summary,
		})
	}

	s.cache.SetDefault(key, semesters)
	return semesters, nil
}

func (s *Service) generation(userID users.ID) uint64 {
	s.generationsGuard.Lock()
	defer s.generationsGuard.Unlock()
	return s.generations[userID]
}

// Keys carry the generation so that results computed from records older than
// the latest invalidation are never read again. They expire with the cache TTL.
func overviewKey(userID users.ID, generation uint64, semester int) string {
	return fmt.Sprintf("overview/%s/%d/%d", userID, generation, semester)
}

func semestersKey(userID users.ID, generation uint64) string {
	return fmt.Sprintf("semesters/%s/%d", userID, generation)
}
