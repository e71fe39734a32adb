package statistics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/study-grade/internal/grades"
	"github.com/study-grade/internal/tokens"
	"github.com/study-grade/internal/users"
)

func newServices(t *testing.T) (*grades.Service, *Service) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gradesService := grades.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), grades.NewStore(db))
	statisticsService := NewService(gradesService, time.Hour)
	gradesService.OnRecordCreated(statisticsService.Invalidate)
	return gradesService, statisticsService
}

func contextOf(userID users.ID) context.Context {
	return tokens.NewContext(context.Background(), &tokens.Token{
		ID:     tokens.NewID(),
		UserID: userID,
	})
}

func submission(semester, total, g5, g4, g3, g2, np string) grades.Submission {
	return grades.Submission{
		Date:          "2024-09-01",
		Semester:      semester,
		Subject:       "Mathematics",
		Group:         "KN-21",
		TotalStudents: total,
		Grade5:        g5,
		Grade4:        g4,
		Grade3:        g3,
		Grade2:        g2,
		NotPassed:     np,
	}
}

func TestOverviewEmpty(t *testing.T) {
	_, statisticsService := newServices(t)

	overview, err := statisticsService.Overview(contextOf(users.NewID()), 0)
	require.NoError(t, err)
	assert.Empty(t, overview.Records)
	assert.Nil(t, overview.Summary)
}

func TestOverview(t *testing.T) {
	gradesService, statisticsService := newServices(t)
	ctx := contextOf(users.NewID())

	_, err := gradesService.Submit(ctx, submission("1", "20", "8", "8", "4", "0", "0"))
	require.NoError(t, err)
	_, err = gradesService.Submit(ctx, submission("1", "30", "3", "9", "12", "6", "0"))
	require.NoError(t, err)

	overview, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	require.Len(t, overview.Records, 2)
	require.NotNil(t, overview.Summary)

	// 20 students averaging 4.2 and 30 averaging 3.3
	assert.InDelta(t, (20*4.2+30*3.3)/50, overview.Summary.WeightedAverageScore, 1e-9)
	assert.InDelta(t, 88.0, overview.Summary.SuccessRate, 1e-9)
	assert.InDelta(t, 56.0, overview.Summary.QualityRate, 1e-9)
	assert.Equal(t, 50, overview.Summary.TotalStudents)
	assert.Equal(t, 2, overview.Summary.Records)
}

func TestOverviewInvalidatedOnSubmit(t *testing.T) {
	gradesService, statisticsService := newServices(t)
	ctx := contextOf(users.NewID())

	_, err := gradesService.Submit(ctx, submission("1", "10", "10", "0", "0", "0", "0"))
	require.NoError(t, err)

	first, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.Summary.WeightedAverageScore)

	cached, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	_, err = gradesService.Submit(ctx, submission("1", "10", "0", "0", "0", "10", "0"))
	require.NoError(t, err)

	second, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, second.Records, 2)
	assert.Equal(t, 3.5, second.Summary.WeightedAverageScore)
}

func TestOverviewPerUser(t *testing.T) {
	gradesService, statisticsService := newServices(t)
	owner := contextOf(users.NewID())
	other := contextOf(users.NewID())

	_, err := gradesService.Submit(owner, submission("1", "10", "10", "0", "0", "0", "0"))
	require.NoError(t, err)

	overview, err := statisticsService.Overview(other, 0)
	require.NoError(t, err)
	assert.Empty(t, overview.Records)
	assert.Nil(t, overview.Summary)
}

func TestSemesters(t *testing.T) {
	gradesService, statisticsService := newServices(t)
	ctx := contextOf(users.NewID())

	for _, s := range []grades.Submission{
		submission("3", "10", "10", "0", "0", "0", "0"),
		submission("1", "20", "8", "8", "4", "0", "0"),
		submission("1", "30", "3", "9", "12", "6", "0"),
	} {
		_, err := gradesService.Submit(ctx, s)
		require.NoError(t, err)
	}

	semesters, err := statisticsService.Semesters(ctx)
	require.NoError(t, err)
	require.Len(t, semesters, 2)

	assert.Equal(t, 1, semesters[0].Number)
	assert.Equal(t, 2, semesters[0].Summary.Records)
	assert.InDelta(t, 88.0, semesters[0].Summary.SuccessRate, 1e-9)

	assert.Equal(t, 3, semesters[1].Number)
	assert.Equal(t, 1, semesters[1].Summary.Records)
	assert.Equal(t, 5.0, semesters[1].Summary.WeightedAverageScore)

	_, err = gradesService.Submit(ctx, submission("2", "10", "0", "10", "0", "0", "0"))
	require.NoError(t, err)

	semesters, err = statisticsService.Semesters(ctx)
	require.NoError(t, err)
	require.Len(t, semesters, 3)
	assert.Equal(t, 2, semesters[1].Number)
}

func TestInvalidateRetiresCachedResults(t *testing.T) {
	_, statisticsService := newServices(t)
	userID := users.NewID()
	ctx := contextOf(userID)

	// cached before the invalidation, as a slow computation racing it would be
	stale := &Overview{}
	statisticsService.cache.SetDefault(overviewKey(userID, statisticsService.generation(userID), 0), stale)

	cached, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, stale, cached)

	statisticsService.Invalidate(context.Background(), &grades.Record{UserID: userID})

	fresh, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
}

func TestOverviewBySemester(t *testing.T) {
	gradesService, statisticsService := newServices(t)
	ctx := contextOf(users.NewID())

	for _, s := range []grades.Submission{
		submission("1", "10", "10", "0", "0", "0", "0"),
		submission("2", "10", "0", "0", "0", "10", "0"),
		submission("2", "10", "0", "0", "10", "0", "0"),
	} {
		_, err := gradesService.Submit(ctx, s)
		require.NoError(t, err)
	}

	second, err := statisticsService.Overview(ctx, 2)
	require.NoError(t, err)
	require.Len(t, second.Records, 2)
	assert.Equal(t, 2.5, second.Summary.WeightedAverageScore)
	assert.Equal(t, 50.0, second.Summary.SuccessRate)

	all, err := statisticsService.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all.Records, 3)

	none, err := statisticsService.Overview(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none.Records)
	assert.Nil(t, none.Summary)

	_, err = gradesService.Submit(ctx, submission("2", "10", "10", "0", "0", "0", "0"))
	require.NoError(t, err)

	second, err = statisticsService.Overview(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second.Records, 3)
}

func TestRequiresToken(t *testing.T) {
	_, statisticsService := newServices(t)

	_, err := statisticsService.Overview(context.Background(), 0)
	assert.ErrorIs(t, err, tokens.ErrMissingFromContext)

	_, err = statisticsService.Semesters(context.Background())
	assert.ErrorIs(t, err, tokens.ErrMissingFromContext)
}
