package grades

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordOf(average float64, total, g5, g4, g3, g2, np int) Record {
	counts := Counts{TotalStudents: total, Grade5: g5, Grade4: g4, Grade3: g3, Grade2: g2, NotPassed: np}
	metrics, err := counts.Metrics()
	if err != nil {
		panic(err)
	}
	metrics.AverageScore = average
	return Record{Semester: 1, Counts: counts, Metrics: &metrics}
}

func TestAggregateEmpty(t *testing.T) {
	summary, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Nil(t, summary)

	summary, err = Aggregate([]Record{})
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestAggregateWeighting(t *testing.T) {
	summary, err := Aggregate([]Record{
		recordOf(4.0, 20, 8, 8, 4, 0, 0),
		recordOf(3.0, 30, 3, 9, 12, 6, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.InDelta(t, 3.4, summary.WeightedAverageScore, 1e-6)
	assert.InDelta(t, 88.0, summary.SuccessRate, 1e-9)
	assert.InDelta(t, 56.0, summary.QualityRate, 1e-9)
	assert.Equal(t, 50, summary.TotalStudents)
	assert.Equal(t, 2, summary.Records)
}

func TestAggregateIsNotUnweightedMean(t *testing.T) {
	summary, err := Aggregate([]Record{
		recordOf(3.0, 30, 0, 0, 30, 0, 0),
		recordOf(5.0, 5, 5, 0, 0, 0, 0),
	})
	require.NoError(t, err)
	// (30*3 + 5*5) / 35, the unweighted mean would be 4.0
	assert.InDelta(t, 115.0/35.0, summary.WeightedAverageScore, 1e-9)
}

func TestAggregateSingleRecord(t *testing.T) {
	for _, counts := range []Counts{
		{TotalStudents: 3, Grade5: 1, Grade4: 1, Grade3: 1},
		{TotalStudents: 7, Grade5: 2, Grade3: 1, Grade2: 3, NotPassed: 1},
		{TotalStudents: 29, Grade5: 11, Grade4: 5, Grade3: 4, Grade2: 6, NotPassed: 3},
		{TotalStudents: 1, NotPassed: 1},
	} {
		metrics, err := counts.Metrics()
		require.NoError(t, err)

		summary, err := Aggregate([]Record{{Counts: counts, Metrics: &metrics}})
		require.NoError(t, err)

		assert.Equal(t, metrics.AverageScore, summary.WeightedAverageScore)
		assert.Equal(t, metrics.SuccessRate, summary.SuccessRate)
		assert.Equal(t, metrics.QualityRate, summary.QualityRate)
	}
}

func TestAggregateDerivesMissingMetrics(t *testing.T) {
	withMetrics := recordOf(4.2, 20, 8, 8, 4, 0, 0)
	withoutMetrics := withMetrics
	withoutMetrics.Metrics = nil

	expected, err := Aggregate([]Record{withMetrics})
	require.NoError(t, err)
	derived, err := Aggregate([]Record{withoutMetrics})
	require.NoError(t, err)

	assert.InDelta(t, expected.WeightedAverageScore, derived.WeightedAverageScore, 1e-12)
	assert.Equal(t, expected.SuccessRate, derived.SuccessRate)
	assert.Equal(t, expected.QualityRate, derived.QualityRate)
}

func TestAggregateIdempotent(t *testing.T) {
	records := []Record{
		recordOf(4.0, 20, 8, 8, 4, 0, 0),
		recordOf(3.0, 30, 3, 9, 12, 6, 0),
	}
	first, err := Aggregate(records)
	require.NoError(t, err)
	second, err := Aggregate(records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	records := make([]Record, 50)
	for i := range records {
		g5, g4, g3, g2, np := r.IntN(10), r.IntN(10), r.IntN(10), r.IntN(10), r.IntN(10)
		total := g5 + g4 + g3 + g2 + np
		if total == 0 {
			g5, total = 1, 1
		}
		counts := Counts{TotalStudents: total, Grade5: g5, Grade4: g4, Grade3: g3, Grade2: g2, NotPassed: np}
		metrics, err := counts.Metrics()
		require.NoError(t, err)
		records[i] = Record{Counts: counts, Metrics: &metrics}
	}

	expected, err := Aggregate(records)
	require.NoError(t, err)

	for range 20 {
		shuffled := append([]Record(nil), records...)
		r.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		summary, err := Aggregate(shuffled)
		require.NoError(t, err)
		assert.InEpsilon(t, expected.WeightedAverageScore, summary.WeightedAverageScore, 1e-9)
		assert.Equal(t, expected.SuccessRate, summary.SuccessRate)
		assert.Equal(t, expected.QualityRate, summary.QualityRate)
	}
}

func TestAggregatePreconditionViolation(t *testing.T) {
	for _, counts := range []Counts{
		{TotalStudents: 0},
		{TotalStudents: 5, Grade5: 6, NotPassed: -1},
		{TotalStudents: 5, Grade5: 1},
		{TotalStudents: 1, Grade5: math.MaxInt, Grade4: math.MaxInt, Grade3: 3},
	} {
		_, err := Aggregate([]Record{
			recordOf(4.0, 20, 8, 8, 4, 0, 0),
			{Counts: counts},
		})
		assert.ErrorIs(t, err, ErrPreconditionViolation, "%+v", counts)
	}
}

func TestAggregateRatesBounded(t *testing.T) {
	summary, err := Aggregate([]Record{
		recordOf(5.0, 10, 10, 0, 0, 0, 0),
		recordOf(0.0, 10, 0, 0, 0, 0, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, summary.SuccessRate)
	assert.Equal(t, 50.0, summary.QualityRate)
	assert.Equal(t, 2.5, summary.WeightedAverageScore)
}

func TestAggregateStudentsOverflow(t *testing.T) {
	huge := Counts{TotalStudents: math.MaxInt, Grade5: math.MaxInt}
	_, err := Aggregate([]Record{{Counts: huge}, {Counts: huge}})
	assert.ErrorIs(t, err, ErrPreconditionViolation)

	summary, err := Aggregate([]Record{{Counts: huge}})
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.SuccessRate)
	assert.Equal(t, 5.0, summary.WeightedAverageScore)
}
