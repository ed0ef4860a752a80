package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

func TestOfSubjectRateMatchesRoundedRatio(t *testing.T) {
	cases := []struct {
		total, done int
		want        float64
	}{
		{10, 3, 30},
		{3, 1, 33},
		{3, 2, 67},
		{7, 7, 100},
		{1, 0, 0},
	}
	for _, tc := range cases {
		agg := OfSubject(subjectWith("s", tc.total, tc.done))
		assert.Equal(t, tc.total, agg.TotalLectures)
		assert.Equal(t, tc.done, agg.CompletedLectures)
		assert.Equal(t, tc.want, agg.CompletionRate, "total=%d done=%d", tc.total, tc.done)
	}
}

func TestOfSubjectZeroTotalIsZero(t *testing.T) {
	agg := OfSubject(models.BatchSubject{SubjectID: "empty"})
	assert.Equal(t, models.Aggregate{}, agg)
}

func TestOfSubjectRequiresBothCompletionFields(t *testing.T) {
	subject := subjectWith("s", 10, 3)
	at := baseTime
	subject.Topics[0].Lectures[5].CompletedAt = &at
	subject.Topics[0].Lectures[6].CompletedBy = "fac-1"

	agg := OfSubject(subject)

	assert.Equal(t, 3, agg.CompletedLectures)
	assert.Equal(t, float64(30), agg.CompletionRate)
}

func TestOfSubjectUsesPrecomputedTotal(t *testing.T) {
	subject := subjectWith("s", 2, 1)
	subject.TotalLectures = 4

	agg := OfSubject(subject)

	assert.Equal(t, 4, agg.TotalLectures)
	assert.Equal(t, float64(25), agg.CompletionRate)
}

func TestOfTopicCountsLectures(t *testing.T) {
	agg := OfTopic(subjectWith("s", 4, 3).Topics[0])
	assert.Equal(t, models.Aggregate{TotalLectures: 4, CompletedLectures: 3, CompletionRate: 75}, agg)
}

func TestOfBatchEmptyIsZero(t *testing.T) {
	batch := models.Batch{ID: "b", Subjects: []models.BatchSubject{}}
	assert.Equal(t, models.Aggregate{}, OfBatch(batch, models.SumThenRate))
	assert.Equal(t, models.Aggregate{}, OfBatch(batch, models.AverageOfRates))
}

func TestAggregationModesDiverge(t *testing.T) {
	batch := models.Batch{Subjects: []models.BatchSubject{subjectWith("a", 10, 10), subjectWith("b", 2, 0)}}

	sum := OfBatch(batch, models.SumThenRate)
	avg := OfBatch(batch, models.AverageOfRates)

	assert.Equal(t, 12, sum.TotalLectures)
	assert.Equal(t, 10, sum.CompletedLectures)
	assert.Equal(t, float64(83), sum.CompletionRate)
	assert.Equal(t, float64(50), avg.CompletionRate)
	assert.Equal(t, sum.TotalLectures, avg.TotalLectures)
}

func TestAverageOfRatesExcludesEmptySubjects(t *testing.T) {
	subjects := []models.BatchSubject{subjectWith("a", 4, 1), subjectWith("b", 4, 4), {SubjectID: "empty"}}

	agg := OfSubjects(subjects, models.AverageOfRates)

	assert.Equal(t, 62.5, agg.CompletionRate)
}

func TestAverageOfRatesAllEmptyIsZero(t *testing.T) {
	subjects := []models.BatchSubject{{SubjectID: "x"}, {SubjectID: "y"}}
	agg := OfSubjects(subjects, models.AverageOfRates)
	assert.Equal(t, float64(0), agg.CompletionRate)
}

func TestAverageOfRatesRoundsToTwoDecimals(t *testing.T) {
	subjects := []models.BatchSubject{subjectWith("a", 3, 1), subjectWith("b", 3, 2), subjectWith("c", 3, 2)}
	// rates 33, 67, 67
	agg := OfSubjects(subjects, models.AverageOfRates)
	assert.Equal(t, 55.67, agg.CompletionRate)
}

func TestOfBatches(t *testing.T) {
	batches := sampleSnapshot()

	sum := OfBatches(batches, models.SumThenRate)
	assert.Equal(t, 9, sum.TotalLectures)
	assert.Equal(t, 4, sum.CompletedLectures)
	assert.Equal(t, float64(44), sum.CompletionRate)

	// batch-1: mean(25, 0) = 12.5, batch-2: 100
	avg := OfBatches(batches, models.AverageOfRates)
	assert.Equal(t, 56.25, avg.CompletionRate)
}

func TestCombineUnknownModeFallsBackToSum(t *testing.T) {
	agg := Combine([]models.Aggregate{{TotalLectures: 4, CompletedLectures: 1, CompletionRate: 25}}, "other")
	assert.Equal(t, float64(25), agg.CompletionRate)
}

func TestRateIsNotCapped(t *testing.T) {
	assert.Equal(t, float64(120), Rate(12, 10))
	assert.Equal(t, float64(0), Rate(3, 0))
	assert.Equal(t, float64(0), Rate(0, -1))
}

func TestOfSubjectRateAboveHundredWhenTotalIsStale(t *testing.T) {
	subject := subjectWith("s", 12, 12)
	subject.TotalLectures = 10

	agg := OfSubject(subject)

	assert.Equal(t, 12, agg.CompletedLectures)
	assert.Equal(t, float64(120), agg.CompletionRate)
}

func TestAggregateRemaining(t *testing.T) {
	assert.Equal(t, 3, models.Aggregate{TotalLectures: 5, CompletedLectures: 2}.Remaining())
	assert.Equal(t, 0, models.Aggregate{TotalLectures: 1, CompletedLectures: 2}.Remaining())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, models.AverageOfRates, ParseMode("average-of-rates"))
	assert.Equal(t, models.SumThenRate, ParseMode(""))
	assert.Equal(t, models.SumThenRate, ParseMode("bogus"))
}

func TestAggregateAfterOptimisticApply(t *testing.T) {
	snapshot := sampleSnapshot()
	event := models.LectureCompleted{BatchID: "batch-1", SubjectID: "phys", TopicID: "phys-t", LectureID: "phys-l0"}

	next := ApplyOptimisticCompletion(snapshot, event, "fac-1", time.Now())

	assert.Equal(t, 0, OfSubject(snapshot[0].Subjects[1]).CompletedLectures)
	assert.Equal(t, 1, OfSubject(next[0].Subjects[1]).CompletedLectures)
}
