package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

var now = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

func mathEvent() models.LectureCompleted {
	return models.LectureCompleted{BatchID: "batch-1", SubjectID: "math", TopicID: "math-t", LectureID: "math-l2"}
}

func TestApplyOptimisticCompletionMarksLecture(t *testing.T) {
	snapshot := sampleSnapshot()

	next := ApplyOptimisticCompletion(snapshot, mathEvent(), "fac-9", now)

	lecture, ok := FindLecture(next, mathEvent())
	require.True(t, ok)
	assert.True(t, lecture.IsComplete())
	assert.Equal(t, "fac-9", lecture.CompletedBy)
	assert.Equal(t, now, *lecture.CompletedAt)

	original, _ := FindLecture(snapshot, mathEvent())
	assert.False(t, original.IsComplete(), "input snapshot must not change")
}

func TestApplyOptimisticCompletionSharesSiblings(t *testing.T) {
	snapshot := sampleSnapshot()

	next := ApplyOptimisticCompletion(snapshot, mathEvent(), "fac-1", now)

	// Untouched batch keeps its subject slice.
	assert.Same(t, &snapshot[1].Subjects[0], &next[1].Subjects[0])
	// Untouched subject in the mutated batch keeps its topic slice.
	assert.Same(t, &snapshot[0].Subjects[1].Topics[0], &next[0].Subjects[1].Topics[0])
	// The mutated path is copied.
	assert.NotSame(t, &snapshot[0].Subjects[0], &next[0].Subjects[0])
	assert.NotSame(t, &snapshot[0].Subjects[0].Topics[0].Lectures[0], &next[0].Subjects[0].Topics[0].Lectures[0])
}

func TestApplyOptimisticCompletionIsIdempotent(t *testing.T) {
	snapshot := sampleSnapshot()

	once := ApplyOptimisticCompletion(snapshot, mathEvent(), "fac-1", now)
	twice := ApplyOptimisticCompletion(once, mathEvent(), "fac-1", now.Add(time.Minute))

	assert.Equal(t, once, twice)
}

func TestApplyOptimisticCompletionMissingPathIsNoop(t *testing.T) {
	cases := map[string]models.LectureCompleted{
		"unknown batch":   {BatchID: "nope", SubjectID: "math", TopicID: "math-t", LectureID: "math-l2"},
		"unknown subject": {BatchID: "batch-1", SubjectID: "nope", TopicID: "math-t", LectureID: "math-l2"},
		"unknown topic":   {BatchID: "batch-1", SubjectID: "math", TopicID: "nope", LectureID: "math-l2"},
		"unknown lecture": {BatchID: "batch-1", SubjectID: "math", TopicID: "math-t", LectureID: "nope"},
		"empty ids":       {},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			snapshot := sampleSnapshot()
			got := ApplyOptimisticCompletion(snapshot, event, "fac-1", now)
			assert.Equal(t, sampleSnapshot(), got)
		})
	}
}

func TestApplyOptimisticCompletionAcceptsInstanceIDs(t *testing.T) {
	event := models.LectureCompleted{BatchID: "batch-1", SubjectID: "bs-math", TopicID: "bt-math", LectureID: "bl-math-l3"}

	next := ApplyOptimisticCompletion(sampleSnapshot(), event, "fac-1", now)

	lecture, ok := FindLecture(next, event)
	require.True(t, ok)
	assert.True(t, lecture.IsComplete())
}

func TestApplyOptimisticCompletionFillsHalfCompleteLecture(t *testing.T) {
	snapshot := sampleSnapshot()
	at := baseTime
	snapshot[0].Subjects[0].Topics[0].Lectures[2].CompletedAt = &at

	next := ApplyOptimisticCompletion(snapshot, mathEvent(), "fac-1", now)

	lecture, _ := FindLecture(next, mathEvent())
	assert.True(t, lecture.IsComplete())
}

func TestApplyOptimisticCompletionOnEmptySnapshot(t *testing.T) {
	assert.Nil(t, ApplyOptimisticCompletion(nil, mathEvent(), "fac-1", now))
}

func TestReplaceBatch(t *testing.T) {
	snapshot := sampleSnapshot()
	fresh := models.Batch{ID: "batch-2", Name: "Evening (renamed)"}

	replaced := ReplaceBatch(snapshot, fresh)
	require.Len(t, replaced, 2)
	assert.Equal(t, "Evening (renamed)", replaced[1].Name)
	assert.Equal(t, "Evening", snapshot[1].Name)

	appended := ReplaceBatch(snapshot, models.Batch{ID: "batch-3"})
	assert.Len(t, appended, 3)
	assert.Len(t, snapshot, 2)
}

func TestNormalizeSortsLecturesByOrder(t *testing.T) {
	batches := []models.Batch{{Subjects: []models.BatchSubject{{Topics: []models.BatchTopic{{
		Lectures: []models.BatchLecture{{LectureID: "c", Order: 3}, {LectureID: "a", Order: 1}, {LectureID: "b", Order: 2}},
	}}}}}}

	Normalize(batches)

	lectures := batches[0].Subjects[0].Topics[0].Lectures
	assert.Equal(t, "a", lectures[0].LectureID)
	assert.Equal(t, "b", lectures[1].LectureID)
	assert.Equal(t, "c", lectures[2].LectureID)
}
