package progress

import (
	"time"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// ApplyOptimisticCompletion returns a snapshot in which the lecture named by
// event is complete, stamped with actor and now. Only the slices on the path
// from batch to lecture are copied; every other batch, subject, topic and
// lecture slice is shared with the input. An unresolvable id chain or an
// already complete lecture returns the input snapshot itself.
func ApplyOptimisticCompletion(snapshot []models.Batch, event models.LectureCompleted, actor string, now time.Time) []models.Batch {
	bi := indexBatch(snapshot, event.BatchID)
	if bi < 0 {
		return snapshot
	}
	batch := snapshot[bi]

	si := indexSubject(batch.Subjects, event.SubjectID)
	if si < 0 {
		return snapshot
	}
	subject := batch.Subjects[si]

	ti := indexTopic(subject.Topics, event.TopicID)
	if ti < 0 {
		return snapshot
	}
	topic := subject.Topics[ti]

	li := indexLecture(topic.Lectures, event.LectureID)
	if li < 0 {
		return snapshot
	}
	if topic.Lectures[li].IsComplete() {
		return snapshot
	}

	completedAt := now
	lecture := topic.Lectures[li]
	lecture.CompletedAt = &completedAt
	lecture.CompletedBy = actor

	topic.Lectures = replaceAt(topic.Lectures, li, lecture)
	subject.Topics = replaceAt(subject.Topics, ti, topic)
	batch.Subjects = replaceAt(batch.Subjects, si, subject)
	return replaceAt(snapshot, bi, batch)
}

// FindLecture resolves the id chain of event within snapshot.
func FindLecture(snapshot []models.Batch, event models.LectureCompleted) (models.BatchLecture, bool) {
	bi := indexBatch(snapshot, event.BatchID)
	if bi < 0 {
		return models.BatchLecture{}, false
	}
	subjects := snapshot[bi].Subjects
	si := indexSubject(subjects, event.SubjectID)
	if si < 0 {
		return models.BatchLecture{}, false
	}
	topics := subjects[si].Topics
	ti := indexTopic(topics, event.TopicID)
	if ti < 0 {
		return models.BatchLecture{}, false
	}
	lectures := topics[ti].Lectures
	li := indexLecture(lectures, event.LectureID)
	if li < 0 {
		return models.BatchLecture{}, false
	}
	return lectures[li], true
}

// ReplaceBatch swaps in an authoritative copy of one batch, appending it when
// the snapshot does not hold it yet.
func ReplaceBatch(snapshot []models.Batch, batch models.Batch) []models.Batch {
	i := indexBatch(snapshot, batch.ID)
	if i < 0 {
		out := make([]models.Batch, len(snapshot), len(snapshot)+1)
		copy(out, snapshot)
		return append(out, batch)
	}
	return replaceAt(snapshot, i, batch)
}

func replaceAt[T any](items []T, i int, item T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[i] = item
	return out
}

func indexBatch(batches []models.Batch, id string) int {
	if id == "" {
		return -1
	}
	for i := range batches {
		if batches[i].ID == id {
			return i
		}
	}
	return -1
}

func indexSubject(subjects []models.BatchSubject, id string) int {
	for i := range subjects {
		if subjects[i].Matches(id) {
			return i
		}
	}
	return -1
}

func indexTopic(topics []models.BatchTopic, id string) int {
	for i := range topics {
		if topics[i].Matches(id) {
			return i
		}
	}
	return -1
}

func indexLecture(lectures []models.BatchLecture, id string) int {
	for i := range lectures {
		if lectures[i].Matches(id) {
			return i
		}
	}
	return -1
}
