package progress

import (
	"fmt"
	"time"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

var baseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func completeLecture(id string, at time.Time) models.BatchLecture {
	ts := at
	return models.BatchLecture{ID: "bl-" + id, LectureID: id, Title: "Lecture " + id, CompletedAt: &ts, CompletedBy: "fac-1"}
}

func openLecture(id string) models.BatchLecture {
	return models.BatchLecture{ID: "bl-" + id, LectureID: id, Title: "Lecture " + id}
}

// subjectWith builds a subject with one topic holding total lectures of which
// the first done are complete.
func subjectWith(id string, total, done int) models.BatchSubject {
	lectures := make([]models.BatchLecture, 0, total)
	for i := 0; i < total; i++ {
		lid := fmt.Sprintf("%s-l%d", id, i)
		if i < done {
			lectures = append(lectures, completeLecture(lid, baseTime.Add(time.Duration(i)*time.Hour)))
		} else {
			lectures = append(lectures, openLecture(lid))
		}
	}
	return models.BatchSubject{
		ID:            "bs-" + id,
		SubjectID:     id,
		Title:         "Subject " + id,
		FacultyID:     "fac-1",
		TotalLectures: total,
		Topics: []models.BatchTopic{{
			ID:       "bt-" + id,
			TopicID:  id + "-t",
			Title:    "Topic " + id,
			Lectures: lectures,
		}},
	}
}

func sampleSnapshot() []models.Batch {
	return []models.Batch{
		{ID: "batch-1", Name: "Morning", Subjects: []models.BatchSubject{subjectWith("math", 4, 1), subjectWith("phys", 2, 0)}},
		{ID: "batch-2", Name: "Evening", Subjects: []models.BatchSubject{subjectWith("chem", 3, 3)}},
	}
}
