package progress

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// EventsFromBatches derives one completion event per complete lecture, in
// hierarchy order.
func EventsFromBatches(batches []models.Batch) []models.CompletionEvent {
	var events []models.CompletionEvent
	for _, batch := range batches {
		for _, subject := range batch.Subjects {
			for _, topic := range subject.Topics {
				for _, lecture := range topic.Lectures {
					if !lecture.IsComplete() {
						continue
					}
					events = append(events, models.CompletionEvent{
						BatchID:      batch.ID,
						BatchName:    batch.Name,
						SubjectID:    subject.SubjectID,
						SubjectTitle: subject.Title,
						FacultyID:    subject.FacultyID,
						TopicID:      topic.TopicID,
						TopicTitle:   topic.Title,
						LectureID:    lecture.LectureID,
						LectureTitle: lecture.Title,
						CompletedAt:  *lecture.CompletedAt,
						CompletedBy:  lecture.CompletedBy,
					})
				}
			}
		}
	}
	return events
}

// SortByRecency returns a copy of events ordered newest first. Ties keep
// their input order.
func SortByRecency(events []models.CompletionEvent) []models.CompletionEvent {
	out := make([]models.CompletionEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}

// ComputeStats summarises events. Active days are distinct calendar dates in
// each timestamp's own location.
func ComputeStats(events []models.CompletionEvent) models.ActivityStats {
	stats := models.ActivityStats{TotalLectures: len(events)}
	if len(events) == 0 {
		return stats
	}

	topics := make(map[string]struct{})
	days := make(map[string]struct{})
	latest := events[0].CompletedAt
	for _, event := range events {
		topics[topicKey(event)] = struct{}{}
		days[event.CompletedAt.Format("2006-01-02")] = struct{}{}
		if event.CompletedAt.After(latest) {
			latest = event.CompletedAt
		}
	}

	stats.UniqueTopics = len(topics)
	stats.ActiveDays = len(days)
	stats.AverageLecturesPerDay = math.Round(float64(len(events))/float64(len(days))*10) / 10
	stats.MostRecent = &latest
	return stats
}

// GroupByTopic buckets events per topic. Groups are ordered by their most
// recent completion and lectures inside a group newest first.
func GroupByTopic(events []models.CompletionEvent) []models.TopicGroup {
	index := make(map[string]int)
	var groups []models.TopicGroup
	for _, event := range events {
		key := topicKey(event)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.TopicGroup{
				TopicID:    event.TopicID,
				TopicTitle: event.TopicTitle,
				MostRecent: event.CompletedAt,
			})
		}
		groups[i].Lectures = append(groups[i].Lectures, event)
		if event.CompletedAt.After(groups[i].MostRecent) {
			groups[i].MostRecent = event.CompletedAt
		}
	}

	for i := range groups {
		groups[i].Lectures = SortByRecency(groups[i].Lectures)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].MostRecent.After(groups[j].MostRecent)
	})
	return groups
}

// FilterEvents keeps events of the given batch and subject. Empty ids match all.
func FilterEvents(events []models.CompletionEvent, batchID, subjectID string) []models.CompletionEvent {
	if batchID == "" && subjectID == "" {
		return events
	}
	out := make([]models.CompletionEvent, 0, len(events))
	for _, event := range events {
		if batchID != "" && event.BatchID != batchID {
			continue
		}
		if subjectID != "" && event.SubjectID != subjectID {
			continue
		}
		out = append(out, event)
	}
	return out
}

func topicKey(event models.CompletionEvent) string {
	if event.TopicID != "" {
		return event.TopicID
	}
	return "title:" + strings.ToLower(event.TopicTitle)
}
