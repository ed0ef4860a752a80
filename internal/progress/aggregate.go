// Package progress holds the lecture completion engine: aggregation, date
// filtering, optimistic completion and the cross-view notification bus.
package progress

import (
	"math"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// Rate returns round(completed/total*100), or 0 when total is not positive.
// It is not capped: a stale backend total shows up as a rate above 100.
func Rate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed) / float64(total) * 100)
}

// CountCompleted walks lectures and counts those with both completion fields set.
func CountCompleted(lectures []models.BatchLecture) int {
	count := 0
	for _, lecture := range lectures {
		if lecture.IsComplete() {
			count++
		}
	}
	return count
}

// OfTopic aggregates a topic; its total is the number of lectures it holds.
func OfTopic(topic models.BatchTopic) models.Aggregate {
	total := len(topic.Lectures)
	completed := CountCompleted(topic.Lectures)
	return models.Aggregate{
		TotalLectures:     total,
		CompletedLectures: completed,
		CompletionRate:    Rate(completed, total),
	}
}

// OfSubject aggregates a subject. The total is the backend supplied
// TotalLectures; the completed count is always recomputed from lectures.
func OfSubject(subject models.BatchSubject) models.Aggregate {
	completed := 0
	for _, topic := range subject.Topics {
		completed += CountCompleted(topic.Lectures)
	}
	return models.Aggregate{
		TotalLectures:     subject.TotalLectures,
		CompletedLectures: completed,
		CompletionRate:    Rate(completed, subject.TotalLectures),
	}
}

// OfSubjects aggregates a list of subjects with the given mode.
func OfSubjects(subjects []models.BatchSubject, mode models.AggregationMode) models.Aggregate {
	children := make([]models.Aggregate, 0, len(subjects))
	for _, subject := range subjects {
		children = append(children, OfSubject(subject))
	}
	return Combine(children, mode)
}

// OfBatch aggregates the subjects of one batch.
func OfBatch(batch models.Batch, mode models.AggregationMode) models.Aggregate {
	return OfSubjects(batch.Subjects, mode)
}

// OfBatches aggregates several batches. In sum-then-rate mode every subject
// counts once; in average-of-rates mode each batch contributes its own
// average-of-rates figure.
func OfBatches(batches []models.Batch, mode models.AggregationMode) models.Aggregate {
	if mode != models.AverageOfRates {
		var all []models.BatchSubject
		for _, batch := range batches {
			all = append(all, batch.Subjects...)
		}
		return OfSubjects(all, models.SumThenRate)
	}
	children := make([]models.Aggregate, 0, len(batches))
	for _, batch := range batches {
		children = append(children, OfBatch(batch, models.AverageOfRates))
	}
	return Combine(children, models.AverageOfRates)
}

// Combine rolls child aggregates up. Lecture counts are always summed. The
// rate is derived from the sums in sum-then-rate mode, or is the mean of the
// child rates (children with no lectures excluded) in average-of-rates mode.
// Unknown modes fall back to sum-then-rate.
func Combine(children []models.Aggregate, mode models.AggregationMode) models.Aggregate {
	var out models.Aggregate
	for _, child := range children {
		out.TotalLectures += child.TotalLectures
		out.CompletedLectures += child.CompletedLectures
	}

	if mode != models.AverageOfRates {
		out.CompletionRate = Rate(out.CompletedLectures, out.TotalLectures)
		return out
	}

	var sum float64
	counted := 0
	for _, child := range children {
		if child.TotalLectures <= 0 {
			continue
		}
		sum += child.CompletionRate
		counted++
	}
	if counted > 0 {
		out.CompletionRate = round(sum/float64(counted), 2)
	}
	return out
}

// ParseMode maps a query value to a mode, defaulting to sum-then-rate.
func ParseMode(value string) models.AggregationMode {
	if models.AggregationMode(value) == models.AverageOfRates {
		return models.AverageOfRates
	}
	return models.SumThenRate
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
