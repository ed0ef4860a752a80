package progress

import (
	"sort"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// Normalize orders lectures by their order field in place. Backend payloads do
// not guarantee insertion order.
func Normalize(batches []models.Batch) []models.Batch {
	for bi := range batches {
		for si := range batches[bi].Subjects {
			topics := batches[bi].Subjects[si].Topics
			for ti := range topics {
				lectures := topics[ti].Lectures
				sort.SliceStable(lectures, func(i, j int) bool {
					return lectures[i].Order < lectures[j].Order
				})
			}
		}
	}
	return batches
}
