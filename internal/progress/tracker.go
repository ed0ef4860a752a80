package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

var allowedTransitions = map[models.MutationState][]models.MutationState{
	models.MutationPredicted:           {models.MutationPendingConfirmation, models.MutationRolledBack},
	models.MutationPendingConfirmation: {models.MutationConfirmed, models.MutationRolledBack},
}

// Tracker holds the state machine of every mark-complete request, keyed by
// actor and lecture. At most one non-terminal mutation exists per key.
type Tracker struct {
	mu      sync.Mutex
	records map[string]models.MutationRecord
	now     func() time.Time
}

// NewTracker builds an empty tracker. A nil clock uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{records: make(map[string]models.MutationRecord), now: now}
}

// Begin records a new predicted mutation. It fails with CONFLICT while another
// mutation for the same lecture by the same actor is still in flight.
func (t *Tracker) Begin(actor string, event models.LectureCompleted) (models.MutationRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey(actor, event.LectureID)
	if existing, ok := t.records[key]; ok && !existing.State.Terminal() {
		return existing, appErrors.Clone(appErrors.ErrConflict, "lecture completion already in progress")
	}

	ts := t.now().UTC()
	record := models.MutationRecord{
		ID:        uuid.NewString(),
		ActorID:   actor,
		BatchID:   event.BatchID,
		SubjectID: event.SubjectID,
		TopicID:   event.TopicID,
		LectureID: event.LectureID,
		State:     models.MutationPredicted,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	t.records[key] = record
	return record, nil
}

// Advance moves the mutation for actor and lecture to state. Reason is stored
// when not empty.
func (t *Tracker) Advance(actor, lectureID string, state models.MutationState, reason string) (models.MutationRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey(actor, lectureID)
	record, ok := t.records[key]
	if !ok {
		return models.MutationRecord{}, appErrors.Clone(appErrors.ErrNotFound, "mutation not found")
	}
	if !canTransition(record.State, state) {
		return record, fmt.Errorf("mutation %s: invalid transition %s -> %s", record.ID, record.State, state)
	}

	record.State = state
	record.UpdatedAt = t.now().UTC()
	if reason != "" {
		r := reason
		record.Reason = &r
	}
	t.records[key] = record
	return record, nil
}

// Get returns the latest mutation for actor and lecture.
func (t *Tracker) Get(actor, lectureID string) (models.MutationRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[trackerKey(actor, lectureID)]
	return record, ok
}

// InFlight counts mutations that have not reached a terminal state.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, record := range t.records {
		if !record.State.Terminal() {
			n++
		}
	}
	return n
}

// PendingInBatch reports whether actor has a mutation in flight for a lecture
// of batchID.
func (t *Tracker) PendingInBatch(actor, batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, record := range t.records {
		if record.ActorID == actor && record.BatchID == batchID && !record.State.Terminal() {
			return true
		}
	}
	return false
}

// Forget drops terminal records older than cutoff.
func (t *Tracker) Forget(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, record := range t.records {
		if record.State.Terminal() && record.UpdatedAt.Before(cutoff) {
			delete(t.records, key)
			n++
		}
	}
	return n
}

func canTransition(from, to models.MutationState) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func trackerKey(actor, lectureID string) string {
	return actor + "|" + lectureID
}
