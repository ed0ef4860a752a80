package models

import "time"

// MutationState is the lifecycle of one optimistic lecture completion.
type MutationState string

const (
	MutationPredicted           MutationState = "predicted"
	MutationPendingConfirmation MutationState = "pending_confirmation"
	MutationConfirmed           MutationState = "confirmed"
	MutationRolledBack          MutationState = "rolled_back"
)

// Terminal reports whether no further transition is possible.
func (s MutationState) Terminal() bool {
	return s == MutationConfirmed || s == MutationRolledBack
}

// Rollback reasons recorded on rolled back mutations.
const (
	ReasonAuthExpired   = "auth_expired"
	ReasonBackendFailed = "backend_failed"
	ReasonNotPersisted  = "not_persisted"
)

// MutationRecord tracks one mark-complete request from prediction to outcome.
type MutationRecord struct {
	ID        string        `db:"id" json:"id"`
	ActorID   string        `db:"actor_id" json:"actorId"`
	BatchID   string        `db:"batch_id" json:"batchId"`
	SubjectID string        `db:"subject_id" json:"subjectId"`
	TopicID   string        `db:"topic_id" json:"topicId"`
	LectureID string        `db:"lecture_id" json:"lectureId"`
	State     MutationState `db:"state" json:"state"`
	Reason    *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `db:"updated_at" json:"updatedAt"`
}

// Event returns the lecture identity of the record.
func (r MutationRecord) Event() LectureCompleted {
	return LectureCompleted{BatchID: r.BatchID, SubjectID: r.SubjectID, TopicID: r.TopicID, LectureID: r.LectureID}
}

// MutationFilter constrains ledger listing queries.
type MutationFilter struct {
	State   MutationState
	ActorID string
	BatchID string
	Limit   int
	Offset  int
}
