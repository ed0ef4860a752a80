package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

func fixedClock() func() time.Time {
	return func() time.Time { return now }
}

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker(fixedClock())

	record, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)
	assert.Equal(t, models.MutationPredicted, record.State)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, 1, tracker.InFlight())

	record, err = tracker.Advance("fac-1", "math-l2", models.MutationPendingConfirmation, "")
	require.NoError(t, err)
	assert.Equal(t, models.MutationPendingConfirmation, record.State)

	record, err = tracker.Advance("fac-1", "math-l2", models.MutationConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.MutationConfirmed, record.State)
	assert.Equal(t, 0, tracker.InFlight())

	got, ok := tracker.Get("fac-1", "math-l2")
	require.True(t, ok)
	assert.Equal(t, record, got)
}

func TestTrackerRejectsConcurrentMutationForSameLecture(t *testing.T) {
	tracker := NewTracker(fixedClock())
	first, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)

	existing, err := tracker.Begin("fac-1", mathEvent())

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, first.ID, existing.ID)
}

func TestTrackerAllowsOtherActorsAndLectures(t *testing.T) {
	tracker := NewTracker(fixedClock())
	_, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)

	_, err = tracker.Begin("fac-2", mathEvent())
	assert.NoError(t, err)

	other := mathEvent()
	other.LectureID = "math-l3"
	_, err = tracker.Begin("fac-1", other)
	assert.NoError(t, err)
}

func TestTrackerBeginAfterTerminalState(t *testing.T) {
	tracker := NewTracker(fixedClock())
	_, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)
	_, err = tracker.Advance("fac-1", "math-l2", models.MutationRolledBack, models.ReasonBackendFailed)
	require.NoError(t, err)

	record, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)
	assert.Equal(t, models.MutationPredicted, record.State)
	assert.Nil(t, record.Reason)
}

func TestTrackerRejectsInvalidTransitions(t *testing.T) {
	tracker := NewTracker(fixedClock())
	_, err := tracker.Begin("fac-1", mathEvent())
	require.NoError(t, err)

	_, err = tracker.Advance("fac-1", "math-l2", models.MutationConfirmed, "")
	assert.Error(t, err)

	_, err = tracker.Advance("fac-1", "math-l2", models.MutationRolledBack, models.ReasonAuthExpired)
	require.NoError(t, err)
	_, err = tracker.Advance("fac-1", "math-l2", models.MutationPendingConfirmation, "")
	assert.Error(t, err)

	record, _ := tracker.Get("fac-1", "math-l2")
	require.NotNil(t, record.Reason)
	assert.Equal(t, models.ReasonAuthExpired, *record.Reason)
}

func TestTrackerAdvanceUnknown(t *testing.T) {
	_, err := NewTracker(nil).Advance("fac-1", "x", models.MutationConfirmed, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTrackerForgetDropsOldTerminalRecords(t *testing.T) {
	tracker := NewTracker(fixedClock())
	_, _ = tracker.Begin("fac-1", mathEvent())
	_, _ = tracker.Advance("fac-1", "math-l2", models.MutationRolledBack, "")
	other := mathEvent()
	other.LectureID = "math-l3"
	_, _ = tracker.Begin("fac-1", other)

	removed := tracker.Forget(now.Add(time.Minute))

	assert.Equal(t, 1, removed)
	_, ok := tracker.Get("fac-1", "math-l3")
	assert.True(t, ok)
}

func TestTrackerPendingInBatch(t *testing.T) {
	tracker := NewTracker(fixedClock())
	event := mathEvent()
	_, _ = tracker.Begin("fac-1", event)

	assert.True(t, tracker.PendingInBatch("fac-1", event.BatchID))
	assert.False(t, tracker.PendingInBatch("fac-2", event.BatchID))
	assert.False(t, tracker.PendingInBatch("fac-1", "other-batch"))

	_, _ = tracker.Advance("fac-1", event.LectureID, models.MutationRolledBack, "")
	assert.False(t, tracker.PendingInBatch("fac-1", event.BatchID))
}
