package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

var businessNow = time.Date(2024, 3, 20, 16, 0, 0, 0, time.UTC)

type fakeBusinessBackend struct {
	mu        sync.Mutex
	items     []models.BusinessOverviewItem
	analytics models.BusinessAnalytics
	events    []models.CompletionEvent
	eventsErr error
	rejected  string
	calls     map[string]int
	lastQuery backend.EventQuery
}

func (f *fakeBusinessBackend) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBusinessBackend) FetchBusinessOverview(ctx context.Context, token string) ([]models.BusinessOverviewItem, error) {
	f.count("overview")
	if token == f.rejected {
		return nil, appErrors.ErrUnauthorized
	}
	return f.items, nil
}

func (f *fakeBusinessBackend) FetchBusinessAnalytics(ctx context.Context, token string) (models.BusinessAnalytics, error) {
	f.count("analytics")
	return f.analytics, nil
}

func (f *fakeBusinessBackend) FetchCompletionEvents(ctx context.Context, token string, q backend.EventQuery) ([]models.CompletionEvent, error) {
	f.count("events")
	f.lastQuery = q
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

// memoryCache is a CacheRepository storing JSON in a map.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

type fakeMutationLister struct {
	records []models.MutationRecord
	total   int
	filter  models.MutationFilter
}

func (f *fakeMutationLister) List(ctx context.Context, filter models.MutationFilter) ([]models.MutationRecord, int, error) {
	f.filter = filter
	return f.records, f.total, nil
}

func trackingItem(batchID, batchName, subjectID, title string, faculty models.FacultyRef, total, done int) models.BusinessOverviewItem {
	return models.BusinessOverviewItem{
		BatchID:           batchID,
		BatchName:         batchName,
		SubjectID:         subjectID,
		SubjectTitle:      title,
		FacultyID:         faculty.ID,
		Faculty:           faculty,
		TotalLectures:     total,
		CompletedLectures: done,
		RemainingLectures: total - done,
		CompletionRate:    progress.Rate(done, total),
	}
}

func trackingItems() []models.BusinessOverviewItem {
	ada := models.FacultyRef{ID: "f1", FirstName: "Ada", LastName: "Lovelace"}
	grace := models.FacultyRef{ID: "f2", FirstName: "Grace", LastName: "Hopper"}
	last := "Limits"

	calculus := trackingItem("b1", "Morning", "s1", "Calculus", ada, 4, 1)
	calculus.LastLecture = &last
	return []models.BusinessOverviewItem{
		calculus,
		trackingItem("b1", "Morning", "s2", "Physics", grace, 2, 0),
		trackingItem("b2", "Evening", "s3", "Chemistry", ada, 3, 3),
	}
}

func trackingEvents() []models.CompletionEvent {
	return []models.CompletionEvent{
		{BatchID: "b1", BatchName: "Morning", SubjectTitle: "Calculus", TopicID: "t1", TopicTitle: "Limits", LectureID: "l1", LectureTitle: "Intro", CompletedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{BatchID: "b2", BatchName: "Evening", SubjectTitle: "Chemistry", TopicID: "t9", TopicTitle: "Atoms", LectureID: "l9", LectureTitle: "Bonds", CompletedAt: time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)},
	}
}

func newBusinessFixture(cacheRepo CacheRepository, bus *progress.Bus, ledger mutationLister) (*BusinessService, *fakeBusinessBackend) {
	fake := &fakeBusinessBackend{items: trackingItems(), events: trackingEvents(), analytics: models.BusinessAnalytics{TotalTeachers: 2, ActiveBatches: 2}}
	params := BusinessServiceParams{
		Backend:     fake,
		Cache:       NewCacheService(cacheRepo, NewMetricsService(), time.Minute, nil, cacheRepo != nil),
		Bus:         bus,
		RecentLimit: 1,
		Now:         func() time.Time { return businessNow },
	}
	if ledger != nil {
		params.Ledger = ledger
	}
	return NewBusinessService(params), fake
}

var businessPrincipal = &models.Principal{UserID: "biz-1", Role: models.RoleBusiness, Token: "tok", Verified: true}

func TestBusinessOverview(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)

	resp, hit, err := svc.Overview(context.Background(), businessPrincipal)

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.Aggregate{TotalLectures: 9, CompletedLectures: 4, CompletionRate: 44}, resp.OverallProgress)
	assert.Equal(t, 2, resp.ActiveTeachers)
	require.Len(t, resp.RecentActivity, 1)
	assert.Equal(t, "l9", resp.RecentActivity[0].LectureID)
	assert.Equal(t, 2, resp.Analytics.TotalTeachers)
}

func TestBusinessOverviewServedFromCacheUntilCompletion(t *testing.T) {
	bus := progress.NewBus()
	svc, fake := newBusinessFixture(newMemoryCache(), bus, nil)
	defer svc.Close()
	ctx := context.Background()

	_, hit, err := svc.Overview(ctx, businessPrincipal)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Overview(ctx, businessPrincipal)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, fake.calls["overview"])

	bus.Publish(models.LectureCompleted{BatchID: "b1", SubjectID: "s1", TopicID: "t1", LectureID: "l2"})

	_, hit, err = svc.Overview(ctx, businessPrincipal)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, fake.calls["overview"])
}

func TestBusinessOverviewUnverifiedTokenSkipsCache(t *testing.T) {
	svc, fake := newBusinessFixture(newMemoryCache(), nil, nil)
	fake.rejected = "forged"
	ctx := context.Background()

	_, _, err := svc.Overview(ctx, businessPrincipal)
	require.NoError(t, err)

	forged := &models.Principal{UserID: "biz-9", Role: models.RoleBusiness, Token: "forged"}
	resp, hit, err := svc.Overview(ctx, forged)

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Nil(t, resp)
	assert.False(t, hit)
	assert.Equal(t, 2, fake.calls["overview"])
}

func TestBusinessOverviewUnverifiedTokenDoesNotFillCache(t *testing.T) {
	svc, fake := newBusinessFixture(newMemoryCache(), nil, nil)
	ctx := context.Background()
	unverified := &models.Principal{UserID: "biz-1", Role: models.RoleBusiness, Token: "tok"}

	_, hit, err := svc.Overview(ctx, unverified)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Overview(ctx, businessPrincipal)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, fake.calls["overview"])
	assert.Equal(t, 2, fake.calls["analytics"])
}

func TestLectureTrackingFiltersAndOptions(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)

	resp, _, err := svc.LectureTracking(context.Background(), businessPrincipal, dto.LectureTrackingQuery{Faculty: "Ada Lovelace"})

	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, dto.LectureTrackingSummary{TotalSubjects: 2, TotalLectures: 7, CompletedLectures: 4, AverageCompletion: 62.5}, resp.Summary)
	assert.Equal(t, []dto.FilterOption{{ID: "b2", Label: "Evening"}, {ID: "b1", Label: "Morning"}}, resp.BatchOptions)
	assert.Equal(t, []dto.FilterOption{{ID: "f1", Label: "Ada Lovelace"}, {ID: "f2", Label: "Grace Hopper"}}, resp.FacultyOptions)
	assert.Equal(t, "Ada Lovelace", resp.AppliedFilters.Faculty)
}

func TestLectureTrackingBatchNarrowsFacultyOptions(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)

	resp, _, err := svc.LectureTracking(context.Background(), businessPrincipal, dto.LectureTrackingQuery{Batch: "b2"})

	require.NoError(t, err)
	assert.Equal(t, []dto.FilterOption{{ID: "f1", Label: "Ada Lovelace"}}, resp.FacultyOptions)
	require.Len(t, resp.RecentActivity, 1)
	assert.Equal(t, "l9", resp.RecentActivity[0].LectureID)
}

func TestLectureTrackingSearch(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)

	resp, _, err := svc.LectureTracking(context.Background(), businessPrincipal, dto.LectureTrackingQuery{Search: "HOPPER"})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "s2", resp.Items[0].SubjectID)
	assert.Empty(t, resp.RecentActivity)
}

func TestFacultyLecturesDateRangeIncludesWholeEndDay(t *testing.T) {
	svc, fake := newBusinessFixture(nil, nil, nil)

	resp, err := svc.FacultyLectures(context.Background(), businessPrincipal, "b1", "s1", "2024-03-01", "2024-03-15")

	require.NoError(t, err)
	assert.Equal(t, backend.EventQuery{BatchID: "b1", SubjectID: "s1"}, fake.lastQuery)
	require.Len(t, resp.Lectures, 2)
	assert.Equal(t, "l9", resp.Lectures[0].LectureID)
	assert.Equal(t, 2, resp.Stats.TotalLectures)
	assert.Equal(t, 2, resp.AllTimeStats.TotalLectures)
	assert.Len(t, resp.Topics, 2)
	assert.Equal(t, businessNow, resp.GeneratedAt)

	resp, err = svc.FacultyLectures(context.Background(), businessPrincipal, "b1", "s1", "2024-03-02", "")
	require.NoError(t, err)
	assert.Len(t, resp.Lectures, 1)
	assert.Equal(t, 2, resp.AllTimeStats.TotalLectures)
}

func TestFacultyLecturesRejectsBadRange(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)
	ctx := context.Background()

	_, err := svc.FacultyLectures(ctx, businessPrincipal, "b1", "s1", "yesterday", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.FacultyLectures(ctx, businessPrincipal, "b1", "s1", "2024-03-10", "2024-03-01")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.FacultyLectures(ctx, businessPrincipal, "", "s1", "", "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestFacultyLecturesSameDayRange(t *testing.T) {
	r, err := ParseDateRange("2024-03-15", "2024-03-15")
	require.NoError(t, err)
	assert.True(t, progress.InRange(time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC), r))
}

func TestExportLectureTracking(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)
	ctx := context.Background()

	file, err := svc.ExportLectureTracking(ctx, businessPrincipal, dto.LectureTrackingQuery{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "lecture-tracking-20240320-160000.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Batch,Subject,Faculty,Completed,Total,Remaining,Completion %,Last Lecture", lines[0])
	assert.Equal(t, "Morning,Calculus,Ada Lovelace,1,4,3,25.00,Limits", lines[1])

	file, err = svc.ExportLectureTracking(ctx, businessPrincipal, dto.LectureTrackingQuery{}, "PDF")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = svc.ExportLectureTracking(ctx, businessPrincipal, dto.LectureTrackingQuery{}, "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMutationsLedger(t *testing.T) {
	svc, _ := newBusinessFixture(nil, nil, nil)
	_, _, err := svc.Mutations(context.Background(), models.MutationFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	lister := &fakeMutationLister{records: []models.MutationRecord{{ID: "m1"}}, total: 45}
	svc, _ = newBusinessFixture(nil, nil, lister)

	records, page, err := svc.Mutations(context.Background(), models.MutationFilter{State: models.MutationRolledBack, Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, &models.Pagination{Page: 2, PageSize: 20, TotalCount: 45, TotalPages: 3}, page)
	assert.Equal(t, models.MutationRolledBack, lister.filter.State)

	_, _, err = svc.Mutations(context.Background(), models.MutationFilter{State: "bogus"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
