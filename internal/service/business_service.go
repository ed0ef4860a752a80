package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/export"
)

const (
	businessCachePrefix   = "biz:"
	cacheKeyOverviewItems = businessCachePrefix + "overview"
	cacheKeyAnalytics     = businessCachePrefix + "analytics"
	cacheKeyActivity      = businessCachePrefix + "activity"
)

// Export formats of the lecture tracking report.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

type businessBackend interface {
	FetchBusinessOverview(ctx context.Context, token string) ([]models.BusinessOverviewItem, error)
	FetchBusinessAnalytics(ctx context.Context, token string) (models.BusinessAnalytics, error)
	FetchCompletionEvents(ctx context.Context, token string, q backend.EventQuery) ([]models.CompletionEvent, error)
}

type mutationLister interface {
	List(ctx context.Context, filter models.MutationFilter) ([]models.MutationRecord, int, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// BusinessServiceParams groups the collaborators of BusinessService.
type BusinessServiceParams struct {
	Backend     businessBackend
	Cache       *CacheService
	CacheTTL    time.Duration
	Bus         *progress.Bus
	Ledger      mutationLister
	Metrics     *MetricsService
	CSV         tableRenderer
	PDF         tableRenderer
	RecentLimit int
	Logger      *zap.Logger
	Now         func() time.Time
}

// BusinessService assembles institution-wide reports from backend data.
type BusinessService struct {
	backend     businessBackend
	cache       *CacheService
	ttl         time.Duration
	ledger      mutationLister
	metrics     *MetricsService
	csv         tableRenderer
	pdf         tableRenderer
	recentLimit int
	logger      *zap.Logger
	now         func() time.Time
	unsubscribe func()
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// NewBusinessService constructs the service. When a bus is given, every
// lecture completion invalidates the cached reports.
func NewBusinessService(params BusinessServiceParams) *BusinessService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.RecentLimit <= 0 {
		params.RecentLimit = 10
	}
	if params.CSV == nil {
		params.CSV = export.NewCSVExporter()
	}
	if params.PDF == nil {
		params.PDF = export.NewPDFExporter()
	}
	svc := &BusinessService{
		backend:     params.Backend,
		cache:       params.Cache,
		ttl:         params.CacheTTL,
		ledger:      params.Ledger,
		metrics:     params.Metrics,
		csv:         params.CSV,
		pdf:         params.PDF,
		recentLimit: params.RecentLimit,
		logger:      params.Logger,
		now:         params.Now,
	}
	if params.Bus != nil {
		svc.unsubscribe = params.Bus.Subscribe(func(models.LectureCompleted) {
			svc.invalidate()
		})
	}
	return svc
}

// Close detaches the service from the bus.
func (s *BusinessService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Overview returns the dashboard payload. The second result reports whether
// every backend figure came from cache.
func (s *BusinessService) Overview(ctx context.Context, principal *models.Principal) (*dto.BusinessOverviewResponse, bool, error) {
	items, itemsHit, err := s.overviewItems(ctx, principal)
	if err != nil {
		return nil, false, err
	}
	analytics, analyticsHit, err := s.Analytics(ctx, principal)
	if err != nil {
		return nil, false, err
	}
	activity, activityHit, err := s.activity(ctx, principal)
	if err != nil {
		return nil, false, err
	}

	return &dto.BusinessOverviewResponse{
		Analytics:       *analytics,
		Items:           items,
		OverallProgress: progress.Combine(itemAggregates(items), models.SumThenRate),
		ActiveTeachers:  activeTeachers(items),
		RecentActivity:  limitEvents(activity, s.recentLimit),
	}, itemsHit && analyticsHit && activityHit, nil
}

// Analytics returns the backend analytics report.
func (s *BusinessService) Analytics(ctx context.Context, principal *models.Principal) (*models.BusinessAnalytics, bool, error) {
	analytics, hit, err := cached(ctx, s, principal, cacheKeyAnalytics, func() (models.BusinessAnalytics, error) {
		return s.backend.FetchBusinessAnalytics(ctx, principal.Token)
	})
	if err != nil {
		return nil, false, err
	}
	return &analytics, hit, nil
}

// LectureTracking filters the overview rows. Faculty options are narrowed by
// the batch filter and batch options by the faculty filter; both honour the
// search term.
func (s *BusinessService) LectureTracking(ctx context.Context, principal *models.Principal, query dto.LectureTrackingQuery) (*dto.LectureTrackingResponse, bool, error) {
	items, itemsHit, err := s.overviewItems(ctx, principal)
	if err != nil {
		return nil, false, err
	}
	activity, activityHit, err := s.activity(ctx, principal)
	if err != nil {
		return nil, false, err
	}

	search := strings.ToLower(strings.TrimSpace(query.Search))
	rows := make([]models.BusinessOverviewItem, 0, len(items))
	facultyPool := make([]models.BusinessOverviewItem, 0, len(items))
	batchPool := make([]models.BusinessOverviewItem, 0, len(items))
	for _, item := range items {
		if !itemMatchesSearch(item, search) {
			continue
		}
		byFaculty := matchesFaculty(item, query.Faculty)
		byBatch := matchesBatch(item, query.Batch)
		if byBatch {
			facultyPool = append(facultyPool, item)
		}
		if byFaculty {
			batchPool = append(batchPool, item)
		}
		if byFaculty && byBatch {
			rows = append(rows, item)
		}
	}

	events := make([]models.CompletionEvent, 0, len(activity))
	for _, event := range activity {
		if eventMatches(event, search, query.Batch) {
			events = append(events, event)
		}
	}

	aggregate := progress.Combine(itemAggregates(rows), models.AverageOfRates)
	return &dto.LectureTrackingResponse{
		Items:          rows,
		FacultyOptions: facultyOptions(facultyPool),
		BatchOptions:   batchOptions(batchPool),
		Summary: dto.LectureTrackingSummary{
			TotalSubjects:     len(rows),
			TotalLectures:     aggregate.TotalLectures,
			CompletedLectures: aggregate.CompletedLectures,
			AverageCompletion: aggregate.CompletionRate,
		},
		RecentActivity: events,
		AppliedFilters: query,
	}, itemsHit && activityHit, nil
}

// FacultyLectures lists the completed lectures of one batch subject within
// an optional date range. start and end are calendar dates; end includes its
// whole day.
func (s *BusinessService) FacultyLectures(ctx context.Context, principal *models.Principal, batchID, subjectID, start, end string) (*dto.FacultyLecturesResponse, error) {
	if batchID == "" || subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batchId and subjectId are required")
	}
	dateRange, err := ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}

	events, err := s.backend.FetchCompletionEvents(ctx, principal.Token, backend.EventQuery{BatchID: batchID, SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	all := progress.SortByRecency(events)
	filtered := progress.FilterByDateRange(all, dateRange)

	return &dto.FacultyLecturesResponse{
		BatchID:      batchID,
		SubjectID:    subjectID,
		Range:        dateRange,
		Lectures:     filtered,
		Stats:        progress.ComputeStats(filtered),
		AllTimeStats: progress.ComputeStats(all),
		Topics:       progress.GroupByTopic(filtered),
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// ExportLectureTracking renders the filtered tracking rows as CSV or PDF.
func (s *BusinessService) ExportLectureTracking(ctx context.Context, principal *models.Principal, query dto.LectureTrackingQuery, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	var (
		renderer    tableRenderer
		contentType string
	)
	switch format {
	case ExportCSV:
		renderer, contentType = s.csv, "text/csv"
	case ExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	report, _, err := s.LectureTracking(ctx, principal, query)
	if err != nil {
		return nil, err
	}

	generated := s.now().UTC()
	table := trackingTable(report, generated)
	body, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("lecture-tracking-%s.%s", generated.Format("20060102-150405"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// Mutations lists the mutation ledger.
func (s *BusinessService) Mutations(ctx context.Context, filter models.MutationFilter) ([]models.MutationRecord, *models.Pagination, error) {
	if s.ledger == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "mutation ledger is disabled")
	}
	if filter.State != "" && !validMutationState(filter.State) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown mutation state")
	}
	start := time.Now()
	records, total, err := s.ledger.List(ctx, filter)
	s.metrics.ObserveDBQuery("ledger_list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mutations")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := filter.Offset/limit + 1
	return records, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *BusinessService) overviewItems(ctx context.Context, principal *models.Principal) ([]models.BusinessOverviewItem, bool, error) {
	return cached(ctx, s, principal, cacheKeyOverviewItems, func() ([]models.BusinessOverviewItem, error) {
		return s.backend.FetchBusinessOverview(ctx, principal.Token)
	})
}

func (s *BusinessService) activity(ctx context.Context, principal *models.Principal) ([]models.CompletionEvent, bool, error) {
	events, hit, err := cached(ctx, s, principal, cacheKeyActivity, func() ([]models.CompletionEvent, error) {
		return s.backend.FetchCompletionEvents(ctx, principal.Token, backend.EventQuery{})
	})
	if err != nil {
		return nil, false, err
	}
	return progress.SortByRecency(events), hit, nil
}

func (s *BusinessService) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, businessCachePrefix+"*"); err != nil {
		s.logger.Warn("business cache invalidation failed", zap.Error(err))
	}
}

// cached serves key from cache, falling back to fetch and storing its result.
// The cache is shared by every business caller, so a principal whose token
// signature was not checked always goes to the backend and never fills it.
func cached[T any](ctx context.Context, s *BusinessService, principal *models.Principal, key string, fetch func() (T, error)) (T, bool, error) {
	var out T
	if !principal.Verified {
		fresh, err := fetch()
		return fresh, false, err
	}
	if s.cache.Get(ctx, key, &out) {
		return out, true, nil
	}
	out, err := fetch()
	if err != nil {
		return out, false, err
	}
	s.cache.Set(ctx, key, out, s.ttl)
	return out, false, nil
}

// ParseDateRange reads optional calendar dates (2006-01-02) or RFC 3339
// timestamps. A start after end is rejected.
func ParseDateRange(start, end string) (models.DateRange, error) {
	var r models.DateRange
	if start != "" {
		t, err := parseDate(start)
		if err != nil {
			return r, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
		}
		r.Start = &t
	}
	if end != "" {
		t, err := parseDate(end)
		if err != nil {
			return r, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.Start.After(progress.EndOfDay(*r.End)) {
		return r, appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}
	return r, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func itemAggregates(items []models.BusinessOverviewItem) []models.Aggregate {
	out := make([]models.Aggregate, len(items))
	for i, item := range items {
		out[i] = models.Aggregate{
			TotalLectures:     item.TotalLectures,
			CompletedLectures: item.CompletedLectures,
			CompletionRate:    item.CompletionRate,
		}
	}
	return out
}

func activeTeachers(items []models.BusinessOverviewItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := facultyID(item)
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func facultyID(item models.BusinessOverviewItem) string {
	if item.FacultyID != "" {
		return item.FacultyID
	}
	return item.Faculty.ID
}

func itemMatchesSearch(item models.BusinessOverviewItem, search string) bool {
	if search == "" {
		return true
	}
	for _, field := range []string{item.Faculty.FirstName, item.Faculty.LastName, item.SubjectTitle, item.BatchName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// matchesFaculty accepts the faculty id or full name.
func matchesFaculty(item models.BusinessOverviewItem, faculty string) bool {
	return faculty == "" || facultyID(item) == faculty || item.Faculty.FullName() == faculty
}

// matchesBatch accepts the batch id or name.
func matchesBatch(item models.BusinessOverviewItem, batch string) bool {
	return batch == "" || item.BatchID == batch || item.BatchName == batch
}

func eventMatches(event models.CompletionEvent, search, batch string) bool {
	if batch != "" && event.BatchID != batch && event.BatchName != batch {
		return false
	}
	if search == "" {
		return true
	}
	for _, field := range []string{event.BatchName, event.SubjectTitle, event.LectureTitle, event.TopicTitle} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func facultyOptions(items []models.BusinessOverviewItem) []dto.FilterOption {
	seen := make(map[string]struct{})
	options := make([]dto.FilterOption, 0)
	for _, item := range items {
		id := facultyID(item)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		options = append(options, dto.FilterOption{ID: id, Label: item.Faculty.FullName()})
	}
	sortOptions(options)
	return options
}

func batchOptions(items []models.BusinessOverviewItem) []dto.FilterOption {
	seen := make(map[string]struct{})
	options := make([]dto.FilterOption, 0)
	for _, item := range items {
		if _, ok := seen[item.BatchID]; ok {
			continue
		}
		seen[item.BatchID] = struct{}{}
		options = append(options, dto.FilterOption{ID: item.BatchID, Label: item.BatchName})
	}
	sortOptions(options)
	return options
}

func sortOptions(options []dto.FilterOption) {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Label == options[j].Label {
			return options[i].ID < options[j].ID
		}
		return options[i].Label < options[j].Label
	})
}

func limitEvents(events []models.CompletionEvent, limit int) []models.CompletionEvent {
	if len(events) > limit {
		return events[:limit]
	}
	return events
}

func validMutationState(state models.MutationState) bool {
	switch state {
	case models.MutationPredicted, models.MutationPendingConfirmation, models.MutationConfirmed, models.MutationRolledBack:
		return true
	}
	return false
}

func trackingTable(report *dto.LectureTrackingResponse, generated time.Time) export.Table {
	table := export.Table{
		Title: "Lecture Tracking",
		Subtitle: fmt.Sprintf("Generated %s | %d subjects | %d/%d lectures | average completion %.2f%%",
			generated.Format("2006-01-02 15:04 MST"),
			report.Summary.TotalSubjects,
			report.Summary.CompletedLectures,
			report.Summary.TotalLectures,
			report.Summary.AverageCompletion,
		),
		Columns: []export.Column{
			{Key: "batch", Label: "Batch", Weight: 2},
			{Key: "subject", Label: "Subject", Weight: 2},
			{Key: "faculty", Label: "Faculty", Weight: 2},
			{Key: "completed", Label: "Completed"},
			{Key: "total", Label: "Total"},
			{Key: "remaining", Label: "Remaining"},
			{Key: "rate", Label: "Completion %"},
			{Key: "last", Label: "Last Lecture", Weight: 2},
		},
		Rows: make([]map[string]string, 0, len(report.Items)),
	}
	for _, item := range report.Items {
		last := ""
		if item.LastLecture != nil {
			last = *item.LastLecture
		}
		table.Rows = append(table.Rows, map[string]string{
			"batch":     item.BatchName,
			"subject":   item.SubjectTitle,
			"faculty":   item.Faculty.FullName(),
			"completed": strconv.Itoa(item.CompletedLectures),
			"total":     strconv.Itoa(item.TotalLectures),
			"remaining": strconv.Itoa(item.RemainingLectures),
			"rate":      strconv.FormatFloat(item.CompletionRate, 'f', 2, 64),
			"last":      last,
		})
	}
	return table
}
