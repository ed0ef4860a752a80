package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/jobs"
)

// Job types handled by FacultyService.HandleJob.
const (
	JobSubmitCompletion    = "lecture.submit"
	JobReconcileCompletion = "lecture.reconcile"
)

type facultyBackend interface {
	FetchFacultyBatches(ctx context.Context, token string) ([]models.Batch, error)
	SubmitLectureCompletion(ctx context.Context, token string, event models.LectureCompleted) error
	FetchFacultyAnalytics(ctx context.Context, token string) (models.FacultyAnalytics, error)
	FetchFacultyRecentActivity(ctx context.Context, token string) ([]models.CompletionEvent, error)
}

type completionDispatcher interface {
	Enqueue(job jobs.Job) error
	EnqueueAfter(job jobs.Job, delay time.Duration) error
}

type mutationLedger interface {
	Create(ctx context.Context, record *models.MutationRecord) error
	UpdateState(ctx context.Context, record models.MutationRecord) error
}

// FacultyServiceConfig tunes the completion workflow.
// Terminal mutation records are dropped from memory after RecordRetention.
type FacultyServiceConfig struct {
	ReconcileDelay  time.Duration
	RecentLimit     int
	CleanupInterval time.Duration
	RecordRetention time.Duration
}

// FacultyServiceParams groups the collaborators of FacultyService. Ledger and
// Metrics are optional.
type FacultyServiceParams struct {
	Backend   facultyBackend
	Tracker   *progress.Tracker
	Bus       *progress.Bus
	Queue     completionDispatcher
	Ledger    mutationLedger
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    FacultyServiceConfig
	Now       func() time.Time
}

// FacultyService serves the faculty workspace and drives optimistic lecture
// completion: predict locally, publish, submit in the background, then
// reconcile against the backend.
type FacultyService struct {
	backend   facultyBackend
	tracker   *progress.Tracker
	bus       *progress.Bus
	queue     completionDispatcher
	ledger    mutationLedger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FacultyServiceConfig
	now       func() time.Time

	workspace    *WorkspaceStore
	progressView *WorkspaceStore
	unsubscribe  func()
}

// completionJob carries one mutation through the queue.
type completionJob struct {
	Token  string
	Record models.MutationRecord
}

// NewFacultyService constructs the service and subscribes its progress view
// to lecture completions.
func NewFacultyService(params FacultyServiceParams) *FacultyService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Tracker == nil {
		params.Tracker = progress.NewTracker(params.Now)
	}
	if params.Bus == nil {
		params.Bus = progress.NewBus()
	}
	if params.Config.ReconcileDelay <= 0 {
		params.Config.ReconcileDelay = time.Second
	}
	if params.Config.RecentLimit <= 0 {
		params.Config.RecentLimit = 10
	}
	if params.Config.RecordRetention <= 0 {
		params.Config.RecordRetention = 30 * time.Minute
	}

	svc := &FacultyService{
		backend:      params.Backend,
		tracker:      params.Tracker,
		bus:          params.Bus,
		queue:        params.Queue,
		ledger:       params.Ledger,
		metrics:      params.Metrics,
		validator:    params.Validator,
		logger:       params.Logger,
		cfg:          params.Config,
		now:          params.Now,
		workspace:    NewWorkspaceStore(),
		progressView: NewWorkspaceStore(),
	}
	svc.unsubscribe = svc.bus.Subscribe(svc.onLectureCompleted)
	return svc
}

// onLectureCompleted invalidates every snapshot holding the batch so the next
// read re-fetches. Workspaces with their own completion in flight for that
// batch are left alone; their reconcile replaces them and a re-fetch now would
// drop the prediction.
func (s *FacultyService) onLectureCompleted(event models.LectureCompleted) {
	s.progressView.MarkBatchDirty(event.BatchID, nil)
	s.workspace.MarkBatchDirty(event.BatchID, func(actor string) bool {
		return s.tracker.PendingInBatch(actor, event.BatchID)
	})
}

// Close detaches the service from the bus.
func (s *FacultyService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Batches returns the caller's workspace, loading it on first access. Search
// matches batch names and subject titles case-insensitively.
func (s *FacultyService) Batches(ctx context.Context, principal *models.Principal, search string) (*dto.FacultyBatchesResponse, error) {
	snap, err := s.load(ctx, principal, s.workspace, false)
	if err != nil {
		return nil, err
	}
	return s.workspaceResponse(snap, search), nil
}

// Refresh re-fetches the caller's workspace.
func (s *FacultyService) Refresh(ctx context.Context, principal *models.Principal) (*dto.FacultyBatchesResponse, error) {
	snap, err := s.load(ctx, principal, s.workspace, true)
	if err != nil {
		return nil, err
	}
	return s.workspaceResponse(snap, ""), nil
}

// CompleteLecture applies a lecture completion optimistically and queues the
// backend submission. A second request for a lecture still in flight fails
// with CONFLICT.
func (s *FacultyService) CompleteLecture(ctx context.Context, principal *models.Principal, event models.LectureCompleted) (*dto.CompleteLectureResponse, error) {
	if err := s.validator.Struct(event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "batchId, subjectId, topicId and lectureId are required")
	}

	snap, err := s.load(ctx, principal, s.workspace, false)
	if err != nil {
		return nil, err
	}
	if lecture, ok := progress.FindLecture(snap.Batches, event); ok && lecture.IsComplete() {
		resp := &dto.CompleteLectureResponse{AlreadyCompleted: true, Batch: batchProgressOf(snap.Batches, event.BatchID)}
		if record, found := s.tracker.Get(principal.UserID, event.LectureID); found {
			resp.Mutation = &record
		}
		return resp, nil
	}

	record, err := s.tracker.Begin(principal.UserID, event)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMutation(record.State)
	s.persist(ctx, record, true)

	now := s.now()
	snap, _ = s.workspace.Update(principal.UserID, func(batches []models.Batch) []models.Batch {
		return progress.ApplyOptimisticCompletion(batches, event, principal.UserID, now)
	})

	s.bus.Publish(event)
	s.metrics.ObserveBusPublish()

	job := jobs.Job{ID: record.ID, Type: JobSubmitCompletion, Payload: completionJob{Token: principal.Token, Record: record}}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue lecture completion", zap.String("mutation_id", record.ID), zap.Error(err))
		s.advance(ctx, record, models.MutationRolledBack, models.ReasonBackendFailed)
		s.reload(ctx, principal.UserID, principal.Token)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit lecture completion")
	}

	return &dto.CompleteLectureResponse{Mutation: &record, Batch: batchProgressOf(snap.Batches, event.BatchID)}, nil
}

// Mutation returns the latest tracked completion of lectureID by the caller.
func (s *FacultyService) Mutation(principal *models.Principal, lectureID string) (*models.MutationRecord, error) {
	record, ok := s.tracker.Get(principal.UserID, lectureID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no completion tracked for lecture")
	}
	return &record, nil
}

// HandleJob processes queued submissions and reconciliations. Jobs are never
// retried; failures roll the mutation back.
func (s *FacultyService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(completionJob)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}

	switch job.Type {
	case JobSubmitCompletion:
		return s.submit(ctx, payload)
	case JobReconcileCompletion:
		return s.reconcile(ctx, payload)
	default:
		return fmt.Errorf("job %s: unknown type %q", job.ID, job.Type)
	}
}

func (s *FacultyService) submit(ctx context.Context, payload completionJob) error {
	record := payload.Record
	if err := s.backend.SubmitLectureCompletion(ctx, payload.Token, record.Event()); err != nil {
		if appErrors.IsAuthExpired(err) {
			s.advance(ctx, record, models.MutationRolledBack, models.ReasonAuthExpired)
			s.workspace.Evict(record.ActorID)
			return err
		}
		s.advance(ctx, record, models.MutationRolledBack, models.ReasonBackendFailed)
		s.reload(ctx, record.ActorID, payload.Token)
		return err
	}

	payload.Record = s.advance(ctx, record, models.MutationPendingConfirmation, "")
	job := jobs.Job{ID: record.ID, Type: JobReconcileCompletion, Payload: payload}
	if err := s.queue.EnqueueAfter(job, s.cfg.ReconcileDelay); err != nil {
		s.logger.Warn("reconcile scheduling failed, reconciling now", zap.String("mutation_id", record.ID), zap.Error(err))
		return s.reconcile(ctx, payload)
	}
	return nil
}

// reconcile replaces the workspace with the backend's view, overwriting any
// optimistic state, and settles the mutation from it.
func (s *FacultyService) reconcile(ctx context.Context, payload completionJob) error {
	record := payload.Record
	snap, err := s.reload(ctx, record.ActorID, payload.Token)
	if err != nil {
		// The backend accepted the write; only the read failed.
		s.advance(ctx, record, models.MutationConfirmed, "")
		return err
	}

	if lecture, ok := progress.FindLecture(snap.Batches, record.Event()); ok && lecture.IsComplete() {
		s.advance(ctx, record, models.MutationConfirmed, "")
		return nil
	}
	s.advance(ctx, record, models.MutationRolledBack, models.ReasonNotPersisted)
	return nil
}

// Progress is the faculty progress view. It keeps its own snapshot which is
// invalidated by every lecture completion on the bus.
func (s *FacultyService) Progress(ctx context.Context, principal *models.Principal) (*dto.FacultyProgressResponse, error) {
	snap, err := s.load(ctx, principal, s.progressView, false)
	if err != nil {
		return nil, err
	}

	resp := &dto.FacultyProgressResponse{
		Batches:   make([]dto.FacultyProgressBatch, 0, len(snap.Batches)),
		Stale:     snap.Stale,
		LastError: snap.LastError,
	}
	for _, batch := range snap.Batches {
		agg := progress.OfBatch(batch, models.AverageOfRates)
		subjects := subjectProgress(batch.Subjects)
		resp.Batches = append(resp.Batches, dto.FacultyProgressBatch{
			BatchID:           batch.ID,
			BatchName:         batch.Name,
			CompletionRate:    agg.CompletionRate,
			TotalLectures:     agg.TotalLectures,
			CompletedLectures: agg.CompletedLectures,
			Subjects:          subjects,
		})
		resp.Summary.TotalSubjects += len(subjects)
		for _, subject := range subjects {
			if subject.Progress.CompletionRate >= 100 {
				resp.Summary.CompletedSubjects++
			}
		}
	}
	resp.Summary.TotalBatches = len(snap.Batches)
	resp.Summary.AverageCompletion = math.Round(progress.OfBatches(snap.Batches, models.AverageOfRates).CompletionRate)

	analytics, err := s.backend.FetchFacultyAnalytics(ctx, principal.Token)
	if err != nil {
		s.logger.Warn("faculty analytics unavailable", zap.String("user_id", principal.UserID), zap.Error(err))
	} else {
		resp.Analytics = &analytics
	}
	return resp, nil
}

// Overview returns the faculty landing page: backend analytics plus recent
// completions, newest first.
func (s *FacultyService) Overview(ctx context.Context, principal *models.Principal) (*dto.FacultyOverviewResponse, error) {
	analytics, err := s.backend.FetchFacultyAnalytics(ctx, principal.Token)
	if err != nil {
		return nil, err
	}
	activity, err := s.backend.FetchFacultyRecentActivity(ctx, principal.Token)
	if err != nil {
		return nil, err
	}
	activity = progress.SortByRecency(activity)
	if len(activity) > s.cfg.RecentLimit {
		activity = activity[:s.cfg.RecentLimit]
	}
	return &dto.FacultyOverviewResponse{Analytics: analytics, RecentActivity: activity}, nil
}

// StartCleanup boots a goroutine that forgets settled mutations
// periodically. It stops with ctx.
func (s *FacultyService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.forgetSettled()
			}
		}
	}()
}

func (s *FacultyService) forgetSettled() int {
	n := s.tracker.Forget(s.now().Add(-s.cfg.RecordRetention))
	if n > 0 {
		s.logger.Debug("forgot settled mutations", zap.Int("count", n))
	}
	return n
}

// Relevant reports whether event touches a batch in the actor's workspace.
func (s *FacultyService) Relevant(actor string, event models.LectureCompleted) bool {
	snap, ok := s.workspace.Get(actor)
	if !ok {
		return false
	}
	for _, batch := range snap.Batches {
		if batch.ID == event.BatchID {
			return true
		}
	}
	return false
}

// load returns the snapshot of the caller in store, fetching it when missing,
// invalidated, stale or forced. A failed fetch keeps the previous snapshot and
// marks it stale; auth failures drop it.
func (s *FacultyService) load(ctx context.Context, principal *models.Principal, store *WorkspaceStore, force bool) (Snapshot, error) {
	snap, ok := store.Get(principal.UserID)
	if ok && !force && !snap.Dirty && !snap.Stale {
		return snap, nil
	}

	batches, err := s.backend.FetchFacultyBatches(ctx, principal.Token)
	if err != nil {
		if appErrors.IsAuthExpired(err) || !ok {
			store.Evict(principal.UserID)
			return Snapshot{}, err
		}
		s.logger.Warn("serving stale workspace", zap.String("user_id", principal.UserID), zap.Error(err))
		store.MarkStale(principal.UserID, err)
		snap, _ = store.Get(principal.UserID)
		return snap, nil
	}
	return store.Put(principal.UserID, batches, s.now()), nil
}

// reload is the forced re-fetch used after submissions.
func (s *FacultyService) reload(ctx context.Context, actor, token string) (Snapshot, error) {
	batches, err := s.backend.FetchFacultyBatches(ctx, token)
	if err != nil {
		if appErrors.IsAuthExpired(err) {
			s.workspace.Evict(actor)
		} else {
			s.workspace.MarkStale(actor, err)
		}
		return Snapshot{}, err
	}
	return s.workspace.Put(actor, batches, s.now()), nil
}

func (s *FacultyService) advance(ctx context.Context, record models.MutationRecord, state models.MutationState, reason string) models.MutationRecord {
	next, err := s.tracker.Advance(record.ActorID, record.LectureID, state, reason)
	if err != nil {
		s.logger.Warn("mutation transition rejected", zap.String("mutation_id", record.ID), zap.Error(err))
		return record
	}
	s.metrics.ObserveMutation(state)
	s.persist(ctx, next, false)
	s.logger.Info("lecture completion",
		zap.String("mutation_id", next.ID),
		zap.String("lecture_id", next.LectureID),
		zap.String("state", string(next.State)),
	)
	return next
}

func (s *FacultyService) persist(ctx context.Context, record models.MutationRecord, create bool) {
	if s.ledger == nil {
		return
	}
	var err error
	start := time.Now()
	if create {
		err = s.ledger.Create(ctx, &record)
		s.metrics.ObserveDBQuery("ledger_create", time.Since(start))
	} else {
		err = s.ledger.UpdateState(ctx, record)
		s.metrics.ObserveDBQuery("ledger_update", time.Since(start))
	}
	if err != nil {
		s.logger.Warn("mutation ledger write failed", zap.String("mutation_id", record.ID), zap.Error(err))
	}
}

func (s *FacultyService) workspaceResponse(snap Snapshot, search string) *dto.FacultyBatchesResponse {
	resp := &dto.FacultyBatchesResponse{
		Batches:   make([]dto.BatchProgress, 0, len(snap.Batches)),
		LoadedAt:  snap.LoadedAt,
		Stale:     snap.Stale,
		LastError: snap.LastError,
	}
	term := strings.ToLower(strings.TrimSpace(search))
	for _, batch := range snap.Batches {
		if term != "" && !batchMatches(batch, term) {
			continue
		}
		resp.Batches = append(resp.Batches, toBatchProgress(batch, models.SumThenRate))
	}
	return resp
}

func batchMatches(batch models.Batch, term string) bool {
	if strings.Contains(strings.ToLower(batch.Name), term) {
		return true
	}
	for _, subject := range batch.Subjects {
		if strings.Contains(strings.ToLower(subject.Title), term) {
			return true
		}
	}
	return false
}

func toBatchProgress(batch models.Batch, mode models.AggregationMode) dto.BatchProgress {
	return dto.BatchProgress{
		Batch:    batch,
		Progress: progress.OfBatch(batch, mode),
		Subjects: subjectProgress(batch.Subjects),
	}
}

func subjectProgress(subjects []models.BatchSubject) []dto.SubjectProgress {
	out := make([]dto.SubjectProgress, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, dto.SubjectProgress{
			SubjectID:    subject.ID,
			SubjectTitle: subject.Title,
			FacultyID:    subject.FacultyID,
			Progress:     progress.OfSubject(subject),
		})
	}
	return out
}

func batchProgressOf(batches []models.Batch, batchID string) *dto.BatchProgress {
	for _, batch := range batches {
		if batch.ID == batchID {
			bp := toBatchProgress(batch, models.SumThenRate)
			return &bp
		}
	}
	return nil
}
