package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

const mutationLedgerSchema = `CREATE TABLE IF NOT EXISTS lecture_mutations (
	id          UUID PRIMARY KEY,
	actor_id    TEXT NOT NULL,
	batch_id    TEXT NOT NULL,
	subject_id  TEXT NOT NULL,
	topic_id    TEXT NOT NULL,
	lecture_id  TEXT NOT NULL,
	state       TEXT NOT NULL,
	reason      TEXT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

const mutationColumns = `id, actor_id, batch_id, subject_id, topic_id, lecture_id, state, reason, created_at, updated_at`

// MutationRepository keeps an audit trail of optimistic lecture completions
// and how each one ended.
type MutationRepository struct {
	db *sqlx.DB
}

// NewMutationRepository constructs the repository.
func NewMutationRepository(db *sqlx.DB) *MutationRepository {
	return &MutationRepository{db: db}
}

// EnsureSchema creates the ledger table when missing.
func (r *MutationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, mutationLedgerSchema); err != nil {
		return fmt.Errorf("ensure mutation ledger schema: %w", err)
	}
	return nil
}

// Create inserts a mutation in its current state.
func (r *MutationRepository) Create(ctx context.Context, record *models.MutationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.State == "" {
		record.State = models.MutationPredicted
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	query := `INSERT INTO lecture_mutations (` + mutationColumns + `)
	VALUES (:id, :actor_id, :batch_id, :subject_id, :topic_id, :lecture_id, :state, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create mutation: %w", err)
	}
	return nil
}

// UpdateState records a transition. Terminal rows are never rewritten.
func (r *MutationRepository) UpdateState(ctx context.Context, record models.MutationRecord) error {
	const query = `UPDATE lecture_mutations SET state = :state, reason = :reason, updated_at = :updated_at
	WHERE id = :id AND state NOT IN ('confirmed', 'rolled_back')`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update mutation state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check mutation update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID fetches one ledger row.
func (r *MutationRepository) GetByID(ctx context.Context, id string) (*models.MutationRecord, error) {
	query := `SELECT ` + mutationColumns + ` FROM lecture_mutations WHERE id = $1`
	var record models.MutationRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns ledger rows matching the filter, newest first, with the total
// number of matching rows.
func (r *MutationRepository) List(ctx context.Context, filter models.MutationFilter) ([]models.MutationRecord, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lecture_mutations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count mutations: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM lecture_mutations%s ORDER BY created_at DESC LIMIT %d OFFSET %d", mutationColumns, where, limit, offset)

	var records []models.MutationRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mutations: %w", err)
	}
	return records, total, nil
}
