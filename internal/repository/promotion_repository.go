package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// PromotionRepository persists the append-only promotion audit trail.
type PromotionRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewPromotionRepository constructs the repository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PromotionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch inserts a batch header.
func (r *PromotionRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.PromotionBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.RunAt.IsZero() {
		batch.RunAt = time.Now().UTC()
	}
	const query = `INSERT INTO promotion_batches (id, from_class_offering_id, to_class_offering_id, run_by, run_at, notes)
        VALUES (:id, :from_class_offering_id, :to_class_offering_id, :run_by, :run_at, :notes)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, batch); err != nil {
		return wrapWrite("create promotion batch", err)
	}
	return nil
}

// CreateResult inserts one per-student outcome.
func (r *PromotionRepository) CreateResult(ctx context.Context, exec sqlx.ExtContext, result *models.PromotionResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO promotion_results (id, batch_id, student_id, from_enrollment_id, to_enrollment_id, status, notes, created_at)
        VALUES (:id, :batch_id, :student_id, :from_enrollment_id, :to_enrollment_id, :status, :notes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, result); err != nil {
		return wrapWrite("create promotion result", err)
	}
	return nil
}

// ListBatches returns batches newest first.
func (r *PromotionRepository) ListBatches(ctx context.Context, filter models.PromotionBatchFilter) ([]models.PromotionBatch, int, error) {
	where := squirrel.And{}
	if filter.FromClassOfferingID != "" {
		where = append(where, squirrel.Eq{"from_class_offering_id": filter.FromClassOfferingID})
	}
	page, size := normalisePage(filter.Page, filter.PageSize)

	query, args, err := r.sb.Select("id", "from_class_offering_id", "to_class_offering_id", "run_by", "run_at", "notes").
		From("promotion_batches").
		Where(where).
		OrderBy("run_at DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list promotion batches query: %w", err)
	}
	var batches []models.PromotionBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promotion batches: %w", err)
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("promotion_batches").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count promotion batches query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count promotion batches: %w", err)
	}
	return batches, total, nil
}

// FindBatchByID returns a batch header.
func (r *PromotionRepository) FindBatchByID(ctx context.Context, id string) (*models.PromotionBatch, error) {
	const query = `SELECT id, from_class_offering_id, to_class_offering_id, run_by, run_at, notes FROM promotion_batches WHERE id = $1`
	var batch models.PromotionBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListResults returns the results of a batch in insertion order.
func (r *PromotionRepository) ListResults(ctx context.Context, batchID string) ([]models.PromotionResult, error) {
	const query = `SELECT id, batch_id, student_id, from_enrollment_id, to_enrollment_id, status, notes, created_at
        FROM promotion_results WHERE batch_id = $1 ORDER BY created_at, id`
	var results []models.PromotionResult
	if err := r.db.SelectContext(ctx, &results, query, batchID); err != nil {
		return nil, fmt.Errorf("list promotion results: %w", err)
	}
	return results, nil
}
