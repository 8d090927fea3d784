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

// ClassOfferingRepository persists class offerings.
type ClassOfferingRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewClassOfferingRepository constructs the repository.
func NewClassOfferingRepository(db *sqlx.DB) *ClassOfferingRepository {
	return &ClassOfferingRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ClassOfferingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const classOfferingDetailSelect = `SELECT co.id, co.academic_year_id, co.class_level_id, co.status, co.created_at,
        ay.year, cl.name AS level_name, cl.code AS level_code
        FROM class_offerings co
        JOIN academic_years ay ON ay.id = co.academic_year_id
        JOIN class_levels cl ON cl.id = co.class_level_id`

// List returns offerings matching the filter together with the total count.
func (r *ClassOfferingRepository) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOfferingDetail, int, error) {
	where := squirrel.And{}
	if filter.Year > 0 {
		where = append(where, squirrel.Eq{"ay.year": filter.Year})
	}
	if filter.ClassLevelID != "" {
		where = append(where, squirrel.Eq{"co.class_level_id": filter.ClassLevelID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"co.status": filter.Status})
	}

	page, size := normalisePage(filter.Page, filter.PageSize)

	base := r.sb.Select(
		"co.id", "co.academic_year_id", "co.class_level_id", "co.status", "co.created_at",
		"ay.year", "cl.name AS level_name", "cl.code AS level_code",
	).
		From("class_offerings co").
		Join("academic_years ay ON ay.id = co.academic_year_id").
		Join("class_levels cl ON cl.id = co.class_level_id").
		Where(where).
		OrderBy("ay.year DESC", "cl.code ASC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))

	query, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list class offerings query: %w", err)
	}
	var offerings []models.ClassOfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class offerings: %w", err)
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").
		From("class_offerings co").
		Join("academic_years ay ON ay.id = co.academic_year_id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count class offerings query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count class offerings: %w", err)
	}
	return offerings, total, nil
}

// FindDetailByID returns an offering with its year and level.
func (r *ClassOfferingRepository) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error) {
	query := classOfferingDetailSelect + ` WHERE co.id = $1`
	var detail models.ClassOfferingDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// LockForUpdate loads an offering and holds a row lock on it until the transaction ends.
func (r *ClassOfferingRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error) {
	query := classOfferingDetailSelect + ` WHERE co.id = $1 FOR UPDATE OF co`
	var detail models.ClassOfferingDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetOrCreate resolves the offering for (year, level), inserting it when absent. Concurrent callers
// converge on the same row through the unique (academic_year_id, class_level_id) constraint.
func (r *ClassOfferingRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, academicYearID, classLevelID string) (*models.ClassOfferingDetail, error) {
	target := r.exec(exec)
	const insertQuery = `INSERT INTO class_offerings (id, academic_year_id, class_level_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (academic_year_id, class_level_id) DO NOTHING`
	if _, err := target.ExecContext(ctx, insertQuery, uuid.NewString(), academicYearID, classLevelID, models.ClassOfferingActive, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure class offering: %w", err)
	}

	query := classOfferingDetailSelect + ` WHERE co.academic_year_id = $1 AND co.class_level_id = $2`
	var detail models.ClassOfferingDetail
	if err := sqlx.GetContext(ctx, target, &detail, query, academicYearID, classLevelID); err != nil {
		return nil, fmt.Errorf("load class offering: %w", err)
	}
	return &detail, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
