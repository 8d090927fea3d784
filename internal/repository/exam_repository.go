package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// ExamRepository persists exam definitions.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const examColumns = `id, class_offering_id, academic_year_id, subject_id, title, exam_date, max_marks, status, created_by, created_at, updated_at`

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, class_offering_id, academic_year_id, subject_id, title, exam_date, max_marks, status,
        created_by, created_at, updated_at)
        VALUES (:id, :class_offering_id, :academic_year_id, :subject_id, :title, :exam_date, :max_marks, :status,
        :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, exam); err != nil {
		return wrapWrite("create exam", err)
	}
	return nil
}

// FindByID returns an exam by id.
func (r *ExamRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE id = $1`
	var exam models.Exam
	if err := sqlx.GetContext(ctx, r.exec(exec), &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// CountByOfferingSubject counts exams defined for a subject in an offering.
func (r *ExamRepository) CountByOfferingSubject(ctx context.Context, exec sqlx.ExtContext, classOfferingID, subjectID string) (int, error) {
	const query = `SELECT COUNT(*) FROM exams WHERE class_offering_id = $1 AND subject_id = $2`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, classOfferingID, subjectID); err != nil {
		return 0, fmt.Errorf("count exams: %w", err)
	}
	return count, nil
}

// UpdateStatus moves an exam to a new status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ExamStatus) error {
	const query = `UPDATE exams SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update exam status: %w", err)
	}
	return nil
}

// ListUpcoming returns exams of an offering dated on or after from, earliest first.
func (r *ExamRepository) ListUpcoming(ctx context.Context, classOfferingID string, from time.Time) ([]models.ExamDetail, error) {
	const query = `SELECT e.id, e.class_offering_id, e.academic_year_id, e.subject_id, e.title, e.exam_date, e.max_marks,
        e.status, e.created_by, e.created_at, e.updated_at, s.name AS subject_name
        FROM exams e
        JOIN subjects s ON s.id = e.subject_id
        WHERE e.class_offering_id = $1 AND e.exam_date >= $2
        ORDER BY e.exam_date ASC, s.name ASC`
	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, classOfferingID, from); err != nil {
		return nil, fmt.Errorf("list upcoming exams: %w", err)
	}
	return exams, nil
}
