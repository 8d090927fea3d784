package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// ExamMarkRepository persists exam marks.
type ExamMarkRepository struct {
	db *sqlx.DB
}

// NewExamMarkRepository constructs the repository.
func NewExamMarkRepository(db *sqlx.DB) *ExamMarkRepository {
	return &ExamMarkRepository{db: db}
}

func (r *ExamMarkRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const markScoreSelect = `SELECT em.id AS mark_id, em.student_enrollment_id, e.id AS exam_id, e.title AS exam_title,
        e.exam_date, e.subject_id, s.name AS subject_name, e.max_marks, em.marks_obtained
        FROM exam_marks em
        JOIN exams e ON e.id = em.exam_id
        JOIN subjects s ON s.id = e.subject_id`

// Upsert creates the mark for (exam, enrollment) or overwrites the existing value.
func (r *ExamMarkRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.ExamMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO exam_marks (id, exam_id, student_enrollment_id, marks_obtained, entered_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        ON CONFLICT (exam_id, student_enrollment_id)
        DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at, updated_at`
	row := r.exec(exec).QueryRowxContext(ctx, query, mark.ID, mark.ExamID, mark.StudentEnrollmentID, mark.MarksObtained, mark.EnteredBy, now)
	if err := row.Scan(&mark.ID, &mark.CreatedAt, &mark.UpdatedAt); err != nil {
		return wrapWrite("upsert exam mark", err)
	}
	return nil
}

// ListScoresByEnrollment returns marks of one enrollment, most recent exam first.
func (r *ExamMarkRepository) ListScoresByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.MarkScore, error) {
	query := markScoreSelect + ` WHERE em.student_enrollment_id = $1 ORDER BY e.exam_date DESC, e.created_at DESC`
	var scores []models.MarkScore
	if err := sqlx.SelectContext(ctx, r.exec(exec), &scores, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment marks: %w", err)
	}
	return scores, nil
}

// ListScoresByEnrollments returns marks for many enrollments at once.
func (r *ExamMarkRepository) ListScoresByEnrollments(ctx context.Context, exec sqlx.ExtContext, enrollmentIDs []string) ([]models.MarkScore, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(markScoreSelect+` WHERE em.student_enrollment_id IN (?) ORDER BY e.exam_date DESC`, enrollmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build marks lookup: %w", err)
	}
	target := r.exec(exec)
	var scores []models.MarkScore
	if err := sqlx.SelectContext(ctx, target, &scores, target.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return scores, nil
}
