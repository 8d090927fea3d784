package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// TeacherAssignmentRepository persists teacher ownership of offering subjects.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

func (r *TeacherAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new assignment.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_assignments (id, teacher_id, academic_year_id, class_offering_id, subject_id, created_at)
        VALUES (:id, :teacher_id, :academic_year_id, :class_offering_id, :subject_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment); err != nil {
		return wrapWrite("create teacher assignment", err)
	}
	return nil
}

// Exists reports whether the teacher owns the subject within the offering.
func (r *TeacherAssignmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, classOfferingID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_offering_id = $2 AND subject_id = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, teacherID, classOfferingID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return true, nil
}

// ListByOffering returns assignments of an offering with subject and teacher names.
func (r *TeacherAssignmentRepository) ListByOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error) {
	const query = `SELECT ta.id, ta.teacher_id, ta.academic_year_id, ta.class_offering_id, ta.subject_id, ta.created_at,
        s.name AS subject_name, u.full_name AS teacher_name
        FROM teacher_assignments ta
        JOIN subjects s ON s.id = ta.subject_id
        LEFT JOIN users u ON u.id = ta.teacher_id
        WHERE ta.class_offering_id = $1
        ORDER BY s.name`
	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, classOfferingID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}
