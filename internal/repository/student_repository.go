package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// StudentRepository persists student profiles and their current-state projection.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	const query = `SELECT id, user_id, full_name, student_identifier, roll_number, current_academic_year_id,
        current_class_level_id, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// AllocateIdentifier assigns a permanent identifier (<year><5-digit sequence>) when the student has none
// and returns the stored value. Calling it again never changes an existing identifier.
func (r *StudentRepository) AllocateIdentifier(ctx context.Context, exec sqlx.ExtContext, studentID string, year int) (string, error) {
	target := r.exec(exec)
	const allocate = `UPDATE students
        SET student_identifier = $2::text || LPAD(nextval('student_identifier_seq')::text, 5, '0'), updated_at = NOW()
        WHERE id = $1 AND student_identifier IS NULL`
	if _, err := target.ExecContext(ctx, allocate, studentID, year); err != nil {
		return "", wrapWrite("allocate student identifier", err)
	}

	const load = `SELECT student_identifier FROM students WHERE id = $1`
	var identifier string
	if err := sqlx.GetContext(ctx, target, &identifier, load, studentID); err != nil {
		return "", fmt.Errorf("load student identifier: %w", err)
	}
	return identifier, nil
}

// SyncCurrentState mirrors the latest active enrollment onto the student profile.
func (r *StudentRepository) SyncCurrentState(ctx context.Context, exec sqlx.ExtContext, studentID string, rollNumber int, academicYearID, classLevelID string) error {
	const query = `UPDATE students
        SET roll_number = $2, current_academic_year_id = $3, current_class_level_id = $4, updated_at = NOW()
        WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, studentID, rollNumber, academicYearID, classLevelID); err != nil {
		return fmt.Errorf("sync student current state: %w", err)
	}
	return nil
}
