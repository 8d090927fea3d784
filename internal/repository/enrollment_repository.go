package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// EnrollmentRepository handles persistence of student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const enrollmentColumns = `id, student_id, academic_year_id, class_offering_id, student_identifier, roll_number, active, created_at, updated_at`

const enrollmentDetailSelect = `SELECT se.id, se.student_id, se.academic_year_id, se.class_offering_id, se.student_identifier,
        se.roll_number, se.active, se.created_at, se.updated_at,
        s.full_name AS student_name, ay.year, co.class_level_id, cl.name AS level_name, cl.code AS level_code
        FROM student_enrollments se
        JOIN students s ON s.id = se.student_id
        JOIN academic_years ay ON ay.id = se.academic_year_id
        JOIN class_offerings co ON co.id = se.class_offering_id
        JOIN class_levels cl ON cl.id = co.class_level_id`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	where := squirrel.And{}
	if filter.StudentID != "" {
		where = append(where, squirrel.Eq{"se.student_id": filter.StudentID})
	}
	if filter.ClassOfferingID != "" {
		where = append(where, squirrel.Eq{"se.class_offering_id": filter.ClassOfferingID})
	}
	if filter.AcademicYearID != "" {
		where = append(where, squirrel.Eq{"se.academic_year_id": filter.AcademicYearID})
	}
	if filter.Active != nil {
		where = append(where, squirrel.Eq{"se.active": *filter.Active})
	}

	allowedSorts := map[string]string{
		"roll_number":  "se.roll_number",
		"student_name": "s.full_name",
		"created_at":   "se.created_at",
		"year":         "ay.year",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "se.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalisePage(filter.Page, filter.PageSize)

	query, args, err := r.sb.Select(
		"se.id", "se.student_id", "se.academic_year_id", "se.class_offering_id", "se.student_identifier",
		"se.roll_number", "se.active", "se.created_at", "se.updated_at",
		"s.full_name AS student_name", "ay.year", "co.class_level_id", "cl.name AS level_name", "cl.code AS level_code",
	).
		From("student_enrollments se").
		Join("students s ON s.id = se.student_id").
		Join("academic_years ay ON ay.id = se.academic_year_id").
		Join("class_offerings co ON co.id = se.class_offering_id").
		Join("class_levels cl ON cl.id = co.class_level_id").
		Where(where).
		OrderBy(fmt.Sprintf("%s %s", orderBy, order)).
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list enrollments query: %w", err)
	}

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("student_enrollments se").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count enrollments query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentEnrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM student_enrollments WHERE id = $1`
	var enrollment models.StudentEnrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE se.id = $1`
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListDetailsByStudent returns every enrollment of a student, newest academic year first.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE se.student_id = $1 ORDER BY ay.year DESC, cl.code ASC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// FindByIDs returns the enrollments with the provided ids.
func (r *EnrollmentRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.StudentEnrollment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+enrollmentColumns+` FROM student_enrollments WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build enrollment lookup: %w", err)
	}
	target := r.exec(exec)
	var enrollments []models.StudentEnrollment
	if err := sqlx.SelectContext(ctx, target, &enrollments, target.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByStudentAndOffering returns the student's enrollment in the offering, or nil when absent.
func (r *EnrollmentRepository) FindByStudentAndOffering(ctx context.Context, exec sqlx.ExtContext, studentID, classOfferingID string) (*models.StudentEnrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM student_enrollments WHERE student_id = $1 AND class_offering_id = $2`
	var enrollment models.StudentEnrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, studentID, classOfferingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment by student and offering: %w", err)
	}
	return &enrollment, nil
}

// ListActiveByOffering returns active enrollments of an offering ordered by roll number.
func (r *EnrollmentRepository) ListActiveByOffering(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) ([]models.StudentEnrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM student_enrollments
        WHERE class_offering_id = $1 AND active = TRUE ORDER BY roll_number NULLS LAST, created_at`
	var enrollments []models.StudentEnrollment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &enrollments, query, classOfferingID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsActive reports whether the student has another active enrollment in the academic year.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, academicYearID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM student_enrollments WHERE student_id = $1 AND academic_year_id = $2 AND active = TRUE"
	args := []interface{}{studentID, academicYearID}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// NextRollNumber returns max(roll_number)+1 for the offering, or 1 when none are assigned.
func (r *EnrollmentRepository) NextRollNumber(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) (int, error) {
	const query = `SELECT COALESCE(MAX(roll_number), 0) + 1 FROM student_enrollments WHERE class_offering_id = $1`
	var next int
	if err := sqlx.GetContext(ctx, r.exec(exec), &next, query, classOfferingID); err != nil {
		return 0, fmt.Errorf("compute next roll number: %w", err)
	}
	return next, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO student_enrollments (id, student_id, academic_year_id, class_offering_id, student_identifier,
        roll_number, active, created_at, updated_at)
        VALUES (:id, :student_id, :academic_year_id, :class_offering_id, :student_identifier, :roll_number, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return wrapWrite("create enrollment", err)
	}
	return nil
}

// Update writes the mutable columns of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_enrollments
        SET academic_year_id = :academic_year_id, class_offering_id = :class_offering_id,
            student_identifier = :student_identifier, roll_number = :roll_number, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return wrapWrite("update enrollment", err)
	}
	return nil
}
