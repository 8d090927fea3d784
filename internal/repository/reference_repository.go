package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// AcademicYearRepository reads academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

func (r *AcademicYearRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const academicYearColumns = `id, year, start_date, end_date, created_at`

// List returns every academic year ordered by year.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := `SELECT ` + academicYearColumns + ` FROM academic_years ORDER BY year`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID returns an academic year by id.
func (r *AcademicYearRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AcademicYear, error) {
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := sqlx.GetContext(ctx, r.exec(exec), &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindByYear returns the academic year for a calendar year.
func (r *AcademicYearRepository) FindByYear(ctx context.Context, exec sqlx.ExtContext, year int) (*models.AcademicYear, error) {
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE year = $1`
	var ay models.AcademicYear
	if err := sqlx.GetContext(ctx, r.exec(exec), &ay, query, year); err != nil {
		return nil, err
	}
	return &ay, nil
}

// ClassLevelRepository reads class levels.
type ClassLevelRepository struct {
	db *sqlx.DB
}

// NewClassLevelRepository constructs the repository.
func NewClassLevelRepository(db *sqlx.DB) *ClassLevelRepository {
	return &ClassLevelRepository{db: db}
}

func (r *ClassLevelRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns class levels ordered by code.
func (r *ClassLevelRepository) List(ctx context.Context) ([]models.ClassLevel, error) {
	const query = `SELECT id, name, code, created_at FROM class_levels ORDER BY code`
	var levels []models.ClassLevel
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list class levels: %w", err)
	}
	return levels, nil
}

// FindByCode returns the level with the given code.
func (r *ClassLevelRepository) FindByCode(ctx context.Context, exec sqlx.ExtContext, code int) (*models.ClassLevel, error) {
	const query = `SELECT id, name, code, created_at FROM class_levels WHERE code = $1`
	var level models.ClassLevel
	if err := sqlx.GetContext(ctx, r.exec(exec), &level, query, code); err != nil {
		return nil, err
	}
	return &level, nil
}

// SubjectRepository reads subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, created_at FROM subjects ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, created_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}
