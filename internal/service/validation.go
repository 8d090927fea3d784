package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

// MaxExamsPerSubject caps exams per (class offering, subject).
const MaxExamsPerSubject = 3

// maxMarksCeiling bounds Exam.MaxMarks.
const maxMarksCeiling = 100

type academicYearReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AcademicYear, error)
}

type activeEnrollmentChecker interface {
	ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, academicYearID, excludeID string) (bool, error)
}

type examCounter interface {
	CountByOfferingSubject(ctx context.Context, exec sqlx.ExtContext, classOfferingID, subjectID string) (int, error)
}

// RuleValidator enforces record invariants before anything is written.
type RuleValidator struct {
	clock       clock.Clock
	years       academicYearReader
	enrollments activeEnrollmentChecker
	exams       examCounter
}

// NewRuleValidator constructs the validator.
func NewRuleValidator(clk clock.Clock, years academicYearReader, enrollments activeEnrollmentChecker, exams examCounter) *RuleValidator {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &RuleValidator{clock: clk, years: years, enrollments: enrollments, exams: exams}
}

func invalid(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
}

// ValidateEnrollment checks an enrollment about to be written into offering. prior is the stored
// version on update and nil on create.
func (v *RuleValidator) ValidateEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment, offering *models.ClassOfferingDetail, prior *models.StudentEnrollment) error {
	if offering.AcademicYearID != enrollment.AcademicYearID {
		return invalid("class offering belongs to a different academic year")
	}
	yearUnchanged := prior != nil && prior.AcademicYearID == enrollment.AcademicYearID
	if offering.Year < clock.Year(v.clock) && !yearUnchanged {
		return invalid("cannot enroll into past academic year %d", offering.Year)
	}
	if !enrollment.Active {
		return nil
	}
	exists, err := v.enrollments.ExistsActive(ctx, exec, enrollment.StudentID, enrollment.AcademicYearID, enrollment.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active enrollments")
	}
	if exists {
		return invalid("student already has an active enrollment in academic year %d", offering.Year)
	}
	return nil
}

// ValidateTeacherAssignment checks the assignment's year against its offering and the clock.
func (v *RuleValidator) ValidateTeacherAssignment(assignment *models.TeacherAssignment, offering *models.ClassOfferingDetail) error {
	if offering.AcademicYearID != assignment.AcademicYearID {
		return invalid("class offering belongs to a different academic year")
	}
	if offering.Year < clock.Year(v.clock) {
		return invalid("cannot assign teachers in past academic year %d", offering.Year)
	}
	return nil
}

// ValidateExam checks a new exam's date window, year, max marks and per-subject quota.
func (v *RuleValidator) ValidateExam(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam, offering *models.ClassOfferingDetail) error {
	if offering.AcademicYearID != exam.AcademicYearID {
		return invalid("class offering belongs to a different academic year")
	}
	year, err := v.years.FindByID(ctx, exec, exam.AcademicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if !clock.SameOrAfter(exam.Date, clock.Today(v.clock)) {
		return invalid("exam date cannot be in the past")
	}
	if !year.Contains(exam.Date) {
		return invalid("exam date must fall within academic year %d (%s to %s)", year.Year,
			year.StartDate.Format("2006-01-02"), year.EndDate.Format("2006-01-02"))
	}
	if current := clock.Year(v.clock); year.Year != current {
		return invalid("exams can only be created for the current academic year %d", current)
	}
	if exam.MaxMarks < 0 || exam.MaxMarks > maxMarksCeiling {
		return invalid("max marks must be between 0 and %d", maxMarksCeiling)
	}
	count, err := v.exams.CountByOfferingSubject(ctx, exec, exam.ClassOfferingID, exam.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count exams")
	}
	if count >= MaxExamsPerSubject {
		return invalid("a class offering may have at most %d exams per subject", MaxExamsPerSubject)
	}
	return nil
}

// ValidateExamMark checks that exam and enrollment share offering and year, and that the value is in range.
func (v *RuleValidator) ValidateExamMark(exam *models.Exam, enrollment *models.StudentEnrollment, marks decimal.Decimal) error {
	if exam.ClassOfferingID != enrollment.ClassOfferingID {
		return invalid("enrollment %s is not part of the exam's class offering", enrollment.ID)
	}
	if exam.AcademicYearID != enrollment.AcademicYearID {
		return invalid("enrollment %s belongs to a different academic year", enrollment.ID)
	}
	if marks.IsNegative() || marks.GreaterThan(decimal.NewFromInt(int64(exam.MaxMarks))) {
		return invalid("marks for enrollment %s must be between 0 and %d", enrollment.ID, exam.MaxMarks)
	}
	if !marks.Equal(marks.Truncate(2)) {
		return invalid("marks for enrollment %s may have at most 2 decimal places", enrollment.ID)
	}
	return nil
}

// ValidatePromotionBatch checks that the target is the same or next level in the following year.
func (v *RuleValidator) ValidatePromotionBatch(from, to *models.ClassOfferingDetail) error {
	if to.LevelCode != from.LevelCode && to.LevelCode != from.LevelCode+1 {
		return invalid("target class level must equal or follow the source level")
	}
	if to.Year != from.Year+1 {
		return invalid("target academic year must be %d", from.Year+1)
	}
	return nil
}
