package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/internal/repository"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
	"github.com/noah-isme/sma-academics-api/pkg/logger"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentEnrollment, error)
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error)
	NextRollNumber(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) (int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error
	Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error
}

type studentStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	AllocateIdentifier(ctx context.Context, exec sqlx.ExtContext, studentID string, year int) (string, error)
	SyncCurrentState(ctx context.Context, exec sqlx.ExtContext, studentID string, rollNumber int, academicYearID, classLevelID string) error
}

type offeringLocker interface {
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error)
}

type offeringAssignmentLister interface {
	ListByOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error)
}

// EnrollmentService runs the enrollment save path: validation, identifier and roll allocation, and the
// student current-state projection.
type EnrollmentService struct {
	tx          txProvider
	repo        enrollmentStore
	students    studentStore
	offerings   offeringLocker
	assignments offeringAssignmentLister
	rules       *RuleValidator
	policy      *AccessPolicy
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	tx txProvider,
	repo enrollmentStore,
	students studentStore,
	offerings offeringLocker,
	assignments offeringAssignmentLister,
	rules *RuleValidator,
	policy *AccessPolicy,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		tx:          tx,
		repo:        repo,
		students:    students,
		offerings:   offerings,
		assignments: assignments,
		rules:       rules,
		policy:      policy,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page, size := pageBounds(filter.Page, filter.PageSize)
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an enrollment with context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// SubjectsForEnrollment lists the subjects taught in the enrollment's class offering.
func (s *EnrollmentService) SubjectsForEnrollment(ctx context.Context, id string) ([]models.TeacherAssignmentDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subjects, err := s.assignments.ListByOffering(ctx, detail.ClassOfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Enroll registers a student in a class offering.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.JWTClaims, req dto.EnrollStudentRequest) (detail *models.EnrollmentDetail, err error) {
	if err = s.policy.Authorize(ctx, actor, ActionManageEnrollment, AccessScope{ClassOfferingID: req.ClassOfferingID}); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err = s.students.FindByID(ctx, nil, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	enrollment := &models.StudentEnrollment{StudentID: req.StudentID, ClassOfferingID: req.ClassOfferingID, Active: active}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.Save(ctx, tx, enrollment, nil); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
	}

	_ = s.cache.Invalidate(ctx, StudentHistoryKey(enrollment.StudentID))
	logger.FromContext(ctx, s.logger).Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("class_offering_id", enrollment.ClassOfferingID),
		zap.Intp("roll_number", enrollment.RollNumber),
	)
	return s.Get(ctx, enrollment.ID)
}

// Update applies an administrative correction through the same save path.
func (s *EnrollmentService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateEnrollmentRequest) (detail *models.EnrollmentDetail, err error) {
	if err = s.policy.Authorize(ctx, actor, ActionManageEnrollment, AccessScope{}); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prior, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	updated := *prior
	if req.ClassOfferingID != nil && *req.ClassOfferingID != prior.ClassOfferingID {
		updated.ClassOfferingID = *req.ClassOfferingID
		updated.AcademicYearID = ""
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	if err = s.Save(ctx, tx, &updated, prior); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
	}

	_ = s.cache.Invalidate(ctx, StudentHistoryKey(updated.StudentID), EnrollmentGradeKey(updated.ID))
	return s.Get(ctx, updated.ID)
}

// Save validates and writes enrollment inside exec. prior is the stored row on update and nil on create.
// The offering row stays locked until exec ends so roll numbers are handed out one at a time.
func (s *EnrollmentService) Save(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment, prior *models.StudentEnrollment) error {
	log := logger.FromContext(ctx, s.logger)

	offering, err := s.offerings.LockForUpdate(ctx, exec, enrollment.ClassOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}
	if enrollment.AcademicYearID == "" {
		enrollment.AcademicYearID = offering.AcademicYearID
	}

	if err := s.rules.ValidateEnrollment(ctx, exec, enrollment, offering, prior); err != nil {
		log.Warn("enrollment rejected",
			zap.String("student_id", enrollment.StudentID),
			zap.String("class_offering_id", enrollment.ClassOfferingID),
			zap.Error(err),
		)
		return err
	}

	if enrollment.StudentIdentifier == nil {
		identifier, err := s.students.AllocateIdentifier(ctx, exec, enrollment.StudentID, offering.Year)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate student identifier")
		}
		enrollment.StudentIdentifier = &identifier
	}
	if enrollment.RollNumber == nil {
		next, err := s.repo.NextRollNumber(ctx, exec, offering.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign roll number")
		}
		enrollment.RollNumber = &next
	}

	if prior == nil {
		err = s.repo.Create(ctx, exec, enrollment)
	} else {
		err = s.repo.Update(ctx, exec, enrollment)
	}
	if err != nil {
		return enrollmentWriteError(err)
	}

	if enrollment.Active && enrollment.RollNumber != nil {
		if err := s.students.SyncCurrentState(ctx, exec, enrollment.StudentID, *enrollment.RollNumber, offering.AcademicYearID, offering.ClassLevelID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
		}
	}
	return nil
}

func enrollmentWriteError(err error) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollment")
	}
	switch repository.ViolatedConstraint(err) {
	case "uq_enrollment_student_offering":
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student is already enrolled in this class offering")
	case "uq_enrollment_active_student_year":
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student already has an active enrollment in this academic year")
	case "uq_enrollment_offering_roll":
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "roll number already taken in this class offering")
	default:
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "enrollment conflicts with an existing record")
	}
}
