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

type teacherAssignmentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error
	ListByOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type offeringReader interface {
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error)
}

// TeacherAssignmentService manages which teacher owns each subject of a class offering.
type TeacherAssignmentService struct {
	repo      teacherAssignmentStore
	users     userReader
	subjects  subjectReader
	offerings offeringReader
	rules     *RuleValidator
	policy    *AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherAssignmentService constructs the service.
func NewTeacherAssignmentService(
	repo teacherAssignmentStore,
	users userReader,
	subjects subjectReader,
	offerings offeringReader,
	rules *RuleValidator,
	policy *AccessPolicy,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeacherAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherAssignmentService{
		repo:      repo,
		users:     users,
		subjects:  subjects,
		offerings: offerings,
		rules:     rules,
		policy:    policy,
		validator: validate,
		logger:    logger,
	}
}

// Assign creates a teacher assignment for an offering subject.
func (s *TeacherAssignmentService) Assign(ctx context.Context, actor *models.JWTClaims, req dto.AssignTeacherRequest) (*models.TeacherAssignment, error) {
	if err := s.policy.Authorize(ctx, actor, ActionManageAssignment, AccessScope{ClassOfferingID: req.ClassOfferingID, SubjectID: req.SubjectID}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher || !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an active teacher")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	offering, err := s.offerings.FindDetailByID(ctx, nil, req.ClassOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}

	assignment := &models.TeacherAssignment{
		TeacherID:       req.TeacherID,
		AcademicYearID:  offering.AcademicYearID,
		ClassOfferingID: offering.ID,
		SubjectID:       req.SubjectID,
	}
	if err := s.rules.ValidateTeacherAssignment(assignment, offering); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if repository.ViolatedConstraint(err) == "uq_assignment_offering_subject" {
				return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "subject already has a teacher in this class offering")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "teacher already assigned to this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	logger.FromContext(ctx, s.logger).Info("teacher assigned",
		zap.String("teacher_id", assignment.TeacherID),
		zap.String("class_offering_id", assignment.ClassOfferingID),
		zap.String("subject_id", assignment.SubjectID),
	)
	return assignment, nil
}

// ListForOffering returns the offering's assignments.
func (s *TeacherAssignmentService) ListForOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error) {
	items, err := s.repo.ListByOffering(ctx, classOfferingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}
