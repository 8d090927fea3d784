package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/internal/repository"
	"github.com/noah-isme/sma-academics-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
	"github.com/noah-isme/sma-academics-api/pkg/logger"
)

type examStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Exam, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ExamStatus) error
	ListUpcoming(ctx context.Context, classOfferingID string, from time.Time) ([]models.ExamDetail, error)
}

type examMarkWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.ExamMark) error
}

type enrollmentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentEnrollment, error)
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.StudentEnrollment, error)
}

// ExamService gates exam creation, publication and mark entry.
type ExamService struct {
	tx          txProvider
	exams       examStore
	marks       examMarkWriter
	enrollments enrollmentLookup
	offerings   offeringLocker
	years       academicYearReader
	rules       *RuleValidator
	policy      *AccessPolicy
	cache       *CacheService
	metrics     *MetricsService
	clock       clock.Clock
	validator   *validator.Validate
	logger      *zap.Logger
}

// ExamServiceDeps bundles ExamService collaborators.
type ExamServiceDeps struct {
	Tx          txProvider
	Exams       examStore
	Marks       examMarkWriter
	Enrollments enrollmentLookup
	Offerings   offeringLocker
	Years       academicYearReader
	Rules       *RuleValidator
	Policy      *AccessPolicy
	Cache       *CacheService
	Metrics     *MetricsService
	Clock       clock.Clock
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewExamService constructs the service.
func NewExamService(deps ExamServiceDeps) *ExamService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New(nil)
	}
	return &ExamService{
		tx:          deps.Tx,
		exams:       deps.Exams,
		marks:       deps.Marks,
		enrollments: deps.Enrollments,
		offerings:   deps.Offerings,
		years:       deps.Years,
		rules:       deps.Rules,
		policy:      deps.Policy,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// CreateExam defines an exam for a subject of a class offering.
func (s *ExamService) CreateExam(ctx context.Context, actor *models.JWTClaims, req dto.CreateExamRequest) (exam *models.Exam, err error) {
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if err = s.policy.Authorize(ctx, actor, ActionCreateExam, AccessScope{ClassOfferingID: req.ClassOfferingID, SubjectID: req.SubjectID}); err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation(dto.DateLayout, req.Date, s.clock.Now().Location())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam date")
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

	// The offering lock serialises the per-subject exam quota.
	offering, err := s.offerings.LockForUpdate(ctx, tx, req.ClassOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class offering")
	}

	exam = &models.Exam{
		ClassOfferingID: offering.ID,
		AcademicYearID:  offering.AcademicYearID,
		SubjectID:       req.SubjectID,
		Title:           req.Title,
		Date:            date,
		MaxMarks:        models.DefaultMaxMarks,
		Status:          models.ExamStatusDraft,
		CreatedBy:       &actor.UserID,
	}
	if req.MaxMarks != nil {
		exam.MaxMarks = *req.MaxMarks
	}
	if req.Status != "" {
		exam.Status = models.ExamStatus(req.Status)
	}

	if err = s.rules.ValidateExam(ctx, tx, exam, offering); err != nil {
		logger.FromContext(ctx, s.logger).Warn("exam rejected",
			zap.String("class_offering_id", exam.ClassOfferingID),
			zap.String("subject_id", exam.SubjectID),
			zap.Error(err),
		)
		return nil, err
	}
	if err = s.exams.Create(ctx, tx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exam")
	}
	return exam, nil
}

// PublishExam moves a draft exam to published.
func (s *ExamService) PublishExam(ctx context.Context, actor *models.JWTClaims, examID string) (*models.Exam, error) {
	exam, err := s.loadExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionPublishExam, AccessScope{ClassOfferingID: exam.ClassOfferingID, SubjectID: exam.SubjectID}); err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only draft exams can be published")
	}
	if err := s.exams.UpdateStatus(ctx, nil, exam.ID, models.ExamStatusPublished); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
	}
	exam.Status = models.ExamStatusPublished
	return exam, nil
}

// RecordMarks upserts marks for the given enrollments in one transaction.
func (s *ExamService) RecordMarks(ctx context.Context, actor *models.JWTClaims, examID string, req dto.RecordMarksRequest) (resp *dto.RecordMarksResponse, err error) {
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	exam, err := s.loadExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	if err = s.policy.Authorize(ctx, actor, ActionRecordMarks, AccessScope{ClassOfferingID: exam.ClassOfferingID, SubjectID: exam.SubjectID}); err != nil {
		return nil, err
	}
	if err = s.checkMarkEntryWindow(ctx, exam); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Marks))
	seen := make(map[string]struct{}, len(req.Marks))
	for _, entry := range req.Marks {
		if _, dup := seen[entry.EnrollmentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate enrollment "+entry.EnrollmentID+" in marks payload")
		}
		seen[entry.EnrollmentID] = struct{}{}
		ids = append(ids, entry.EnrollmentID)
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

	found, err := s.enrollments.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	byID := make(map[string]*models.StudentEnrollment, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	marks := make([]models.ExamMark, 0, len(req.Marks))
	for _, entry := range req.Marks {
		enrollment, ok := byID[entry.EnrollmentID]
		if !ok {
			err = appErrors.Clone(appErrors.ErrValidation, "enrollment "+entry.EnrollmentID+" not found")
			return nil, err
		}
		if entry.MarksObtained == nil {
			err = appErrors.Clone(appErrors.ErrValidation, "marks for enrollment "+entry.EnrollmentID+" are required")
			return nil, err
		}
		if err = s.rules.ValidateExamMark(exam, enrollment, *entry.MarksObtained); err != nil {
			return nil, err
		}
		mark := models.ExamMark{
			ExamID:              exam.ID,
			StudentEnrollmentID: enrollment.ID,
			MarksObtained:       *entry.MarksObtained,
			EnteredBy:           &actor.UserID,
		}
		if err = s.marks.Upsert(ctx, tx, &mark); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "mark already recorded")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mark")
		}
		marks = append(marks, mark)
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit marks")
	}

	s.metrics.AddMarksRecorded(len(marks))
	keys := make([]string, 0, len(marks)*2)
	for _, mark := range marks {
		keys = append(keys, EnrollmentGradeKey(mark.StudentEnrollmentID), StudentHistoryKey(byID[mark.StudentEnrollmentID].StudentID))
	}
	_ = s.cache.Invalidate(ctx, keys...)

	logger.FromContext(ctx, s.logger).Info("marks recorded",
		zap.String("exam_id", exam.ID),
		zap.Int("count", len(marks)),
		zap.String("entered_by", actor.UserID),
	)
	return &dto.RecordMarksResponse{ExamID: exam.ID, Marks: marks}, nil
}

// UpcomingExamsForEnrollment lists exams of the enrollment's offering dated today or later.
func (s *ExamService) UpcomingExamsForEnrollment(ctx context.Context, enrollmentID string) ([]models.ExamDetail, error) {
	enrollment, err := s.enrollments.FindByID(ctx, nil, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	exams, err := s.exams.ListUpcoming(ctx, enrollment.ClassOfferingID, clock.Today(s.clock))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// checkMarkEntryWindow allows entry only for published exams of the current academic year.
func (s *ExamService) checkMarkEntryWindow(ctx context.Context, exam *models.Exam) error {
	if exam.Status != models.ExamStatusPublished {
		return appErrors.Clone(appErrors.ErrValidation, "marks can only be entered for published exams")
	}
	year, err := s.years.FindByID(ctx, nil, exam.AcademicYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.Year != clock.Year(s.clock) {
		return appErrors.Clone(appErrors.ErrValidation, "marks are read-only once the academic year has ended")
	}
	return nil
}

func (s *ExamService) loadExam(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}
