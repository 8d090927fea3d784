package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
	"github.com/noah-isme/sma-academics-api/pkg/logger"
)

type promotionOfferingStore interface {
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error)
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, academicYearID, classLevelID string) (*models.ClassOfferingDetail, error)
}

type yearByNumberReader interface {
	FindByYear(ctx context.Context, exec sqlx.ExtContext, year int) (*models.AcademicYear, error)
}

type levelByCodeReader interface {
	FindByCode(ctx context.Context, exec sqlx.ExtContext, code int) (*models.ClassLevel, error)
}

type promotionEnrollmentReader interface {
	ListActiveByOffering(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) ([]models.StudentEnrollment, error)
	FindByStudentAndOffering(ctx context.Context, exec sqlx.ExtContext, studentID, classOfferingID string) (*models.StudentEnrollment, error)
}

type enrollmentSaver interface {
	Save(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment, prior *models.StudentEnrollment) error
}

type scoreBatchReader interface {
	ListScoresByEnrollments(ctx context.Context, exec sqlx.ExtContext, enrollmentIDs []string) ([]models.MarkScore, error)
}

type promotionStore interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.PromotionBatch) error
	CreateResult(ctx context.Context, exec sqlx.ExtContext, result *models.PromotionResult) error
	ListBatches(ctx context.Context, filter models.PromotionBatchFilter) ([]models.PromotionBatch, int, error)
	FindBatchByID(ctx context.Context, id string) (*models.PromotionBatch, error)
	ListResults(ctx context.Context, batchID string) ([]models.PromotionResult, error)
}

// PromotionService moves every active student of a class offering into the next academic year.
type PromotionService struct {
	tx          txProvider
	offerings   promotionOfferingStore
	years       yearByNumberReader
	levels      levelByCodeReader
	enrollments promotionEnrollmentReader
	saver       enrollmentSaver
	scores      scoreBatchReader
	repo        promotionStore
	rules       *RuleValidator
	policy      *AccessPolicy
	cache       *CacheService
	metrics     *MetricsService
	clock       clock.Clock
	validator   *validator.Validate
	logger      *zap.Logger
}

// PromotionServiceDeps bundles PromotionService collaborators.
type PromotionServiceDeps struct {
	Tx          txProvider
	Offerings   promotionOfferingStore
	Years       yearByNumberReader
	Levels      levelByCodeReader
	Enrollments promotionEnrollmentReader
	Saver       enrollmentSaver
	Scores      scoreBatchReader
	Repo        promotionStore
	Rules       *RuleValidator
	Policy      *AccessPolicy
	Cache       *CacheService
	Metrics     *MetricsService
	Clock       clock.Clock
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewPromotionService constructs the service.
func NewPromotionService(deps PromotionServiceDeps) *PromotionService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New(nil)
	}
	return &PromotionService{
		tx:          deps.Tx,
		offerings:   deps.Offerings,
		years:       deps.Years,
		levels:      deps.Levels,
		enrollments: deps.Enrollments,
		saver:       deps.Saver,
		scores:      deps.Scores,
		repo:        deps.Repo,
		rules:       deps.Rules,
		policy:      deps.Policy,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// PromoteClass runs one promotion batch for the source offering. Every write happens in a single
// transaction; any failure rolls back the whole batch.
func (s *PromotionService) PromoteClass(ctx context.Context, actor *models.JWTClaims, fromOfferingID string, req dto.PromoteClassRequest) (batch *models.PromotionBatch, err error) {
	if err = s.policy.Authorize(ctx, actor, ActionRunPromotion, AccessScope{ClassOfferingID: fromOfferingID}); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	log := logger.FromContext(ctx, s.logger)
	started := time.Now()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			log.Warn("promotion aborted", zap.String("class_offering_id", fromOfferingID), zap.Error(err))
		}
	}()

	from, err := s.offerings.LockForUpdate(ctx, tx, fromOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class offering")
	}
	if current := clock.Year(s.clock); from.Year > current {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot promote from future academic year %d", from.Year))
	}

	targets, err := s.resolveTargets(ctx, tx, from)
	if err != nil {
		return nil, err
	}

	active, err := s.enrollments.ListActiveByOffering(ctx, tx, from.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active enrollments")
	}
	ids := make([]string, 0, len(active))
	for _, e := range active {
		ids = append(ids, e.ID)
	}
	scores, err := s.scores.ListScoresByEnrollments(ctx, tx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	byEnrollment := groupScores(scores)

	primary := targets.primary()
	if err = s.rules.ValidatePromotionBatch(from, primary); err != nil {
		return nil, err
	}
	batch = &models.PromotionBatch{
		FromClassOfferingID: from.ID,
		ToClassOfferingID:   primary.ID,
		RunBy:               &actor.UserID,
		RunAt:               s.clock.Now().UTC(),
		Notes:               req.Notes,
	}
	if err = s.repo.CreateBatch(ctx, tx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promotion batch")
	}

	for i := range active {
		var result *models.PromotionResult
		result, err = s.promoteEnrollment(ctx, tx, batch, &active[i], targets, SubjectAverages(byEnrollment[active[i].ID]))
		if err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, *result)
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit promotion")
	}

	tally := batch.Tally()
	log.Info("promotion completed",
		zap.String("batch_id", batch.ID),
		zap.String("from_class_offering_id", from.ID),
		zap.String("to_class_offering_id", primary.ID),
		zap.Int("passed", tally[models.PromotionPassed]),
		zap.Int("failed", tally[models.PromotionFailed]),
		zap.Int("skipped", tally[models.PromotionSkipped]),
	)
	s.metrics.ObservePromotion(batch, time.Since(started))
	keys := make([]string, 0, len(batch.Results))
	for _, r := range batch.Results {
		keys = append(keys, StudentHistoryKey(r.StudentID))
	}
	_ = s.cache.Invalidate(ctx, keys...)
	return batch, nil
}

type promotionTargets struct {
	nextYear *models.AcademicYear
	repeat   *models.ClassOfferingDetail
	promote  *models.ClassOfferingDetail
}

func (t promotionTargets) primary() *models.ClassOfferingDetail {
	if t.promote != nil {
		return t.promote
	}
	return t.repeat
}

// resolveTargets get-or-creates the repeat and promote offerings of the next year and locks them in id order.
func (s *PromotionService) resolveTargets(ctx context.Context, tx sqlx.ExtContext, from *models.ClassOfferingDetail) (promotionTargets, error) {
	var targets promotionTargets

	nextYear, err := s.years.FindByYear(ctx, tx, from.Year+1)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return targets, appErrors.Clone(appErrors.ErrNotConfigured, fmt.Sprintf("academic year %d is not configured", from.Year+1))
		}
		return targets, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next academic year")
	}
	targets.nextYear = nextYear

	targets.repeat, err = s.offerings.GetOrCreate(ctx, tx, nextYear.ID, from.ClassLevelID)
	if err != nil {
		return targets, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve repeat class offering")
	}

	nextLevel, err := s.levels.FindByCode(ctx, tx, from.LevelCode+1)
	switch {
	case err == nil:
		targets.promote, err = s.offerings.GetOrCreate(ctx, tx, nextYear.ID, nextLevel.ID)
		if err != nil {
			return targets, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve promoted class offering")
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return targets, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next class level")
	}

	lockIDs := []string{targets.repeat.ID}
	if targets.promote != nil && targets.promote.ID != targets.repeat.ID {
		lockIDs = append(lockIDs, targets.promote.ID)
	}
	sort.Strings(lockIDs)
	for _, id := range lockIDs {
		if _, err := s.offerings.LockForUpdate(ctx, tx, id); err != nil {
			return targets, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock target class offering")
		}
	}
	return targets, nil
}

// promoteEnrollment decides and applies the outcome for one active source enrollment.
func (s *PromotionService) promoteEnrollment(ctx context.Context, tx sqlx.ExtContext, batch *models.PromotionBatch, source *models.StudentEnrollment, targets promotionTargets, averages []models.SubjectPercent) (*models.PromotionResult, error) {
	passed, reason := decidePromotion(averages)
	target := targets.repeat
	if passed && targets.promote != nil {
		target = targets.promote
	}

	result := &models.PromotionResult{
		BatchID:          batch.ID,
		StudentID:        source.StudentID,
		FromEnrollmentID: source.ID,
	}

	existing, err := s.enrollments.FindByStudentAndOffering(ctx, tx, source.StudentID, target.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target enrollment")
	}
	if existing != nil {
		result.Status = models.PromotionSkipped
		result.ToEnrollmentID = &existing.ID
		result.Notes = fmt.Sprintf("already enrolled in %s %d", target.LevelName, target.Year)
	} else {
		next := &models.StudentEnrollment{
			StudentID:         source.StudentID,
			AcademicYearID:    targets.nextYear.ID,
			ClassOfferingID:   target.ID,
			StudentIdentifier: source.StudentIdentifier,
			Active:            true,
		}
		if err := s.saver.Save(ctx, tx, next, nil); err != nil {
			return nil, err
		}
		closed := *source
		closed.Active = false
		if err := s.saver.Save(ctx, tx, &closed, source); err != nil {
			return nil, err
		}
		result.ToEnrollmentID = &next.ID
		result.Status = models.PromotionFailed
		if passed {
			result.Status = models.PromotionPassed
		}
		result.Notes = reason
	}

	if err := s.repo.CreateResult(ctx, tx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record promotion result")
	}
	return result, nil
}

// decidePromotion fails students with no recorded averages or any subject below PassThreshold.
func decidePromotion(averages []models.SubjectPercent) (bool, string) {
	if len(averages) == 0 {
		return false, "no marks recorded"
	}
	var below []string
	for _, avg := range averages {
		if avg.Percent < PassThreshold {
			below = append(below, fmt.Sprintf("%s %.2f%%", avg.SubjectName, avg.Percent))
		}
	}
	if len(below) > 0 {
		return false, "below pass mark: " + strings.Join(below, ", ")
	}
	return true, ""
}

// ListBatches returns promotion batches newest first.
func (s *PromotionService) ListBatches(ctx context.Context, filter models.PromotionBatchFilter) ([]models.PromotionBatch, *models.Pagination, error) {
	batches, total, err := s.repo.ListBatches(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotion batches")
	}
	page, size := pageBounds(filter.Page, filter.PageSize)
	return batches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetBatch returns a batch together with its results.
func (s *PromotionService) GetBatch(ctx context.Context, id string) (*models.PromotionBatch, error) {
	batch, err := s.repo.FindBatchByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion batch")
	}
	results, err := s.repo.ListResults(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion results")
	}
	batch.Results = results
	return batch, nil
}
