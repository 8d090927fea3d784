package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

// PassThreshold is the minimum subject average a student needs in every subject to be promoted.
const PassThreshold = 40.0

type gradeBand struct {
	min   float64
	grade string
}

var gradeBands = []gradeBand{
	{80, "A+"},
	{70, "A"},
	{60, "B"},
	{50, "C"},
	{40, "D"},
}

// GradeFromPercent maps a percentage onto the letter grade scale.
func GradeFromPercent(percent float64) string {
	for _, band := range gradeBands {
		if percent >= band.min {
			return band.grade
		}
	}
	return "F"
}

// SubjectAverages averages the percentage of every recorded mark per subject, ordered by subject name.
func SubjectAverages(scores []models.MarkScore) []models.SubjectPercent {
	type acc struct {
		name  string
		sum   float64
		count int
	}
	bySubject := make(map[string]*acc)
	for _, score := range scores {
		a, ok := bySubject[score.SubjectID]
		if !ok {
			a = &acc{name: score.SubjectName}
			bySubject[score.SubjectID] = a
		}
		a.sum += score.Percent()
		a.count++
	}

	averages := make([]models.SubjectPercent, 0, len(bySubject))
	for id, a := range bySubject {
		averages = append(averages, models.SubjectPercent{SubjectID: id, SubjectName: a.name, Percent: a.sum / float64(a.count)})
	}
	sort.Slice(averages, func(i, j int) bool {
		if averages[i].SubjectName == averages[j].SubjectName {
			return averages[i].SubjectID < averages[j].SubjectID
		}
		return averages[i].SubjectName < averages[j].SubjectName
	})
	return averages
}

// OverallPercent is the mean of subject averages, or nil when nothing has been recorded.
func OverallPercent(averages []models.SubjectPercent) *float64 {
	if len(averages) == 0 {
		return nil
	}
	var sum float64
	for _, avg := range averages {
		sum += avg.Percent
	}
	overall := sum / float64(len(averages))
	return &overall
}

type markScoreReader interface {
	ListScoresByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.MarkScore, error)
	ListScoresByEnrollments(ctx context.Context, exec sqlx.ExtContext, enrollmentIDs []string) ([]models.MarkScore, error)
}

type enrollmentDetailReader interface {
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error)
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// GradeService serves grade summaries and result history derived from exam marks.
type GradeService struct {
	marks       markScoreReader
	enrollments enrollmentDetailReader
	cache       *CacheService
	logger      *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(marks markScoreReader, enrollments enrollmentDetailReader, cache *CacheService, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{marks: marks, enrollments: enrollments, cache: cache, logger: logger}
}

// GradeForEnrollment returns the overall percent and grade of an enrollment.
func (s *GradeService) GradeForEnrollment(ctx context.Context, enrollmentID string) (*models.GradeSummary, error) {
	var cached models.GradeSummary
	if hit, _ := s.cache.Get(ctx, EnrollmentGradeKey(enrollmentID), &cached); hit {
		return &cached, nil
	}

	if _, err := s.loadEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	scores, err := s.marks.ListScoresByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	summary := &models.GradeSummary{EnrollmentID: enrollmentID}
	if overall := OverallPercent(SubjectAverages(scores)); overall != nil {
		grade := GradeFromPercent(*overall)
		summary.Percent = overall
		summary.Grade = &grade
	}
	_ = s.cache.Set(ctx, EnrollmentGradeKey(enrollmentID), summary, 0)
	return summary, nil
}

// HistoricalResults returns per-subject and overall results for every enrollment of a student, newest first.
func (s *GradeService) HistoricalResults(ctx context.Context, studentID string) ([]models.HistoricalResult, error) {
	var cached []models.HistoricalResult
	if hit, _ := s.cache.Get(ctx, StudentHistoryKey(studentID), &cached); hit {
		return cached, nil
	}

	enrollments, err := s.enrollments.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ID)
	}
	scores, err := s.marks.ListScoresByEnrollments(ctx, nil, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	byEnrollment := groupScores(scores)

	results := make([]models.HistoricalResult, 0, len(enrollments))
	for _, e := range enrollments {
		averages := SubjectAverages(byEnrollment[e.ID])
		result := models.HistoricalResult{Enrollment: e, Subjects: averages, OverallPercent: OverallPercent(averages)}
		if result.OverallPercent != nil {
			grade := GradeFromPercent(*result.OverallPercent)
			result.OverallGrade = &grade
		}
		results = append(results, result)
	}
	_ = s.cache.Set(ctx, StudentHistoryKey(studentID), results, 0)
	return results, nil
}

// MarksForEnrollment lists recorded marks, most recent exam first.
func (s *GradeService) MarksForEnrollment(ctx context.Context, enrollmentID string) ([]models.MarkScore, error) {
	if _, err := s.loadEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	scores, err := s.marks.ListScoresByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	return scores, nil
}

func (s *GradeService) loadEnrollment(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.enrollments.FindDetailByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func groupScores(scores []models.MarkScore) map[string][]models.MarkScore {
	grouped := make(map[string][]models.MarkScore)
	for _, score := range scores {
		grouped[score.StudentEnrollmentID] = append(grouped[score.StudentEnrollmentID], score)
	}
	return grouped
}
