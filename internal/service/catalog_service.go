package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

type academicYearLister interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
}

type classLevelLister interface {
	List(ctx context.Context) ([]models.ClassLevel, error)
}

type subjectLister interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type classOfferingLister interface {
	List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOfferingDetail, int, error)
}

// CatalogService exposes the shared reference data.
type CatalogService struct {
	years     academicYearLister
	levels    classLevelLister
	subjects  subjectLister
	offerings classOfferingLister
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(years academicYearLister, levels classLevelLister, subjects subjectLister, offerings classOfferingLister, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{years: years, levels: levels, subjects: subjects, offerings: offerings, logger: logger}
}

// AcademicYears lists academic years by year.
func (s *CatalogService) AcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list academic years")
	}
	return years, nil
}

// ClassLevels lists class levels by code.
func (s *CatalogService) ClassLevels(ctx context.Context) ([]models.ClassLevel, error) {
	levels, err := s.levels.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list class levels")
	}
	return levels, nil
}

// Subjects lists subjects by name.
func (s *CatalogService) Subjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list subjects")
	}
	return subjects, nil
}

// ClassOfferings lists offerings matching filter.
func (s *CatalogService) ClassOfferings(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOfferingDetail, *models.Pagination, error) {
	if filter.Status != "" && filter.Status != models.ClassOfferingActive && filter.Status != models.ClassOfferingArchived {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be ACTIVE or ARCHIVED")
	}
	offerings, total, err := s.offerings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list class offerings")
	}
	page, size := pageBounds(filter.Page, filter.PageSize)
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
