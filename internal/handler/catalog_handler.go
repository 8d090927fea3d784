package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
	"github.com/noah-isme/sma-academics-api/pkg/response"
)

type catalogService interface {
	AcademicYears(ctx context.Context) ([]models.AcademicYear, error)
	ClassLevels(ctx context.Context) ([]models.ClassLevel, error)
	Subjects(ctx context.Context) ([]models.Subject, error)
	ClassOfferings(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOfferingDetail, *models.Pagination, error)
}

// CatalogHandler exposes reference data listings.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// AcademicYears godoc
// @Summary List academic years
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *CatalogHandler) AcademicYears(c *gin.Context) {
	years, err := h.catalog.AcademicYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, years)
}

// ClassLevels godoc
// @Summary List class levels
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /class-levels [get]
func (h *CatalogHandler) ClassLevels(c *gin.Context) {
	levels, err := h.catalog.ClassLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, levels)
}

// Subjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) Subjects(c *gin.Context) {
	subjects, err := h.catalog.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, subjects)
}

// ClassOfferings godoc
// @Summary List class offerings
// @Tags Catalog
// @Produce json
// @Param year query int false "Academic year"
// @Param classLevelId query string false "Class level"
// @Param status query string false "ACTIVE or ARCHIVED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /class-offerings [get]
func (h *CatalogHandler) ClassOfferings(c *gin.Context) {
	filter := models.ClassOfferingFilter{
		ClassLevelID: c.Query("classLevelId"),
		Status:       models.ClassOfferingStatus(strings.ToUpper(c.Query("status"))),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be numeric"))
			return
		}
		filter.Year = year
	}
	filter.Page, filter.PageSize = pageParams(c)

	offerings, pagination, err := h.catalog.ClassOfferings(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, offerings, pagination)
}
