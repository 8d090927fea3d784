package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/response"
)

type gradeService interface {
	GradeForEnrollment(ctx context.Context, enrollmentID string) (*models.GradeSummary, error)
	HistoricalResults(ctx context.Context, studentID string) ([]models.HistoricalResult, error)
	MarksForEnrollment(ctx context.Context, enrollmentID string) ([]models.MarkScore, error)
}

// GradeHandler serves computed grades and result history.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// EnrollmentGrade godoc
// @Summary Overall percent and letter grade of an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grade [get]
func (h *GradeHandler) EnrollmentGrade(c *gin.Context) {
	summary, err := h.grades.GradeForEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// EnrollmentMarks godoc
// @Summary Recorded marks of an enrollment, latest exam first
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/marks [get]
func (h *GradeHandler) EnrollmentMarks(c *gin.Context) {
	marks, err := h.grades.MarksForEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, marks)
}

// StudentResults godoc
// @Summary Historical results of a student
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/results [get]
func (h *GradeHandler) StudentResults(c *gin.Context) {
	results, err := h.grades.HistoricalResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}
