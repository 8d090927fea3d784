package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/response"
)

type examService interface {
	CreateExam(ctx context.Context, actor *models.JWTClaims, req dto.CreateExamRequest) (*models.Exam, error)
	PublishExam(ctx context.Context, actor *models.JWTClaims, examID string) (*models.Exam, error)
	RecordMarks(ctx context.Context, actor *models.JWTClaims, examID string, req dto.RecordMarksRequest) (*dto.RecordMarksResponse, error)
	UpcomingExamsForEnrollment(ctx context.Context, enrollmentID string) ([]models.ExamDetail, error)
}

// ExamHandler exposes the exam and marks workflow.
type ExamHandler struct {
	exams examService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Create godoc
// @Summary Define an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req dto.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	exam, err := h.exams.CreateExam(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Publish godoc
// @Summary Publish a draft exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/publish [post]
func (h *ExamHandler) Publish(c *gin.Context) {
	exam, err := h.exams.PublishExam(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exam)
}

// RecordMarks godoc
// @Summary Upsert marks for an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.RecordMarksRequest true "Marks payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/marks [put]
func (h *ExamHandler) RecordMarks(c *gin.Context) {
	var req dto.RecordMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	resp, err := h.exams.RecordMarks(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Upcoming godoc
// @Summary Exams of the enrollment's class offering dated today or later
// @Tags Exams
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/exams/upcoming [get]
func (h *ExamHandler) Upcoming(c *gin.Context) {
	exams, err := h.exams.UpcomingExamsForEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exams)
}
