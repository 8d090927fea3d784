package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/response"
)

type teacherAssignmentService interface {
	Assign(ctx context.Context, actor *models.JWTClaims, req dto.AssignTeacherRequest) (*models.TeacherAssignment, error)
	ListForOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error)
}

// TeacherAssignmentHandler manages subject ownership within class offerings.
type TeacherAssignmentHandler struct {
	assignments teacherAssignmentService
}

// NewTeacherAssignmentHandler constructs the handler.
func NewTeacherAssignmentHandler(assignments teacherAssignmentService) *TeacherAssignmentHandler {
	return &TeacherAssignmentHandler{assignments: assignments}
}

// Create godoc
// @Summary Assign a teacher to a subject of a class offering
// @Tags Teacher Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignTeacherRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /teacher-assignments [post]
func (h *TeacherAssignmentHandler) Create(c *gin.Context) {
	var req dto.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	assignment, err := h.assignments.Assign(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// ListForOffering godoc
// @Summary List teacher assignments of a class offering
// @Tags Teacher Assignments
// @Produce json
// @Param id path string true "Class offering ID"
// @Success 200 {object} response.Envelope
// @Router /class-offerings/{id}/teacher-assignments [get]
func (h *TeacherAssignmentHandler) ListForOffering(c *gin.Context) {
	items, err := h.assignments.ListForOffering(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
