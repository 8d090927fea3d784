package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/pkg/response"
)

type promotionService interface {
	PromoteClass(ctx context.Context, actor *models.JWTClaims, fromOfferingID string, req dto.PromoteClassRequest) (*models.PromotionBatch, error)
	ListBatches(ctx context.Context, filter models.PromotionBatchFilter) ([]models.PromotionBatch, *models.Pagination, error)
	GetBatch(ctx context.Context, id string) (*models.PromotionBatch, error)
}

// PromotionHandler runs and reports year-end promotions.
type PromotionHandler struct {
	promotions promotionService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(promotions promotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Promote godoc
// @Summary Promote every active student of a class offering into the next academic year
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path string true "Source class offering ID"
// @Param payload body dto.PromoteClassRequest false "Batch notes"
// @Success 201 {object} response.Envelope
// @Router /class-offerings/{id}/promotions [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	var req dto.PromoteClassRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	batch, err := h.promotions.PromoteClass(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.PromotionBatchResponse{PromotionBatch: batch, Summary: batch.Tally()})
}

// List godoc
// @Summary List promotion batches
// @Tags Promotions
// @Produce json
// @Param fromClassOfferingId query string false "Source class offering"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /promotion-batches [get]
func (h *PromotionHandler) List(c *gin.Context) {
	filter := models.PromotionBatchFilter{FromClassOfferingID: c.Query("fromClassOfferingId")}
	filter.Page, filter.PageSize = pageParams(c)

	batches, pagination, err := h.promotions.ListBatches(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, batches, pagination)
}

// Get godoc
// @Summary Promotion batch with its per-student results
// @Tags Promotions
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /promotion-batches/{id} [get]
func (h *PromotionHandler) Get(c *gin.Context) {
	batch, err := h.promotions.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PromotionBatchResponse{PromotionBatch: batch, Summary: batch.Tally()})
}
