package dto

import "github.com/noah-isme/sma-academics-api/internal/models"

// PromoteClassRequest carries optional notes for a promotion run.
type PromoteClassRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// PromotionBatchResponse is a batch with its per-status tally.
type PromotionBatchResponse struct {
	*models.PromotionBatch
	Summary map[models.PromotionStatus]int `json:"summary"`
}
