package models

import "time"

// PromotionStatus is the outcome recorded for one student in a promotion batch.
type PromotionStatus string

const (
	PromotionPassed  PromotionStatus = "PASSED"
	PromotionFailed  PromotionStatus = "FAILED"
	PromotionSkipped PromotionStatus = "SKIPPED"
)

// PromotionBatch records one promotion run. ToClassOfferingID is the promoted-to offering,
// or the repeat offering when no next level exists.
type PromotionBatch struct {
	ID                  string            `db:"id" json:"id"`
	FromClassOfferingID string            `db:"from_class_offering_id" json:"from_class_offering_id"`
	ToClassOfferingID   string            `db:"to_class_offering_id" json:"to_class_offering_id"`
	RunBy               *string           `db:"run_by" json:"run_by,omitempty"`
	RunAt               time.Time         `db:"run_at" json:"run_at"`
	Notes               string            `db:"notes" json:"notes"`
	Results             []PromotionResult `db:"-" json:"results,omitempty"`
}

// Tally counts results per status.
func (b *PromotionBatch) Tally() map[PromotionStatus]int {
	counts := map[PromotionStatus]int{PromotionPassed: 0, PromotionFailed: 0, PromotionSkipped: 0}
	for _, r := range b.Results {
		counts[r.Status]++
	}
	return counts
}

// PromotionResult is the immutable per-student outcome of a batch.
type PromotionResult struct {
	ID               string          `db:"id" json:"id"`
	BatchID          string          `db:"batch_id" json:"batch_id"`
	StudentID        string          `db:"student_id" json:"student_id"`
	FromEnrollmentID string          `db:"from_enrollment_id" json:"from_enrollment_id"`
	ToEnrollmentID   *string         `db:"to_enrollment_id" json:"to_enrollment_id,omitempty"`
	Status           PromotionStatus `db:"status" json:"status"`
	Notes            string          `db:"notes" json:"notes"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// PromotionBatchFilter narrows batch listings.
type PromotionBatchFilter struct {
	FromClassOfferingID string
	Page                int
	PageSize            int
}
