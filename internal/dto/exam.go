package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

// DateLayout is the calendar date format accepted by exam payloads.
const DateLayout = "2006-01-02"

// CreateExamRequest defines a new exam.
type CreateExamRequest struct {
	ClassOfferingID string `json:"classOfferingId" validate:"required"`
	SubjectID       string `json:"subjectId" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	MaxMarks        *int   `json:"maxMarks,omitempty"`
	Status          string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// MarkEntry is the value entered for one enrollment.
type MarkEntry struct {
	EnrollmentID  string           `json:"enrollmentId" validate:"required"`
	MarksObtained *decimal.Decimal `json:"marksObtained" validate:"required"`
}

// RecordMarksRequest upserts marks for several enrollments of one exam.
type RecordMarksRequest struct {
	Marks []MarkEntry `json:"marks" validate:"required,min=1,dive"`
}

// RecordMarksResponse lists the stored marks.
type RecordMarksResponse struct {
	ExamID string            `json:"examId"`
	Marks  []models.ExamMark `json:"marks"`
}
