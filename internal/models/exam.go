package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExamStatus is the exam lifecycle. Draft moves to Published and never back.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// DefaultMaxMarks applies when an exam is created without max_marks.
const DefaultMaxMarks = 100

// Exam is an assessment of one subject scheduled against a class offering.
type Exam struct {
	ID              string     `db:"id" json:"id"`
	ClassOfferingID string     `db:"class_offering_id" json:"class_offering_id"`
	AcademicYearID  string     `db:"academic_year_id" json:"academic_year_id"`
	SubjectID       string     `db:"subject_id" json:"subject_id"`
	Title           string     `db:"title" json:"title"`
	Date            time.Time  `db:"exam_date" json:"date"`
	MaxMarks        int        `db:"max_marks" json:"max_marks"`
	Status          ExamStatus `db:"status" json:"status"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamDetail adds the subject name for listings.
type ExamDetail struct {
	Exam
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// ExamMark stores the marks a student obtained in an exam.
type ExamMark struct {
	ID                  string          `db:"id" json:"id"`
	ExamID              string          `db:"exam_id" json:"exam_id"`
	StudentEnrollmentID string          `db:"student_enrollment_id" json:"student_enrollment_id"`
	MarksObtained       decimal.Decimal `db:"marks_obtained" json:"marks_obtained"`
	EnteredBy           *string         `db:"entered_by" json:"entered_by,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// MarkScore is a mark joined with the exam and subject it belongs to.
type MarkScore struct {
	MarkID              string          `db:"mark_id" json:"mark_id"`
	StudentEnrollmentID string          `db:"student_enrollment_id" json:"student_enrollment_id"`
	ExamID              string          `db:"exam_id" json:"exam_id"`
	ExamTitle           string          `db:"exam_title" json:"exam_title"`
	ExamDate            time.Time       `db:"exam_date" json:"exam_date"`
	SubjectID           string          `db:"subject_id" json:"subject_id"`
	SubjectName         string          `db:"subject_name" json:"subject_name"`
	MaxMarks            int             `db:"max_marks" json:"max_marks"`
	MarksObtained       decimal.Decimal `db:"marks_obtained" json:"marks_obtained"`
}

// Percent normalises the mark against the exam's max marks; zero max marks yields 0.
func (m MarkScore) Percent() float64 {
	if m.MaxMarks == 0 {
		return 0
	}
	return m.MarksObtained.Div(decimal.NewFromInt(int64(m.MaxMarks))).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
