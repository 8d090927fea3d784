package models

// SubjectPercent is the mean percentage for one subject.
type SubjectPercent struct {
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Percent     float64 `json:"percent"`
}

// GradeSummary is the overall standing of an enrollment. Both fields are nil when no marks exist.
type GradeSummary struct {
	EnrollmentID string   `json:"enrollment_id"`
	Percent      *float64 `json:"percent"`
	Grade        *string  `json:"grade"`
}

// HistoricalResult summarises one past or current enrollment of a student.
type HistoricalResult struct {
	Enrollment     EnrollmentDetail `json:"enrollment"`
	Subjects       []SubjectPercent `json:"subjects"`
	OverallPercent *float64         `json:"overall_percent"`
	OverallGrade   *string          `json:"overall_grade"`
}
