package models

import "time"

// StudentEnrollment captures a student's membership in one class offering for one academic year.
type StudentEnrollment struct {
	ID                string    `db:"id" json:"id"`
	StudentID         string    `db:"student_id" json:"student_id"`
	AcademicYearID    string    `db:"academic_year_id" json:"academic_year_id"`
	ClassOfferingID   string    `db:"class_offering_id" json:"class_offering_id"`
	StudentIdentifier *string   `db:"student_identifier" json:"student_identifier,omitempty"`
	RollNumber        *int      `db:"roll_number" json:"roll_number,omitempty"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches an enrollment with student and offering info.
type EnrollmentDetail struct {
	StudentEnrollment
	StudentName  string `db:"student_name" json:"student_name"`
	Year         int    `db:"year" json:"year"`
	ClassLevelID string `db:"class_level_id" json:"class_level_id"`
	LevelName    string `db:"level_name" json:"level_name"`
	LevelCode    int    `db:"level_code" json:"level_code"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID       string
	ClassOfferingID string
	AcademicYearID  string
	Active          *bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
