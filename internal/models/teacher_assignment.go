package models

import "time"

// TeacherAssignment gives one teacher ownership of a subject within a class offering.
type TeacherAssignment struct {
	ID              string    `db:"id" json:"id"`
	TeacherID       string    `db:"teacher_id" json:"teacher_id"`
	AcademicYearID  string    `db:"academic_year_id" json:"academic_year_id"`
	ClassOfferingID string    `db:"class_offering_id" json:"class_offering_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// TeacherAssignmentDetail enriches assignments with descriptive fields.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	SubjectName string  `db:"subject_name" json:"subject_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
