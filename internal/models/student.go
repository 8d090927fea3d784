package models

import "time"

// Student is the learner profile. The current_* columns and roll_number mirror the latest
// active enrollment and are only written by the enrollment save path.
type Student struct {
	ID                    string    `db:"id" json:"id"`
	UserID                *string   `db:"user_id" json:"user_id,omitempty"`
	FullName              string    `db:"full_name" json:"full_name"`
	StudentIdentifier     *string   `db:"student_identifier" json:"student_identifier,omitempty"`
	RollNumber            *int      `db:"roll_number" json:"roll_number,omitempty"`
	CurrentAcademicYearID *string   `db:"current_academic_year_id" json:"current_academic_year_id,omitempty"`
	CurrentClassLevelID   *string   `db:"current_class_level_id" json:"current_class_level_id,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
