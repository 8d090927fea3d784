package models

import "time"

// ClassLevel is an ordered grade level; code+1 is the next level.
type ClassLevel struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      int       `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassOfferingStatus represents the lifecycle of a class offering.
type ClassOfferingStatus string

const (
	ClassOfferingActive   ClassOfferingStatus = "ACTIVE"
	ClassOfferingArchived ClassOfferingStatus = "ARCHIVED"
)

// ClassOffering is a class level taught within an academic year.
type ClassOffering struct {
	ID             string              `db:"id" json:"id"`
	AcademicYearID string              `db:"academic_year_id" json:"academic_year_id"`
	ClassLevelID   string              `db:"class_level_id" json:"class_level_id"`
	Status         ClassOfferingStatus `db:"status" json:"status"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// ClassOfferingDetail enriches an offering with its year and level.
type ClassOfferingDetail struct {
	ClassOffering
	Year      int    `db:"year" json:"year"`
	LevelName string `db:"level_name" json:"level_name"`
	LevelCode int    `db:"level_code" json:"level_code"`
}

// ClassOfferingFilter defines filter criteria for listing offerings.
type ClassOfferingFilter struct {
	Year         int
	ClassLevelID string
	Status       ClassOfferingStatus
	Page         int
	PageSize     int
}
