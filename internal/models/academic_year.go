package models

import (
	"time"

	"github.com/noah-isme/sma-academics-api/pkg/clock"
)

// AcademicYear models one academic cycle. Rows are protected from deletion once referenced.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Year      int       `db:"year" json:"year"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether date falls inside the inclusive start/end span.
func (y AcademicYear) Contains(date time.Time) bool {
	return clock.SameOrAfter(date, y.StartDate) && clock.SameOrAfter(y.EndDate, date)
}
