package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

func TestExamMarkRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewExamMarkRepository(db)

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (exam_id, student_enrollment_id)")).
		WithArgs(sqlmock.AnyArg(), "exam-1", "enr-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("mark-existing", created, updated))

	enteredBy := "teacher-1"
	mark := &models.ExamMark{ExamID: "exam-1", StudentEnrollmentID: "enr-1", MarksObtained: decimal.RequireFromString("72.50"), EnteredBy: &enteredBy}
	require.NoError(t, repo.Upsert(context.Background(), nil, mark))
	assert.Equal(t, "mark-existing", mark.ID)
	assert.Equal(t, created, mark.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamMarkRepositoryListScoresByEnrollment(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewExamMarkRepository(db)

	rows := sqlmock.NewRows([]string{"mark_id", "student_enrollment_id", "exam_id", "exam_title", "exam_date", "subject_id", "subject_name", "max_marks", "marks_obtained"}).
		AddRow("m-1", "enr-1", "exam-1", "Midterm", time.Now(), "sub-math", "MATH", 50, "40.00")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE em.student_enrollment_id = $1 ORDER BY e.exam_date DESC")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	scores, err := repo.ListScoresByEnrollment(context.Background(), nil, "enr-1")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 80.0, scores[0].Percent(), 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}
