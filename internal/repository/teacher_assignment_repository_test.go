package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/models"
)

func TestTeacherAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_offering_id = $2 AND subject_id = $3 LIMIT 1")
	mock.ExpectQuery(query).
		WithArgs("t-1", "off-1", "math").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery(query).
		WithArgs("t-1", "off-1", "english").
		WillReturnError(sql.ErrNoRows)

	owns, err := repo.Exists(context.Background(), nil, "t-1", "off-1", "math")
	require.NoError(t, err)
	assert.True(t, owns)

	owns, err = repo.Exists(context.Background(), nil, "t-1", "off-1", "english")
	require.NoError(t, err)
	assert.False(t, owns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO teacher_assignments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_assignment_offering_subject"})

	assignment := &models.TeacherAssignment{TeacherID: "t-1", AcademicYearID: "year-2026", ClassOfferingID: "off-1", SubjectID: "math"}
	err := repo.Create(context.Background(), nil, assignment)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, "uq_assignment_offering_subject", ViolatedConstraint(err))
	assert.NotEmpty(t, assignment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryListByOffering(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "academic_year_id", "class_offering_id", "subject_id", "created_at", "subject_name", "teacher_name"}).
		AddRow("a-1", "t-1", "year-2026", "off-1", "english", now, "ENGLISH", "Nasrin").
		AddRow("a-2", "t-2", "year-2026", "off-1", "math", now, "MATH", nil)
	mock.ExpectQuery("FROM teacher_assignments ta").WithArgs("off-1").WillReturnRows(rows)

	items, err := repo.ListByOffering(context.Background(), "off-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ENGLISH", items[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}
