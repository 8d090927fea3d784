package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/dto"
	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

func newPromotionFixture(t *testing.T) (*fixture, func(expectCommit bool)) {
	f, mock := newFixture(t, fixedAt(2026, time.March, 10))
	f.world.addOffering(9, 2025)
	f.world.addOffering(10, 2025)
	return f, func(expectCommit bool) {
		mock.ExpectBegin()
		if expectCommit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
		t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	}
}

func TestPromoteClassFailingSubjectRepeatsLevel(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.world.addScore("e-1", "math", "55", 100)
	f.world.addScore("e-1", "english", "35", 100)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{Notes: "year end"})
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	assert.Equal(t, models.PromotionFailed, result.Status)
	assert.Contains(t, result.Notes, "ENGLISH 35.00%")
	assert.Equal(t, offeringID(10, 2026), batch.ToClassOfferingID)
	assert.Equal(t, "year end", batch.Notes)

	require.NotNil(t, result.ToEnrollmentID)
	next := f.world.enrollments[*result.ToEnrollmentID]
	assert.Equal(t, offeringID(9, 2026), next.ClassOfferingID)
	assert.Equal(t, yearID(2026), next.AcademicYearID)
	assert.True(t, next.Active)
	assert.Equal(t, "202500001", *next.StudentIdentifier)
	assert.False(t, f.world.enrollments["e-1"].Active)

	student := f.world.students["s-1"]
	require.NotNil(t, student.CurrentClassLevelID)
	assert.Equal(t, levelID(9), *student.CurrentClassLevelID)
	assert.Equal(t, yearID(2026), *student.CurrentAcademicYearID)
}

func TestPromoteClassPassingStudentMovesUp(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.world.addScore("e-1", "math", "55", 100)
	f.world.addScore("e-1", "english", "45", 100)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	result := batch.Results[0]
	assert.Equal(t, models.PromotionPassed, result.Status)
	assert.Empty(t, result.Notes)
	next := f.world.enrollments[*result.ToEnrollmentID]
	assert.Equal(t, offeringID(10, 2026), next.ClassOfferingID)
	assert.Equal(t, 1, *next.RollNumber)
	require.Len(t, f.world.batches, 1)
	require.Len(t, f.world.results, 1)
	assert.Equal(t, f.world.batches[0].ID, f.world.results[0].BatchID)
}

func TestPromoteClassThresholdIsInclusive(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.world.addScore("e-1", "math", "20", 50)
	f.world.addScore("e-1", "english", "40", 100)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.PromotionPassed, batch.Results[0].Status)
}

func TestPromoteClassWithoutMarksFails(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	result := batch.Results[0]
	assert.Equal(t, models.PromotionFailed, result.Status)
	assert.Equal(t, "no marks recorded", result.Notes)
	assert.Equal(t, offeringID(9, 2026), f.world.enrollments[*result.ToEnrollmentID].ClassOfferingID)
}

func TestPromoteClassSkipsStudentsAlreadyInTarget(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addOffering(10, 2026)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.world.addEnrollment("e-existing", "s-1", offeringID(10, 2026), 4)
	f.world.addScore("e-1", "math", "90", 100)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	result := batch.Results[0]
	assert.Equal(t, models.PromotionSkipped, result.Status)
	require.NotNil(t, result.ToEnrollmentID)
	assert.Equal(t, "e-existing", *result.ToEnrollmentID)
	assert.Contains(t, result.Notes, "already enrolled")
	assert.True(t, f.world.enrollments["e-1"].Active)
	assert.Len(t, f.world.enrollments, 2)
}

func TestPromoteClassAssignsSequentialRollNumbers(t *testing.T) {
	f, expect := newPromotionFixture(t)
	for i, id := range []string{"s-1", "s-2", "s-3"} {
		f.world.addStudent(id, id)
		enrollmentID := "e-" + id
		f.world.addEnrollment(enrollmentID, id, offeringID(9, 2025), i+1)
		f.world.addScore(enrollmentID, "math", "75", 100)
	}
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	for i, result := range batch.Results {
		assert.Equal(t, models.PromotionPassed, result.Status)
		next := f.world.enrollments[*result.ToEnrollmentID]
		assert.Equal(t, i+1, *next.RollNumber)
	}
	assert.Empty(t, f.world.activeIn(offeringID(9, 2025)))
	assert.Equal(t, map[models.PromotionStatus]int{models.PromotionPassed: 3, models.PromotionFailed: 0, models.PromotionSkipped: 0}, batch.Tally())
}

func TestPromoteClassLocksSourceThenTargetsInIDOrder(t *testing.T) {
	f, expect := newPromotionFixture(t)
	expect(true)

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{offeringID(9, 2025), offeringID(10, 2026), offeringID(9, 2026)}, f.world.locks)
}

func TestPromoteClassTopLevelRepeatsEvenWhenPassing(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(10, 2025), 1)
	f.world.addScore("e-1", "math", "88", 100)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(10, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	assert.Equal(t, offeringID(10, 2026), batch.ToClassOfferingID)
	assert.Equal(t, models.PromotionPassed, batch.Results[0].Status)
	assert.Equal(t, offeringID(10, 2026), f.world.enrollments[*batch.Results[0].ToEnrollmentID].ClassOfferingID)
}

func TestPromoteClassRequiresNextAcademicYear(t *testing.T) {
	f, mock := newFixture(t, fixedAt(2027, time.June, 1))
	f.world.addOffering(9, 2027)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2027), dto.PromoteClassRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotConfigured.Code, appErr.Code)
	assert.Equal(t, "academic year 2028 is not configured", appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteClassRejectsFutureSource(t *testing.T) {
	f, mock := newFixture(t, fixedAt(2025, time.June, 1))
	f.world.addOffering(9, 2026)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2026), dto.PromoteClassRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteClassUnknownOffering(t *testing.T) {
	f, mock := newFixture(t, fixedAt(2026, time.June, 1))
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), "missing", dto.PromoteClassRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPromoteClassRequiresAdmin(t *testing.T) {
	f, _ := newPromotionFixture(t)
	f.world.assignments = append(f.world.assignments, models.TeacherAssignment{TeacherID: "t-1", ClassOfferingID: offeringID(9, 2025), SubjectID: "math"})

	_, err := f.promotions.PromoteClass(context.Background(), teacherActor("t-1"), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.promotions.PromoteClass(context.Background(), nil, offeringID(9, 2025), dto.PromoteClassRequest{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.world.batches)
}

func TestPromoteClassAbortsOnWriteFailure(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.world.failWrite = errors.New("connection reset")
	expect(false)

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestPromoteClassInvalidatesHistoryCache(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	f.cache.entries[StudentHistoryKey("s-1")] = []byte(`[]`)
	expect(true)

	_, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)
	assert.NotContains(t, f.cache.entries, StudentHistoryKey("s-1"))
}

func TestPromotionBatchListingAndLookup(t *testing.T) {
	f, expect := newPromotionFixture(t)
	f.world.addStudent("s-1", "Rahim")
	f.world.addEnrollment("e-1", "s-1", offeringID(9, 2025), 1)
	expect(true)

	batch, err := f.promotions.PromoteClass(context.Background(), adminActor(), offeringID(9, 2025), dto.PromoteClassRequest{})
	require.NoError(t, err)

	batches, pagination, err := f.promotions.ListBatches(context.Background(), models.PromotionBatchFilter{FromClassOfferingID: offeringID(9, 2025)})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)

	loaded, err := f.promotions.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, "s-1", loaded.Results[0].StudentID)

	_, err = f.promotions.GetBatch(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDecidePromotion(t *testing.T) {
	passed, reason := decidePromotion(nil)
	assert.False(t, passed)
	assert.Equal(t, "no marks recorded", reason)

	passed, reason = decidePromotion([]models.SubjectPercent{{SubjectName: "MATH", Percent: 39.99}, {SubjectName: "SCIENCE", Percent: 12.5}})
	assert.False(t, passed)
	assert.Equal(t, "below pass mark: MATH 39.99%, SCIENCE 12.50%", reason)

	passed, _ = decidePromotion([]models.SubjectPercent{{SubjectName: "MATH", Percent: 40}})
	assert.True(t, passed)
}
