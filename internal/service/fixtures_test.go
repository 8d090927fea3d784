package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academics-api/internal/models"
	"github.com/noah-isme/sma-academics-api/internal/repository"
	"github.com/noah-isme/sma-academics-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// fixedAt pins the clock to a UTC date.
func fixedAt(year int, month time.Month, day int) clock.Clock {
	return clock.Fixed(time.Date(year, month, day, 9, 0, 0, 0, time.UTC))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func teacherActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

// memWorld is an in-memory stand-in for the relational store shared by the stub repositories below.
type memWorld struct {
	years       map[string]models.AcademicYear
	levels      map[string]models.ClassLevel
	subjects    map[string]models.Subject
	users       map[string]models.User
	offerings   map[string]models.ClassOfferingDetail
	students    map[string]models.Student
	enrollments map[string]models.StudentEnrollment
	assignments []models.TeacherAssignment
	exams       map[string]models.Exam
	marks       map[string]models.ExamMark
	scores      []models.MarkScore
	batches     []models.PromotionBatch
	results     []models.PromotionResult

	locks     []string
	seq       int
	identSeq  int
	failWrite error
}

func newMemWorld() *memWorld {
	return &memWorld{
		years:       map[string]models.AcademicYear{},
		levels:      map[string]models.ClassLevel{},
		subjects:    map[string]models.Subject{},
		users:       map[string]models.User{},
		offerings:   map[string]models.ClassOfferingDetail{},
		students:    map[string]models.Student{},
		enrollments: map[string]models.StudentEnrollment{},
		exams:       map[string]models.Exam{},
		marks:       map[string]models.ExamMark{},
	}
}

func (w *memWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func yearID(year int) string { return fmt.Sprintf("year-%d", year) }

func levelID(code int) string { return fmt.Sprintf("level-%d", code) }

func offeringID(code, year int) string { return fmt.Sprintf("off-%d-%d", code, year) }

func (w *memWorld) addYear(year int) {
	w.years[yearID(year)] = models.AcademicYear{
		ID:        yearID(year),
		Year:      year,
		StartDate: date(year, time.January, 1),
		EndDate:   date(year, time.December, 31),
	}
}

func (w *memWorld) addLevel(code int) {
	w.levels[levelID(code)] = models.ClassLevel{ID: levelID(code), Name: fmt.Sprintf("CLASS %d", code), Code: code}
}

func (w *memWorld) addSubject(id, name string) {
	w.subjects[id] = models.Subject{ID: id, Name: name}
}

func (w *memWorld) addOffering(code, year int) models.ClassOfferingDetail {
	detail := models.ClassOfferingDetail{
		ClassOffering: models.ClassOffering{
			ID:             offeringID(code, year),
			AcademicYearID: yearID(year),
			ClassLevelID:   levelID(code),
			Status:         models.ClassOfferingActive,
		},
		Year:      year,
		LevelName: fmt.Sprintf("CLASS %d", code),
		LevelCode: code,
	}
	w.offerings[detail.ID] = detail
	return detail
}

func (w *memWorld) addStudent(id, name string) {
	w.students[id] = models.Student{ID: id, FullName: name}
}

func (w *memWorld) addEnrollment(id, studentID, offering string, roll int) models.StudentEnrollment {
	o := w.offerings[offering]
	identifier := fmt.Sprintf("%d%05d", o.Year, roll)
	e := models.StudentEnrollment{
		ID:                id,
		StudentID:         studentID,
		AcademicYearID:    o.AcademicYearID,
		ClassOfferingID:   offering,
		StudentIdentifier: &identifier,
		RollNumber:        &roll,
		Active:            true,
	}
	w.enrollments[id] = e
	return e
}

func (w *memWorld) addScore(enrollmentID, subjectID, obtained string, maxMarks int) {
	w.scores = append(w.scores, models.MarkScore{
		MarkID:              w.nextID("mark"),
		StudentEnrollmentID: enrollmentID,
		ExamID:              w.nextID("exam"),
		SubjectID:           subjectID,
		SubjectName:         w.subjects[subjectID].Name,
		MaxMarks:            maxMarks,
		MarksObtained:       decimal.RequireFromString(obtained),
	})
}

func (w *memWorld) enrollmentDetail(e models.StudentEnrollment) models.EnrollmentDetail {
	o := w.offerings[e.ClassOfferingID]
	return models.EnrollmentDetail{
		StudentEnrollment: e,
		StudentName:       w.students[e.StudentID].FullName,
		Year:              o.Year,
		ClassLevelID:      o.ClassLevelID,
		LevelName:         o.LevelName,
		LevelCode:         o.LevelCode,
	}
}

func (w *memWorld) activeIn(offering string) []models.StudentEnrollment {
	var out []models.StudentEnrollment
	for _, e := range w.enrollments {
		if e.ClassOfferingID == offering && e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].RollNumber < *out[j].RollNumber })
	return out
}

func duplicateErr(constraint string) error {
	return fmt.Errorf("write: %w: %w", repository.ErrDuplicate, &pq.Error{Code: "23505", Constraint: constraint})
}

type yearStub struct{ w *memWorld }

func (s yearStub) List(ctx context.Context) ([]models.AcademicYear, error) {
	var out []models.AcademicYear
	for _, y := range s.w.years {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (s yearStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AcademicYear, error) {
	y, ok := s.w.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &y, nil
}

func (s yearStub) FindByYear(ctx context.Context, exec sqlx.ExtContext, year int) (*models.AcademicYear, error) {
	return s.FindByID(ctx, exec, yearID(year))
}

type levelStub struct{ w *memWorld }

func (s levelStub) List(ctx context.Context) ([]models.ClassLevel, error) {
	var out []models.ClassLevel
	for _, l := range s.w.levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s levelStub) FindByCode(ctx context.Context, exec sqlx.ExtContext, code int) (*models.ClassLevel, error) {
	l, ok := s.w.levels[levelID(code)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

type subjectStub struct{ w *memWorld }

func (s subjectStub) List(ctx context.Context) ([]models.Subject, error) {
	var out []models.Subject
	for _, sub := range s.w.subjects {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	sub, ok := s.w.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sub, nil
}

type userStub struct{ w *memWorld }

func (s userStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.w.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

type offeringStub struct{ w *memWorld }

func (s offeringStub) List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOfferingDetail, int, error) {
	var out []models.ClassOfferingDetail
	for _, o := range s.w.offerings {
		if filter.Year != 0 && o.Year != filter.Year {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s offeringStub) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error) {
	o, ok := s.w.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &o, nil
}

func (s offeringStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassOfferingDetail, error) {
	o, err := s.FindDetailByID(ctx, exec, id)
	if err != nil {
		return nil, err
	}
	s.w.locks = append(s.w.locks, id)
	return o, nil
}

func (s offeringStub) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, academicYearID, classLevelID string) (*models.ClassOfferingDetail, error) {
	for _, o := range s.w.offerings {
		if o.AcademicYearID == academicYearID && o.ClassLevelID == classLevelID {
			found := o
			return &found, nil
		}
	}
	y := s.w.years[academicYearID]
	l := s.w.levels[classLevelID]
	created := s.w.addOffering(l.Code, y.Year)
	return &created, nil
}

type studentStub struct{ w *memWorld }

func (s studentStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	st, ok := s.w.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (s studentStub) AllocateIdentifier(ctx context.Context, exec sqlx.ExtContext, studentID string, year int) (string, error) {
	st, ok := s.w.students[studentID]
	if !ok {
		return "", sql.ErrNoRows
	}
	if st.StudentIdentifier == nil {
		s.w.identSeq++
		identifier := fmt.Sprintf("%d%05d", year, s.w.identSeq)
		st.StudentIdentifier = &identifier
		s.w.students[studentID] = st
	}
	return *st.StudentIdentifier, nil
}

func (s studentStub) SyncCurrentState(ctx context.Context, exec sqlx.ExtContext, studentID string, rollNumber int, academicYearID, classLevelID string) error {
	st := s.w.students[studentID]
	st.RollNumber = &rollNumber
	st.CurrentAcademicYearID = &academicYearID
	st.CurrentClassLevelID = &classLevelID
	s.w.students[studentID] = st
	return nil
}

type enrollmentStub struct{ w *memWorld }

func (s enrollmentStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, e := range s.w.enrollments {
		if filter.ClassOfferingID != "" && e.ClassOfferingID != filter.ClassOfferingID {
			continue
		}
		out = append(out, s.w.enrollmentDetail(e))
	}
	return out, len(out), nil
}

func (s enrollmentStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentEnrollment, error) {
	e, ok := s.w.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s enrollmentStub) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error) {
	e, ok := s.w.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := s.w.enrollmentDetail(e)
	return &detail, nil
}

func (s enrollmentStub) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for _, id := range ids {
		if e, ok := s.w.enrollments[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s enrollmentStub) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range s.w.enrollments {
		if e.StudentID == studentID {
			out = append(out, s.w.enrollmentDetail(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (s enrollmentStub) ListActiveByOffering(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) ([]models.StudentEnrollment, error) {
	return s.w.activeIn(classOfferingID), nil
}

func (s enrollmentStub) FindByStudentAndOffering(ctx context.Context, exec sqlx.ExtContext, studentID, classOfferingID string) (*models.StudentEnrollment, error) {
	for _, e := range s.w.enrollments {
		if e.StudentID == studentID && e.ClassOfferingID == classOfferingID {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (s enrollmentStub) ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, academicYearID, excludeID string) (bool, error) {
	for _, e := range s.w.enrollments {
		if e.ID != excludeID && e.StudentID == studentID && e.AcademicYearID == academicYearID && e.Active {
			return true, nil
		}
	}
	return false, nil
}

func (s enrollmentStub) NextRollNumber(ctx context.Context, exec sqlx.ExtContext, classOfferingID string) (int, error) {
	highest := 0
	for _, e := range s.w.enrollments {
		if e.ClassOfferingID == classOfferingID && e.RollNumber != nil && *e.RollNumber > highest {
			highest = *e.RollNumber
		}
	}
	return highest + 1, nil
}

func (s enrollmentStub) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error {
	if s.w.failWrite != nil {
		return s.w.failWrite
	}
	for _, e := range s.w.enrollments {
		if e.StudentID == enrollment.StudentID && e.ClassOfferingID == enrollment.ClassOfferingID {
			return duplicateErr("uq_enrollment_student_offering")
		}
	}
	enrollment.ID = s.w.nextID("enr")
	s.w.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (s enrollmentStub) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.StudentEnrollment) error {
	if _, ok := s.w.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	for _, e := range s.w.enrollments {
		if e.ID != enrollment.ID && e.ClassOfferingID == enrollment.ClassOfferingID &&
			e.RollNumber != nil && enrollment.RollNumber != nil && *e.RollNumber == *enrollment.RollNumber {
			return duplicateErr("uq_enrollment_offering_roll")
		}
	}
	s.w.enrollments[enrollment.ID] = *enrollment
	return nil
}

type assignmentStub struct{ w *memWorld }

func (s assignmentStub) Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, classOfferingID, subjectID string) (bool, error) {
	for _, a := range s.w.assignments {
		if a.TeacherID == teacherID && a.ClassOfferingID == classOfferingID && a.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (s assignmentStub) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	for _, a := range s.w.assignments {
		if a.ClassOfferingID == assignment.ClassOfferingID && a.SubjectID == assignment.SubjectID {
			return duplicateErr("uq_assignment_offering_subject")
		}
	}
	assignment.ID = s.w.nextID("assign")
	s.w.assignments = append(s.w.assignments, *assignment)
	return nil
}

func (s assignmentStub) ListByOffering(ctx context.Context, classOfferingID string) ([]models.TeacherAssignmentDetail, error) {
	var out []models.TeacherAssignmentDetail
	for _, a := range s.w.assignments {
		if a.ClassOfferingID == classOfferingID {
			out = append(out, models.TeacherAssignmentDetail{TeacherAssignment: a, SubjectName: s.w.subjects[a.SubjectID].Name})
		}
	}
	return out, nil
}

type examStub struct{ w *memWorld }

func (s examStub) Create(ctx context.Context, exec sqlx.ExtContext, exam *models.Exam) error {
	exam.ID = s.w.nextID("exam")
	s.w.exams[exam.ID] = *exam
	return nil
}

func (s examStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Exam, error) {
	e, ok := s.w.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s examStub) CountByOfferingSubject(ctx context.Context, exec sqlx.ExtContext, classOfferingID, subjectID string) (int, error) {
	count := 0
	for _, e := range s.w.exams {
		if e.ClassOfferingID == classOfferingID && e.SubjectID == subjectID {
			count++
		}
	}
	return count, nil
}

func (s examStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ExamStatus) error {
	e, ok := s.w.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	s.w.exams[id] = e
	return nil
}

func (s examStub) ListUpcoming(ctx context.Context, classOfferingID string, from time.Time) ([]models.ExamDetail, error) {
	var out []models.ExamDetail
	for _, e := range s.w.exams {
		if e.ClassOfferingID == classOfferingID && !e.Date.Before(from) {
			out = append(out, models.ExamDetail{Exam: e, SubjectName: s.w.subjects[e.SubjectID].Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type markStub struct{ w *memWorld }

func (s markStub) Upsert(ctx context.Context, exec sqlx.ExtContext, mark *models.ExamMark) error {
	key := mark.ExamID + "/" + mark.StudentEnrollmentID
	if existing, ok := s.w.marks[key]; ok {
		mark.ID = existing.ID
	} else {
		mark.ID = s.w.nextID("mark")
	}
	s.w.marks[key] = *mark
	return nil
}

func (s markStub) ListScoresByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.MarkScore, error) {
	return s.ListScoresByEnrollments(ctx, exec, []string{enrollmentID})
}

func (s markStub) ListScoresByEnrollments(ctx context.Context, exec sqlx.ExtContext, enrollmentIDs []string) ([]models.MarkScore, error) {
	wanted := make(map[string]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}
	var out []models.MarkScore
	for _, score := range s.w.scores {
		if wanted[score.StudentEnrollmentID] {
			out = append(out, score)
		}
	}
	return out, nil
}

type promotionStub struct{ w *memWorld }

func (s promotionStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, batch *models.PromotionBatch) error {
	batch.ID = s.w.nextID("batch")
	s.w.batches = append(s.w.batches, *batch)
	return nil
}

func (s promotionStub) CreateResult(ctx context.Context, exec sqlx.ExtContext, result *models.PromotionResult) error {
	result.ID = s.w.nextID("result")
	s.w.results = append(s.w.results, *result)
	return nil
}

func (s promotionStub) ListBatches(ctx context.Context, filter models.PromotionBatchFilter) ([]models.PromotionBatch, int, error) {
	var out []models.PromotionBatch
	for _, b := range s.w.batches {
		if filter.FromClassOfferingID == "" || b.FromClassOfferingID == filter.FromClassOfferingID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (s promotionStub) FindBatchByID(ctx context.Context, id string) (*models.PromotionBatch, error) {
	for _, b := range s.w.batches {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s promotionStub) ListResults(ctx context.Context, batchID string) ([]models.PromotionResult, error) {
	var out []models.PromotionResult
	for _, r := range s.w.results {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memCache is a map-backed CacheRepository.
type memCache struct {
	entries map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

// fixture wires every service against one memWorld.
type fixture struct {
	world       *memWorld
	clock       clock.Clock
	cache       *memCache
	rules       *RuleValidator
	policy      *AccessPolicy
	enrollments *EnrollmentService
	assignments *TeacherAssignmentService
	exams       *ExamService
	promotions  *PromotionService
	grades      *GradeService
	catalog     *CatalogService
}

func newFixture(t *testing.T, clk clock.Clock) (*fixture, sqlmock.Sqlmock) {
	t.Helper()
	w := newMemWorld()
	for year := 2024; year <= 2027; year++ {
		w.addYear(year)
	}
	for code := 6; code <= 10; code++ {
		w.addLevel(code)
	}
	w.addSubject("math", "MATH")
	w.addSubject("english", "ENGLISH")

	tx, mock := newTxProviderMock(t)
	memc := newMemCache()
	metrics := NewMetricsService()
	cache := NewCacheService(memc, metrics, time.Minute, nil, true)

	years := yearStub{w}
	enrollmentRepo := enrollmentStub{w}
	offerings := offeringStub{w}
	assignments := assignmentStub{w}
	exams := examStub{w}
	marks := markStub{w}

	rules := NewRuleValidator(clk, years, enrollmentRepo, exams)
	policy := NewAccessPolicy(assignments)
	enrollmentSvc := NewEnrollmentService(tx, enrollmentRepo, studentStub{w}, offerings, assignments, rules, policy, cache, nil, nil)

	f := &fixture{
		world:       w,
		clock:       clk,
		cache:       memc,
		rules:       rules,
		policy:      policy,
		enrollments: enrollmentSvc,
		assignments: NewTeacherAssignmentService(assignments, userStub{w}, subjectStub{w}, offerings, rules, policy, nil, nil),
		exams: NewExamService(ExamServiceDeps{
			Tx:          tx,
			Exams:       exams,
			Marks:       marks,
			Enrollments: enrollmentRepo,
			Offerings:   offerings,
			Years:       years,
			Rules:       rules,
			Policy:      policy,
			Cache:       cache,
			Metrics:     metrics,
			Clock:       clk,
		}),
		promotions: NewPromotionService(PromotionServiceDeps{
			Tx:          tx,
			Offerings:   offerings,
			Years:       years,
			Levels:      levelStub{w},
			Enrollments: enrollmentRepo,
			Saver:       enrollmentSvc,
			Scores:      marks,
			Repo:        promotionStub{w},
			Rules:       rules,
			Policy:      policy,
			Cache:       cache,
			Metrics:     metrics,
			Clock:       clk,
		}),
		grades:  NewGradeService(marks, enrollmentRepo, cache, nil),
		catalog: NewCatalogService(years, levelStub{w}, subjectStub{w}, offerings, nil),
	}
	return f, mock
}
