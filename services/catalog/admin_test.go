package catalog

import (
	"testing"

	"lms/apperror"
	"lms/models"
	"lms/models/course"
	"lms/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateCourseSlugs(t *testing.T) {
	db := testutil.NewDB(t)
	price := decimal.RequireFromString("150000")

	first, err := CreateCourse(db, CourseInput{Title: strPtr("Belajar Go Dasar"), Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "belajar-go-dasar", first.Slug)
	assert.Equal(t, course.StatusDraft, first.Status)

	second, err := CreateCourse(db, CourseInput{Title: strPtr("Belajar Go  Dasar!"), Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "belajar-go-dasar-2", second.Slug)

	published, err := SetPublished(db, first.ID, true)
	require.NoError(t, err)
	assert.Equal(t, course.StatusActive, published.Status)
	assert.Equal(t, "belajar-go-dasar", published.Slug)
}

func TestCourseValidation(t *testing.T) {
	db := testutil.NewDB(t)
	single := testutil.Course(t, db, "Go", "100")
	other := testutil.Bundle(t, db, "Other bundle", "100", single.ID)

	price := decimal.RequireFromString("100")
	discount := decimal.RequireFromString("120")
	_, err := CreateCourse(db, CourseInput{Title: strPtr("Bad"), Price: &price, DiscountedPrice: &discount})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	bundle := course.TypeBundle
	_, err = CreateCourse(db, CourseInput{Title: strPtr("Nested"), Price: &price, CourseType: &bundle, BundleCourses: []uint{single.ID, other.ID}})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "bundles cannot contain bundles")

	created, err := CreateCourse(db, CourseInput{Title: strPtr("Pack"), Price: &price, CourseType: &bundle, BundleCourses: []uint{single.ID}})
	require.NoError(t, err)
	assert.True(t, created.IsBundle())

	_, err = CreateBatch(db, created.ID, BatchInput{Name: "Batch 1"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestBatchesReportSeats(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go", "100")

	b, err := CreateBatch(db, crs.ID, BatchInput{Name: "Batch 1", MaxStudents: 1})
	require.NoError(t, err)
	testutil.Enroll(t, db, testutil.User(t, db, models.RoleStudent).ID, b, course.EnrollmentActive)

	statuses, err := Batches(db, crs.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.EqualValues(t, 1, statuses[0].Enrolled)
	assert.False(t, statuses[0].Open)
}

func TestReviews(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go", "100")
	b := testutil.Batch(t, db, crs.ID, "Batch 1", 10)
	student := testutil.User(t, db, models.RoleStudent)
	stranger := testutil.User(t, db, models.RoleStudent)
	testutil.Enroll(t, db, student.ID, b, course.EnrollmentActive)

	_, err := CreateReview(db, stranger, crs.ID, 5, "")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = CreateReview(db, student, crs.ID, 6, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = CreateReview(db, student, crs.ID, 4, " solid ")
	require.NoError(t, err)
	_, err = CreateReview(db, student, crs.ID, 5, "again")
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	reviews, err := Reviews(db, crs.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "solid", reviews[0].Comment)

	summary, err := Rating(db, crs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 0.001)
}

func TestLessonHidesCorrectOption(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go", "100")
	b := testutil.Batch(t, db, crs.ID, "Batch 1", 10)
	student := testutil.User(t, db, models.RoleStudent)

	module, err := CreateModule(db, crs.ID, "Basics", "")
	require.NoError(t, err)
	quiz, err := CreateLesson(db, module.ID, course.Lesson{
		Title:      "Quiz",
		LessonType: course.LessonQuiz,
		Questions:  []course.LessonQuestion{{ID: "q1", Question: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, crs.ID, quiz.CourseID)

	_, err = Lesson(db, student, quiz.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	testutil.Enroll(t, db, student.ID, b, course.EnrollmentActive)
	view, err := Lesson(db, student, quiz.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.NotContains(t, view.Questions[0], "correct_option")

	modules, err := Modules(db, student, crs.ID)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Len(t, modules[0].Lessons, 1)
	assert.Empty(t, modules[0].Lessons[0].Questions)
}

func TestInstructors(t *testing.T) {
	db := testutil.NewDB(t)
	teacher := testutil.User(t, db, models.RoleInstructor)
	crs := testutil.Course(t, db, "Go", "100")
	require.NoError(t, db.Model(&crs).Update("instructor_id", teacher.ID).Error)

	list, err := Instructors(db)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, teacher.ID, list[0].ID)
	assert.EqualValues(t, 1, list[0].CourseCount)
}
