package grading

import (
	"testing"

	"lms/apperror"
	"lms/models"
	"lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func marks(n int) *int { return &n }

func quizLesson(t *testing.T, db *gorm.DB, courseID, moduleID uint) course.Lesson {
	t.Helper()
	lesson := course.Lesson{
		CourseID:   courseID,
		ModuleID:   moduleID,
		Title:      "Quiz",
		LessonType: course.LessonQuiz,
		Questions: []course.LessonQuestion{
			{ID: "q1", Question: "1+1", Options: []string{"1", "2"}, CorrectOption: 1, Marks: marks(2)},
			{ID: "q2", Question: "2+2", Options: []string{"4", "5"}, CorrectOption: 0},
			{ID: "q3", Question: "3+3", Options: []string{"5", "6"}, CorrectOption: 1, Marks: marks(3)},
		},
	}
	require.NoError(t, db.Create(&lesson).Error)
	return lesson
}

func TestScoreQuizHonorsMarks(t *testing.T) {
	lesson := course.Lesson{Questions: []course.LessonQuestion{
		{ID: "q1", CorrectOption: 1, Marks: marks(2)},
		{ID: "q2", CorrectOption: 0},
		{ID: "q3", CorrectOption: 1, Marks: marks(3)},
	}}

	score, total := ScoreQuiz(lesson, []course.SubmittedAnswer{
		{QuestionID: "q1", Selected: 1},
		{QuestionID: "q2", Selected: 1},
		{QuestionID: "q3", Selected: 1},
		{QuestionID: "unknown", Selected: 0},
	})
	assert.Equal(t, 5, score)
	assert.Equal(t, 6, total)

	score, total = ScoreQuiz(lesson, nil)
	assert.Equal(t, 0, score)
	assert.Equal(t, 6, total)
}

func TestProgressIsMonotonicAndCompletes(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 0)
	enrollment := testutil.Enroll(t, db, user.ID, batch, course.EnrollmentActive)
	lessons := testutil.Lessons(t, db, crs.ID, 2)
	quiz := quizLesson(t, db, crs.ID, lessons[0].ModuleID)

	progress, err := CompleteLesson(db, user, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 33.33, progress)

	// Completing the same lesson again does not move progress.
	again, err := CompleteLesson(db, user, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, progress, again)

	sub, err := SubmitQuiz(db, user, quiz.ID, []course.SubmittedAnswer{{QuestionID: "q1", Selected: 1}})
	require.NoError(t, err)
	assert.Equal(t, course.SubmissionGraded, sub.Status)
	assert.Equal(t, 2, *sub.Score)
	assert.Equal(t, 6, *sub.MaxScore)

	var e course.Enrollment
	require.NoError(t, db.First(&e, enrollment.ID).Error)
	assert.Equal(t, 66.67, e.Progress)
	assert.Equal(t, course.EnrollmentActive, e.Status)
	assert.GreaterOrEqual(t, e.Progress, progress)

	final, err := CompleteLesson(db, user, lessons[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, final)

	require.NoError(t, db.First(&e, enrollment.ID).Error)
	assert.Equal(t, course.EnrollmentCompleted, e.Status)
	assert.NotNil(t, e.CompletedAt)
}

func TestAutoGradeWithDeletedLessonIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	lessons := testutil.Lessons(t, db, crs.ID, 1)
	quiz := quizLesson(t, db, crs.ID, lessons[0].ModuleID)
	require.NoError(t, db.Model(&quiz).Update("is_deleted", true).Error)

	sub := course.Submission{
		UserID:   user.ID,
		LessonID: quiz.ID,
		Type:     course.SubmissionQuiz,
		Answers:  []course.SubmittedAnswer{{QuestionID: "q1", Selected: 0}},
		Status:   course.SubmissionPending,
	}
	require.NoError(t, db.Create(&sub).Error)

	graded, err := AutoGrade(db, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, course.SubmissionPending, graded.Status)
	assert.Nil(t, graded.Score)
}

func TestSubmitRequiresEnrollment(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	lessons := testutil.Lessons(t, db, crs.ID, 1)
	quiz := quizLesson(t, db, crs.ID, lessons[0].ModuleID)

	_, err := SubmitQuiz(db, user, quiz.ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = CompleteLesson(db, user, lessons[0].ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	instructor := testutil.User(t, db, models.RoleInstructor)
	_, err = SubmitQuiz(db, instructor, lessons[0].ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "text lesson is not a quiz")
}

func TestAssignmentFlow(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	grader := testutil.User(t, db, models.RoleInstructor)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 0)
	enrollment := testutil.Enroll(t, db, user.ID, batch, course.EnrollmentActive)
	lessons := testutil.Lessons(t, db, crs.ID, 1)

	assignment := course.Lesson{CourseID: crs.ID, ModuleID: lessons[0].ModuleID, Title: "Essay", LessonType: course.LessonAssignment}
	require.NoError(t, db.Create(&assignment).Error)

	sub, err := SubmitAssignment(db, user, assignment.ID, "my essay", []string{"/uploads/essay.pdf"})
	require.NoError(t, err)
	assert.Equal(t, course.SubmissionPending, sub.Status)

	var e course.Enrollment
	require.NoError(t, db.First(&e, enrollment.ID).Error)
	assert.Equal(t, 50.0, e.Progress)

	_, err = GradeAssignment(db, grader.ID, sub.ID, 120, 0, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	graded, err := GradeAssignment(db, grader.ID, sub.ID, 85, 0, "Good work")
	require.NoError(t, err)
	assert.Equal(t, 85, *graded.Score)
	assert.Equal(t, DefaultAssignmentMaxScore, *graded.MaxScore)
	assert.Equal(t, course.SubmissionGraded, graded.Status)
}

func TestBulkGradePending(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.User(t, db, models.RoleStudent)
	crs := testutil.Course(t, db, "Go Basics", "100")
	lessons := testutil.Lessons(t, db, crs.ID, 1)
	quiz := quizLesson(t, db, crs.ID, lessons[0].ModuleID)

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&course.Submission{
			UserID:   user.ID,
			LessonID: quiz.ID,
			Type:     course.SubmissionQuiz,
			Answers:  []course.SubmittedAnswer{{QuestionID: "q3", Selected: 1}},
			Status:   course.SubmissionPending,
		}).Error)
	}

	n, err := BulkGradePending(db, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var subs []course.Submission
	require.NoError(t, db.Find(&subs).Error)
	for _, s := range subs {
		assert.Equal(t, course.SubmissionGraded, s.Status)
		assert.Equal(t, 3, *s.Score)
	}
}
