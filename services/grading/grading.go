// Package grading scores lesson quizzes and assignments and keeps enrollment progress current.
package grading

import (
	"math"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"
	"lms/services/catalog"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultAssignmentMaxScore applies when an assignment is graded without an explicit maximum.
const DefaultAssignmentMaxScore = 100

// ScoreQuiz awards each question's marks when the last answer given for it matches the
// correct option. The maximum is the lesson's total marks.
func ScoreQuiz(lesson course.Lesson, answers []course.SubmittedAnswer) (score, total int) {
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.Selected
	}
	for _, q := range lesson.Questions {
		if s, ok := selected[q.ID]; ok && s == q.CorrectOption {
			score += q.Weight()
		}
	}
	return score, lesson.TotalMarks()
}

func loadLesson(db *gorm.DB, lessonID uint) (course.Lesson, error) {
	var lesson course.Lesson
	err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error
	if database.IsNotFound(err) {
		return lesson, apperror.NotFound("Lesson not found!")
	}
	return lesson, errors.Wrap(err, "load lesson")
}

// LoadLessonFor loads a lesson the user may read.
func LoadLessonFor(db *gorm.DB, user models.User, lessonID uint) (course.Lesson, error) {
	lesson, err := loadLesson(db, lessonID)
	if err != nil {
		return lesson, err
	}
	return lesson, catalog.RequireCourseAccess(db, user, lesson.CourseID)
}

// AutoGrade grades a pending quiz submission. A submission whose lesson no longer resolves is
// left untouched.
func AutoGrade(db *gorm.DB, submissionID uint) (course.Submission, error) {
	var sub course.Submission
	if err := db.Preload("Lesson").First(&sub, submissionID).Error; err != nil {
		if database.IsNotFound(err) {
			return sub, apperror.NotFound("Submission not found!")
		}
		return sub, errors.Wrap(err, "load submission")
	}
	if sub.Lesson == nil || sub.Lesson.IsDeleted || sub.Type != course.SubmissionQuiz {
		return sub, nil
	}

	score, maxScore := ScoreQuiz(*sub.Lesson, sub.Answers)
	now := time.Now()
	if err := db.Model(&sub).Updates(map[string]interface{}{
		"score":     score,
		"max_score": maxScore,
		"status":    course.SubmissionGraded,
		"graded_at": now,
	}).Error; err != nil {
		return sub, errors.Wrap(err, "grade submission")
	}
	sub.Score, sub.MaxScore, sub.Status, sub.GradedAt = &score, &maxScore, course.SubmissionGraded, &now

	if _, err := RecalculateProgress(db, sub.UserID, sub.Lesson.CourseID); err != nil {
		return sub, err
	}
	return sub, nil
}

// SubmitQuiz stores quiz answers and grades them immediately.
func SubmitQuiz(db *gorm.DB, user models.User, lessonID uint, answers []course.SubmittedAnswer) (course.Submission, error) {
	lesson, err := LoadLessonFor(db, user, lessonID)
	if err != nil {
		return course.Submission{}, err
	}
	if lesson.LessonType != course.LessonQuiz {
		return course.Submission{}, apperror.Conflict("This lesson is not a quiz!")
	}

	sub := course.Submission{
		UserID:   user.ID,
		LessonID: lesson.ID,
		Type:     course.SubmissionQuiz,
		Answers:  answers,
		Status:   course.SubmissionPending,
	}
	if err := db.Create(&sub).Error; err != nil {
		return sub, errors.Wrap(err, "create submission")
	}
	return AutoGrade(db, sub.ID)
}

// SubmitAssignment stores assignment work for manual grading.
func SubmitAssignment(db *gorm.DB, user models.User, lessonID uint, content string, files []string) (course.Submission, error) {
	lesson, err := LoadLessonFor(db, user, lessonID)
	if err != nil {
		return course.Submission{}, err
	}
	if lesson.LessonType != course.LessonAssignment {
		return course.Submission{}, apperror.Conflict("This lesson is not an assignment!")
	}

	sub := course.Submission{
		UserID:   user.ID,
		LessonID: lesson.ID,
		Type:     course.SubmissionAssignment,
		Content:  content,
		Files:    files,
		Status:   course.SubmissionPending,
	}
	if err := db.Create(&sub).Error; err != nil {
		return sub, errors.Wrap(err, "create submission")
	}
	_, err = RecalculateProgress(db, user.ID, lesson.CourseID)
	return sub, err
}

// GradeAssignment records a manual grade. maxScore 0 keeps the stored maximum or the default.
func GradeAssignment(db *gorm.DB, graderID, submissionID uint, score, maxScore int, feedback string) (course.Submission, error) {
	var sub course.Submission
	if err := db.Preload("Lesson").First(&sub, submissionID).Error; err != nil {
		if database.IsNotFound(err) {
			return sub, apperror.NotFound("Submission not found!")
		}
		return sub, errors.Wrap(err, "load submission")
	}
	if sub.Type != course.SubmissionAssignment {
		return sub, apperror.Conflict("Quiz submissions are graded automatically!")
	}

	if maxScore <= 0 {
		maxScore = DefaultAssignmentMaxScore
		if sub.MaxScore != nil && *sub.MaxScore > 0 {
			maxScore = *sub.MaxScore
		}
	}
	if score < 0 || score > maxScore {
		return sub, apperror.Validation(map[string]string{"score": "Score must be between 0 and the maximum score!"})
	}

	now := time.Now()
	if err := db.Model(&sub).Updates(map[string]interface{}{
		"score":     score,
		"max_score": maxScore,
		"feedback":  feedback,
		"status":    course.SubmissionGraded,
		"graded_by": graderID,
		"graded_at": now,
	}).Error; err != nil {
		return sub, errors.Wrap(err, "grade assignment")
	}
	sub.Score, sub.MaxScore, sub.Feedback, sub.Status = &score, &maxScore, feedback, course.SubmissionGraded
	sub.GradedBy, sub.GradedAt = &graderID, &now

	if sub.Lesson != nil {
		if _, err := RecalculateProgress(db, sub.UserID, sub.Lesson.CourseID); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

// BulkGradePending auto-grades the given pending quiz submissions, or all of them when ids is empty.
func BulkGradePending(db *gorm.DB, ids []uint) (int, error) {
	query := db.Model(&course.Submission{}).
		Where("type = ? AND status = ? AND is_deleted = ?", course.SubmissionQuiz, course.SubmissionPending, false)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var pending []uint
	if err := query.Pluck("id", &pending).Error; err != nil {
		return 0, errors.Wrap(err, "list pending submissions")
	}

	graded := 0
	for _, id := range pending {
		sub, err := AutoGrade(db, id)
		if err != nil {
			return graded, err
		}
		if sub.Status == course.SubmissionGraded {
			graded++
		}
	}
	return graded, nil
}

// CompleteLesson marks a lesson done for the user. Repeating it changes nothing.
func CompleteLesson(db *gorm.DB, user models.User, lessonID uint) (float64, error) {
	lesson, err := LoadLessonFor(db, user, lessonID)
	if err != nil {
		return 0, err
	}

	completion := course.LessonCompletion{UserID: user.ID, LessonID: lesson.ID, CourseID: lesson.CourseID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoNothing: true,
	}).Create(&completion).Error; err != nil {
		return 0, errors.Wrap(err, "record completion")
	}
	return RecalculateProgress(db, user.ID, lesson.CourseID)
}

// RecalculateProgress sets the progress of the user's active enrollments in the course to the
// share of lessons with a completion or submission, rounded to two decimals. At 100 the
// enrollment becomes completed.
func RecalculateProgress(db *gorm.DB, userID, courseID uint) (float64, error) {
	var total int64
	if err := db.Model(&course.Lesson{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "count lessons")
	}
	if total == 0 {
		return 0, nil
	}

	var done int64
	if err := db.Model(&course.Lesson{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Where("(id IN (?) OR id IN (?))",
			db.Model(&course.LessonCompletion{}).Select("lesson_id").Where("user_id = ?", userID),
			db.Model(&course.Submission{}).Select("lesson_id").Where("user_id = ? AND is_deleted = ?", userID, false),
		).
		Count(&done).Error; err != nil {
		return 0, errors.Wrap(err, "count finished lessons")
	}

	progress := math.Round(float64(done)/float64(total)*100*100) / 100

	var enrollments []course.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, course.EnrollmentActive).
		Find(&enrollments).Error; err != nil {
		return 0, errors.Wrap(err, "load enrollments")
	}
	for _, e := range enrollments {
		updates := map[string]interface{}{"progress": progress}
		if progress >= 100 {
			updates["status"] = course.EnrollmentCompleted
			updates["completed_at"] = time.Now()
		}
		if err := db.Model(&e).Updates(updates).Error; err != nil {
			return 0, errors.Wrap(err, "update progress")
		}
	}
	return progress, nil
}
