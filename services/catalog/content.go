package catalog

import (
	"strings"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Instructor is the public view of a user teaching at least one course.
type Instructor struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profile_image"`
	CourseCount  int64  `json:"course_count"`
}

// LessonView is a lesson as an enrolled student sees it.
type LessonView struct {
	course.Lesson
	Questions []map[string]interface{} `json:"questions"`
}

func Categories(db *gorm.DB) ([]course.Category, error) {
	var categories []course.Category
	err := db.Where("is_deleted = ?", false).Order("name asc").Find(&categories).Error
	return categories, errors.Wrap(err, "list categories")
}

// Instructors lists instructors of active courses with how many they teach.
func Instructors(db *gorm.DB) ([]Instructor, error) {
	var out []Instructor
	err := db.Model(&models.User{}).
		Select("users.id, users.name, users.bio, users.profile_image, COUNT(courses.id) AS course_count").
		Joins("JOIN courses ON courses.instructor_id = users.id AND courses.is_deleted = ? AND courses.status = ?", false, course.StatusActive).
		Where("users.is_deleted = ?", false).
		Group("users.id, users.name, users.bio, users.profile_image").
		Order("users.name asc").
		Scan(&out).Error
	return out, errors.Wrap(err, "list instructors")
}

func Reviews(db *gorm.DB, courseID uint) ([]course.Review, error) {
	var reviews []course.Review
	err := db.Where("course_id = ? AND is_deleted = ?", courseID, false).Order("created_at desc").Find(&reviews).Error
	return reviews, errors.Wrap(err, "list reviews")
}

// CreateReview stores the user's single review of a course they are enrolled in.
func CreateReview(db *gorm.DB, user models.User, courseID uint, rating int, comment string) (course.Review, error) {
	if rating < 1 || rating > 5 {
		return course.Review{}, apperror.Validation(map[string]string{"rating": "Rating must be between 1 and 5!"})
	}
	if _, err := ByID(db, courseID); err != nil {
		return course.Review{}, err
	}

	ok, err := HasCourseAccess(db, models.User{Model: user.Model, Role: models.RoleStudent}, courseID)
	if err != nil {
		return course.Review{}, err
	}
	if !ok {
		return course.Review{}, apperror.Forbidden("Only enrolled students can review this course!")
	}

	review := course.Review{UserID: user.ID, CourseID: courseID, Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := db.Create(&review).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return course.Review{}, apperror.Conflict("You have already reviewed this course!")
		}
		return course.Review{}, errors.Wrap(err, "create review")
	}
	return review, nil
}

// Modules returns the full module tree of a course for a user with access to it.
func Modules(db *gorm.DB, user models.User, courseID uint) ([]course.Module, error) {
	if _, err := ByID(db, courseID); err != nil {
		return nil, err
	}
	if err := RequireCourseAccess(db, user, courseID); err != nil {
		return nil, err
	}

	var modules []course.Module
	err := db.Where("course_id = ? AND is_deleted = ?", courseID, false).
		Preload("Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "created_at", "updated_at", "course_id", "module_id", "title", "lesson_type", "video_url", "order_index").
				Where("is_deleted = ?", false).Order("order_index asc")
		}).
		Order("order_index asc").Find(&modules).Error
	return modules, errors.Wrap(err, "load modules")
}

// Lesson returns one lesson with its quiz questions stripped of the correct option.
func Lesson(db *gorm.DB, user models.User, lessonID uint) (LessonView, error) {
	var lesson course.Lesson
	err := db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error
	if database.IsNotFound(err) {
		return LessonView{}, apperror.NotFound("Lesson not found!")
	}
	if err != nil {
		return LessonView{}, errors.Wrap(err, "load lesson")
	}
	if err := RequireCourseAccess(db, user, lesson.CourseID); err != nil {
		return LessonView{}, err
	}

	questions := lesson.PublicQuestions()
	lesson.Questions = nil
	return LessonView{Lesson: lesson, Questions: questions}, nil
}
