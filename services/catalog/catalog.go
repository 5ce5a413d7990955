// Package catalog answers read questions about courses: listing, detail, pricing and who may
// see the content of a course.
package catalog

import (
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows the public course list.
type ListFilter struct {
	Search     string
	CategoryID uint
	CourseType string
	Page       int
	Limit      int
}

type Page struct {
	Items      []course.Course `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// RatingSummary aggregates the reviews of a course.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Detail is everything the course page shows.
type Detail struct {
	Course         course.Course    `json:"course"`
	EffectivePrice decimal.Decimal  `json:"effective_price"`
	Modules        []ModuleOutline  `json:"modules"`
	OpenBatches    []course.Batch   `json:"open_batches"`
	BundleMembers  []course.Course  `json:"bundle_members,omitempty"`
	BundleSavings  *decimal.Decimal `json:"bundle_savings,omitempty"`
	Rating         RatingSummary    `json:"rating"`
}

type ModuleOutline struct {
	ID      uint            `json:"id"`
	Title   string          `json:"title"`
	Lessons []LessonOutline `json:"lessons"`
}

type LessonOutline struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	LessonType string `json:"lesson_type"`
}

// List returns active courses matching f, newest first.
func List(db *gorm.DB, f ListFilter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 12
	}

	query := db.Model(&course.Course{}).Where("is_deleted = ? AND status = ?", false, course.StatusActive)
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.CourseType != "" {
		query = query.Where("course_type = ?", f.CourseType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page{}, errors.Wrap(err, "count courses")
	}

	var items []course.Course
	if err := query.Preload("Category").Order("created_at desc").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).Find(&items).Error; err != nil {
		return Page{}, errors.Wrap(err, "list courses")
	}

	return Page{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}, nil
}

// BySlug loads a non-deleted course by slug.
func BySlug(db *gorm.DB, slug string) (course.Course, error) {
	var crs course.Course
	err := db.Preload("Category").Where("slug = ? AND is_deleted = ?", slug, false).First(&crs).Error
	if database.IsNotFound(err) {
		return crs, apperror.NotFound("Course not found!")
	}
	return crs, errors.Wrap(err, "load course")
}

// ByID loads a non-deleted course by id.
func ByID(db *gorm.DB, id uint) (course.Course, error) {
	var crs course.Course
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&crs).Error
	if database.IsNotFound(err) {
		return crs, apperror.NotFound("Course not found!")
	}
	return crs, errors.Wrap(err, "load course")
}

// GetDetail assembles the course page for slug.
func GetDetail(db *gorm.DB, slug string) (Detail, error) {
	crs, err := BySlug(db, slug)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Course: crs, EffectivePrice: crs.EffectivePrice()}

	var modules []course.Module
	if err := db.Where("course_id = ? AND is_deleted = ?", crs.ID, false).
		Preload("Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_deleted = ?", false).Order("order_index asc")
		}).
		Order("order_index asc").Find(&modules).Error; err != nil {
		return Detail{}, errors.Wrap(err, "load modules")
	}
	for _, m := range modules {
		outline := ModuleOutline{ID: m.ID, Title: m.Title, Lessons: []LessonOutline{}}
		for _, l := range m.Lessons {
			outline.Lessons = append(outline.Lessons, LessonOutline{ID: l.ID, Title: l.Title, LessonType: l.LessonType})
		}
		detail.Modules = append(detail.Modules, outline)
	}

	detail.OpenBatches, err = OpenBatches(db, crs.ID, time.Now())
	if err != nil {
		return Detail{}, err
	}

	if crs.IsBundle() && len(crs.BundleCourses) > 0 {
		if err := db.Where("id IN ? AND is_deleted = ?", []uint(crs.BundleCourses), false).Find(&detail.BundleMembers).Error; err != nil {
			return Detail{}, errors.Wrap(err, "load bundle members")
		}
		savings := BundleSavings(crs, detail.BundleMembers)
		detail.BundleSavings = &savings
	}

	detail.Rating, err = Rating(db, crs.ID)
	return detail, err
}

// BundleSavings is the sum of member effective prices minus the bundle's own effective price.
// Display only; the bundle is always charged its own price.
func BundleSavings(bundle course.Course, members []course.Course) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(m.EffectivePrice())
	}
	return sum.Sub(bundle.EffectivePrice())
}

// OpenBatches lists the batches of courseID accepting enrollments at now.
func OpenBatches(db *gorm.DB, courseID uint, now time.Time) ([]course.Batch, error) {
	var batches []course.Batch
	if err := db.Where("course_id = ? AND is_active = ? AND is_deleted = ? AND (end_date IS NULL OR end_date > ?)",
		courseID, true, false, now).Order("id asc").Find(&batches).Error; err != nil {
		return nil, errors.Wrap(err, "load batches")
	}

	open := make([]course.Batch, 0, len(batches))
	for _, b := range batches {
		n, err := SeatsTaken(db, b.ID)
		if err != nil {
			return nil, err
		}
		if b.OpenAt(now, n) {
			open = append(open, b)
		}
	}
	return open, nil
}

// SeatsTaken counts enrollments occupying a seat in the batch.
func SeatsTaken(db *gorm.DB, batchID uint) (int64, error) {
	var n int64
	err := db.Model(&course.Enrollment{}).
		Where("batch_id = ? AND status IN ?", batchID, []string{
			course.EnrollmentPending, course.EnrollmentActive, course.EnrollmentCompleted,
		}).Count(&n).Error
	return n, errors.Wrap(err, "count seats")
}

func Rating(db *gorm.DB, courseID uint) (RatingSummary, error) {
	var summary RatingSummary
	err := db.Model(&course.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Scan(&summary).Error
	return summary, errors.Wrap(err, "rating summary")
}

// ActiveEnrollment returns the user's active enrollment in any batch of the course, or nil.
func ActiveEnrollment(db *gorm.DB, userID, courseID uint) (*course.Enrollment, error) {
	var e course.Enrollment
	err := db.Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, course.EnrollmentActive).
		First(&e).Error
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load enrollment")
	}
	return &e, nil
}

// HasCourseAccess reports whether user may read the content of the course: staff always,
// students with an active or completed enrollment.
func HasCourseAccess(db *gorm.DB, user models.User, courseID uint) (bool, error) {
	if user.IsStaff() {
		return true, nil
	}
	var n int64
	err := db.Model(&course.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status IN ?", user.ID, courseID,
			[]string{course.EnrollmentActive, course.EnrollmentCompleted}).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "check enrollment")
	}
	return n > 0, nil
}

// RequireCourseAccess is HasCourseAccess as an error.
func RequireCourseAccess(db *gorm.DB, user models.User, courseID uint) error {
	ok, err := HasCourseAccess(db, user, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("Please enroll in this course first!")
	}
	return nil
}

// LoadUser loads a non-deleted user.
func LoadUser(db *gorm.DB, id uint) (models.User, error) {
	var user models.User
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&user).Error
	if database.IsNotFound(err) {
		return user, apperror.Unauthorized("User not found!")
	}
	return user, errors.Wrap(err, "load user")
}
