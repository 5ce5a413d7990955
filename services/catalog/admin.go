package catalog

import (
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models/course"
	"lms/utils"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const slugMaxLen = 150

// CourseInput is the editable part of a course. Nil fields are left unchanged on update.
type CourseInput struct {
	Title           *string
	Description     *string
	InstructorID    *uint
	CategoryID      *uint
	Price           *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	ClearDiscount   bool
	CourseType      *string
	BundleCourses   []uint
	ThumbnailURL    *string
	Duration        *int64
	Status          *string
}

func (in CourseInput) apply(c *course.Course) {
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.InstructorID != nil {
		c.InstructorID = in.InstructorID
	}
	if in.CategoryID != nil {
		c.CategoryID = in.CategoryID
	}
	if in.Price != nil {
		c.Price = *in.Price
	}
	if in.DiscountedPrice != nil {
		c.DiscountedPrice = decimal.NewNullDecimal(*in.DiscountedPrice)
	}
	if in.ClearDiscount {
		c.DiscountedPrice = decimal.NullDecimal{}
	}
	if in.CourseType != nil {
		c.CourseType = *in.CourseType
	}
	if in.BundleCourses != nil {
		c.BundleCourses = datatypes.JSONSlice[uint](in.BundleCourses)
	}
	if in.ThumbnailURL != nil {
		c.ThumbnailURL = *in.ThumbnailURL
	}
	if in.Duration != nil {
		c.Duration = *in.Duration
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
}

func validateCourse(db *gorm.DB, c course.Course) error {
	errs := map[string]string{}
	if c.Title == "" {
		errs["title"] = "Title is required!"
	}
	if c.Price.IsNegative() {
		errs["price"] = "Price cannot be negative!"
	}
	if c.DiscountedPrice.Valid && (c.DiscountedPrice.Decimal.IsNegative() || c.DiscountedPrice.Decimal.GreaterThan(c.Price)) {
		errs["discounted_price"] = "Discounted price must be between 0 and price!"
	}
	switch c.Status {
	case course.StatusDraft, course.StatusActive, course.StatusInactive:
	default:
		errs["status"] = "Status must be DRAFT, ACTIVE or INACTIVE!"
	}

	switch c.CourseType {
	case course.TypeSingle:
	case course.TypeBundle:
		if len(c.BundleCourses) == 0 {
			errs["bundle_courses"] = "A bundle needs at least one course!"
			break
		}
		var n int64
		if err := db.Model(&course.Course{}).
			Where("id IN ? AND id <> ? AND course_type = ? AND is_deleted = ?", []uint(c.BundleCourses), c.ID, course.TypeSingle, false).
			Count(&n).Error; err != nil {
			return errors.Wrap(err, "check bundle members")
		}
		if n != int64(len(c.BundleCourses)) {
			errs["bundle_courses"] = "Bundle members must be existing single courses!"
		}
	default:
		errs["course_type"] = "Course type must be single or bundle!"
	}

	if len(errs) > 0 {
		return apperror.Validation(errs)
	}
	return nil
}

// CreateCourse stores a new draft course with a slug derived from its title.
func CreateCourse(db *gorm.DB, in CourseInput) (course.Course, error) {
	c := course.Course{CourseType: course.TypeSingle, Status: course.StatusDraft}
	in.apply(&c)
	if err := validateCourse(db, c); err != nil {
		return course.Course{}, err
	}

	slug, err := utils.UniqueSlug(db, "courses", "slug", utils.Slugify(c.Title, slugMaxLen))
	if err != nil {
		return course.Course{}, err
	}
	c.Slug = slug

	if err := db.Create(&c).Error; err != nil {
		return course.Course{}, errors.Wrap(err, "create course")
	}
	return c, nil
}

// UpdateCourse applies in to a course. The slug is kept so existing links keep working.
func UpdateCourse(db *gorm.DB, id uint, in CourseInput) (course.Course, error) {
	c, err := ByID(db, id)
	if err != nil {
		return c, err
	}
	in.apply(&c)
	if err := validateCourse(db, c); err != nil {
		return course.Course{}, err
	}
	return c, errors.Wrap(db.Save(&c).Error, "update course")
}

func DeleteCourse(db *gorm.DB, id uint) error {
	c, err := ByID(db, id)
	if err != nil {
		return err
	}
	return errors.Wrap(db.Model(&c).Update("is_deleted", true).Error, "delete course")
}

// SetPublished moves a course between ACTIVE and INACTIVE.
func SetPublished(db *gorm.DB, id uint, published bool) (course.Course, error) {
	status := course.StatusInactive
	if published {
		status = course.StatusActive
	}
	return UpdateCourse(db, id, CourseInput{Status: &status})
}

// AdminCourses lists every non-deleted course regardless of status.
func AdminCourses(db *gorm.DB, page, limit int) ([]course.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	query := db.Model(&course.Course{}).Where("is_deleted = ?", false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count courses")
	}
	var courses []course.Course
	err := query.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&courses).Error
	return courses, total, errors.Wrap(err, "list courses")
}

func CreateCategory(db *gorm.DB, name string) (course.Category, error) {
	if name == "" {
		return course.Category{}, apperror.Validation(map[string]string{"name": "Name is required!"})
	}
	slug, err := utils.UniqueSlug(db, "categories", "slug", utils.Slugify(name, slugMaxLen))
	if err != nil {
		return course.Category{}, err
	}
	cat := course.Category{Name: name, Slug: slug}
	return cat, errors.Wrap(db.Create(&cat).Error, "create category")
}

type BatchInput struct {
	Name        string
	MaxStudents int
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateBatch opens a new batch of a single course.
func CreateBatch(db *gorm.DB, courseID uint, in BatchInput) (course.Batch, error) {
	c, err := ByID(db, courseID)
	if err != nil {
		return course.Batch{}, err
	}
	if c.IsBundle() {
		return course.Batch{}, apperror.Conflict("Bundles have no batches of their own!")
	}

	errs := map[string]string{}
	if in.Name == "" {
		errs["name"] = "Name is required!"
	}
	if in.MaxStudents < 0 {
		errs["max_students"] = "Capacity cannot be negative!"
	}
	if in.StartDate != nil && in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		errs["end_date"] = "End date must be after start date!"
	}
	if len(errs) > 0 {
		return course.Batch{}, apperror.Validation(errs)
	}

	b := course.Batch{
		CourseID:    courseID,
		Name:        in.Name,
		MaxStudents: in.MaxStudents,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsActive:    true,
	}
	return b, errors.Wrap(db.Create(&b).Error, "create batch")
}

// BatchStatus is a batch with its occupied seats.
type BatchStatus struct {
	course.Batch
	Enrolled int64 `json:"enrolled"`
	Open     bool  `json:"open"`
}

func Batches(db *gorm.DB, courseID uint) ([]BatchStatus, error) {
	var batches []course.Batch
	if err := db.Where("course_id = ? AND is_deleted = ?", courseID, false).Order("id asc").Find(&batches).Error; err != nil {
		return nil, errors.Wrap(err, "list batches")
	}
	now := time.Now()
	out := make([]BatchStatus, 0, len(batches))
	for _, b := range batches {
		n, err := SeatsTaken(db, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, BatchStatus{Batch: b, Enrolled: n, Open: b.OpenAt(now, n)})
	}
	return out, nil
}

// CreateModule appends a module to a course.
func CreateModule(db *gorm.DB, courseID uint, title, description string) (course.Module, error) {
	if _, err := ByID(db, courseID); err != nil {
		return course.Module{}, err
	}
	var count int64
	if err := db.Model(&course.Module{}).Where("course_id = ? AND is_deleted = ?", courseID, false).Count(&count).Error; err != nil {
		return course.Module{}, errors.Wrap(err, "count modules")
	}
	m := course.Module{CourseID: courseID, Title: title, Description: description, OrderIndex: int(count)}
	return m, errors.Wrap(db.Create(&m).Error, "create module")
}

// CreateLesson appends a lesson to a module. Quiz lessons need at least one question.
func CreateLesson(db *gorm.DB, moduleID uint, lesson course.Lesson) (course.Lesson, error) {
	var m course.Module
	err := db.Where("id = ? AND is_deleted = ?", moduleID, false).First(&m).Error
	if database.IsNotFound(err) {
		return course.Lesson{}, apperror.NotFound("Module not found!")
	}
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "load module")
	}

	errs := map[string]string{}
	switch lesson.LessonType {
	case course.LessonText, course.LessonVideo, course.LessonAssignment:
	case course.LessonQuiz:
		if len(lesson.Questions) == 0 {
			errs["questions"] = "A quiz needs at least one question!"
		}
		for _, q := range lesson.Questions {
			if q.ID == "" || q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
				errs["questions"] = "Every question needs an id and a valid correct option!"
				break
			}
		}
	default:
		errs["lesson_type"] = "Lesson type must be text, video, quiz or assignment!"
	}
	if len(errs) > 0 {
		return course.Lesson{}, apperror.Validation(errs)
	}

	var count int64
	if err := db.Model(&course.Lesson{}).Where("module_id = ? AND is_deleted = ?", moduleID, false).Count(&count).Error; err != nil {
		return course.Lesson{}, errors.Wrap(err, "count lessons")
	}
	lesson.ID = 0
	lesson.CourseID = m.CourseID
	lesson.ModuleID = m.ID
	lesson.OrderIndex = int(count)
	return lesson, errors.Wrap(db.Create(&lesson).Error, "create lesson")
}
