// Package discussion runs the one-level course and lesson forums.
package discussion

import (
	"fmt"
	"strings"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"
	discussionModels "lms/models/discussion"
	"lms/services/catalog"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Target is what a thread is attached to: a CourseTarget or a LessonTarget.
type Target interface {
	kind() string
	id() uint
}

type CourseTarget struct{ ID uint }

type LessonTarget struct{ ID uint }

func (t CourseTarget) kind() string { return discussionModels.TargetCourse }
func (t CourseTarget) id() uint     { return t.ID }
func (t LessonTarget) kind() string { return discussionModels.TargetLesson }
func (t LessonTarget) id() uint     { return t.ID }

// ParseTarget builds a Target from its wire form ("course" or "lesson" plus an id).
func ParseTarget(kind string, id uint) (Target, error) {
	if id == 0 {
		return nil, apperror.Validation(map[string]string{"discussable_id": "discussable_id is required"})
	}
	switch strings.ToLower(kind) {
	case discussionModels.TargetCourse:
		return CourseTarget{ID: id}, nil
	case discussionModels.TargetLesson:
		return LessonTarget{ID: id}, nil
	}
	return nil, apperror.Validation(map[string]string{"discussable_type": "discussable_type must be course or lesson"})
}

// TargetOf reads the target stored on a discussion row.
func TargetOf(d discussionModels.Discussion) (Target, error) {
	return ParseTarget(d.DiscussableType, d.DiscussableID)
}

// CourseOf resolves the course a target belongs to.
func CourseOf(db *gorm.DB, t Target) (course.Course, error) {
	switch t := t.(type) {
	case CourseTarget:
		return catalog.ByID(db, t.ID)
	case LessonTarget:
		var lesson course.Lesson
		if err := db.Where("id = ? AND is_deleted = ?", t.ID, false).First(&lesson).Error; err != nil {
			if database.IsNotFound(err) {
				return course.Course{}, apperror.NotFound("Lesson not found!")
			}
			return course.Course{}, errors.Wrap(err, "load lesson")
		}
		return catalog.ByID(db, lesson.CourseID)
	default:
		panic(fmt.Sprintf("discussion: unhandled target %T", t))
	}
}

func authorize(db *gorm.DB, user models.User, t Target) (course.Course, error) {
	crs, err := CourseOf(db, t)
	if err != nil {
		return crs, err
	}
	return crs, catalog.RequireCourseAccess(db, user, crs.ID)
}

func load(db *gorm.DB, id uint) (discussionModels.Discussion, error) {
	var d discussionModels.Discussion
	err := db.First(&d, id).Error
	if database.IsNotFound(err) {
		return d, apperror.NotFound("Discussion not found!")
	}
	return d, errors.Wrap(err, "load discussion")
}

// loadAuthorized loads a discussion and checks the user can see its course.
func loadAuthorized(db *gorm.DB, user models.User, id uint) (discussionModels.Discussion, course.Course, error) {
	d, err := load(db, id)
	if err != nil {
		return d, course.Course{}, err
	}
	t, err := TargetOf(d)
	if err != nil {
		return d, course.Course{}, err
	}
	crs, err := authorize(db, user, t)
	return d, crs, err
}

// List returns the root threads of a target with their replies, newest thread first.
func List(db *gorm.DB, user models.User, t Target) ([]discussionModels.Discussion, error) {
	if _, err := authorize(db, user, t); err != nil {
		return nil, err
	}

	var threads []discussionModels.Discussion
	err := db.Where("discussable_type = ? AND discussable_id = ? AND parent_id IS NULL", t.kind(), t.id()).
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc")
		}).
		Order("created_at desc").
		Find(&threads).Error
	return threads, errors.Wrap(err, "list discussions")
}

type PostInput struct {
	Title      string
	Body       string
	IsQuestion bool
}

// Create opens a new root thread.
func Create(db *gorm.DB, user models.User, t Target, in PostInput) (discussionModels.Discussion, error) {
	crs, err := authorize(db, user, t)
	if err != nil {
		return discussionModels.Discussion{}, err
	}

	d := discussionModels.Discussion{
		UserID:          user.ID,
		DiscussableType: t.kind(),
		DiscussableID:   t.id(),
		CourseID:        crs.ID,
		Title:           in.Title,
		Body:            in.Body,
		IsQuestion:      in.IsQuestion,
	}
	return d, errors.Wrap(db.Create(&d).Error, "create discussion")
}

// Reply answers a root thread. Replies to replies are rejected.
func Reply(db *gorm.DB, user models.User, parentID uint, body string) (discussionModels.Discussion, error) {
	parent, crs, err := loadAuthorized(db, user, parentID)
	if err != nil {
		return discussionModels.Discussion{}, err
	}
	if !parent.IsRoot() {
		return discussionModels.Discussion{}, apperror.Conflict("Replies can only be posted on a root discussion!")
	}

	d := discussionModels.Discussion{
		UserID:          user.ID,
		ParentID:        &parent.ID,
		DiscussableType: parent.DiscussableType,
		DiscussableID:   parent.DiscussableID,
		CourseID:        crs.ID,
		Body:            body,
	}
	return d, errors.Wrap(db.Create(&d).Error, "create reply")
}

// Update edits the author's own post.
func Update(db *gorm.DB, user models.User, id uint, in PostInput) (discussionModels.Discussion, error) {
	d, _, err := loadAuthorized(db, user, id)
	if err != nil {
		return d, err
	}
	if d.UserID != user.ID {
		return d, apperror.Forbidden("You can only edit your own posts!")
	}

	updates := map[string]interface{}{"body": in.Body}
	if d.IsRoot() {
		updates["title"] = in.Title
		updates["is_question"] = in.IsQuestion
	}
	if err := db.Model(&d).Updates(updates).Error; err != nil {
		return d, errors.Wrap(err, "update discussion")
	}
	return load(db, d.ID)
}

// Delete removes a post. Deleting a root removes its replies too.
func Delete(db *gorm.DB, user models.User, id uint) error {
	d, err := load(db, id)
	if err != nil {
		return err
	}
	if d.UserID != user.ID && user.Role != models.RoleAdmin {
		return apperror.Forbidden("You can only delete your own posts!")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if d.IsRoot() {
			if err := tx.Where("parent_id = ?", d.ID).Delete(&discussionModels.Discussion{}).Error; err != nil {
				return errors.Wrap(err, "delete replies")
			}
		}
		return errors.Wrap(tx.Delete(&d).Error, "delete discussion")
	})
}

// Upvote adds one vote. The same user may vote repeatedly.
func Upvote(db *gorm.DB, user models.User, id uint) (int, error) {
	d, _, err := loadAuthorized(db, user, id)
	if err != nil {
		return 0, err
	}
	if err := db.Model(&d).UpdateColumn("upvotes", gorm.Expr("upvotes + ?", 1)).Error; err != nil {
		return 0, errors.Wrap(err, "upvote")
	}
	d, err = load(db, d.ID)
	return d.Upvotes, err
}

// MarkAnswered flags a root question as answered. Allowed for the question's author, the
// course instructor and admins.
func MarkAnswered(db *gorm.DB, user models.User, id uint) (discussionModels.Discussion, error) {
	d, crs, err := loadAuthorized(db, user, id)
	if err != nil {
		return d, err
	}
	if !d.IsRoot() || !d.IsQuestion {
		return d, apperror.Conflict("Only root questions can be marked as answered!")
	}

	isInstructor := crs.InstructorID != nil && *crs.InstructorID == user.ID
	if d.UserID != user.ID && !isInstructor && user.Role != models.RoleAdmin {
		return d, apperror.Forbidden("You cannot mark this question as answered!")
	}

	if err := db.Model(&d).Update("is_answered", true).Error; err != nil {
		return d, errors.Wrap(err, "mark answered")
	}
	d.IsAnswered = true
	return d, nil
}
