// Package provisioning turns paid orders into enrollments.
//
// Every call is safe to repeat: a course the user is already active in is skipped, batch
// decisions for a course are serialised by a row lock on the course, and the enrollment
// insert relies on the unique (user_id, batch_id) index instead of a prior existence check.
package provisioning

import (
	"fmt"
	"log"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"
	"lms/services/catalog"
	"lms/services/events"
	"lms/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchCapacity is used for a generated batch when the course has no batch to copy from.
const DefaultBatchCapacity = 50

// Outcome describes what happened for one target course.
type Outcome struct {
	CourseID   uint              `json:"course_id"`
	Enrollment course.Enrollment `json:"enrollment"`
	Created    bool              `json:"created"`
	NewBatch   bool              `json:"new_batch"`
}

// HandleOrderPaid is the OrderPaid subscriber. It runs inside the transaction that marked
// the order paid, so a failure here rolls the payment back too.
func HandleOrderPaid(tx *gorm.DB, evt events.Event) error {
	paid, ok := evt.(events.OrderPaid)
	if !ok {
		return nil
	}
	orderID := paid.OrderID
	outcomes, err := Provision(tx, paid.UserID, paid.CourseID, &orderID)
	if err != nil {
		log.Printf("[PROVISION] order %d failed: %v", paid.OrderID, err)
		return err
	}
	for _, o := range outcomes {
		if o.Created {
			log.Printf("[PROVISION] order %d enrolled user %d in batch %d", paid.OrderID, paid.UserID, o.Enrollment.BatchID)
		}
	}
	return nil
}

// Provision enrolls userID in courseID, or in every member course when it is a bundle.
// Callers should pass a transaction.
func Provision(tx *gorm.DB, userID, courseID uint, orderID *uint) ([]Outcome, error) {
	crs, err := catalog.ByID(tx, courseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	outcomes := make([]Outcome, 0, len(crs.TargetCourseIDs()))
	for _, target := range crs.TargetCourseIDs() {
		outcome, err := enrollInCourse(tx, userID, target, orderID, now)
		if err != nil {
			return nil, errors.Wrapf(err, "course %d", target)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func enrollInCourse(tx *gorm.DB, userID, courseID uint, orderID *uint, now time.Time) (Outcome, error) {
	outcome := Outcome{CourseID: courseID}

	// Lock first so two confirmations for the same course cannot both pass the checks below.
	var target course.Course
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", courseID, false).First(&target).Error; err != nil {
		if database.IsNotFound(err) {
			return outcome, apperror.NotFound("Course %d not found!", courseID)
		}
		return outcome, errors.Wrap(err, "lock course")
	}

	active, err := catalog.ActiveEnrollment(tx, userID, courseID)
	if err != nil {
		return outcome, err
	}
	if active != nil {
		outcome.Enrollment = *active
		return outcome, nil
	}

	batch, created, err := availableBatch(tx, target, now)
	if err != nil {
		return outcome, err
	}
	outcome.NewBatch = created

	enrollment, inserted, err := insertEnrollment(tx, userID, batch, orderID, now)
	if err != nil {
		return outcome, err
	}
	outcome.Enrollment = enrollment
	outcome.Created = inserted
	return outcome, nil
}

// availableBatch returns the oldest batch accepting enrollments, creating
// "{title} Batch {n+1}" when none does. The caller must hold the course lock.
func availableBatch(tx *gorm.DB, crs course.Course, now time.Time) (course.Batch, bool, error) {
	open, err := catalog.OpenBatches(tx, crs.ID, now)
	if err != nil {
		return course.Batch{}, false, err
	}
	if len(open) > 0 {
		return open[0], false, nil
	}

	var count int64
	if err := tx.Unscoped().Model(&course.Batch{}).Where("course_id = ?", crs.ID).Count(&count).Error; err != nil {
		return course.Batch{}, false, errors.Wrap(err, "count batches")
	}

	capacity := DefaultBatchCapacity
	var latest course.Batch
	err = tx.Where("course_id = ?", crs.ID).Order("id desc").First(&latest).Error
	switch {
	case err == nil && latest.MaxStudents > 0:
		capacity = latest.MaxStudents
	case err != nil && !database.IsNotFound(err):
		return course.Batch{}, false, errors.Wrap(err, "load latest batch")
	}

	batch := course.Batch{
		CourseID:    crs.ID,
		Name:        fmt.Sprintf("%s Batch %d", crs.Title, count+1),
		MaxStudents: capacity,
		IsActive:    true,
		StartDate:   &now,
	}
	if err := tx.Create(&batch).Error; err != nil {
		return course.Batch{}, false, errors.Wrap(err, "create batch")
	}
	log.Printf("[PROVISION] created batch %q for course %d", batch.Name, crs.ID)
	return batch, true, nil
}

// insertEnrollment inserts (user, batch) or returns the row that already holds the pair.
// An existing pending or dropped row is reactivated.
func insertEnrollment(tx *gorm.DB, userID uint, batch course.Batch, orderID *uint, now time.Time) (course.Enrollment, bool, error) {
	enrollment := course.Enrollment{
		UserID:     userID,
		BatchID:    batch.ID,
		CourseID:   batch.CourseID,
		OrderID:    orderID,
		Status:     course.EnrollmentActive,
		EnrolledAt: now,
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "batch_id"}},
		DoNothing: true,
	}).Create(&enrollment)
	if res.Error != nil {
		return enrollment, false, errors.Wrap(res.Error, "insert enrollment")
	}
	if res.RowsAffected > 0 {
		return enrollment, true, nil
	}

	var existing course.Enrollment
	if err := tx.Unscoped().Where("user_id = ? AND batch_id = ?", userID, batch.ID).First(&existing).Error; err != nil {
		return existing, false, errors.Wrap(err, "load existing enrollment")
	}

	switch {
	case existing.DeletedAt.Valid,
		existing.Status == course.EnrollmentPending,
		existing.Status == course.EnrollmentDropped,
		existing.Status == course.EnrollmentSuspended:
		updates := map[string]interface{}{
			"status":     course.EnrollmentActive,
			"deleted_at": nil,
		}
		if orderID != nil {
			updates["order_id"] = *orderID
		}
		if err := tx.Unscoped().Model(&existing).Updates(updates).Error; err != nil {
			return existing, false, errors.Wrap(err, "reactivate enrollment")
		}
		existing.Status = course.EnrollmentActive
		existing.DeletedAt = gorm.DeletedAt{}
		if orderID != nil {
			existing.OrderID = orderID
		}
	}
	return existing, false, nil
}

// AdmitResult summarises a bulk admission.
type AdmitResult struct {
	Admitted []uint `json:"admitted"`
	Skipped  []uint `json:"skipped"`
}

// BulkAdmit enrolls users straight into batchID, respecting capacity.
// Users already active in the course are skipped.
func BulkAdmit(db *gorm.DB, batchID uint, userIDs []uint) (AdmitResult, error) {
	result := AdmitResult{Admitted: []uint{}, Skipped: []uint{}}

	err := db.Transaction(func(tx *gorm.DB) error {
		var batch course.Batch
		if err := tx.Where("id = ? AND is_deleted = ?", batchID, false).First(&batch).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound("Batch not found!")
			}
			return errors.Wrap(err, "load batch")
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", batch.CourseID).First(&course.Course{}).Error; err != nil {
			return errors.Wrap(err, "lock course")
		}

		now := time.Now()
		for _, userID := range userIDs {
			active, err := catalog.ActiveEnrollment(tx, userID, batch.CourseID)
			if err != nil {
				return err
			}
			if active != nil {
				result.Skipped = append(result.Skipped, userID)
				continue
			}

			taken, err := catalog.SeatsTaken(tx, batch.ID)
			if err != nil {
				return err
			}
			if !batch.OpenAt(now, taken) {
				return apperror.Conflict("Batch %s is full or closed!", batch.Name)
			}

			if _, inserted, err := insertEnrollment(tx, userID, batch, nil, now); err != nil {
				return err
			} else if !inserted {
				log.Printf("[PROVISION] reused enrollment of user %d in batch %d", userID, batch.ID)
			}
			result.Admitted = append(result.Admitted, userID)
		}
		return nil
	})
	return result, err
}

// EnrollFree enrolls a user in a course whose effective price is zero.
func EnrollFree(db *gorm.DB, userID, courseID uint) ([]Outcome, error) {
	crs, err := catalog.ByID(db, courseID)
	if err != nil {
		return nil, err
	}
	if crs.Status != course.StatusActive {
		return nil, apperror.NotFound("Course not found or not active!")
	}
	if !crs.EffectivePrice().IsZero() {
		return nil, apperror.Conflict("This course requires payment. Please place an order.")
	}

	var outcomes []Outcome
	err = db.Transaction(func(tx *gorm.DB) error {
		if !crs.IsBundle() {
			active, err := catalog.ActiveEnrollment(tx, userID, courseID)
			if err != nil {
				return err
			}
			if active != nil {
				return apperror.Conflict("You are already enrolled in this course!")
			}
		}
		outcomes, err = Provision(tx, userID, courseID, nil)
		return err
	})
	return outcomes, err
}

// NotifyOrder emails the enrollments created for a paid order. Call it after the
// transaction that marked the order paid has committed.
func NotifyOrder(db *gorm.DB, orderID uint) {
	var enrollments []course.Enrollment
	if err := db.Preload("Batch").Preload("Course").Where("order_id = ?", orderID).Find(&enrollments).Error; err != nil {
		log.Printf("[PROVISION] loading enrollments of order %d for email: %v", orderID, err)
		return
	}
	notify(db, enrollments)
}

// NotifyUser emails the user about enrollments they just received.
func NotifyUser(db *gorm.DB, userID, batchID uint) {
	var enrollments []course.Enrollment
	if err := db.Preload("Batch").Preload("Course").
		Where("user_id = ? AND batch_id = ?", userID, batchID).Find(&enrollments).Error; err != nil {
		log.Printf("[PROVISION] loading enrollment of user %d for email: %v", userID, err)
		return
	}
	notify(db, enrollments)
}

func notify(db *gorm.DB, enrollments []course.Enrollment) {
	for _, e := range enrollments {
		var user models.User
		if err := db.First(&user, e.UserID).Error; err != nil || e.Course == nil || e.Batch == nil {
			continue
		}
		utils.SendEnrollmentEmail(user.Email, user.Name, e.Course.Title, e.Batch.Name)
	}
}

// ListForUser returns the user's enrollments with their batch and course, newest first.
func ListForUser(db *gorm.DB, userID uint) ([]course.Enrollment, error) {
	var enrollments []course.Enrollment
	err := db.Preload("Batch").Preload("Course").
		Where("user_id = ?", userID).Order("enrolled_at desc").Find(&enrollments).Error
	return enrollments, errors.Wrap(err, "list enrollments")
}
