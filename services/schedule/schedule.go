// Package schedule manages the weekly class routines of batches and their live meeting links.
package schedule

import (
	"log"
	"strings"
	"time"

	"lms/apperror"
	"lms/database"
	"lms/models"
	"lms/models/course"
	"lms/utils"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MeetingSource looks up meetings on the video provider.
type MeetingSource interface {
	Meeting(meetingID string) (utils.ZoomMeeting, error)
}

type RoutineInput struct {
	Weekday   int
	StartTime string
	EndTime   string
	OffDates  []string
}

func loadBatch(db *gorm.DB, batchID uint) (course.Batch, error) {
	var b course.Batch
	err := db.Where("id = ? AND is_deleted = ?", batchID, false).First(&b).Error
	if database.IsNotFound(err) {
		return b, apperror.NotFound("Batch not found!")
	}
	return b, errors.Wrap(err, "load batch")
}

func validateRoutine(in RoutineInput) map[string]string {
	errs := map[string]string{}
	if in.Weekday < 0 || in.Weekday > 6 {
		errs["weekday"] = "Weekday must be between 0 (Sunday) and 6!"
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		errs["start_time"] = "Start time must be HH:MM!"
	}
	end, err2 := time.Parse("15:04", in.EndTime)
	if err2 != nil {
		errs["end_time"] = "End time must be HH:MM!"
	}
	if err == nil && err2 == nil && !end.After(start) {
		errs["end_time"] = "End time must be after start time!"
	}
	for _, d := range in.OffDates {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(d)); err != nil {
			errs["off_dates"] = "Off dates must be YYYY-MM-DD!"
			break
		}
	}
	return errs
}

// CreateRoutine adds an active weekly slot to a batch.
func CreateRoutine(db *gorm.DB, batchID uint, in RoutineInput) (course.ClassRoutine, error) {
	if _, err := loadBatch(db, batchID); err != nil {
		return course.ClassRoutine{}, err
	}
	if errs := validateRoutine(in); len(errs) > 0 {
		return course.ClassRoutine{}, apperror.Validation(errs)
	}

	r := course.ClassRoutine{
		BatchID:   batchID,
		Weekday:   in.Weekday,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		OffDates:  datatypes.JSONSlice[string](in.OffDates),
		IsActive:  true,
	}
	return r, errors.Wrap(db.Create(&r).Error, "create routine")
}

// Routines lists the active routines of a batch for staff or its active students.
func Routines(db *gorm.DB, user models.User, batchID uint) ([]course.ClassRoutine, error) {
	if err := requireBatchMember(db, user, batchID); err != nil {
		return nil, err
	}
	var routines []course.ClassRoutine
	err := db.Where("batch_id = ? AND is_active = ?", batchID, true).Order("weekday asc, start_time asc").Find(&routines).Error
	return routines, errors.Wrap(err, "list routines")
}

type ZoomInput struct {
	Topic     string
	MeetingID string
	JoinURL   string
	Password  string
}

// UpsertZoom sets the meeting of a batch, replacing the previous one.
func UpsertZoom(db *gorm.DB, batchID uint, in ZoomInput) (course.Zoom, error) {
	if _, err := loadBatch(db, batchID); err != nil {
		return course.Zoom{}, err
	}
	if in.MeetingID == "" && in.JoinURL == "" {
		return course.Zoom{}, apperror.Validation(map[string]string{"meeting_id": "Meeting id or join url is required!"})
	}

	z := course.Zoom{BatchID: batchID, Topic: in.Topic, MeetingID: in.MeetingID, JoinURL: in.JoinURL, Password: in.Password}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"topic", "meeting_id", "join_url", "password", "updated_at"}),
	}).Create(&z).Error
	if err != nil {
		return course.Zoom{}, errors.Wrap(err, "save zoom")
	}
	return z, errors.Wrap(db.Where("batch_id = ?", batchID).First(&z).Error, "reload zoom")
}

func requireBatchMember(db *gorm.DB, user models.User, batchID uint) error {
	if _, err := loadBatch(db, batchID); err != nil {
		return err
	}
	if user.IsStaff() {
		return nil
	}
	var n int64
	if err := db.Model(&course.Enrollment{}).
		Where("user_id = ? AND batch_id = ? AND status = ?", user.ID, batchID, course.EnrollmentActive).
		Count(&n).Error; err != nil {
		return errors.Wrap(err, "check enrollment")
	}
	if n == 0 {
		return apperror.Forbidden("You are not enrolled in this batch!")
	}
	return nil
}

// ZoomFor returns the meeting of a batch. When only the meeting id is known and source is set,
// the join link is fetched from the provider and cached on the row.
func ZoomFor(db *gorm.DB, source MeetingSource, user models.User, batchID uint) (course.Zoom, error) {
	if err := requireBatchMember(db, user, batchID); err != nil {
		return course.Zoom{}, err
	}

	var z course.Zoom
	err := db.Where("batch_id = ?", batchID).First(&z).Error
	if database.IsNotFound(err) {
		return z, apperror.NotFound("No meeting has been set for this batch!")
	}
	if err != nil {
		return z, errors.Wrap(err, "load zoom")
	}
	if z.JoinURL != "" || z.MeetingID == "" || source == nil {
		return z, nil
	}

	meeting, err := source.Meeting(z.MeetingID)
	if err != nil {
		log.Printf("[ZOOM] Error fetching meeting %s for batch %d: %v", z.MeetingID, batchID, err)
		utils.ReportError("ZOOM", err, map[string]interface{}{"batch_id": batchID})
		return z, nil
	}
	z.JoinURL = meeting.JoinURL
	if z.Password == "" {
		z.Password = meeting.Password
	}
	if z.Topic == "" {
		z.Topic = meeting.Topic
	}
	if err := db.Model(&z).Select("join_url", "password", "topic").Updates(&z).Error; err != nil {
		log.Printf("[ZOOM] Error caching meeting %s: %v", z.MeetingID, err)
	}
	return z, nil
}
