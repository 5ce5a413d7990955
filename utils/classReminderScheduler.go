package utils

import (
	"log"
	"strings"
	"time"

	"lms/models"
	"lms/models/course"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ClassStart is the start of routine r on the calendar day of day.
func ClassStart(r course.ClassRoutine, day time.Time) (time.Time, bool) {
	clock, err := time.Parse("15:04", strings.TrimSpace(r.StartTime))
	if err != nil {
		return time.Time{}, false
	}
	midnight := now.With(day).BeginningOfDay()
	return midnight.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), true
}

// DueRoutines returns the active routines held today whose class starts between lead and
// lead+1 minutes after t. Off dates are skipped.
func DueRoutines(routines []course.ClassRoutine, t time.Time, leadMinutes int) []course.ClassRoutine {
	today := t.Format("2006-01-02")
	from := t.Add(time.Duration(leadMinutes) * time.Minute)
	to := from.Add(time.Minute)

	var due []course.ClassRoutine
	for _, r := range routines {
		if !r.IsActive || time.Weekday(r.Weekday) != t.Weekday() {
			continue
		}
		if isOffDate(r, today) {
			continue
		}
		start, ok := ClassStart(r, t)
		if !ok {
			log.Printf("[CLASS-REMINDER] Routine %d has invalid start time %q", r.ID, r.StartTime)
			continue
		}
		if !start.Before(from) && start.Before(to) {
			due = append(due, r)
		}
	}
	return due
}

func isOffDate(r course.ClassRoutine, day string) bool {
	for _, d := range r.OffDates {
		if strings.TrimSpace(d) == day {
			return true
		}
	}
	return false
}

// SendClassReminders emails every active student of each batch whose class is due and
// returns the number of emails sent.
func SendClassReminders(db *gorm.DB, m Mailer, t time.Time, leadMinutes int) (int, error) {
	var routines []course.ClassRoutine
	if err := db.Where("is_active = ? AND weekday = ?", true, int(t.Weekday())).Find(&routines).Error; err != nil {
		return 0, errors.Wrap(err, "load routines")
	}

	sent := 0
	for _, r := range DueRoutines(routines, t, leadMinutes) {
		var batch course.Batch
		if err := db.Where("id = ? AND is_deleted = ?", r.BatchID, false).First(&batch).Error; err != nil {
			log.Printf("[CLASS-REMINDER] Skipping routine %d: batch %d: %v", r.ID, r.BatchID, err)
			continue
		}
		var crs course.Course
		if err := db.First(&crs, batch.CourseID).Error; err != nil {
			log.Printf("[CLASS-REMINDER] Skipping routine %d: course %d: %v", r.ID, batch.CourseID, err)
			continue
		}

		var zoom course.Zoom
		joinURL := ""
		if err := db.Where("batch_id = ?", batch.ID).First(&zoom).Error; err == nil {
			joinURL = zoom.JoinURL
		}

		var students []models.User
		if err := db.Model(&models.User{}).
			Joins("JOIN enrollments ON enrollments.user_id = users.id AND enrollments.deleted_at IS NULL").
			Where("enrollments.batch_id = ? AND enrollments.status = ? AND users.is_deleted = ?", batch.ID, course.EnrollmentActive, false).
			Find(&students).Error; err != nil {
			return sent, errors.Wrap(err, "load students")
		}

		for _, s := range students {
			if err := SendClassReminderEmail(m, s.Email, s.Name, crs.Title, batch.Name, r.StartTime, joinURL); err != nil {
				log.Printf("[CLASS-REMINDER] Error emailing %s: %v", s.Email, err)
				continue
			}
			sent++
		}
		log.Printf("[CLASS-REMINDER] Routine %d (%s, %s): reminded %d students", r.ID, crs.Title, batch.Name, len(students))
	}
	return sent, nil
}

// InitializeSchedulers starts the class reminder job (every minute) and the token blacklist
// cleanup (hourly). The returned cron must be stopped on shutdown.
func InitializeSchedulers(db *gorm.DB, m Mailer, leadMinutes, blacklistTTLDays int) *cron.Cron {
	log.Println("[SCHEDULER] Initializing schedulers...")

	c := cron.New()

	c.AddFunc("* * * * *", func() {
		if _, err := SendClassReminders(db, m, time.Now(), leadMinutes); err != nil {
			ReportError("CLASS-REMINDER", err, nil)
		}
	})

	c.AddFunc("@hourly", func() {
		n, err := PurgeTokenBlacklist(db, time.Now(), blacklistTTLDays)
		if err != nil {
			ReportError("TOKEN-CLEANUP", err, nil)
			return
		}
		if n > 0 {
			log.Printf("[TOKEN-CLEANUP] Removed %d blacklisted tokens", n)
		}
	})

	c.Start()
	log.Println("[SCHEDULER] Class reminders run every minute, token cleanup hourly")
	return c
}

// PurgeTokenBlacklist deletes blacklist entries whose token has expired or that are older
// than ttlDays.
func PurgeTokenBlacklist(db *gorm.DB, t time.Time, ttlDays int) (int64, error) {
	cutoff := t.AddDate(0, 0, -ttlDays)
	res := db.Where("expires_at < ? OR created_at < ?", t, cutoff).Delete(&models.TokenBlacklist{})
	return res.RowsAffected, errors.Wrap(res.Error, "purge token blacklist")
}
