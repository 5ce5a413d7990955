package utils

import (
	"sync"
	"testing"
	"time"

	"lms/models"
	"lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func routine(id uint, weekday time.Weekday, start string, off ...string) course.ClassRoutine {
	r := course.ClassRoutine{Weekday: int(weekday), StartTime: start, EndTime: "23:59", OffDates: off, IsActive: true}
	r.ID = id
	return r
}

func TestDueRoutinesWindow(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local)
	day := at.Weekday()

	routines := []course.ClassRoutine{
		routine(1, day, "09:30"),
		routine(2, day, "09:31"),
		routine(3, day, "09:29"),
		routine(4, (day+1)%7, "09:30"),
		routine(5, day, "09:30", "2026-10-14"),
		routine(6, day, "bogus"),
	}
	inactive := routine(7, day, "09:30")
	inactive.IsActive = false
	routines = append(routines, inactive)

	due := DueRoutines(routines, at, 30)
	require.Len(t, due, 1)
	assert.EqualValues(t, 1, due[0].ID)

	// Thirty seconds later the 09:30 class is still inside [30, 31) minutes ahead.
	due = DueRoutines(routines, at.Add(-30*time.Second), 30)
	require.Len(t, due, 1)
	assert.EqualValues(t, 1, due[0].ID)
}

func TestSendClassReminders(t *testing.T) {
	db := testutil.NewDB(t)
	crs := testutil.Course(t, db, "Go Basics", "100")
	batch := testutil.Batch(t, db, crs.ID, "Go Basics Batch 1", 0)

	active := testutil.User(t, db, models.RoleStudent)
	testutil.Enroll(t, db, active.ID, batch, course.EnrollmentActive)
	dropped := testutil.User(t, db, models.RoleStudent)
	testutil.Enroll(t, db, dropped.ID, batch, course.EnrollmentDropped)

	require.NoError(t, db.Create(&course.Zoom{BatchID: batch.ID, JoinURL: "https://zoom.us/j/42"}).Error)

	at := time.Date(2026, 10, 14, 18, 0, 0, 0, time.Local)
	r := course.ClassRoutine{BatchID: batch.ID, Weekday: int(at.Weekday()), StartTime: "18:30", EndTime: "20:00", IsActive: true}
	require.NoError(t, db.Create(&r).Error)

	m := &recordingMailer{}
	sent, err := SendClassReminders(db, m, at, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{active.Email}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "Go Basics")
	assert.Contains(t, m.sent[0].Body, "https://zoom.us/j/42")

	sent, err = SendClassReminders(db, m, at.Add(5*time.Minute), 30)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestPurgeTokenBlacklist(t *testing.T) {
	db := testutil.NewDB(t)
	at := time.Now()

	require.NoError(t, db.Create(&models.TokenBlacklist{Token: "expired", ExpiresAt: at.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.TokenBlacklist{Token: "live", ExpiresAt: at.Add(time.Hour)}).Error)

	n, err := PurgeTokenBlacklist(db, at, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []models.TokenBlacklist
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "live", left[0].Token)
}
