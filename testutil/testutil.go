// Package testutil opens throwaway sqlite databases and builds fixtures for service tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lms/database"
	"lms/models"
	"lms/models/course"
	"lms/models/exam"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// NewDB returns a migrated sqlite database living in t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lms.db")
	db, err := gorm.Open(sqlite.Open(database.SqliteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func User(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	n := next()
	user := models.User{
		Name:     fmt.Sprintf("User %d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Role:     role,
		Password: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func Course(t *testing.T, db *gorm.DB, title string, price string) course.Course {
	t.Helper()
	c := course.Course{
		Title:      title,
		Slug:       fmt.Sprintf("course-%d", next()),
		Price:      decimal.RequireFromString(price),
		CourseType: course.TypeSingle,
		Status:     course.StatusActive,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func Bundle(t *testing.T, db *gorm.DB, title string, price string, members ...uint) course.Course {
	t.Helper()
	c := course.Course{
		Title:         title,
		Slug:          fmt.Sprintf("bundle-%d", next()),
		Price:         decimal.RequireFromString(price),
		CourseType:    course.TypeBundle,
		BundleCourses: members,
		Status:        course.StatusActive,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func Batch(t *testing.T, db *gorm.DB, courseID uint, name string, maxStudents int) course.Batch {
	t.Helper()
	b := course.Batch{CourseID: courseID, Name: name, MaxStudents: maxStudents, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func Enroll(t *testing.T, db *gorm.DB, userID uint, b course.Batch, status string) course.Enrollment {
	t.Helper()
	e := course.Enrollment{
		UserID:     userID,
		BatchID:    b.ID,
		CourseID:   b.CourseID,
		Status:     status,
		EnrolledAt: time.Now(),
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// Exam creates an exam whose i-th question has answers[i] as its correct option.
func Exam(t *testing.T, db *gorm.DB, b course.Batch, totalTime int, answers ...int) exam.Exam {
	t.Helper()
	content := make([]exam.Question, len(answers))
	for i, a := range answers {
		content[i] = exam.Question{
			Question:    fmt.Sprintf("Question %d", i+1),
			Options:     []string{"A", "B", "C", "D"},
			AnswerIndex: a,
		}
	}
	e := exam.Exam{
		CourseID:  b.CourseID,
		BatchID:   b.ID,
		Title:     "Final exam",
		TotalTime: totalTime,
		Content:   content,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// Lessons creates one module with n text lessons.
func Lessons(t *testing.T, db *gorm.DB, courseID uint, n int) []course.Lesson {
	t.Helper()
	module := course.Module{CourseID: courseID, Title: "Module 1"}
	require.NoError(t, db.Create(&module).Error)

	lessons := make([]course.Lesson, n)
	for i := range lessons {
		lessons[i] = course.Lesson{
			CourseID:   courseID,
			ModuleID:   module.ID,
			Title:      fmt.Sprintf("Lesson %d", i+1),
			LessonType: course.LessonText,
			OrderIndex: i,
		}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}
	return lessons
}
