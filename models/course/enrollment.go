package course

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentPending   = "pending"
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentSuspended = "suspended"
	EnrollmentDropped   = "dropped"
)

// Enrollment is a user's membership in a batch. CourseID mirrors the batch's course so
// "already enrolled in this course" can be checked without a join.
type Enrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_batch"`
	BatchID     uint       `json:"batch_id" gorm:"not null;uniqueIndex:idx_enrollment_user_batch"`
	CourseID    uint       `json:"course_id" gorm:"index;not null"`
	OrderID     *uint      `json:"order_id" gorm:"index"`
	Status      string     `json:"status" gorm:"default:'pending'"` // pending, active, completed, suspended, dropped
	Progress    float64    `json:"progress" gorm:"default:0"`       // Completion percentage (0-100)
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Batch  *Batch  `json:"batch,omitempty" gorm:"foreignKey:BatchID"`
	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

// Batch is a scheduled cohort of a course
type Batch struct {
	gorm.Model
	CourseID    uint       `json:"course_id" gorm:"index;not null"`
	Name        string     `json:"name" gorm:"not null"`
	MaxStudents int        `json:"max_students" gorm:"default:0"` // 0 means unlimited
	IsActive    bool       `json:"is_active"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsDeleted   bool       `json:"-" gorm:"default:false"`
}

// OpenAt reports whether the batch accepts enrollments at t given its current enrollment count.
func (b Batch) OpenAt(t time.Time, enrolled int64) bool {
	if !b.IsActive || b.IsDeleted {
		return false
	}
	if b.EndDate != nil && !b.EndDate.After(t) {
		return false
	}
	return b.MaxStudents <= 0 || enrolled < int64(b.MaxStudents)
}
