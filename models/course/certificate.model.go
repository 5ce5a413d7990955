package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents a certificate earned by passing an exam
type Certificate struct {
	gorm.Model
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	CourseID       uint      `json:"course_id" gorm:"index;not null"`
	ExamResponseID uint      `json:"exam_response_id" gorm:"uniqueIndex;not null"`
	Code           string    `json:"code" gorm:"uniqueIndex;size:64;not null"`
	FilePath       string    `json:"file_path"`
	FileURL        string    `json:"file_url"`
	IssuedAt       time.Time `json:"issued_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
