package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SubmissionQuiz       = "quiz"
	SubmissionAssignment = "assignment"

	SubmissionPending = "pending"
	SubmissionGraded  = "graded"
)

// SubmittedAnswer is one answer of a quiz submission
type SubmittedAnswer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
}

// Submission is a user's quiz answers or assignment work for a lesson
type Submission struct {
	gorm.Model
	UserID    uint                                 `json:"user_id" gorm:"index;not null"`
	LessonID  uint                                 `json:"lesson_id" gorm:"index;not null"`
	Type      string                               `json:"type" gorm:"not null"` // quiz, assignment
	Content   string                               `json:"content" gorm:"type:text"`
	Answers   datatypes.JSONSlice[SubmittedAnswer] `json:"answers"`
	Files     datatypes.JSONSlice[string]          `json:"files"`
	Score     *int                                 `json:"score"`
	MaxScore  *int                                 `json:"max_score"`
	Status    string                               `json:"status" gorm:"default:'pending'"` // pending, graded
	Feedback  string                               `json:"feedback" gorm:"type:text"`
	GradedBy  *uint                                `json:"graded_by"`
	GradedAt  *time.Time                           `json:"graded_at"`
	IsDeleted bool                                 `json:"-" gorm:"default:false"`

	Lesson *Lesson `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
}

// LessonCompletion tracks user's completion of a lesson
type LessonCompletion struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_completion_user_lesson"`
	LessonID uint `json:"lesson_id" gorm:"not null;uniqueIndex:idx_completion_user_lesson"`
	CourseID uint `json:"course_id" gorm:"index;not null"`
}
